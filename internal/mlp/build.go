package mlp

import "sort"

// BisectionResult is the input to the partition constructor: for every
// node, a bit string (one bit per recursive split) recording which side of
// each bisection the node fell on. BitsPerNode is the bisection depth.
type BisectionResult struct {
	NumNodes    uint32
	BitsPerNode uint8
	NodeBits    []uint64 // one packed word per node, low BitsPerNode bits valid
}

// Schedule gives the target number of cells for each level, coarsest
// first; the last entry is the finest (base) level.
type Schedule []uint32

// BuildFromBisection turns a recursive-bisection result into a Partition
// by grouping bisection ids by prefix: for each level, pick the shortest
// prefix length whose distinct-group count is at least the level's target
// cell count, folding the highest-numbered excess groups (by numeric
// prefix) into the last group kept when the schedule is not an exact
// power-of-two factor of the bisection depth. The result is deterministic
// for a given bisection and schedule.
func BuildFromBisection(br BisectionResult, sched Schedule) *Partition {
	p := &Partition{NumNodes: br.NumNodes}
	if len(sched) == 0 {
		return p
	}
	if len(sched) > maxLevels {
		sched = sched[:maxLevels]
	}

	levelCells := make([][]uint32, len(sched)) // level -> per-node cell id
	levelCounts := make([]uint32, len(sched))

	for li, target := range sched {
		prefixLen := shortestPrefix(br, target)
		cellOfPrefix, numGroups := groupByPrefix(br, prefixLen)
		cellOfPrefix, numGroups = mergeToTarget(cellOfPrefix, numGroups, target)

		cells := make([]uint32, br.NumNodes)
		for n := uint32(0); n < br.NumNodes; n++ {
			prefix := br.NodeBits[n] >> (br.BitsPerNode - prefixLen)
			cells[n] = cellOfPrefix[prefix]
		}
		levelCells[li] = cells
		levelCounts[li] = numGroups
	}

	// Assign bit widths and shifts, packing coarsest level at the lowest
	// shift to match HighestDifferentLevel's coarsest-to-finest scan
	// (low level index first).
	p.Levels = make([]LevelInfo, len(sched))
	var shift uint8
	for li := range sched {
		width := bitsNeeded(levelCounts[li])
		p.Levels[li] = LevelInfo{NumCells: levelCounts[li], Bits: width, Shift: shift}
		shift += width
	}
	if shift > 64 {
		panic("mlp: partition levels exceed 64 packed bits")
	}

	p.packed = make([]uint64, br.NumNodes)
	for n := uint32(0); n < br.NumNodes; n++ {
		var word uint64
		for li := range sched {
			word |= uint64(levelCells[li][n]) << p.Levels[li].Shift
		}
		p.packed[n] = word
	}

	buildChildIndex(p, levelCells, levelCounts)
	return p
}

// shortestPrefix finds the smallest prefix length (in bits, 1..BitsPerNode)
// whose induced grouping of bisection ids has at least `target` distinct
// groups — the coarsest grouping that is at least as fine as the level
// wants, since group count only grows with prefix length and mergeToTarget
// can fold excess groups back down but never split a group that was never
// made.
func shortestPrefix(br BisectionResult, target uint32) uint8 {
	for length := uint8(1); length <= br.BitsPerNode; length++ {
		_, n := groupByPrefix(br, length)
		if n >= target {
			return length
		}
	}
	return br.BitsPerNode
}

// groupByPrefix assigns a dense 0-based group id to each distinct
// `length`-bit prefix seen across all nodes, in ascending prefix order
// (so the mapping is deterministic). A node's bisection code is read
// root-split-first: bit BitsPerNode-1 records the first (coarsest) split,
// bit 0 the last (finest) one, so the first `length` splits are its top
// `length` bits, not its low ones.
func groupByPrefix(br BisectionResult, length uint8) (map[uint64]uint32, uint32) {
	shift := br.BitsPerNode - length
	seen := make(map[uint64]struct{})
	for n := uint32(0); n < br.NumNodes; n++ {
		seen[br.NodeBits[n]>>shift] = struct{}{}
	}
	prefixes := make([]uint64, 0, len(seen))
	for pfx := range seen {
		prefixes = append(prefixes, pfx)
	}
	sort.Slice(prefixes, func(i, j int) bool { return prefixes[i] < prefixes[j] })

	out := make(map[uint64]uint32, len(prefixes))
	for i, pfx := range prefixes {
		out[pfx] = uint32(i)
	}
	return out, uint32(len(prefixes))
}

// mergeToTarget folds the highest-numbered groups (by prefix order) one
// at a time into the group before them until the group count equals
// target, so group target-1 absorbs every excess group; no group is
// split, since no split information survives this stage.
func mergeToTarget(cellOfPrefix map[uint64]uint32, numGroups, target uint32) (map[uint64]uint32, uint32) {
	if target == 0 || numGroups <= target {
		return cellOfPrefix, numGroups
	}

	remap := make([]uint32, numGroups)
	for i := range remap {
		remap[i] = uint32(i)
	}

	excess := numGroups - target
	// Fold the tail groups into the group immediately before them.
	next := numGroups - 1
	for i := uint32(0); i < excess; i++ {
		remap[next] = next - 1
		next--
	}
	// Compact remaining ids to 0..target-1.
	final := make(map[uint32]uint32)
	var nextID uint32
	for i := uint32(0); i < numGroups; i++ {
		r := remap[i]
		for remap[r] != r {
			r = remap[r]
		}
		if _, ok := final[r]; !ok {
			final[r] = nextID
			nextID++
		}
	}

	out := make(map[uint64]uint32, len(cellOfPrefix))
	for pfx, g := range cellOfPrefix {
		out[pfx] = final[remap[g]]
	}
	return out, nextID
}

// buildChildIndex derives, for each level above the finest, the range of
// finer-level cell ids contained in each coarser cell, by scanning every
// node once per adjacent level pair and recording which fine cell ids
// appear under which coarse cell id.
func buildChildIndex(p *Partition, levelCells [][]uint32, levelCounts []uint32) {
	numLevels := len(levelCells)
	p.childBegin = make([][]uint32, numLevels)
	p.childEnd = make([][]uint32, numLevels)
	p.childIDs = make([][]uint32, numLevels)

	for li := 0; li < numLevels-1; li++ {
		coarse := levelCells[li]
		fine := levelCells[li+1]

		children := make(map[uint32]map[uint32]struct{})
		for n := uint32(0); n < p.NumNodes; n++ {
			c, f := coarse[n], fine[n]
			set, ok := children[c]
			if !ok {
				set = make(map[uint32]struct{})
				children[c] = set
			}
			set[f] = struct{}{}
		}

		begin := make([]uint32, levelCounts[li])
		end := make([]uint32, levelCounts[li])
		var ids []uint32

		for c := uint32(0); c < levelCounts[li]; c++ {
			begin[c] = uint32(len(ids))
			fineIDs := make([]uint32, 0, len(children[c]))
			for f := range children[c] {
				fineIDs = append(fineIDs, f)
			}
			sort.Slice(fineIDs, func(i, j int) bool { return fineIDs[i] < fineIDs[j] })
			ids = append(ids, fineIDs...)
			end[c] = uint32(len(ids))
		}

		p.childBegin[li] = begin
		p.childEnd[li] = end
		p.childIDs[li] = ids
	}
}
