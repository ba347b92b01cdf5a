package mlp

import "testing"

// 8 nodes, 3-bit bisection (depth 3): node i gets bits = i, so the
// bisection is a perfect binary split at every level.
func buildEightNodeBisection() BisectionResult {
	nodeBits := make([]uint64, 8)
	for i := range nodeBits {
		nodeBits[i] = uint64(i)
	}
	return BisectionResult{NumNodes: 8, BitsPerNode: 3, NodeBits: nodeBits}
}

func TestBuildFromBisectionExactPowerOfTwo(t *testing.T) {
	br := buildEightNodeBisection()
	p := BuildFromBisection(br, Schedule{2, 4, 8})

	if p.NumLevels() != 3 {
		t.Fatalf("NumLevels() = %d, want 3", p.NumLevels())
	}
	if got := p.NumCells(0); got != 2 {
		t.Errorf("level 0 NumCells = %d, want 2", got)
	}
	if got := p.NumCells(2); got != 8 {
		t.Errorf("level 2 NumCells = %d, want 8", got)
	}

	// Nodes 0-3 share prefix bit 0 at level 0; nodes 4-7 share the other.
	if p.Cell(0, 0) != p.Cell(0, 3) {
		t.Error("nodes 0 and 3 expected to share a level-0 cell")
	}
	if p.Cell(0, 0) == p.Cell(0, 4) {
		t.Error("nodes 0 and 4 expected to be in different level-0 cells")
	}

	// At the finest level every node is its own cell.
	if p.Cell(2, 0) == p.Cell(2, 1) {
		t.Error("finest level expected to separate nodes 0 and 1")
	}
}

func TestHighestDifferentLevel(t *testing.T) {
	br := buildEightNodeBisection()
	p := BuildFromBisection(br, Schedule{2, 4, 8})

	// Nodes 0 and 1 differ only in the lowest bisection bit, so they share
	// cells at every level except the finest.
	lvl := p.HighestDifferentLevel(0, 1)
	if lvl != 1 {
		t.Errorf("HighestDifferentLevel(0,1) = %d, want 1", lvl)
	}

	// A node compared with itself never differs at any level: invariant
	// is HighestDifferentLevel(n,n) == 0.
	self := p.HighestDifferentLevel(0, 0)
	if self != 0 {
		t.Errorf("HighestDifferentLevel(0,0) = %d, want 0", self)
	}
}

func TestChildIndexCoversAllFineCells(t *testing.T) {
	br := buildEightNodeBisection()
	p := BuildFromBisection(br, Schedule{2, 4, 8})

	var total uint32
	for c := uint32(0); c < p.NumCells(0); c++ {
		b, e := p.BeginChildren(0, CellID(c)), p.EndChildren(0, CellID(c))
		total += e - b
	}
	if total != p.NumCells(1) {
		t.Errorf("level-0 children cover %d level-1 cells, want %d", total, p.NumCells(1))
	}
}

func TestMergeToTargetWhenNotPowerOfTwo(t *testing.T) {
	br := buildEightNodeBisection()
	// Target 3 cells at the finest level (8 nodes -> not a clean factor).
	p := BuildFromBisection(br, Schedule{3})

	if got := p.NumCells(0); got != 3 {
		t.Fatalf("NumCells(0) = %d, want 3", got)
	}
	seen := make(map[CellID]bool)
	for n := uint32(0); n < 8; n++ {
		seen[p.Cell(0, n)] = true
	}
	if len(seen) != 3 {
		t.Errorf("observed %d distinct cells across nodes, want 3", len(seen))
	}
}
