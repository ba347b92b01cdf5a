// Package cellstore implements spec component F: per-cell boundary node
// lists and dense metric matrices, plus the bottom-up-by-level
// customization that recomputes those matrices from current edge weights.
// Grounded on the teacher's CSR-building style (internal/graph,
// internal/ch) since no example repo carries an MLD-style customizer.
package cellstore

import (
	"sort"

	"github.com/azybler/streetrouter/internal/graph"
	"github.com/azybler/streetrouter/internal/mlp"
)

// InvalidEdgeWeight marks an unreachable (source, destination) boundary
// pair in a metric matrix.
const InvalidEdgeWeight = uint32(1<<31 - 1)

// CellBoundaries holds the sorted source/destination boundary node lists
// for one (level, cell).
type CellBoundaries struct {
	SourceBoundary      []uint32
	DestinationBoundary []uint32
}

// Metric is one named set of per-cell dense weight/duration matrices,
// indexed [level][cell]. Matrix entry [i*numDst+j] is the cost from
// SourceBoundary[i] to DestinationBoundary[j] within that cell (or, above
// level 1, within the cell's virtual graph of child cells).
type Metric struct {
	Name      string
	Weights   [][][]uint32 // [level][cell][i*numDst+j]
	Durations [][][]uint32
}

// Store is the built cell storage: boundary node lists for every (level,
// cell), plus zero or more named metrics.
type Store struct {
	Partition   *mlp.Partition
	Boundaries  [][]CellBoundaries // [level][cell]
	Metrics     map[string]*Metric
}

// BuildBoundaries derives source/destination boundary node lists for
// every (level, cell) from the graph's edges: a node n is a boundary of
// cell c at level ℓ if some edge crosses into or out of c at that level.
func BuildBoundaries(g *graph.Graph, p *mlp.Partition) [][]CellBoundaries {
	numLevels := p.NumLevels()
	out := make([][]CellBoundaries, numLevels)

	for level := 0; level < numLevels; level++ {
		numCells := p.NumCells(level)
		srcSets := make([]map[uint32]struct{}, numCells)
		dstSets := make([]map[uint32]struct{}, numCells)
		for c := range srcSets {
			srcSets[c] = make(map[uint32]struct{})
			dstSets[c] = make(map[uint32]struct{})
		}

		for u := uint32(0); u < g.NumNodes; u++ {
			start, end := g.EdgesFrom(u)
			cu := p.Cell(level, u)
			for e := start; e < end; e++ {
				v := g.Head[e]
				cv := p.Cell(level, v)
				if cu == cv {
					continue
				}
				srcSets[cu][u] = struct{}{}
				dstSets[cv][v] = struct{}{}
			}
		}

		cells := make([]CellBoundaries, numCells)
		for c := uint32(0); c < numCells; c++ {
			cells[c] = CellBoundaries{
				SourceBoundary:      sortedKeys(srcSets[c]),
				DestinationBoundary: sortedKeys(dstSets[c]),
			}
		}
		out[level] = cells
	}
	return out
}

func sortedKeys(m map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewStore builds an empty cell store with boundaries precomputed but no
// metrics; call Customize to populate a named metric.
func NewStore(g *graph.Graph, p *mlp.Partition) *Store {
	return &Store{
		Partition:  p,
		Boundaries: BuildBoundaries(g, p),
		Metrics:    make(map[string]*Metric),
	}
}
