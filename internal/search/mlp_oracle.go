package search

import (
	"github.com/azybler/streetrouter/internal/cellstore"
	"github.com/azybler/streetrouter/internal/graph"
	"github.com/azybler/streetrouter/internal/mlp"
)

// MLPOracle adapts internal/mlp's Partition plus an internal/cellstore
// Metric to the Oracle interface: the search core explores the base graph's
// real edges everywhere, and additionally treats every cell boundary node
// as connected to that cell's other boundary nodes by one virtual edge per
// precomputed matrix entry, at the one partition level passed to
// NewMLPOracle. This gives
// long-distance queries the same "skip over most of the graph" shortcut
// behavior CH gets from shortcut edges, without needing a CH contraction
// order — per spec §4.G, the search core is generic over either oracle.
//
// Unlike internal/ch's overlay, a cell's virtual edges are not themselves
// backed by a CSR graph, so an EdgeRef for one carries its own (From, To,
// Level) rather than a CSR index. Stall-on-demand is CH-specific (it
// depends on the contraction rank ordering); MLPOracle's StallForward and
// StallBackward are permanent no-ops, as spec §4.G specifies.
type MLPOracle struct {
	g         *graph.Graph
	partition *mlp.Partition
	metric    *cellstore.Metric
	level     int // partition level whose matrices back the virtual edges

	bwdFirstOut []uint32 // reverse CSR over g, built once at construction
	bwdHead     []uint32
	bwdWeight   []uint32
	bwdOrigEdge []uint32 // bwdOrigEdge[e] = index into g's forward edge arrays

	// srcAt/dstAt map a node to its (cell, index-within-boundary-list) at
	// level, if it is a source/destination boundary there.
	srcAt map[uint32]boundaryRef
	dstAt map[uint32]boundaryRef

	cellBoundaries []cellstore.CellBoundaries // boundaries[level], indexed by cell id
}

type boundaryRef struct {
	cell mlp.CellID
	idx  uint32
}

// NewMLPOracle builds an MLPOracle over a customized metric. level should
// normally be the coarsest level (0) so virtual edges span as much of the
// graph as possible; g must be the same base graph the partition and
// metric were built from.
func NewMLPOracle(g *graph.Graph, p *mlp.Partition, metric *cellstore.Metric, level int, boundaries [][]cellstore.CellBoundaries) *MLPOracle {
	o := &MLPOracle{
		g:         g,
		partition: p,
		metric:    metric,
		level:     level,
		srcAt:     make(map[uint32]boundaryRef),
		dstAt:     make(map[uint32]boundaryRef),
	}
	cells := boundaries[level]
	o.cellBoundaries = cells
	for c, b := range cells {
		for i, n := range b.SourceBoundary {
			o.srcAt[n] = boundaryRef{cell: mlp.CellID(c), idx: uint32(i)}
		}
		for j, n := range b.DestinationBoundary {
			o.dstAt[n] = boundaryRef{cell: mlp.CellID(c), idx: uint32(j)}
		}
	}
	o.buildReverseCSR(boundaries, level)
	return o
}

// buildReverseCSR counting-sorts g's edges by target, the same two-pass CSR
// technique internal/graph.Build uses for the forward direction.
func (o *MLPOracle) buildReverseCSR(boundaries [][]cellstore.CellBoundaries, level int) {
	n := o.g.NumNodes
	m := o.g.NumEdges
	firstOut := make([]uint32, n+1)
	for e := uint32(0); e < m; e++ {
		firstOut[o.g.Head[e]+1]++
	}
	for i := uint32(1); i <= n; i++ {
		firstOut[i] += firstOut[i-1]
	}

	head := make([]uint32, m)
	weight := make([]uint32, m)
	origEdge := make([]uint32, m)
	cursor := make([]uint32, n)
	copy(cursor, firstOut[:n])

	for u := uint32(0); u < n; u++ {
		start, end := o.g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := o.g.Head[e]
			pos := cursor[v]
			cursor[v]++
			head[pos] = u
			weight[pos] = o.g.Weight[e]
			origEdge[pos] = e
		}
	}

	o.bwdFirstOut = firstOut
	o.bwdHead = head
	o.bwdWeight = weight
	o.bwdOrigEdge = origEdge
}

func (o *MLPOracle) NumNodes() uint32 { return o.g.NumNodes }

func (o *MLPOracle) ForwardFrom(u uint32, dst []Successor) []Successor {
	start, end := o.g.EdgesFrom(u)
	for e := start; e < end; e++ {
		dst = append(dst, Successor{To: o.g.Head[e], Weight: o.g.Weight[e], Edge: EdgeRef{CSRIndex: e, From: u, To: o.g.Head[e], Level: -1}})
	}

	if ref, ok := o.srcAt[u]; ok {
		b := o.boundariesFor(ref.cell)
		weights := o.metric.Weights[o.level][ref.cell]
		numDst := uint32(len(b.DestinationBoundary))
		for j, v := range b.DestinationBoundary {
			w := weights[ref.idx*numDst+uint32(j)]
			if w == cellstore.InvalidEdgeWeight || v == u {
				continue
			}
			dst = append(dst, Successor{To: v, Weight: w, Edge: EdgeRef{From: u, To: v, Level: int8(o.level)}})
		}
	}
	return dst
}

func (o *MLPOracle) BackwardFrom(u uint32, dst []Successor) []Successor {
	start, end := o.bwdFirstOut[u], o.bwdFirstOut[u+1]
	for e := start; e < end; e++ {
		dst = append(dst, Successor{To: o.bwdHead[e], Weight: o.bwdWeight[e], Edge: EdgeRef{CSRIndex: o.bwdOrigEdge[e], From: o.bwdHead[e], To: u, Level: -1}})
	}

	if ref, ok := o.dstAt[u]; ok {
		b := o.boundariesFor(ref.cell)
		weights := o.metric.Weights[o.level][ref.cell]
		numDst := uint32(len(b.DestinationBoundary))
		for i, src := range b.SourceBoundary {
			w := weights[uint32(i)*numDst+ref.idx]
			if w == cellstore.InvalidEdgeWeight || src == u {
				continue
			}
			dst = append(dst, Successor{To: src, Weight: w, Edge: EdgeRef{From: src, To: u, Level: int8(o.level)}})
		}
	}
	return dst
}

func (o *MLPOracle) boundariesFor(cell mlp.CellID) cellstore.CellBoundaries {
	return o.cellBoundaries[cell]
}

// StallForward and StallBackward are permanent no-ops: stall-on-demand
// relies on a contraction rank ordering that MLP cells don't have.
func (o *MLPOracle) StallForward(u uint32, forwardDist []uint32) bool   { return false }
func (o *MLPOracle) StallBackward(u uint32, backwardDist []uint32) bool { return false }

// UnpackForward expands a forward-direction edge ref. A base edge
// (Level == -1) is already a single base-graph edge; a virtual cell edge
// has no cheaper unpacking available here; per the DESIGN.md scope note,
// callers needing the detailed base-edge path through a cell's interior
// should re-run a direct search over the base graph restricted to that
// cell instead of materializing it from the matrix alone.
func (o *MLPOracle) UnpackForward(e EdgeRef, dst []uint32) []uint32 {
	if e.Level < 0 {
		return append(dst, e.CSRIndex)
	}
	return dst
}

func (o *MLPOracle) UnpackBackward(e EdgeRef, dst []uint32) []uint32 {
	if e.Level < 0 {
		return append(dst, e.CSRIndex)
	}
	return dst
}
