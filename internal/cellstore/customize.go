package cellstore

import (
	"container/heap"

	"github.com/azybler/streetrouter/internal/graph"
	"github.com/azybler/streetrouter/internal/mlp"
)

// WeightFunc extracts the cost of edge e from the current edge-cost
// arrays; passing g.Weight[e] customizes a "weight" metric, a separate
// per-edge duration array customizes a "duration" metric.
type WeightFunc func(e uint32) uint32

// Customize recomputes metric `name` from the graph's current edge costs,
// iterating levels bottom-up per spec §4.F: the finest level runs a
// restricted Dijkstra per source boundary inside each cell; coarser
// levels treat each child cell as a generalized edge using the next-finer
// level's just-computed matrix. Sequential across levels (each depends on
// the one below) but each level's cells are independent of each other;
// left sequential across cells too since internal/httpserver's worker
// pool is reserved for query concurrency, not preprocessing.
func (s *Store) Customize(g *graph.Graph, name string, weightFn WeightFunc) *Metric {
	numLevels := s.Partition.NumLevels()
	m := &Metric{Name: name, Weights: make([][][]uint32, numLevels)}
	finest := numLevels - 1

	for level := numLevels - 1; level >= 0; level-- {
		numCells := len(s.Boundaries[level])
		m.Weights[level] = make([][]uint32, numCells)

		for c := 0; c < numCells; c++ {
			b := s.Boundaries[level][c]
			if level == finest {
				m.Weights[level][c] = customizeBaseCell(g, s.Partition, level, uint32(c), b, weightFn)
			} else {
				m.Weights[level][c] = customizeSuperCell(s, m, level, uint32(c), b)
			}
		}
	}

	s.Metrics[name] = m
	return m
}

type dijkstraItem struct {
	node uint32
	dist uint32
}

type dijkstraHeap []dijkstraItem

func (h dijkstraHeap) Len() int            { return len(h) }
func (h dijkstraHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h dijkstraHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *dijkstraHeap) Push(x any)         { *h = append(*h, x.(dijkstraItem)) }
func (h *dijkstraHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// customizeBaseCell runs one Dijkstra per source boundary, restricted to
// edges whose endpoints both lie in `cell` at `level`, and records the
// distance to every destination boundary.
func customizeBaseCell(g *graph.Graph, p *mlp.Partition, level int, cell uint32, b CellBoundaries, weightFn WeightFunc) []uint32 {
	numDst := len(b.DestinationBoundary)
	out := make([]uint32, len(b.SourceBoundary)*numDst)
	for i := range out {
		out[i] = InvalidEdgeWeight
	}

	dstIndex := make(map[uint32]int, numDst)
	for j, d := range b.DestinationBoundary {
		dstIndex[d] = j
	}

	dist := make(map[uint32]uint32)
	h := &dijkstraHeap{}

	for si, s := range b.SourceBoundary {
		clear(dist)
		*h = (*h)[:0]
		dist[s] = 0
		heap.Push(h, dijkstraItem{s, 0})

		remaining := numDst
		for h.Len() > 0 && remaining > 0 {
			cur := heap.Pop(h).(dijkstraItem)
			if cur.dist > dist[cur.node] {
				continue
			}
			if _, isDst := dstIndex[cur.node]; isDst {
				remaining--
			}

			start, end := g.EdgesFrom(cur.node)
			for e := start; e < end; e++ {
				v := g.Head[e]
				if mlp.CellID(cell) != p.Cell(level, v) {
					continue
				}
				nd := cur.dist + weightFn(e)
				if old, ok := dist[v]; !ok || nd < old {
					dist[v] = nd
					heap.Push(h, dijkstraItem{v, nd})
				}
			}
		}

		for j, d := range b.DestinationBoundary {
			if dv, ok := dist[d]; ok {
				out[si*numDst+j] = dv
			}
		}
	}

	return out
}

// customizeSuperCell treats every child cell of (level, cell) as a
// generalized edge set (the child's just-computed metric matrix, boundary
// to boundary) and runs a Dijkstra over that virtual graph for each of
// the cell's own source boundaries.
func customizeSuperCell(s *Store, m *Metric, level int, cell uint32, b CellBoundaries) []uint32 {
	numDst := len(b.DestinationBoundary)
	out := make([]uint32, len(b.SourceBoundary)*numDst)
	for i := range out {
		out[i] = InvalidEdgeWeight
	}

	p := s.Partition
	childLevel := level + 1
	type vedge struct {
		to uint32
		w  uint32
	}
	virtual := make(map[uint32][]vedge)

	begin, end := p.BeginChildren(level, mlp.CellID(cell)), p.EndChildren(level, mlp.CellID(cell))
	for i := begin; i < end; i++ {
		child := p.ChildAt(level, i)
		childBoundaries := s.Boundaries[childLevel][child]
		childWeights := m.Weights[childLevel][child]
		childNumDst := len(childBoundaries.DestinationBoundary)

		for si, src := range childBoundaries.SourceBoundary {
			for dj, dst := range childBoundaries.DestinationBoundary {
				w := childWeights[si*childNumDst+dj]
				if w == InvalidEdgeWeight {
					continue
				}
				virtual[src] = append(virtual[src], vedge{to: dst, w: w})
			}
		}
	}

	dstIndex := make(map[uint32]int, numDst)
	for j, d := range b.DestinationBoundary {
		dstIndex[d] = j
	}

	dist := make(map[uint32]uint32)
	h := &dijkstraHeap{}

	for si, s := range b.SourceBoundary {
		clear(dist)
		*h = (*h)[:0]
		dist[s] = 0
		heap.Push(h, dijkstraItem{s, 0})

		for h.Len() > 0 {
			cur := heap.Pop(h).(dijkstraItem)
			if cur.dist > dist[cur.node] {
				continue
			}
			for _, e := range virtual[cur.node] {
				nd := cur.dist + e.w
				if old, ok := dist[e.to]; !ok || nd < old {
					dist[e.to] = nd
					heap.Push(h, dijkstraItem{e.to, nd})
				}
			}
		}

		for j, d := range b.DestinationBoundary {
			if dv, ok := dist[d]; ok {
				out[si*numDst+j] = dv
			}
		}
	}

	return out
}
