package search

import (
	"context"
	"math"
)

// MinHeap is a concrete-typed binary min-heap for the search priority
// queues, avoiding container/heap's interface dispatch on the hot path.
type MinHeap struct {
	items []PQItem
}

// PQItem is one priority queue entry.
type PQItem struct {
	Node uint32
	Dist uint32
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node, dist uint32) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) PeekDist() uint32 {
	if len(h.items) == 0 {
		return math.MaxUint32
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() { h.items = h.items[:0] }

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// QueryState is the per-query scratch state for a bidirectional search:
// tentative distances, predecessors, and the touched-node list that lets
// Reset clear only what this query actually touched. Callers pool these
// (sync.Pool, keyed by oracle) to keep the search hot path allocation-free.
type QueryState struct {
	DistFwd []uint32
	DistBwd []uint32
	PredFwd []uint32 // predecessor node in the forward search
	PredBwd []uint32 // predecessor node in the backward search
	EdgeFwd []EdgeRef
	EdgeBwd []EdgeRef
	Touched []uint32
	FwdPQ   MinHeap
	BwdPQ   MinHeap

	succBuf []Successor // scratch reused across ForwardFrom/BackwardFrom calls
}

// NewQueryState allocates scratch state sized for an oracle with n nodes.
func NewQueryState(n uint32) *QueryState {
	distFwd := make([]uint32, n)
	distBwd := make([]uint32, n)
	predFwd := make([]uint32, n)
	predBwd := make([]uint32, n)
	edgeFwd := make([]EdgeRef, n)
	edgeBwd := make([]EdgeRef, n)
	for i := range distFwd {
		distFwd[i] = InvalidWeight
		distBwd[i] = InvalidWeight
		predFwd[i] = NoNode
		predBwd[i] = NoNode
	}
	return &QueryState{
		DistFwd: distFwd,
		DistBwd: distBwd,
		PredFwd: predFwd,
		PredBwd: predBwd,
		EdgeFwd: edgeFwd,
		EdgeBwd: edgeBwd,
		Touched: make([]uint32, 0, 1024),
		FwdPQ:   MinHeap{items: make([]PQItem, 0, 256)},
		BwdPQ:   MinHeap{items: make([]PQItem, 0, 256)},
		succBuf: make([]Successor, 0, 16),
	}
}

// Reset clears only touched entries, keeping the query allocation-free on
// reuse.
func (qs *QueryState) Reset() {
	for _, n := range qs.Touched {
		qs.DistFwd[n] = InvalidWeight
		qs.DistBwd[n] = InvalidWeight
		qs.PredFwd[n] = NoNode
		qs.PredBwd[n] = NoNode
	}
	qs.Touched = qs.Touched[:0]
	qs.FwdPQ.Reset()
	qs.BwdPQ.Reset()
}

func (qs *QueryState) touch(node uint32) {
	if qs.DistFwd[node] == InvalidWeight && qs.DistBwd[node] == InvalidWeight {
		qs.Touched = append(qs.Touched, node)
	}
}

// Endpoint is a phantom node seed: a node reachable from the query's
// source or target phantom, pre-weighted by the phantom's offset along
// its snapped edge.
type Endpoint struct {
	Node uint32
	Dist uint32
}

// SeedForward primes the forward queue with the source phantom's two
// edge endpoints, as spec §4.G requires so that routes shorter than one
// edge are still found (both endpoints of the same edge end up seeded
// into both queues).
func SeedForward(qs *QueryState, seeds []Endpoint) {
	seedQueue(qs, seeds, &qs.FwdPQ, qs.DistFwd)
}

// SeedBackward is SeedForward's mirror for the target phantom.
func SeedBackward(qs *QueryState, seeds []Endpoint) {
	seedQueue(qs, seeds, &qs.BwdPQ, qs.DistBwd)
}

func seedQueue(qs *QueryState, seeds []Endpoint, pq *MinHeap, dist []uint32) {
	for _, s := range seeds {
		if s.Dist >= InvalidWeight {
			continue
		}
		qs.touch(s.Node)
		if s.Dist < dist[s.Node] {
			dist[s.Node] = s.Dist
			pq.Push(s.Node, s.Dist)
		}
	}
}

// Result is the outcome of a completed bidirectional search.
type Result struct {
	Weight    uint32
	MeetNode  uint32
	Found     bool
}

// Run executes the bidirectional search described in spec §4.G: each round
// settles one node from the forward queue and then one from the backward
// queue (each only while its top is below the best weight), applying
// CH stall-on-demand before
// relaxing, and updating the best meeting weight whenever a settled node
// has a finite distance in the opposite direction. Terminates when both
// queue tops are at least the current best weight.
func Run(ctx context.Context, oracle Oracle, qs *QueryState) Result {
	best := InvalidWeight
	meet := NoNode
	var iterations uint32

	for {
		fwdMin := qs.FwdPQ.PeekDist()
		bwdMin := qs.BwdPQ.PeekDist()
		if fwdMin >= best && bwdMin >= best {
			break
		}

		iterations++
		if iterations&255 == 0 && ctx.Err() != nil {
			break
		}

		if fwdMin < best {
			item := qs.FwdPQ.Pop()
			u, d := item.Node, item.Dist
			if d <= qs.DistFwd[u] {
				if qs.DistBwd[u] < InvalidWeight {
					if cand := d + qs.DistBwd[u]; cand < best {
						best = cand
						meet = u
					}
				}
				if !oracle.StallForward(u, qs.DistFwd) {
					qs.succBuf = oracle.ForwardFrom(u, qs.succBuf[:0])
					for _, s := range qs.succBuf {
						nd := d + s.Weight
						if nd < qs.DistFwd[s.To] {
							qs.touch(s.To)
							qs.DistFwd[s.To] = nd
							qs.PredFwd[s.To] = u
							qs.EdgeFwd[s.To] = s.Edge
							qs.FwdPQ.Push(s.To, nd)
						}
					}
				}
			}
		}

		if bwdMin2 := qs.BwdPQ.PeekDist(); bwdMin2 < best {
			item := qs.BwdPQ.Pop()
			u, d := item.Node, item.Dist
			if d <= qs.DistBwd[u] {
				if qs.DistFwd[u] < InvalidWeight {
					if cand := qs.DistFwd[u] + d; cand < best {
						best = cand
						meet = u
					}
				}
				if !oracle.StallBackward(u, qs.DistBwd) {
					qs.succBuf = oracle.BackwardFrom(u, qs.succBuf[:0])
					for _, s := range qs.succBuf {
						nd := d + s.Weight
						if nd < qs.DistBwd[s.To] {
							qs.touch(s.To)
							qs.DistBwd[s.To] = nd
							qs.PredBwd[s.To] = u
							qs.EdgeBwd[s.To] = s.Edge
							qs.BwdPQ.Push(s.To, nd)
						}
					}
				}
			}
		}
	}

	return Result{Weight: best, MeetNode: meet, Found: meet != NoNode && best < InvalidWeight}
}

// OverlayPath reconstructs the overlay-level node sequence from source
// seed through MeetNode to target seed, for callers that want the
// high-level path before unpacking shortcuts.
func OverlayPath(qs *QueryState, meetNode uint32) []uint32 {
	fwdPath := make([]uint32, 0, 16)
	node := meetNode
	for {
		fwdPath = append(fwdPath, node)
		pred := qs.PredFwd[node]
		if pred == NoNode {
			break
		}
		node = pred
	}
	for i, j := 0, len(fwdPath)-1; i < j; i, j = i+1, j-1 {
		fwdPath[i], fwdPath[j] = fwdPath[j], fwdPath[i]
	}

	node = meetNode
	for {
		pred := qs.PredBwd[node]
		if pred == NoNode {
			break
		}
		fwdPath = append(fwdPath, pred)
		node = pred
	}
	return fwdPath
}

// UnpackRoute walks from MeetNode back to the source seed and forward to
// the target seed, expanding every overlay edge on the way into the
// ordered sequence of base graph edges.
func UnpackRoute(oracle Oracle, qs *QueryState, meetNode uint32) []uint32 {
	var fwdEdges []EdgeRef
	node := meetNode
	for qs.PredFwd[node] != NoNode {
		fwdEdges = append(fwdEdges, qs.EdgeFwd[node])
		node = qs.PredFwd[node]
	}
	for i, j := 0, len(fwdEdges)-1; i < j; i, j = i+1, j-1 {
		fwdEdges[i], fwdEdges[j] = fwdEdges[j], fwdEdges[i]
	}

	var bwdEdges []EdgeRef
	node = meetNode
	for qs.PredBwd[node] != NoNode {
		bwdEdges = append(bwdEdges, qs.EdgeBwd[node])
		node = qs.PredBwd[node]
	}

	var result []uint32
	for _, e := range fwdEdges {
		result = oracle.UnpackForward(e, result)
	}
	for _, e := range bwdEdges {
		result = oracle.UnpackBackward(e, result)
	}
	return result
}
