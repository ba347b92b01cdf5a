package search

import "github.com/azybler/streetrouter/internal/ch"

const maxUnpackDepth = 100

// CHOracle adapts internal/ch.Index to the Oracle interface.
type CHOracle struct {
	idx *ch.Index
}

// NewCHOracle wraps a built Contraction Hierarchies index for querying.
func NewCHOracle(idx *ch.Index) *CHOracle {
	return &CHOracle{idx: idx}
}

func (o *CHOracle) NumNodes() uint32 { return o.idx.NumNodes }

func (o *CHOracle) ForwardFrom(u uint32, dst []Successor) []Successor {
	start, end := o.idx.FwdEdgesFrom(u)
	for e := start; e < end; e++ {
		dst = append(dst, Successor{To: o.idx.FwdHead[e], Weight: o.idx.FwdWeight[e], Edge: EdgeRef{CSRIndex: e, Level: -1}})
	}
	return dst
}

func (o *CHOracle) BackwardFrom(u uint32, dst []Successor) []Successor {
	start, end := o.idx.BwdEdgesFrom(u)
	for e := start; e < end; e++ {
		dst = append(dst, Successor{To: o.idx.BwdHead[e], Weight: o.idx.BwdWeight[e], Edge: EdgeRef{CSRIndex: e, Level: -1}})
	}
	return dst
}

// StallForward checks u's down-edges: the backward-overlay edges out of u
// represent original edges v->u where v outranks u, i.e. exactly the
// "down into u" edges the forward stall check needs.
func (o *CHOracle) StallForward(u uint32, forwardDist []uint32) bool {
	start, end := o.idx.BwdEdgesFrom(u)
	for e := start; e < end; e++ {
		v := o.idx.BwdHead[e]
		if forwardDist[v] == InvalidWeight {
			continue
		}
		if forwardDist[v]+o.idx.BwdWeight[e] < forwardDist[u] {
			return true
		}
	}
	return false
}

// StallBackward is StallForward's mirror: the forward-overlay edges out of
// u are the "down into u" edges for the reverse search.
func (o *CHOracle) StallBackward(u uint32, backwardDist []uint32) bool {
	start, end := o.idx.FwdEdgesFrom(u)
	for e := start; e < end; e++ {
		v := o.idx.FwdHead[e]
		if backwardDist[v] == InvalidWeight {
			continue
		}
		if backwardDist[v]+o.idx.FwdWeight[e] < backwardDist[u] {
			return true
		}
	}
	return false
}

func (o *CHOracle) UnpackForward(e EdgeRef, dst []uint32) []uint32 {
	return o.unpack(e.CSRIndex, true, dst)
}

func (o *CHOracle) UnpackBackward(e EdgeRef, dst []uint32) []uint32 {
	return o.unpack(e.CSRIndex, false, dst)
}

type unpackFrame struct {
	edge  uint32
	depth int
}

// unpack iteratively expands a shortcut edge (forward or backward overlay)
// into base graph edges, using an explicit stack bounded by
// maxUnpackDepth to avoid recursion blowing the stack on pathological
// shortcut chains.
func (o *CHOracle) unpack(edge uint32, forward bool, dst []uint32) []uint32 {
	firstOut, head, middle := o.idx.FwdFirstOut, o.idx.FwdHead, o.idx.FwdMiddle
	if !forward {
		firstOut, head, middle = o.idx.BwdFirstOut, o.idx.BwdHead, o.idx.BwdMiddle
	}

	stack := []unpackFrame{{edge, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > maxUnpackDepth {
			continue
		}

		mid := middle[f.edge]
		if mid < 0 {
			dst = append(dst, o.origEdgeFor(firstOut, head, f.edge, forward))
			continue
		}

		from := findCSRSource(firstOut, f.edge)
		to := head[f.edge]
		m := uint32(mid)

		firstHalf := findEdge(firstOut, head, from, m)
		secondHalf := findEdge(firstOut, head, m, to)
		if firstHalf == NoNode || secondHalf == NoNode {
			continue
		}
		// Push in reverse so firstHalf (from->m) unpacks before
		// secondHalf (m->to).
		stack = append(stack, unpackFrame{secondHalf, f.depth + 1})
		stack = append(stack, unpackFrame{firstHalf, f.depth + 1})
	}
	return dst
}

// origEdgeFor resolves an overlay base edge (middle < 0, so it corresponds
// 1:1 to an original-graph edge) to its index in the original CSR arrays.
func (o *CHOracle) origEdgeFor(firstOut, head []uint32, edge uint32, forward bool) uint32 {
	from := findCSRSource(firstOut, edge)
	to := head[edge]
	if !forward {
		from, to = to, from
	}
	return o.idx.FindOrigEdge(from, to)
}

func findEdge(firstOut, head []uint32, source, target uint32) uint32 {
	start, end := firstOut[source], firstOut[source+1]
	for e := start; e < end; e++ {
		if head[e] == target {
			return e
		}
	}
	return NoNode
}

func findCSRSource(firstOut []uint32, edgeIdx uint32) uint32 {
	n := uint32(len(firstOut) - 1)
	lo, hi := uint32(0), n
	for lo < hi {
		mid := (lo + hi) / 2
		if firstOut[mid+1] <= edgeIdx {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
