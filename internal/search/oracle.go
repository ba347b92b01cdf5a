// Package search implements spec component G, the bidirectional search
// core: a query engine generic over a successor oracle (internal/ch's
// Contraction Hierarchies index or internal/mlp+internal/cellstore's cell
// metrics), plus shortcut unpacking and phantom-endpoint seeding. It
// generalizes the teacher's pkg/routing/{dijkstra,engine,unpack}.go, which
// hard-coded the CH case and — per the DESIGN.md ledger — contained two
// inconsistencies this package resolves rather than reproduces: engine.go
// called an undefined unpackOverlayPath, and its real unpack.go took a
// different (map-based) signature nothing else in the teacher repo called.
package search

// EdgeRef identifies one directed edge in an oracle's upward edge set,
// opaque to the search core (it is only ever round-tripped back to the
// oracle that produced it). CSRIndex is all the CH oracle needs — the CH
// overlay is a CSR graph, so the index alone recovers (from, to). The
// MLP oracle instead needs the endpoints and the level directly, since its
// virtual cell edges have no CSR backing.
type EdgeRef struct {
	CSRIndex uint32
	From, To uint32
	Level    int8 // -1 = direct/base edge, >=0 = a cell virtual edge at that level
}

// Successor is one outgoing (or, for the reverse direction, incoming)
// edge from a node during the search.
type Successor struct {
	To     uint32
	Weight uint32
	Edge   EdgeRef
}

// Oracle abstracts the shortcut-aware graph that the bidirectional search
// explores: either internal/ch's upward CH overlay or internal/mlp's
// cell-metric virtual graph. NumNodes, ForwardFrom and BackwardFrom are
// the hot-path methods; Unpack runs once, after termination, to recover
// the base-edge sequence for the final route.
type Oracle interface {
	NumNodes() uint32

	// ForwardFrom appends u's forward-allowed successors to dst and
	// returns the extended slice, avoiding a per-call allocation.
	ForwardFrom(u uint32, dst []Successor) []Successor

	// BackwardFrom appends u's reverse-allowed successors (i.e. nodes v
	// such that the reverse-allowed edge set contains (u,v)) to dst.
	BackwardFrom(u uint32, dst []Successor) []Successor

	// StallForward reports whether node u should be stalled in the
	// forward search: some down-edge (v,u) exists with
	// forwardDist[v]+w(v,u) < forwardDist[u]. forwardDist is indexed by
	// node id; Inf entries must be treated as unreachable.
	StallForward(u uint32, forwardDist []uint32) bool

	// StallBackward is StallForward's mirror for the reverse search.
	StallBackward(u uint32, backwardDist []uint32) bool

	// UnpackForward expands a forward-direction edge ref into the ordered
	// sequence of base graph edges it represents, appending to dst.
	UnpackForward(e EdgeRef, dst []uint32) []uint32

	// UnpackBackward is UnpackForward's mirror for a reverse-direction
	// edge ref; the returned base edges are in forward (u->v) order even
	// though the search traversed them in reverse.
	UnpackBackward(e EdgeRef, dst []uint32) []uint32
}

// InvalidWeight marks an unreachable distance, matching
// internal/graph.InvalidEdgeWeight.
const InvalidWeight = uint32(1<<31 - 1)

// NoNode is the sentinel "no predecessor" / "no meeting node" value.
const NoNode = ^uint32(0)
