// Package ch implements spec component D, the Contraction Hierarchies
// index: node contraction ordering, shortcut creation via batch witness
// search, and the resulting forward/backward upward overlay graphs used by
// the bidirectional search core.
package ch

import "github.com/azybler/streetrouter/internal/graph"

// Index is the queryable Contraction Hierarchies overlay: a node ordering
// (Rank) plus forward and backward CSR graphs restricted to edges that
// climb the hierarchy (rank[u] < rank[v]).
//
// The teacher's equivalent type lived in pkg/graph as CHGraph, but its
// field list there omitted OrigFirstOut/OrigHead/OrigWeight even though
// pkg/ch/contractor.go and pkg/graph/binary.go both populate and read them
// — this definition keeps every field the contractor and the search layer
// actually need, in one place.
type Index struct {
	NumNodes uint32
	NodeLat  []float64
	NodeLon  []float64

	// Rank[u] is u's position in the contraction order; lower ranks were
	// contracted first and sit lower in the hierarchy.
	Rank []uint32

	FwdFirstOut []uint32
	FwdHead     []uint32
	FwdWeight   []uint32
	FwdMiddle   []int32 // -1 for an original edge, else the contracted via-node

	BwdFirstOut []uint32
	BwdHead     []uint32
	BwdWeight   []uint32
	BwdMiddle   []int32

	// OrigFirstOut/OrigHead/OrigWeight are the unmodified original CSR
	// graph, kept alongside the overlay so shortcut unpacking can recover
	// an original edge by (from, to) lookup.
	OrigFirstOut []uint32
	OrigHead     []uint32
	OrigWeight   []uint32

	// GeoFirstOut/GeoShapeLat/GeoShapeLon mirror the original graph's
	// intermediate shape-point arrays, needed when the search layer
	// reconstructs full route geometry.
	GeoFirstOut []uint32
	GeoShapeLat []float64
	GeoShapeLon []float64
}

// FwdEdgesFrom returns the [start, end) range into FwdHead/FwdWeight/FwdMiddle
// for node u's forward-upward edges.
func (idx *Index) FwdEdgesFrom(u uint32) (start, end uint32) {
	return idx.FwdFirstOut[u], idx.FwdFirstOut[u+1]
}

// BwdEdgesFrom returns the [start, end) range into BwdHead/BwdWeight/BwdMiddle
// for node u's backward-upward edges.
func (idx *Index) BwdEdgesFrom(u uint32) (start, end uint32) {
	return idx.BwdFirstOut[u], idx.BwdFirstOut[u+1]
}

// FindOrigEdge returns the index of the original edge u->v, or
// graph.SpecialEdgeID if no such edge exists. Linear scan over u's
// original out-edges; original adjacency lists are short for road
// networks so this stays cheap relative to a map lookup.
func (idx *Index) FindOrigEdge(u, v uint32) uint32 {
	start, end := idx.OrigFirstOut[u], idx.OrigFirstOut[u+1]
	for e := start; e < end; e++ {
		if idx.OrigHead[e] == v {
			return e
		}
	}
	return graph.SpecialEdgeID
}
