// Package graph implements the static CSR (Compressed Sparse Row) road
// graph described in spec component B: an immutable adjacency
// representation of contiguous out-edges plus per-node first-edge offsets.
package graph

// SpecialNodeID is the reserved sentinel meaning "no such node".
const SpecialNodeID = ^uint32(0)

// SpecialEdgeID is the reserved sentinel meaning "no such edge".
const SpecialEdgeID = ^uint32(0)

// InvalidEdgeWeight marks "no path" in weight arithmetic.
const InvalidEdgeWeight = uint32(1<<31 - 1) // INT32_MAX

// Graph is a directed graph in CSR form: the base (uncontracted) topology.
// Out-edges of node n live at Head[FirstOut[n]:FirstOut[n+1]].
type Graph struct {
	NumNodes uint32
	NumEdges uint32

	FirstOut []uint32  // len: NumNodes+1, FirstOut[n]..FirstOut[n+1] bound node n's out-edges
	Head     []uint32  // len: NumEdges, target node of each edge
	Weight   []uint32  // len: NumEdges, edge weight (millimeters of distance)
	NodeLat  []float64 // len: NumNodes
	NodeLon  []float64 // len: NumNodes

	// Edge geometry: intermediate shape points for rendering, carried
	// through from the OSM way the edge was cut from.
	GeoFirstOut []uint32  // len: NumEdges+1
	GeoShapeLat []float64 // flattened intermediate lat coords
	GeoShapeLon []float64 // flattened intermediate lon coords

	// NameID indexes into EdgeNames: NameID[e] is the deduplicated name
	// table id of edge e's street name ("" gets its own id like any other
	// string, same as an unnamed service road in the original data).
	NameID    []uint32 // len: NumEdges
	EdgeNames []string // deduplicated, id-ordered; build internal/nametable from this
}

// EdgesFrom returns the range of edge indices originating at node u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// FindEdge does a linear scan over u's out-edges for one targeting v.
// Per spec §4.B this is intentionally linear — out-degree in a road graph
// is small (almost always under a dozen).
func (g *Graph) FindEdge(u, v uint32) uint32 {
	start, end := g.EdgesFrom(u)
	for e := start; e < end; e++ {
		if g.Head[e] == v {
			return e
		}
	}
	return SpecialEdgeID
}

// GeometryFor returns the intermediate shape points of edge e, excluding
// its endpoints.
func (g *Graph) GeometryFor(e uint32) (lats, lons []float64) {
	if g.GeoFirstOut == nil || int(e+1) >= len(g.GeoFirstOut) {
		return nil, nil
	}
	start, end := g.GeoFirstOut[e], g.GeoFirstOut[e+1]
	return g.GeoShapeLat[start:end], g.GeoShapeLon[start:end]
}
