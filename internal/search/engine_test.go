package search

import (
	"context"
	"testing"

	"github.com/azybler/streetrouter/internal/ch"
	"github.com/azybler/streetrouter/internal/geoindex"
	"github.com/azybler/streetrouter/internal/graph"
)

// buildGridGraph builds a small bidirectional grid so CH contraction
// produces a non-trivial overlay with at least one shortcut.
func buildGridGraph() *graph.Graph {
	in := graph.BuildInput{
		Edges: []graph.Edge{
			{FromID: 1, ToID: 2, Weight: 100}, {FromID: 2, ToID: 1, Weight: 100},
			{FromID: 2, ToID: 3, Weight: 150}, {FromID: 3, ToID: 2, Weight: 150},
			{FromID: 3, ToID: 4, Weight: 120}, {FromID: 4, ToID: 3, Weight: 120},
			{FromID: 1, ToID: 5, Weight: 200}, {FromID: 5, ToID: 1, Weight: 200},
			{FromID: 5, ToID: 4, Weight: 90}, {FromID: 4, ToID: 5, Weight: 90},
		},
		NodeLat: map[int64]float64{
			1: 1.300, 2: 1.301, 3: 1.302, 4: 1.303, 5: 1.3005,
		},
		NodeLon: map[int64]float64{
			1: 103.800, 2: 103.801, 3: 103.802, 4: 103.803, 5: 103.8005,
		},
	}
	return graph.Build(in)
}

func TestRouteMatchesPlainDijkstra(t *testing.T) {
	g := buildGridGraph()
	idx := ch.Contract(g)
	oracle := NewCHOracle(idx)
	spatial := geoindex.Build(g)

	engine := NewEngine(oracle, g, spatial)

	startLat, startLon := g.NodeLat[0], g.NodeLon[0]
	endLat, endLon := g.NodeLat[3], g.NodeLon[3]

	result, err := engine.Route(context.Background(), LatLng{Lat: startLat, Lng: startLon}, LatLng{Lat: endLat, Lng: endLon})
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if result.TotalDistanceMeters <= 0 {
		t.Errorf("TotalDistanceMeters = %f, want > 0", result.TotalDistanceMeters)
	}
	if len(result.BaseEdges) == 0 {
		t.Error("expected at least one base edge in the route")
	}

	// Each consecutive pair of unpacked base edges must chain head-to-tail.
	for i := 0; i+1 < len(result.BaseEdges); i++ {
		v1 := g.Head[result.BaseEdges[i]]
		u2 := findCSRSource(g.FirstOut, result.BaseEdges[i+1])
		if v1 != u2 {
			t.Errorf("unpacked path not contiguous at step %d: edge %d ends at %d, edge %d starts at %d",
				i, result.BaseEdges[i], v1, result.BaseEdges[i+1], u2)
		}
	}
}

func TestRouteSameStartAndEnd(t *testing.T) {
	g := buildGridGraph()
	idx := ch.Contract(g)
	oracle := NewCHOracle(idx)
	spatial := geoindex.Build(g)
	engine := NewEngine(oracle, g, spatial)

	lat, lon := g.NodeLat[0], g.NodeLon[0]
	result, err := engine.Route(context.Background(), LatLng{Lat: lat, Lng: lon}, LatLng{Lat: lat, Lng: lon})
	if err != nil {
		t.Fatalf("Route returned error for identical points: %v", err)
	}
	if result.TotalDistanceMeters != 0 {
		t.Errorf("TotalDistanceMeters = %f, want exactly 0 for identical points", result.TotalDistanceMeters)
	}
}

// TestRouteSharedEdgeDistinctRatios covers the general same-edge case that
// querying an exact node coordinate (ratio 0, as in TestRouteSameStartAndEnd)
// never exercises: two phantoms on the same edge at different, non-endpoint
// ratios. Snaps are constructed directly rather than derived from
// geoindex.Nearest so the test is not at the mercy of which of an edge's two
// directions the spatial index happens to pick for a given query point.
func TestRouteSharedEdgeDistinctRatios(t *testing.T) {
	g := buildGridGraph()
	idx := ch.Contract(g)
	oracle := NewCHOracle(idx)
	spatial := geoindex.Build(g)
	engine := NewEngine(oracle, g, spatial)

	var edgeIdx uint32
	for e := range g.Weight {
		if g.Weight[e] != 0 {
			edgeIdx = uint32(e)
			break
		}
	}
	u := findCSRSource(g.FirstOut, edgeIdx)
	v := g.Head[edgeIdx]
	weight := g.Weight[edgeIdx]

	startSnap := geoindex.SnapResult{EdgeIdx: edgeIdx, NodeU: u, NodeV: v, Ratio: 0.2,
		Lat: g.NodeLat[u], Lon: g.NodeLon[u]}
	endSnap := geoindex.SnapResult{EdgeIdx: edgeIdx, NodeU: u, NodeV: v, Ratio: 0.7,
		Lat: g.NodeLat[v], Lon: g.NodeLon[v]}

	result, err := engine.RouteFromSnaps(context.Background(), startSnap, endSnap)
	if err != nil {
		t.Fatalf("RouteFromSnaps returned error for same-edge snaps: %v", err)
	}

	want := 0.5 * float64(weight) / 1000.0
	if result.TotalDistanceMeters != want {
		t.Errorf("TotalDistanceMeters = %f, want %f (0.5 * edge weight)", result.TotalDistanceMeters, want)
	}
	if len(result.BaseEdges) != 1 || result.BaseEdges[0] != edgeIdx {
		t.Errorf("BaseEdges = %v, want [%d]", result.BaseEdges, edgeIdx)
	}

	// Reversing which snap is the start/end must not change the distance.
	reverse, err := engine.RouteFromSnaps(context.Background(), endSnap, startSnap)
	if err != nil {
		t.Fatalf("RouteFromSnaps returned error for reversed same-edge snaps: %v", err)
	}
	if reverse.TotalDistanceMeters != want {
		t.Errorf("reversed TotalDistanceMeters = %f, want %f", reverse.TotalDistanceMeters, want)
	}
}
