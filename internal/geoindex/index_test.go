package geoindex

import (
	"testing"

	"github.com/azybler/streetrouter/internal/graph"
)

func buildTestGraph() *graph.Graph {
	in := graph.BuildInput{
		Edges: []graph.Edge{
			{FromID: 1, ToID: 2, Weight: 100},
			{FromID: 2, ToID: 1, Weight: 100},
			{FromID: 2, ToID: 3, Weight: 100},
			{FromID: 3, ToID: 2, Weight: 100},
		},
		NodeLat: map[int64]float64{1: 1.3500, 2: 1.3600, 3: 1.3700},
		NodeLon: map[int64]float64{1: 103.8200, 2: 103.8200, 3: 103.8200},
	}
	return graph.Build(in)
}

func TestNearestOnSegment(t *testing.T) {
	g := buildTestGraph()
	idx := Build(g)

	if idx.Len() != int(g.NumEdges) {
		t.Fatalf("Len() = %d, want %d", idx.Len(), g.NumEdges)
	}

	res, err := idx.Nearest(1.3550, 103.8201)
	if err != nil {
		t.Fatalf("Nearest returned error: %v", err)
	}
	if res.Dist > 50 {
		t.Errorf("Dist = %f, want a small snap distance", res.Dist)
	}
	if res.Ratio < 0 || res.Ratio > 1 {
		t.Errorf("Ratio = %f, want in [0,1]", res.Ratio)
	}
}

func TestNearestTooFar(t *testing.T) {
	g := buildTestGraph()
	idx := Build(g)

	_, err := idx.Nearest(5.0, 110.0)
	if err != ErrPointTooFar {
		t.Fatalf("expected ErrPointTooFar, got %v", err)
	}
}

func TestNearestAtNode(t *testing.T) {
	g := buildTestGraph()
	idx := Build(g)

	res, err := idx.Nearest(1.3500, 103.8200)
	if err != nil {
		t.Fatalf("Nearest returned error: %v", err)
	}
	if res.Dist > 5 {
		t.Errorf("Dist = %f, want ~0 at exact node", res.Dist)
	}
}
