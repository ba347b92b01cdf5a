package search

import (
	"context"
	"testing"

	"github.com/azybler/streetrouter/internal/cellstore"
	"github.com/azybler/streetrouter/internal/graph"
	"github.com/azybler/streetrouter/internal/mlp"
)

// buildMLPLineGraph mirrors internal/cellstore's buildLineGraph: a 6-node
// bidirectional chain 0-1-2-3-4-5, unit edge weight 100, split into two
// level-1 cells {0,1,2} and {3,4,5}.
func buildMLPLineGraph() (*graph.Graph, *mlp.Partition) {
	in := graph.BuildInput{
		Edges: []graph.Edge{
			{FromID: 0, ToID: 1, Weight: 100}, {FromID: 1, ToID: 0, Weight: 100},
			{FromID: 1, ToID: 2, Weight: 100}, {FromID: 2, ToID: 1, Weight: 100},
			{FromID: 2, ToID: 3, Weight: 100}, {FromID: 3, ToID: 2, Weight: 100},
			{FromID: 3, ToID: 4, Weight: 100}, {FromID: 4, ToID: 3, Weight: 100},
			{FromID: 4, ToID: 5, Weight: 100}, {FromID: 5, ToID: 4, Weight: 100},
		},
		NodeLat: map[int64]float64{0: 1, 1: 1, 2: 1, 3: 1, 4: 1, 5: 1},
		NodeLon: map[int64]float64{0: 0, 1: 1, 2: 2, 3: 3, 4: 4, 5: 5},
	}
	g := graph.Build(in)

	nodeBits := make([]uint64, 6)
	for n := uint32(0); n < 6; n++ {
		if n >= 3 {
			nodeBits[n] = 1
		}
	}
	br := mlp.BisectionResult{NumNodes: 6, BitsPerNode: 1, NodeBits: nodeBits}
	p := mlp.BuildFromBisection(br, mlp.Schedule{1, 2})
	return g, p
}

func TestMLPOracleForwardMatchesBaseGraph(t *testing.T) {
	g, p := buildMLPLineGraph()
	store := cellstore.NewStore(g, p)
	m := store.Customize(g, "weight", func(e uint32) uint32 { return g.Weight[e] })

	finest := p.NumLevels() - 1
	oracle := NewMLPOracle(g, p, m, finest, store.Boundaries)

	succ := oracle.ForwardFrom(1, nil)
	foundBase := false
	for _, s := range succ {
		if s.Edge.Level == -1 && s.To == 2 && s.Weight == 100 {
			foundBase = true
		}
	}
	if !foundBase {
		t.Error("expected a base edge 1->2 with weight 100 in ForwardFrom(1)")
	}
}

func TestMLPOracleRouteEndToEnd(t *testing.T) {
	g, p := buildMLPLineGraph()
	store := cellstore.NewStore(g, p)
	m := store.Customize(g, "weight", func(e uint32) uint32 { return g.Weight[e] })

	finest := p.NumLevels() - 1
	oracle := NewMLPOracle(g, p, m, finest, store.Boundaries)

	qs := NewQueryState(oracle.NumNodes())
	SeedForward(qs, []Endpoint{{Node: 0, Dist: 0}})
	SeedBackward(qs, []Endpoint{{Node: 5, Dist: 0}})

	res := Run(context.Background(), oracle, qs)
	if !res.Found {
		t.Fatal("expected a route to be found")
	}
	if res.Weight != 500 {
		t.Errorf("Weight = %d, want 500 (5 hops of 100)", res.Weight)
	}
}

func TestMLPOracleStallIsNoop(t *testing.T) {
	g, p := buildMLPLineGraph()
	store := cellstore.NewStore(g, p)
	m := store.Customize(g, "weight", func(e uint32) uint32 { return g.Weight[e] })
	oracle := NewMLPOracle(g, p, m, p.NumLevels()-1, store.Boundaries)

	if oracle.StallForward(0, nil) {
		t.Error("StallForward must always report false for MLPOracle")
	}
	if oracle.StallBackward(0, nil) {
		t.Error("StallBackward must always report false for MLPOracle")
	}
}
