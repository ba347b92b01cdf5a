package ch

import (
	"math"
	"testing"

	"github.com/azybler/streetrouter/internal/graph"
)

// buildTestGraph creates a small graph for testing:
//
//	0 ---100--- 1 ---200--- 2
//	|                       |
//	300                    400
//	|                       |
//	3 ---500--- 4 ---600--- 5
//
// All edges are bidirectional.
func buildTestGraph() *graph.Graph {
	in := graph.BuildInput{
		Edges: []graph.Edge{
			{FromID: 10, ToID: 20, Weight: 100},
			{FromID: 20, ToID: 10, Weight: 100},
			{FromID: 20, ToID: 30, Weight: 200},
			{FromID: 30, ToID: 20, Weight: 200},
			{FromID: 10, ToID: 40, Weight: 300},
			{FromID: 40, ToID: 10, Weight: 300},
			{FromID: 30, ToID: 60, Weight: 400},
			{FromID: 60, ToID: 30, Weight: 400},
			{FromID: 40, ToID: 50, Weight: 500},
			{FromID: 50, ToID: 40, Weight: 500},
			{FromID: 50, ToID: 60, Weight: 600},
			{FromID: 60, ToID: 50, Weight: 600},
		},
		NodeLat: map[int64]float64{10: 1.0, 20: 1.0, 30: 1.0, 40: 1.1, 50: 1.1, 60: 1.1},
		NodeLon: map[int64]float64{10: 103.0, 20: 103.1, 30: 103.2, 40: 103.0, 50: 103.1, 60: 103.2},
	}
	return graph.Build(in)
}

// plainDijkstra runs standard Dijkstra on the original CSR graph.
func plainDijkstra(g *graph.Graph, source, target uint32) uint32 {
	dist := make([]uint32, g.NumNodes)
	for i := range dist {
		dist[i] = math.MaxUint32
	}
	dist[source] = 0

	type item struct {
		node uint32
		dist uint32
	}
	var pq []item
	pq = append(pq, item{source, 0})

	for len(pq) > 0 {
		minIdx := 0
		for i := 1; i < len(pq); i++ {
			if pq[i].dist < pq[minIdx].dist {
				minIdx = i
			}
		}
		cur := pq[minIdx]
		pq[minIdx] = pq[len(pq)-1]
		pq = pq[:len(pq)-1]

		if cur.dist > dist[cur.node] {
			continue
		}
		if cur.node == target {
			return cur.dist
		}

		start, end := g.EdgesFrom(cur.node)
		for e := start; e < end; e++ {
			v := g.Head[e]
			newDist := cur.dist + g.Weight[e]
			if newDist < dist[v] {
				dist[v] = newDist
				pq = append(pq, item{v, newDist})
			}
		}
	}

	return dist[target]
}

// chDijkstra runs bidirectional CH Dijkstra on the overlay, independently
// of internal/search, so contraction correctness can be checked in
// isolation.
func chDijkstra(idx *Index, source, target uint32) uint32 {
	distFwd := make([]uint32, idx.NumNodes)
	distBwd := make([]uint32, idx.NumNodes)
	for i := range distFwd {
		distFwd[i] = math.MaxUint32
		distBwd[i] = math.MaxUint32
	}
	distFwd[source] = 0
	distBwd[target] = 0

	type item struct {
		node uint32
		dist uint32
	}

	var fwdPQ, bwdPQ []item
	fwdPQ = append(fwdPQ, item{source, 0})
	bwdPQ = append(bwdPQ, item{target, 0})

	mu := uint32(math.MaxUint32)

	popMin := func(pq *[]item) item {
		minIdx := 0
		for i := 1; i < len(*pq); i++ {
			if (*pq)[i].dist < (*pq)[minIdx].dist {
				minIdx = i
			}
		}
		cur := (*pq)[minIdx]
		(*pq)[minIdx] = (*pq)[len(*pq)-1]
		*pq = (*pq)[:len(*pq)-1]
		return cur
	}

	peekMin := func(pq []item) uint32 {
		if len(pq) == 0 {
			return math.MaxUint32
		}
		min := pq[0].dist
		for _, it := range pq[1:] {
			if it.dist < min {
				min = it.dist
			}
		}
		return min
	}

	for len(fwdPQ) > 0 || len(bwdPQ) > 0 {
		if len(fwdPQ) > 0 && peekMin(fwdPQ) < mu {
			cur := popMin(&fwdPQ)
			if cur.dist <= distFwd[cur.node] {
				if distBwd[cur.node] < math.MaxUint32 {
					if cand := cur.dist + distBwd[cur.node]; cand < mu {
						mu = cand
					}
				}
				fStart, fEnd := idx.FwdEdgesFrom(cur.node)
				for e := fStart; e < fEnd; e++ {
					v := idx.FwdHead[e]
					newDist := cur.dist + idx.FwdWeight[e]
					if newDist < distFwd[v] {
						distFwd[v] = newDist
						fwdPQ = append(fwdPQ, item{v, newDist})
					}
				}
			}
		}

		if len(bwdPQ) > 0 && peekMin(bwdPQ) < mu {
			cur := popMin(&bwdPQ)
			if cur.dist <= distBwd[cur.node] {
				if distFwd[cur.node] < math.MaxUint32 {
					if cand := distFwd[cur.node] + cur.dist; cand < mu {
						mu = cand
					}
				}
				bStart, bEnd := idx.BwdEdgesFrom(cur.node)
				for e := bStart; e < bEnd; e++ {
					v := idx.BwdHead[e]
					newDist := cur.dist + idx.BwdWeight[e]
					if newDist < distBwd[v] {
						distBwd[v] = newDist
						bwdPQ = append(bwdPQ, item{v, newDist})
					}
				}
			}
		}

		fwdMin := peekMin(fwdPQ)
		bwdMin := peekMin(bwdPQ)
		if fwdMin >= mu && bwdMin >= mu {
			break
		}
	}

	return mu
}

func TestContractSmallGraph(t *testing.T) {
	g := buildTestGraph()

	if g.NumNodes != 6 {
		t.Fatalf("test graph has %d nodes, want 6", g.NumNodes)
	}

	idx := Contract(g)

	if idx.NumNodes != 6 {
		t.Fatalf("CH has %d nodes, want 6", idx.NumNodes)
	}

	rankSeen := make(map[uint32]bool)
	for _, r := range idx.Rank {
		if r >= idx.NumNodes {
			t.Errorf("rank %d >= NumNodes %d", r, idx.NumNodes)
		}
		rankSeen[r] = true
	}
	if len(rankSeen) != int(idx.NumNodes) {
		t.Errorf("ranks are not a permutation: saw %d unique values, want %d", len(rankSeen), idx.NumNodes)
	}
}

func TestCHCorrectnessAllPairs(t *testing.T) {
	g := buildTestGraph()
	idx := Contract(g)

	for s := uint32(0); s < g.NumNodes; s++ {
		for d := uint32(0); d < g.NumNodes; d++ {
			if s == d {
				continue
			}
			plainDist := plainDijkstra(g, s, d)
			chDist := chDijkstra(idx, s, d)
			if chDist != plainDist {
				t.Errorf("s=%d d=%d: CH=%d, Dijkstra=%d", s, d, chDist, plainDist)
			}
		}
	}
}

func TestContractSingleNode(t *testing.T) {
	in := graph.BuildInput{
		NodeLat: map[int64]float64{1: 1.0},
		NodeLon: map[int64]float64{1: 103.0},
	}
	g := graph.Build(in)
	idx := Contract(g)
	if idx.NumNodes != 0 {
		t.Logf("NumNodes=%d (empty graph expected, no edges reference the node)", idx.NumNodes)
	}
}

func TestContractLinearGraph(t *testing.T) {
	in := graph.BuildInput{
		Edges: []graph.Edge{
			{FromID: 1, ToID: 2, Weight: 100},
			{FromID: 2, ToID: 3, Weight: 200},
			{FromID: 3, ToID: 4, Weight: 300},
			{FromID: 4, ToID: 5, Weight: 400},
		},
		NodeLat: map[int64]float64{1: 1.0, 2: 1.1, 3: 1.2, 4: 1.3, 5: 1.4},
		NodeLon: map[int64]float64{1: 103.0, 2: 103.1, 3: 103.2, 4: 103.3, 5: 103.4},
	}
	g := graph.Build(in)
	idx := Contract(g)

	dist := chDijkstra(idx, 0, 4)
	expected := plainDijkstra(g, 0, 4)
	if dist != expected {
		t.Errorf("linear chain: CH=%d, Dijkstra=%d", dist, expected)
	}
}
