package search

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/azybler/streetrouter/internal/geoindex"
	"github.com/azybler/streetrouter/internal/graph"
)

// ErrNoRoute is returned when the two query points are not connected.
var ErrNoRoute = errors.New("search: no route found")

// LatLng is a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Segment is one leg of a route result.
type Segment struct {
	DistanceMeters float64
	Geometry       []LatLng
}

// RouteResult is the output of a route query.
type RouteResult struct {
	TotalDistanceMeters float64
	Segments            []Segment
	BaseEdges           []uint32 // base-graph edge indices, source->target order
}

// Engine answers shortest-path queries over a base graph and an Oracle
// (CH or MLP), snapping query points to the nearest edge with a
// geoindex.Index and pooling per-query scratch state.
type Engine struct {
	oracle  Oracle
	g       *graph.Graph
	idx     *geoindex.Index
	qsPool  sync.Pool
}

// NewEngine builds a query engine. g is the base graph the oracle's
// shortcuts were contracted from; idx must be built over the same g.
func NewEngine(oracle Oracle, g *graph.Graph, idx *geoindex.Index) *Engine {
	e := &Engine{oracle: oracle, g: g, idx: idx}
	e.qsPool.New = func() any {
		return NewQueryState(oracle.NumNodes())
	}
	return e
}

// Route computes the shortest path between two points.
func (e *Engine) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	startSnap, err := e.idx.Nearest(start.Lat, start.Lng)
	if err != nil {
		return nil, err
	}
	endSnap, err := e.idx.Nearest(end.Lat, end.Lng)
	if err != nil {
		return nil, err
	}
	return e.RouteFromSnaps(ctx, startSnap, endSnap)
}

// RouteFromSnaps computes the shortest path between two already-snapped
// points, letting a caller that holds a cached snap (internal/dispatch's
// hint tokens) skip a redundant geoindex.Nearest lookup.
func (e *Engine) RouteFromSnaps(ctx context.Context, startSnap, endSnap geoindex.SnapResult) (*RouteResult, error) {
	// Both points snap to the same directed edge: PhantomSeeds seeds each
	// side's queue from *both* of that edge's endpoints, so a
	// bidirectional search would meet at whichever endpoint is cheaper
	// from both sides and report 2*weight*min(r,1-r) instead of the
	// direct distance between the two ratios — wrong in general, and
	// nonzero for the identical-coordinate case the search loop never
	// even runs for. Handle it directly instead.
	if startSnap.EdgeIdx == endSnap.EdgeIdx {
		return e.routeOnSharedEdge(startSnap, endSnap), nil
	}

	qs := e.qsPool.Get().(*QueryState)
	defer func() {
		qs.Reset()
		e.qsPool.Put(qs)
	}()

	startW := e.g.Weight[startSnap.EdgeIdx]
	endW := e.g.Weight[endSnap.EdgeIdx]

	startToV, startToU := PhantomSeeds(startSnap, startW)
	SeedForward(qs, []Endpoint{startToV, startToU})
	// Target phantom: same two-endpoint seeding, into the reverse queue.
	endToV, endToU := PhantomSeeds(endSnap, endW)
	SeedBackward(qs, []Endpoint{endToV, endToU})

	res := Run(ctx, e.oracle, qs)
	if !res.Found {
		return nil, ErrNoRoute
	}

	baseEdges := UnpackRoute(e.oracle, qs, res.MeetNode)
	geometry := e.buildGeometry(baseEdges)
	totalMeters := float64(res.Weight) / 1000.0

	return &RouteResult{
		TotalDistanceMeters: totalMeters,
		BaseEdges:           baseEdges,
		Segments: []Segment{
			{DistanceMeters: totalMeters, Geometry: geometry},
		},
	}, nil
}

// routeOnSharedEdge builds the route directly along the edge both query
// points snapped to: the distance is the edge's weight scaled by the gap
// between the two snap ratios, zero when the ratios (and so the
// coordinates) coincide.
func (e *Engine) routeOnSharedEdge(startSnap, endSnap geoindex.SnapResult) *RouteResult {
	weight := e.g.Weight[startSnap.EdgeIdx]
	ratioGap := math.Abs(startSnap.Ratio - endSnap.Ratio)
	totalMeters := ratioGap * float64(weight) / 1000.0

	geometry := []LatLng{
		{Lat: startSnap.Lat, Lng: startSnap.Lon},
		{Lat: endSnap.Lat, Lng: endSnap.Lon},
	}

	return &RouteResult{
		TotalDistanceMeters: totalMeters,
		BaseEdges:           []uint32{startSnap.EdgeIdx},
		Segments: []Segment{
			{DistanceMeters: totalMeters, Geometry: geometry},
		},
	}
}

// buildGeometry walks a sequence of base graph edges and assembles the
// lat/lng polyline, including intermediate shape points.
func (e *Engine) buildGeometry(edges []uint32) []LatLng {
	if len(edges) == 0 {
		return nil
	}

	g := e.g
	geom := make([]LatLng, 0, len(edges)*2)

	firstFrom := findCSRSource(g.FirstOut, edges[0])
	geom = append(geom, LatLng{Lat: g.NodeLat[firstFrom], Lng: g.NodeLon[firstFrom]})

	for _, edgeIdx := range edges {
		v := g.Head[edgeIdx]

		if g.GeoFirstOut != nil && int(edgeIdx) < len(g.GeoFirstOut)-1 {
			start, end := g.GeoFirstOut[edgeIdx], g.GeoFirstOut[edgeIdx+1]
			for k := start; k < end; k++ {
				geom = append(geom, LatLng{Lat: g.GeoShapeLat[k], Lng: g.GeoShapeLon[k]})
			}
		}

		geom = append(geom, LatLng{Lat: g.NodeLat[v], Lng: g.NodeLon[v]})
	}

	return geom
}
