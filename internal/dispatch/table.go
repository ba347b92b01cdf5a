package dispatch

import (
	"context"
	"errors"
	"net/url"

	"github.com/azybler/streetrouter/internal/annotation"
	"github.com/azybler/streetrouter/internal/apierr"
	"github.com/azybler/streetrouter/internal/geoindex"
	"github.com/azybler/streetrouter/internal/graph"
	"github.com/azybler/streetrouter/internal/params"
	"github.com/azybler/streetrouter/internal/search"
)

// TableResponse is the GET /table/v1/{profile}/{coords} body: an
// all-pairs distance/duration matrix between sources and destinations.
type TableResponse struct {
	Response
	Sources      []WaypointJSON `json:"sources"`
	Destinations []WaypointJSON `json:"destinations"`
	Durations    [][]*float64   `json:"durations"`
	Distances    [][]*float64   `json:"distances"`
}

// handleTable answers GET /table by running one point-to-point query
// per (source, destination) pair. This engine has no dedicated
// many-to-many search (spec component G is bidirectional two-point
// Dijkstra over CH/MLP, not a one-to-many sweep), so the matrix is built
// from repeated internal/search.Engine.RouteFromSnaps calls — correct,
// just O(sources×destinations) instead of the batched many-to-many the
// original engine implements internally; MaxCoordinates bounds the cost.
func handleTable(ctx context.Context, f *Facade, q url.Values) Result {
	tp, aerr := params.ParseTableParams(q)
	if aerr != nil {
		return errorResult(aerr)
	}
	if len(tp.Coordinates) < 1 {
		return errorResult(apierr.New(apierr.InvalidQuery, "table requires at least 1 coordinate"))
	}
	if len(tp.Coordinates) > MaxCoordinates {
		return errorResult(apierr.New(apierr.TooBig, "too many coordinates: %d > %d", len(tp.Coordinates), MaxCoordinates))
	}

	sourceIdx := tp.Sources
	if tp.SourcesAll {
		sourceIdx = allIndices(len(tp.Coordinates))
	}
	destIdx := tp.Destinations
	if tp.DestinationsAll {
		destIdx = allIndices(len(tp.Coordinates))
	}
	if int64(len(sourceIdx))*int64(len(destIdx)) > MaxCoordinates*MaxCoordinates {
		return errorResult(apierr.New(apierr.TooBig, "sources×destinations exceeds configured limit"))
	}

	snaps := make([]snapOrErr, len(tp.Coordinates))
	for i, c := range tp.Coordinates {
		snap, err := resolveSnap(f, c, hintFor(tp.Hints, i))
		if err != nil {
			snaps[i] = snapOrErr{err: err}
			continue
		}
		snaps[i] = snapOrErr{snap: snap}
	}

	sources := make([]WaypointJSON, len(sourceIdx))
	for i, si := range sourceIdx {
		if snaps[si].err != nil {
			return errorResult(snapErrorCode(snaps[si].err))
		}
		sources[i] = waypointFor(f, snaps[si].snap)
	}
	destinations := make([]WaypointJSON, len(destIdx))
	for j, dj := range destIdx {
		if snaps[dj].err != nil {
			return errorResult(snapErrorCode(snaps[dj].err))
		}
		destinations[j] = waypointFor(f, snaps[dj].snap)
	}

	durations := make([][]*float64, len(sourceIdx))
	distances := make([][]*float64, len(sourceIdx))
	for i, si := range sourceIdx {
		durations[i] = make([]*float64, len(destIdx))
		distances[i] = make([]*float64, len(destIdx))
		for j, dj := range destIdx {
			if si == dj {
				zero := 0.0
				durations[i][j], distances[i][j] = &zero, &zero
				continue
			}
			res, err := f.Engine.RouteFromSnaps(ctx, snaps[si].snap, snaps[dj].snap)
			if err != nil {
				if errors.Is(err, search.ErrNoRoute) {
					durations[i][j], distances[i][j] = nil, nil
					continue
				}
				return errorResult(apierr.New(apierr.InternalError, "%v", err))
			}
			dist := res.TotalDistanceMeters
			dur := totalDurationSeconds(res.BaseEdges, f.Graph)
			durations[i][j], distances[i][j] = &dur, &dist
		}
	}

	return okResult(TableResponse{
		Response:     Response{Code: "Ok"},
		Sources:      sources,
		Destinations: destinations,
		Durations:    durations,
		Distances:    distances,
	})
}

type snapOrErr struct {
	snap geoindex.SnapResult
	err  error
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// totalDurationSeconds reuses internal/annotation's per-edge duration
// model (the same fixed speed assumption /route's legs use) so /table
// and /route report consistent durations for the same edges.
func totalDurationSeconds(edges []uint32, g *graph.Graph) float64 {
	var totalDS uint32
	for _, s := range annotation.Annotate(g, edges) {
		totalDS += s.DurationDS
	}
	return float64(totalDS) / 10.0
}
