package dispatch

import (
	"context"
	"errors"
	"net/url"

	"github.com/azybler/streetrouter/internal/annotation"
	"github.com/azybler/streetrouter/internal/apierr"
	"github.com/azybler/streetrouter/internal/geoindex"
	"github.com/azybler/streetrouter/internal/params"
	"github.com/azybler/streetrouter/internal/polyline"
	"github.com/azybler/streetrouter/internal/search"
)

// WaypointJSON is one snapped input coordinate, echoed back with enough
// state (the hint) to skip re-snapping on a follow-up request.
type WaypointJSON struct {
	Hint     string    `json:"hint"`
	Distance float64   `json:"distance"`
	Name     string    `json:"name"`
	Location []float64 `json:"location"` // [lon, lat]
}

// ManeuverJSON is the turn a traveler makes entering a step.
type ManeuverJSON struct {
	Type          string    `json:"type"`
	Modifier      string    `json:"modifier"`
	BearingBefore float64   `json:"bearing_before"`
	BearingAfter  float64   `json:"bearing_after"`
	ExitNumber    int       `json:"exit,omitempty"`
	Location      []float64 `json:"location"`
}

// StepJSON is one annotated route segment, present in a leg when
// `steps=true`.
type StepJSON struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Name     string       `json:"name"`
	Mode     string       `json:"mode"`
	Geometry any          `json:"geometry,omitempty"`
	Maneuver ManeuverJSON `json:"maneuver"`
}

// LegJSON is one origin-to-destination hop of a route; a route has one
// leg per pair of consecutive coordinates.
type LegJSON struct {
	Distance float64    `json:"distance"`
	Duration float64    `json:"duration"`
	Summary  string     `json:"summary"`
	Steps    []StepJSON `json:"steps"`
}

// RouteJSON is one candidate path.
type RouteJSON struct {
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Geometry any       `json:"geometry,omitempty"`
	Legs     []LegJSON `json:"legs"`
}

// RouteResponse is the full GET /route/v1/{profile}/{coords} body.
type RouteResponse struct {
	Response
	Waypoints []WaypointJSON `json:"waypoints"`
	Routes    []RouteJSON    `json:"routes"`
}

func handleRoute(ctx context.Context, f *Facade, q url.Values) Result {
	rp, aerr := params.ParseRouteParams(q)
	if aerr != nil {
		return errorResult(aerr)
	}
	if len(rp.Coordinates) < 2 {
		return errorResult(apierr.New(apierr.InvalidQuery, "route requires at least 2 coordinates, got %d", len(rp.Coordinates)))
	}
	if len(rp.Coordinates) > MaxCoordinates {
		return errorResult(apierr.New(apierr.TooBig, "too many coordinates: %d > %d", len(rp.Coordinates), MaxCoordinates))
	}

	// The engine routes one origin/destination pair at a time; a
	// request with via points routes leg-by-leg and concatenates,
	// treating each two consecutive coordinates as one leg.
	waypoints := make([]WaypointJSON, len(rp.Coordinates))
	var totalDistance, totalDuration float64
	var legs []LegJSON
	var fullGeometry []search.LatLng

	for i := 0; i+1 < len(rp.Coordinates); i++ {
		startSnap, err := resolveSnap(f, rp.Coordinates[i], hintFor(rp.Hints, i))
		if err != nil {
			return errorResult(snapErrorCode(err))
		}
		endSnap, err := resolveSnap(f, rp.Coordinates[i+1], hintFor(rp.Hints, i+1))
		if err != nil {
			return errorResult(snapErrorCode(err))
		}
		if i == 0 {
			waypoints[0] = waypointFor(f, startSnap)
		}
		waypoints[i+1] = waypointFor(f, endSnap)

		res, err := f.Engine.RouteFromSnaps(ctx, startSnap, endSnap)
		if err != nil {
			if errors.Is(err, search.ErrNoRoute) {
				return errorResult(apierr.New(apierr.NoRoute, "no path between coordinate %d and %d", i, i+1))
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return errorResult(apierr.New(apierr.InternalError, "request canceled"))
			}
			return errorResult(apierr.New(apierr.InternalError, "%v", err))
		}

		segs := annotation.Annotate(f.Graph, res.BaseEdges)
		leg := buildLeg(segs, rp)
		legs = append(legs, leg)
		totalDistance += res.TotalDistanceMeters
		totalDuration += leg.Duration
		if len(res.Segments) > 0 {
			fullGeometry = append(fullGeometry, res.Segments[0].Geometry...)
		}
	}

	route := RouteJSON{
		Distance: totalDistance,
		Duration: totalDuration,
		Legs:     legs,
	}
	if rp.Overview != params.OverviewNone {
		route.Geometry = encodeGeometry(fullGeometry, rp.Geometries)
	}

	return okResult(RouteResponse{
		Response:  Response{Code: "Ok"},
		Waypoints: waypoints,
		Routes:    []RouteJSON{route},
	})
}

// waypointFor builds the JSON waypoint for a snap result, naming the
// street by the edge's deduplicated name table entry.
func waypointFor(f *Facade, snap geoindex.SnapResult) WaypointJSON {
	return WaypointJSON{
		Hint:     encodeHint(snap.EdgeIdx, snap.NodeU, snap.NodeV, snap.Ratio),
		Distance: snap.Dist,
		Name:     f.Graph.EdgeNames[f.Graph.NameID[snap.EdgeIdx]],
		Location: []float64{snap.Lon, snap.Lat},
	}
}

func buildLeg(segs []annotation.Segment, rp *params.RouteParams) LegJSON {
	leg := LegJSON{}
	for _, s := range segs {
		leg.Distance += s.LengthM
		leg.Duration += float64(s.DurationDS) / 10.0
	}
	if len(segs) > 0 {
		leg.Summary = segs[0].Name
	}
	if rp.Steps {
		leg.Steps = make([]StepJSON, len(segs))
		for i, s := range segs {
			leg.Steps[i] = StepJSON{
				Distance: s.LengthM,
				Duration: float64(s.DurationDS) / 10.0,
				Name:     s.Name,
				Mode:     "driving",
				Maneuver: ManeuverJSON{
					Type:          string(s.Turn.Type),
					Modifier:      string(s.Turn.Modifier),
					BearingBefore: s.BearingPre,
					BearingAfter:  s.BearingPost,
					ExitNumber:    s.Turn.ExitNumber,
				},
			}
		}
	}
	return leg
}

func encodeGeometry(pts []search.LatLng, g params.Geometries) any {
	switch g {
	case params.GeoJSON:
		coords := make([][2]float64, len(pts))
		for i, p := range pts {
			coords[i] = [2]float64{p.Lng, p.Lat}
		}
		return map[string]any{"type": "LineString", "coordinates": coords}
	case params.Polyline6:
		pp := make([]polyline.Point, len(pts))
		for i, p := range pts {
			pp[i] = polyline.Point{Lat: p.Lat, Lng: p.Lng}
		}
		return polyline.Encode(pp, polyline.Precision6)
	default: // Polyline
		pp := make([]polyline.Point, len(pts))
		for i, p := range pts {
			pp[i] = polyline.Point{Lat: p.Lat, Lng: p.Lng}
		}
		return polyline.Encode(pp, polyline.Precision5)
	}
}
