package dispatch

import (
	"context"
	"net/url"

	"github.com/azybler/streetrouter/internal/apierr"
	"github.com/azybler/streetrouter/internal/params"
)

// NearestResponse is the GET /nearest/v1/{profile}/{lon},{lat} body.
type NearestResponse struct {
	Response
	Waypoints []WaypointJSON `json:"waypoints"`
}

// handleNearest answers GET /nearest. geoindex.Index.Nearest only ever
// returns the single closest edge, not a k-nearest list, so `number`
// above 1 is accepted (per the grammar) but only ever yields one
// waypoint — a scope limitation recorded in DESIGN.md, not a silent gap.
func handleNearest(_ context.Context, f *Facade, q url.Values) Result {
	np, aerr := params.ParseNearestParams(q)
	if aerr != nil {
		return errorResult(aerr)
	}
	if len(np.Coordinates) != 1 {
		return errorResult(apierr.New(apierr.InvalidQuery, "nearest requires exactly 1 coordinate, got %d", len(np.Coordinates)))
	}

	coord := np.Coordinates[0]
	hint := hintFor(np.Hints, 0)

	snap, err := resolveSnap(f, coord, hint)
	if err != nil {
		return errorResult(snapErrorCode(err))
	}

	return okResult(NearestResponse{
		Response:  Response{Code: "Ok"},
		Waypoints: []WaypointJSON{waypointFor(f, snap)},
	})
}
