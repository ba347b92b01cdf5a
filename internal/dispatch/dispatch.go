// Package dispatch implements spec §4.K request dispatch: mapping the
// URI path shape `/{service}/{version}/{profile}/{coords}[.format]` to a
// plugin with the signature `handle(params, facade) -> result_or_error`,
// and converting plugin errors to the `{code, message}` JSON body spec §7
// specifies. Grounded on the teacher's pkg/api/handlers.go (one function
// per route, explicit validation before the domain call, structured
// error response on any failure) generalized from the teacher's single
// POST /route endpoint to the five GET service URLs spec §6 names.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/azybler/streetrouter/internal/apierr"
	"github.com/azybler/streetrouter/internal/geoindex"
	"github.com/azybler/streetrouter/internal/graph"
	"github.com/azybler/streetrouter/internal/params"
	"github.com/azybler/streetrouter/internal/search"
)

// MaxCoordinates bounds request size per spec §4.I/§7 (`TooBig`); the
// table service in particular is O(sources×destinations) Dijkstra
// queries, so this is the one hard ceiling dispatch enforces itself
// rather than leaving to the engine.
const MaxCoordinates = 100

// Facade is the read-only, process-wide state a plugin needs: the base
// graph (B), its name table already decoded into Graph.EdgeNames, the
// geo index (C), and a search engine wired to either the CH (D) or MLP
// (E+F) oracle (G) — spec §4.K's "facade exposes read-only access to
// (B,C,D,E,F,H)" collapsed into the two handles a query actually touches.
type Facade struct {
	Graph  *graph.Graph
	Index  *geoindex.Index
	Engine *search.Engine
}

// Response is the common envelope every service reply carries: `code`
// is always present, `"Ok"` on success; a plugin-specific payload is
// merged in by each handler via embedding.
type Response struct {
	Code string `json:"code"`
}

// ErrorBody is the JSON shape spec §7 mandates for every failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is what a dispatched request produces: either a JSON body and
// a 200 status, or a structured error resolved to its HTTP status.
type Result struct {
	Status int
	Body   []byte
}

// Dispatch parses a request URI into {service, version, profile, coords,
// format} per spec §4.K/§6 and routes it to the matching plugin. query
// carries everything after '?'; rawPath is the part before it.
func Dispatch(ctx context.Context, f *Facade, rawPath string, query url.Values) Result {
	service, _, coordsPart, aerr := parsePath(rawPath)
	if aerr != nil {
		return errorResult(aerr)
	}

	q := cloneValues(query)
	q.Set("coordinates", coordsPart)

	switch service {
	case "route":
		return handleRoute(ctx, f, q)
	case "nearest":
		return handleNearest(ctx, f, q)
	case "table":
		return handleTable(ctx, f, q)
	case "trip":
		return handleUnimplemented()
	case "match":
		return handleUnimplemented()
	case "tile":
		return handleUnimplemented()
	default:
		return errorResult(apierr.New(apierr.InvalidQuery, "unknown service %q", service))
	}
}

// parsePath splits "/{service}/{version}/{profile}/{coords}[.format]"
// and strips a trailing ".json"/".geojson"/".mvt" format suffix from the
// last segment, which belongs to coords, not the path shape itself.
func parsePath(rawPath string) (service, profile, coords string, aerr *apierr.Error) {
	trimmed := strings.Trim(rawPath, "/")
	parts := strings.SplitN(trimmed, "/", 4)
	if len(parts) != 4 {
		return "", "", "", apierr.New(apierr.InvalidQuery, "malformed path %q: want /{service}/{version}/{profile}/{coords}", rawPath)
	}
	service, version, profile, last := parts[0], parts[1], parts[2], parts[3]
	if version != "v1" {
		return "", "", "", apierr.New(apierr.InvalidQuery, "unsupported version %q", version)
	}
	for _, suffix := range []string{".geojson", ".json", ".mvt"} {
		if strings.HasSuffix(last, suffix) {
			last = last[:len(last)-len(suffix)]
			break
		}
	}
	if last == "" {
		return "", "", "", apierr.New(apierr.InvalidQuery, "missing coordinates")
	}
	return service, profile, last, nil
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q)+1)
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func errorResult(aerr *apierr.Error) Result {
	status := aerr.HTTPStatus()
	if status == 0 {
		status = 500
	}
	body, _ := json.Marshal(ErrorBody{Code: string(aerr.Code), Message: aerr.Message})
	return Result{Status: status, Body: body}
}

func okResult(v any) Result {
	body, err := json.Marshal(v)
	if err != nil {
		return errorResult(apierr.New(apierr.InternalError, "encoding response: %v", err))
	}
	return Result{Status: 200, Body: body}
}

// handleUnimplemented answers /trip, /match, and /tile: their URL shape
// and parameter grammar are part of the HTTP surface (spec §6), but the
// solver/tiling algorithms themselves are out of scope (spec §1) — the
// plugin interface exists, the implementation is an honest
// InternalError rather than a fabricated result.
func handleUnimplemented() Result {
	return errorResult(apierr.New(apierr.InternalError, "service not implemented by this build"))
}

// resolveSnap prefers a caller-supplied hint (spec §4.I) over a fresh
// geoindex lookup. A hint is used only if decodeHint accepts it and its
// edge index, endpoints and ratio match an edge of the loaded graph; an
// absent hint, or one failing any of those checks, falls back to
// Nearest. An accepted hint is not compared with coord.
func resolveSnap(f *Facade, coord params.Coordinate, hint string) (geoindex.SnapResult, error) {
	if hint != "" {
		g := f.Graph
		if edgeIdx, nodeU, nodeV, ratio, ok := decodeHint(hint); ok && edgeIdx < g.NumEdges &&
			nodeU < g.NumNodes && g.FirstOut[nodeU] <= edgeIdx && edgeIdx < g.FirstOut[nodeU+1] &&
			nodeV == g.Head[edgeIdx] && ratio >= 0 && ratio <= 1 {
			lat := f.Graph.NodeLat[nodeU] + ratio*(f.Graph.NodeLat[nodeV]-f.Graph.NodeLat[nodeU])
			lon := f.Graph.NodeLon[nodeU] + ratio*(f.Graph.NodeLon[nodeV]-f.Graph.NodeLon[nodeU])
			return geoindex.SnapResult{
				EdgeIdx: edgeIdx, NodeU: nodeU, NodeV: nodeV, Ratio: ratio, Lat: lat, Lon: lon,
			}, nil
		}
	}
	return f.Index.Nearest(coord.Lat, coord.Lon)
}

// snapErrorCode maps a snap failure to its spec §7 code.
func snapErrorCode(err error) *apierr.Error {
	if errors.Is(err, geoindex.ErrPointTooFar) {
		return apierr.New(apierr.NoSegment, "%v", err)
	}
	return apierr.New(apierr.InternalError, "%v", err)
}

func hintFor(coords []string, i int) string {
	if i < len(coords) {
		return coords[i]
	}
	return ""
}

