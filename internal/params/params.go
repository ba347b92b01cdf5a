// Package params implements the query-string grammar spec §4.I
// describes for the route/nearest/table/trip/match services: typed,
// validated parameter records built from a request's url.Values, with
// every parameter required to consume its value string in full or fail
// with a structured error — no silent defaulting on a malformed value.
//
// Grounded on original_source/include/server/api/base_parameters_grammar.hpp
// (OSRM's actual Boost.Spirit grammar for these same parameters): the
// base/per-service split, the "coordinates OR a single polyline(...)"
// alternative, the ';'-separated per-coordinate radiuses/bearings/hints
// with each position independently optional, and the fixed-length
// base64url hint all carry over from it one-for-one. Spirit's PEG
// combinators have no Go analogue in the retrieval pack, so the parser
// here is hand-written field validation in the teacher's
// `pkg/api/handlers.go` style (explicit checks returning a typed error
// per failure) rather than a parser-combinator library — no pack repo
// imports one.
package params

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/azybler/streetrouter/internal/apierr"
	"github.com/azybler/streetrouter/internal/polyline"
)

// HintSize is the fixed base64url length of an opaque per-coordinate
// hint token (spec §4.I: "base64url, fixed length").
const HintSize = 32

// Coordinate is one {lon,lat} pair from a coordinates parameter.
type Coordinate struct {
	Lon, Lat float64
}

// Bearing is a per-coordinate {value,range} constraint; Set is false for
// a position left unspecified (an empty slot between ';'s).
type Bearing struct {
	Value, Range int
	Set          bool
}

// Geometries is the route/trip/match `geometries` enum.
type Geometries string

const (
	GeoJSON   Geometries = "geojson"
	Polyline  Geometries = "polyline"
	Polyline6 Geometries = "polyline6"
)

// Overview is the route `overview` enum.
type Overview string

const (
	Simplified   Overview = "simplified"
	Full         Overview = "full"
	OverviewNone Overview = "false"
)

// ContinueStraight is the route `continue_straight` enum. Open Question
// 3 (SPEC_FULL.md) resolves `default` as a distinct third value that
// internal/search treats identically to False.
type ContinueStraight string

const (
	ContinueTrue    ContinueStraight = "true"
	ContinueFalse   ContinueStraight = "false"
	ContinueDefault ContinueStraight = "default"
)

// AnnotationKind is one member of the `annotations` comma-set.
type AnnotationKind string

const (
	AnnotationAll      AnnotationKind = "all"
	AnnotationNone     AnnotationKind = "none"
	AnnotationDuration AnnotationKind = "duration"
	AnnotationNodes    AnnotationKind = "nodes"
	AnnotationDistance AnnotationKind = "distance"
)

// Gaps is the match `gaps` enum.
type Gaps string

const (
	GapsSplit  Gaps = "split"
	GapsIgnore Gaps = "ignore"
)

// BaseParams holds the parameters every service shares.
type BaseParams struct {
	Coordinates []Coordinate
	Hints       []string  // "" at position i means no hint for coordinate i
	Radiuses    []float64 // NaN at position i means unset
	Bearings    []Bearing
}

// RouteParams is the full parameter record for GET /route.
type RouteParams struct {
	BaseParams
	Steps             bool
	Geometries        Geometries
	Overview          Overview
	Annotations       []AnnotationKind
	Alternatives      bool
	ContinueStraight  ContinueStraight
}

// NearestParams is the full parameter record for GET /nearest.
type NearestParams struct {
	BaseParams
	Number int
}

// TableParams is the full parameter record for GET /table.
type TableParams struct {
	BaseParams
	Sources          []int
	SourcesAll       bool
	Destinations     []int
	DestinationsAll  bool
}

// TripParams is the full parameter record for GET /trip.
type TripParams struct {
	BaseParams
	Source      string
	Destination string
}

// MatchParams is the full parameter record for GET /match.
type MatchParams struct {
	BaseParams
	Timestamps []int64
	Gaps       Gaps
	Tidy       bool
}

// ParseCoordinates parses either "lon,lat;lon,lat;…" or a single
// "polyline(<encoded>)". The whole string must be consumed by one
// grammar or the other; a partial match is a parse failure, not a
// partial result.
func ParseCoordinates(s string) ([]Coordinate, *apierr.Error) {
	if strings.HasPrefix(s, "polyline(") && strings.HasSuffix(s, ")") {
		enc := s[len("polyline(") : len(s)-1]
		if enc == "" {
			return nil, apierr.New(apierr.InvalidQuery, "empty polyline")
		}
		pts := polyline.Decode(enc, polyline.Precision5)
		if len(pts) == 0 {
			return nil, apierr.New(apierr.InvalidQuery, "polyline decoded to no coordinates")
		}
		coords := make([]Coordinate, len(pts))
		for i, p := range pts {
			coords[i] = Coordinate{Lon: p.Lng, Lat: p.Lat}
		}
		return coords, nil
	}

	parts := strings.Split(s, ";")
	coords := make([]Coordinate, len(parts))
	for i, part := range parts {
		fields := strings.Split(part, ",")
		if len(fields) != 2 {
			return nil, apierr.New(apierr.InvalidQuery, "coordinate %d: want \"lon,lat\", got %q", i, part)
		}
		lon, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, apierr.New(apierr.InvalidQuery, "coordinate %d: bad longitude %q", i, fields[0])
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, apierr.New(apierr.InvalidQuery, "coordinate %d: bad latitude %q", i, fields[1])
		}
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return nil, apierr.New(apierr.InvalidValue, "coordinate %d: out of range", i)
		}
		coords[i] = Coordinate{Lon: lon, Lat: lat}
	}
	return coords, nil
}

// parseHints splits a `hints` value, requiring every non-empty position
// to be exactly HintSize base64url characters.
func parseHints(s string, n int) ([]string, *apierr.Error) {
	parts := strings.Split(s, ";")
	if len(parts) != n {
		return nil, apierr.New(apierr.InvalidOptions, "hints: %d entries, want %d (one per coordinate)", len(parts), n)
	}
	for i, h := range parts {
		if h == "" {
			continue
		}
		if len(h) != HintSize {
			return nil, apierr.New(apierr.InvalidOptions, "hints: entry %d has length %d, want %d", i, len(h), HintSize)
		}
		if !isBase64URL(h) {
			return nil, apierr.New(apierr.InvalidOptions, "hints: entry %d is not valid base64url", i)
		}
	}
	return parts, nil
}

// isBase64URL reports whether s contains only the unpadded base64url
// alphabet (RFC 4648 §5).
func isBase64URL(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// parseRadiuses splits a `radiuses` value; an empty position means
// unset (represented as NaN).
func parseRadiuses(s string, n int) ([]float64, *apierr.Error) {
	parts := strings.Split(s, ";")
	if len(parts) != n {
		return nil, apierr.New(apierr.InvalidOptions, "radiuses: %d entries, want %d", len(parts), n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		if p == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return nil, apierr.New(apierr.InvalidValue, "radiuses: entry %d is not a non-negative number", i)
		}
		out[i] = v
	}
	return out, nil
}

// parseBearings splits a `bearings` value; an empty position means
// unset.
func parseBearings(s string, n int) ([]Bearing, *apierr.Error) {
	parts := strings.Split(s, ";")
	if len(parts) != n {
		return nil, apierr.New(apierr.InvalidOptions, "bearings: %d entries, want %d", len(parts), n)
	}
	out := make([]Bearing, n)
	for i, p := range parts {
		if p == "" {
			continue
		}
		fields := strings.Split(p, ",")
		if len(fields) != 2 {
			return nil, apierr.New(apierr.InvalidQuery, "bearings: entry %d: want \"value,range\"", i)
		}
		value, err1 := strconv.Atoi(fields[0])
		rng, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || value < 0 || value > 360 || rng < 0 || rng > 180 {
			return nil, apierr.New(apierr.InvalidValue, "bearings: entry %d out of range", i)
		}
		out[i] = Bearing{Value: value, Range: rng, Set: true}
	}
	return out, nil
}

// parseBase validates the parameters every service shares. Per-
// coordinate arrays (hints, radiuses, bearings) are only checked for
// length when present at all — their absence is not an error.
func parseBase(q url.Values) (BaseParams, *apierr.Error) {
	raw, ok := q["coordinates"]
	if !ok || len(raw) == 0 || raw[0] == "" {
		return BaseParams{}, apierr.New(apierr.InvalidQuery, "missing coordinates")
	}
	coords, aerr := ParseCoordinates(raw[0])
	if aerr != nil {
		return BaseParams{}, aerr
	}
	n := len(coords)
	bp := BaseParams{Coordinates: coords}

	if v := q.Get("hints"); v != "" {
		hints, aerr := parseHints(v, n)
		if aerr != nil {
			return BaseParams{}, aerr
		}
		bp.Hints = hints
	}
	if v := q.Get("radiuses"); v != "" {
		radiuses, aerr := parseRadiuses(v, n)
		if aerr != nil {
			return BaseParams{}, aerr
		}
		bp.Radiuses = radiuses
	}
	if v := q.Get("bearings"); v != "" {
		bearings, aerr := parseBearings(v, n)
		if aerr != nil {
			return BaseParams{}, aerr
		}
		bp.Bearings = bearings
	}
	return bp, nil
}

func parseBool(s string) (bool, *apierr.Error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, apierr.New(apierr.InvalidOptions, "expected true or false, got %q", s)
	}
}

func parseAnnotations(s string) ([]AnnotationKind, *apierr.Error) {
	parts := strings.Split(s, ",")
	out := make([]AnnotationKind, len(parts))
	valid := map[AnnotationKind]bool{
		AnnotationAll: true, AnnotationNone: true, AnnotationDuration: true,
		AnnotationNodes: true, AnnotationDistance: true,
	}
	for i, p := range parts {
		k := AnnotationKind(p)
		if !valid[k] {
			return nil, apierr.New(apierr.InvalidOptions, "annotations: unrecognized value %q", p)
		}
		out[i] = k
	}
	return out, nil
}

// ParseRouteParams parses the full /route parameter record.
func ParseRouteParams(q url.Values) (*RouteParams, *apierr.Error) {
	base, aerr := parseBase(q)
	if aerr != nil {
		return nil, aerr
	}
	rp := &RouteParams{
		BaseParams: base,
		Geometries: Polyline,
		Overview:   Simplified,
	}

	if v := q.Get("steps"); v != "" {
		b, aerr := parseBool(v)
		if aerr != nil {
			return nil, aerr
		}
		rp.Steps = b
	}
	if v := q.Get("alternatives"); v != "" {
		b, aerr := parseBool(v)
		if aerr != nil {
			return nil, aerr
		}
		rp.Alternatives = b
	}
	if v := q.Get("geometries"); v != "" {
		switch Geometries(v) {
		case GeoJSON, Polyline, Polyline6:
			rp.Geometries = Geometries(v)
		default:
			return nil, apierr.New(apierr.InvalidOptions, "geometries: unrecognized value %q", v)
		}
	}
	if v := q.Get("overview"); v != "" {
		switch Overview(v) {
		case Simplified, Full, OverviewNone:
			rp.Overview = Overview(v)
		default:
			return nil, apierr.New(apierr.InvalidOptions, "overview: unrecognized value %q", v)
		}
	}
	if v := q.Get("annotations"); v != "" {
		ann, aerr := parseAnnotations(v)
		if aerr != nil {
			return nil, aerr
		}
		rp.Annotations = ann
	}
	if v := q.Get("continue_straight"); v != "" {
		switch ContinueStraight(v) {
		case ContinueTrue, ContinueFalse, ContinueDefault:
			rp.ContinueStraight = ContinueStraight(v)
		default:
			return nil, apierr.New(apierr.InvalidOptions, "continue_straight: unrecognized value %q", v)
		}
	} else {
		rp.ContinueStraight = ContinueDefault
	}
	return rp, nil
}

// ParseNearestParams parses the full /nearest parameter record.
func ParseNearestParams(q url.Values) (*NearestParams, *apierr.Error) {
	base, aerr := parseBase(q)
	if aerr != nil {
		return nil, aerr
	}
	np := &NearestParams{BaseParams: base, Number: 1}
	if v := q.Get("number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, apierr.New(apierr.InvalidValue, "number: want a positive integer, got %q", v)
		}
		np.Number = n
	}
	return np, nil
}

// parseIndexList parses a "idx1;idx2;…" or "all" value against a valid
// index range [0,n).
func parseIndexList(s string, n int) (indices []int, all bool, aerr *apierr.Error) {
	if s == "all" {
		return nil, true, nil
	}
	parts := strings.Split(s, ";")
	out := make([]int, len(parts))
	for i, p := range parts {
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 0 || idx >= n {
			return nil, false, apierr.New(apierr.InvalidValue, "entry %d: index %q out of range [0,%d)", i, p, n)
		}
		out[i] = idx
	}
	return out, false, nil
}

// ParseTableParams parses the full /table parameter record.
func ParseTableParams(q url.Values) (*TableParams, *apierr.Error) {
	base, aerr := parseBase(q)
	if aerr != nil {
		return nil, aerr
	}
	n := len(base.Coordinates)
	tp := &TableParams{BaseParams: base, SourcesAll: true, DestinationsAll: true}

	if v := q.Get("sources"); v != "" {
		idx, all, aerr := parseIndexList(v, n)
		if aerr != nil {
			return nil, aerr
		}
		tp.Sources, tp.SourcesAll = idx, all
	}
	if v := q.Get("destinations"); v != "" {
		idx, all, aerr := parseIndexList(v, n)
		if aerr != nil {
			return nil, aerr
		}
		tp.Destinations, tp.DestinationsAll = idx, all
	}
	return tp, nil
}

// ParseTripParams parses the full /trip parameter record.
func ParseTripParams(q url.Values) (*TripParams, *apierr.Error) {
	base, aerr := parseBase(q)
	if aerr != nil {
		return nil, aerr
	}
	return &TripParams{
		BaseParams:  base,
		Source:      q.Get("source"),
		Destination: q.Get("destination"),
	}, nil
}

// ParseMatchParams parses the full /match parameter record.
func ParseMatchParams(q url.Values) (*MatchParams, *apierr.Error) {
	base, aerr := parseBase(q)
	if aerr != nil {
		return nil, aerr
	}
	mp := &MatchParams{BaseParams: base, Gaps: GapsSplit}

	if v := q.Get("timestamps"); v != "" {
		parts := strings.Split(v, ";")
		if len(parts) != len(base.Coordinates) {
			return nil, apierr.New(apierr.InvalidOptions, "timestamps: %d entries, want %d", len(parts), len(base.Coordinates))
		}
		ts := make([]int64, len(parts))
		for i, p := range parts {
			t, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return nil, apierr.New(apierr.InvalidValue, "timestamps: entry %d is not an integer", i)
			}
			ts[i] = t
		}
		mp.Timestamps = ts
	}
	if v := q.Get("gaps"); v != "" {
		switch Gaps(v) {
		case GapsSplit, GapsIgnore:
			mp.Gaps = Gaps(v)
		default:
			return nil, apierr.New(apierr.InvalidOptions, "gaps: unrecognized value %q", v)
		}
	}
	if v := q.Get("tidy"); v != "" {
		b, aerr := parseBool(v)
		if aerr != nil {
			return nil, aerr
		}
		mp.Tidy = b
	}
	return mp, nil
}
