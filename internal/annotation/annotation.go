// Package annotation turns an unpacked base-graph edge sequence into the
// ordered list of route segments spec §4.H describes: name, length,
// duration, travel mode, turn instruction, and the bearing pair around
// each turn. Grounded on the teacher's `pkg/routing/engine.go` Segment/
// RouteResult shape (engine.go's buildGeometry walks the same unpacked
// node/edge sequence this package consumes) and on
// `original_source/include/guidance/turn_instruction.hpp`'s
// type/modifier split (spec §4.H already names the enum values this
// package's Type/Modifier constants reproduce).
package annotation

import (
	"sort"

	"github.com/azybler/streetrouter/internal/geo"
	"github.com/azybler/streetrouter/internal/graph"
)

// Type is the coarse turn-instruction category from spec §4.H.
type Type string

const (
	NoTurn           Type = "NoTurn"
	Continue         Type = "Continue"
	Turn             Type = "Turn"
	NewName          Type = "NewName"
	Ramp             Type = "Ramp"
	Merge            Type = "Merge"
	Fork             Type = "Fork"
	EndOfRoad        Type = "EndOfRoad"
	Restriction      Type = "Restriction"
	Notification     Type = "Notification"
	EnterRoundabout  Type = "EnterRoundabout"
	LeaveRoundabout  Type = "LeaveRoundabout"
	StayOnRoundabout Type = "StayOnRoundabout"
	UseLane          Type = "UseLane"
	Suppressed       Type = "Suppressed"
)

// Modifier is the fine-grained turn direction, classified from the
// signed turn angle per spec §4.H's documented bins.
type Modifier string

const (
	UTurn      Modifier = "UTurn"
	SharpRight Modifier = "SharpRight"
	Right      Modifier = "Right"
	SlightRight Modifier = "SlightRight"
	Straight   Modifier = "Straight"
	SlightLeft Modifier = "SlightLeft"
	Left       Modifier = "Left"
	SharpLeft  Modifier = "SharpLeft"
)

// Instruction is the {type, modifier} pair spec §4.H's turn_instruction
// field carries, plus the roundabout exit count the original computes
// alongside it (a supplemented feature: SPEC_FULL carries it since it's
// cheap once a roundabout is detected, but this implementation has no
// OSM junction=roundabout tag piped through internal/graph, so
// ExitNumber is always 0 and EnterRoundabout/LeaveRoundabout/
// StayOnRoundabout are never produced — see DESIGN.md).
type Instruction struct {
	Type       Type
	Modifier   Modifier
	ExitNumber int
}

// Segment is one entry of spec §4.H's route result: an edge's worth of
// the route, with the turn a traveler makes on entering it.
type Segment struct {
	NameID      uint32
	Name        string
	LengthM     float64
	DurationDS  uint32 // duration in deciseconds, per spec's integer-duration convention
	TravelMode  uint8
	Turn        Instruction
	BearingPre  float64
	BearingPost float64
	Necessary   bool
}

// speedMetersPerDS is the fixed speed assumption (25 km/h) used to turn a
// millimeter edge weight into a duration when no separate duration metric
// is loaded — matches the teacher's single-metric-is-distance model.
const speedMetersPerDS = 25_000.0 / 36000.0 // 25 km/h in meters/decisecond

// Annotate converts base-graph edge indices (as produced by
// internal/search.UnpackRoute) into an ordered list of route segments.
func Annotate(g *graph.Graph, edges []uint32) []Segment {
	if len(edges) == 0 {
		return nil
	}

	segs := make([]Segment, len(edges))
	for i, e := range edges {
		lengthM := float64(g.Weight[e]) / 1000.0
		segs[i] = Segment{
			NameID:     g.NameID[e],
			Name:       g.EdgeNames[g.NameID[e]],
			LengthM:    lengthM,
			DurationDS: uint32(lengthM / speedMetersPerDS),
			TravelMode: 1,
		}
	}

	for i, e := range edges {
		bearingPre := approachBearing(g, e)
		bearingPost := departureBearing(g, e)
		segs[i].BearingPre = bearingPre
		segs[i].BearingPost = bearingPost

		if i == 0 {
			segs[i].Turn = Instruction{Type: NoTurn, Modifier: Straight}
			continue
		}
		prevBearingPre := segs[i-1].BearingPre
		modifier := ClassifyModifier(TurnAngle(prevBearingPre, bearingPost))
		segs[i].Turn = Instruction{Type: classifyType(modifier, segs[i-1].NameID, segs[i].NameID), Modifier: modifier}
	}

	markNecessary(segs)
	return segs
}

// classifyType derives a turn Type from the modifier and whether the
// street name changed. This implementation only has edge names and
// geometry to work from — it does not have OSM junction/ramp/lane tags
// piped through internal/graph, so Ramp/Merge/Fork/EndOfRoad/
// Restriction/Notification/UseLane/Suppressed/roundabout types are never
// produced; see DESIGN.md for the scope note.
func classifyType(modifier Modifier, prevNameID, nameID uint32) Type {
	sameName := prevNameID == nameID
	if modifier == Straight {
		if sameName {
			return Continue
		}
		return NewName
	}
	return Turn
}

// TurnAngle returns the signed turn angle spec §4.H's bins classify:
// 180 minus the clockwise change of heading from bearingPre to
// bearingPost, normalized to [0,360), so 180 is straight on, a right
// turn falls below 180 and a left turn above it.
func TurnAngle(bearingPre, bearingPost float64) float64 {
	return normalize(bearingPre - bearingPost + 180)
}

// ClassifyModifier bins a turn angle (as returned by TurnAngle) into one
// of the eight spec §4.H modifiers.
func ClassifyModifier(angle float64) Modifier {
	switch {
	case angle >= 0 && angle < 60:
		return SharpRight
	case angle >= 60 && angle < 140:
		return Right
	case angle >= 140 && angle < 170:
		return SlightRight
	case angle >= 170 && angle <= 190:
		return Straight
	case angle > 190 && angle <= 220:
		return SlightLeft
	case angle > 220 && angle <= 300:
		return Left
	case angle > 300 && angle < 360:
		return SharpLeft
	default:
		return UTurn
	}
}

func normalize(angle float64) float64 {
	a := angle
	for a < 0 {
		a += 360
	}
	for a >= 360 {
		a -= 360
	}
	return a
}

// departureBearing is the compass bearing of the first coordinate pair
// after an edge's start node (bearing_post when this edge is the segment
// a traveler turns onto).
func departureBearing(g *graph.Graph, e uint32) float64 {
	from, to := edgeEndpoints(g, e)
	lats, lons := g.GeometryFor(e)
	if len(lats) > 0 {
		return geo.Bearing(g.NodeLat[from], g.NodeLon[from], lats[0], lons[0])
	}
	return geo.Bearing(g.NodeLat[from], g.NodeLon[from], g.NodeLat[to], g.NodeLon[to])
}

// approachBearing is the compass bearing of the last coordinate pair
// before an edge's end node (bearing_pre when this edge is the segment
// a traveler is leaving).
func approachBearing(g *graph.Graph, e uint32) float64 {
	from, to := edgeEndpoints(g, e)
	lats, lons := g.GeometryFor(e)
	if n := len(lats); n > 0 {
		return geo.Bearing(lats[n-1], lons[n-1], g.NodeLat[to], g.NodeLon[to])
	}
	return geo.Bearing(g.NodeLat[from], g.NodeLon[from], g.NodeLat[to], g.NodeLon[to])
}

// edgeEndpoints recovers edge e's source node by binary search over
// FirstOut (monotonic non-decreasing): the source is the last node
// whose first-edge offset is at or before e.
func edgeEndpoints(g *graph.Graph, e uint32) (from, to uint32) {
	to = g.Head[e]
	from = uint32(sort.Search(len(g.FirstOut), func(i int) bool {
		return g.FirstOut[i] > e
	}) - 1)
	return from, to
}

// markNecessary collapses Continue/NewName runs that share a name_id:
// per spec §4.H, only the first entry of such a run is "necessary" (the
// one a UI must render); trailing entries of the run may be collapsed.
// The first and last segment of a route are always necessary.
func markNecessary(segs []Segment) {
	for i := range segs {
		segs[i].Necessary = true
	}
	for i := 1; i < len(segs)-1; i++ {
		t := segs[i].Turn.Type
		if (t == Continue || t == NewName) && segs[i].NameID == segs[i-1].NameID {
			segs[i].Necessary = false
		}
	}
}
