package osmimport

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestCarProfileIsAccessible(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"residential road", osm.Tags{{Key: "highway", Value: "residential"}}, true},
		{"motorway", osm.Tags{{Key: "highway", Value: "motorway"}}, true},
		{"footway (not car accessible)", osm.Tags{{Key: "highway", Value: "footway"}}, false},
		{"cycleway", osm.Tags{{Key: "highway", Value: "cycleway"}}, false},
		{"private access", osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "access", Value: "private"},
		}, false},
		{"no access", osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "access", Value: "no"},
		}, false},
		{"motor_vehicle=no", osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "motor_vehicle", Value: "no"},
		}, false},
		{"area=yes (pedestrian plaza)", osm.Tags{
			{Key: "highway", Value: "service"},
			{Key: "area", Value: "yes"},
		}, false},
		{"service road", osm.Tags{{Key: "highway", Value: "service"}}, true},
		{"living_street", osm.Tags{{Key: "highway", Value: "living_street"}}, true},
		{"no highway tag", osm.Tags{{Key: "name", Value: "Some Street"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CarProfile.isAccessible(tt.tags); got != tt.want {
				t.Errorf("isAccessible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCarProfileDirectionFlags(t *testing.T) {
	tests := []struct {
		name                     string
		tags                     osm.Tags
		wantForward, wantBackward bool
	}{
		{"default bidirectional", osm.Tags{{Key: "highway", Value: "residential"}}, true, true},
		{"motorway implied oneway", osm.Tags{{Key: "highway", Value: "motorway"}}, true, false},
		{"motorway_link implied oneway", osm.Tags{{Key: "highway", Value: "motorway_link"}}, true, false},
		{"roundabout implied oneway", osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "junction", Value: "roundabout"},
		}, true, false},
		{"explicit oneway=yes", osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "yes"},
		}, true, false},
		{"explicit oneway=true", osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "true"},
		}, true, false},
		{"explicit oneway=1", osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "1"},
		}, true, false},
		{"explicit oneway=-1 (reverse)", osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "-1"},
		}, false, true},
		{"explicit oneway=reverse", osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "reverse"},
		}, false, true},
		{"explicit oneway=no overrides implied", osm.Tags{
			{Key: "highway", Value: "motorway"},
			{Key: "oneway", Value: "no"},
		}, true, true},
		{"oneway=reversible skips entirely", osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "reversible"},
		}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, bwd := CarProfile.directionFlags(tt.tags)
			if fwd != tt.wantForward || bwd != tt.wantBackward {
				t.Errorf("directionFlags() = (%v, %v), want (%v, %v)", fwd, bwd, tt.wantForward, tt.wantBackward)
			}
		})
	}
}

func TestBBoxContains(t *testing.T) {
	b := BBox{MinLat: 1.0, MaxLat: 2.0, MinLng: 103.0, MaxLng: 104.0}
	if b.IsZero() {
		t.Error("non-zero bbox reported as zero")
	}
	if !b.Contains(1.5, 103.5) {
		t.Error("expected point inside bbox to be contained")
	}
	if b.Contains(0.5, 103.5) {
		t.Error("expected point outside bbox to not be contained")
	}

	var zero BBox
	if !zero.IsZero() {
		t.Error("zero-value bbox should report IsZero")
	}
}

func TestToBuildInput(t *testing.T) {
	pr := &ParseResult{
		Edges: []RawEdge{
			{FromNodeID: 10, ToNodeID: 20, Weight: 100},
		},
		NodeLat: map[osm.NodeID]float64{10: 1.0, 20: 1.1},
		NodeLon: map[osm.NodeID]float64{10: 103.0, 20: 103.1},
	}

	in := pr.ToBuildInput()
	if len(in.Edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(in.Edges))
	}
	if in.Edges[0].FromID != 10 || in.Edges[0].ToID != 20 {
		t.Errorf("edge endpoints = (%d, %d), want (10, 20)", in.Edges[0].FromID, in.Edges[0].ToID)
	}
	if in.NodeLat[10] != 1.0 {
		t.Errorf("NodeLat[10] = %f, want 1.0", in.NodeLat[10])
	}
}
