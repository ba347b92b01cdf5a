package polyline

import "testing"

func TestEncodeDecodeRoundTrip5(t *testing.T) {
	points := []Point{
		{Lat: 38.5, Lng: -120.2},
		{Lat: 40.7, Lng: -120.95},
		{Lat: 43.252, Lng: -126.453},
	}
	enc := Encode(points, Precision5)
	// Known vector from Google's own polyline algorithm reference.
	if enc != "_p~iF~ps|U_ulLnnqC_mqNvxq`@" {
		t.Errorf("Encode() = %q, want known reference vector", enc)
	}

	dec := Decode(enc, Precision5)
	if len(dec) != len(points) {
		t.Fatalf("Decode() len = %d, want %d", len(dec), len(points))
	}
	for i, p := range points {
		if diff := abs(dec[i].Lat - p.Lat); diff > 1e-5 {
			t.Errorf("point %d lat = %f, want %f", i, dec[i].Lat, p.Lat)
		}
		if diff := abs(dec[i].Lng - p.Lng); diff > 1e-5 {
			t.Errorf("point %d lng = %f, want %f", i, dec[i].Lng, p.Lng)
		}
	}
}

func TestEncodeDecodeRoundTrip6(t *testing.T) {
	points := []Point{
		{Lat: 1.290270, Lng: 103.851959},
		{Lat: 1.300270, Lng: 103.861959},
	}
	enc := Encode(points, Precision6)
	dec := Decode(enc, Precision6)
	if len(dec) != len(points) {
		t.Fatalf("Decode() len = %d, want %d", len(dec), len(points))
	}
	for i, p := range points {
		if diff := abs(dec[i].Lat - p.Lat); diff > 1e-6 {
			t.Errorf("point %d lat = %f, want %f", i, dec[i].Lat, p.Lat)
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	if got := Encode(nil, Precision5); got != "" {
		t.Errorf("Encode(nil) = %q, want empty string", got)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
