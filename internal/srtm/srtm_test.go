package srtm

import (
	"archive/zip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeTestTile writes a side*side big-endian int16 grid, zipped as a
// single .hgt entry, to dir/<name>.hgt.zip.
func writeTestTile(t *testing.T, dir string, lng, lat, side int, fill func(row, col int) int16) {
	t.Helper()
	name := tileName(lng, lat)

	raw := make([]byte, side*side*2)
	for row := 0; row < side; row++ {
		for col := 0; col < side; col++ {
			binary.BigEndian.PutUint16(raw[2*(row*side+col):], uint16(fill(row, col)))
		}
	}

	f, err := os.Create(filepath.Join(dir, name+".hgt.zip"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	entry, err := zw.Create(name + ".hgt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestTileName(t *testing.T) {
	cases := []struct {
		lng, lat int
		want     string
	}{
		{103, 1, "N01E103"},
		{-103, -1, "S01W103"},
		{0, 0, "N00E000"},
	}
	for _, c := range cases {
		if got := tileName(c.lng, c.lat); got != c.want {
			t.Errorf("tileName(%d,%d) = %q, want %q", c.lng, c.lat, got, c.want)
		}
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		v        float64
		wantI    int
		wantFrac float64
	}{
		{103.25, 103, 0.25},
		{-1.75, -2, 0.25},
		{0, 0, 0},
	}
	for _, c := range cases {
		i, f := split(c.v)
		if i != c.wantI || f != c.wantFrac {
			t.Errorf("split(%v) = (%d,%v), want (%d,%v)", c.v, i, f, c.wantI, c.wantFrac)
		}
	}
}

func TestReaderHeightFromTile(t *testing.T) {
	dir := t.TempDir()
	// A 4x4 tile where height == row*10+col, so we can check samples
	// land where lngLat_to_colRow's formula expects them.
	writeTestTile(t, dir, 103, 1, 4, func(row, col int) int16 { return int16(row*10 + col) })

	r := NewReader(dir, 10)

	// lngFrac=0 -> col=int(0.5)=0; latFrac=0 -> row=3-int(0.5)=3 (south edge).
	h, ok := r.Height(103.0, 1.0)
	if !ok {
		t.Fatalf("Height at tile south-west edge: not ok")
	}
	if h != 30 {
		t.Errorf("Height(103.0, 1.0) = %d, want 30 (row 3, col 0)", h)
	}

	// lngFrac~0.99 -> col=int(0.5+2.97)=3; latFrac~0.99 -> row=3-int(3.47)=0.
	h2, ok := r.Height(103.99, 1.99)
	if !ok {
		t.Fatalf("Height at tile north-east edge: not ok")
	}
	if h2 != 3 {
		t.Errorf("Height(103.99, 1.99) = %d, want 3 (row 0, col 3)", h2)
	}
}

func TestReaderCachesDecodedTile(t *testing.T) {
	dir := t.TempDir()
	writeTestTile(t, dir, 0, 0, 2, func(row, col int) int16 { return 42 })

	r := NewReader(dir, 10)
	for i := 0; i < 5; i++ {
		h, ok := r.Height(0.5, 0.5)
		if !ok || h != 42 {
			t.Fatalf("iteration %d: Height = (%d,%v), want (42,true)", i, h, ok)
		}
	}
	if r.cache.order.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1 (repeated lookups of same tile)", r.cache.order.Len())
	}
}

func TestReaderMissingTileIsNotData(t *testing.T) {
	dir := t.TempDir()
	r := NewReader(dir, 10)
	h, ok := r.Height(50.0, 50.0)
	if ok {
		t.Errorf("Height over missing tile: ok = true, want false")
	}
	if h != NoData {
		t.Errorf("Height over missing tile = %d, want NoData", h)
	}
}

func TestReaderEmptyRootPathReturnsZero(t *testing.T) {
	r := NewReader("", 10)
	h, ok := r.Height(103.0, 1.0)
	if !ok || h != 0 {
		t.Errorf("Height with no root path = (%d,%v), want (0,true)", h, ok)
	}
}

func TestLRUEviction(t *testing.T) {
	c := newLRUCache[int](2)
	c.insert(1, 100)
	c.insert(2, 200)
	c.insert(3, 300) // evicts key 1

	if _, ok := c.get(1); ok {
		t.Error("key 1 should have been evicted")
	}
	if v, ok := c.get(2); !ok || v != 200 {
		t.Errorf("get(2) = (%v,%v), want (200,true)", v, ok)
	}
	if v, ok := c.get(3); !ok || v != 300 {
		t.Errorf("get(3) = (%v,%v), want (300,true)", v, ok)
	}
}
