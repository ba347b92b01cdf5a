package srtm

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// NoData is NASA SRTM's sentinel for a missing sample, carried over
// unchanged from original_source/Util/NASAGridSquare.h's NO_DATA.
const NoData int16 = -32768

// tile holds one decoded one-degree-square elevation grid: a square
// matrix of 16-bit signed heights, numRows == numCols == sqrt(len(heights)).
// Grounded on NASAGridSquare.cpp's load()/getHeight(): the .hgt payload
// inside the tile's zip archive is a flat big-endian int16 raster, one
// degree square, read top-to-bottom so row 0 is the northernmost line.
type tile struct {
	heights []int16
	side    int // numRows == numCols
}

// tileName builds the SRTM naming convention NASAGridSquare::make_filename
// uses: hemisphere letters plus zero-padded degree offsets, e.g. for
// lng=103, lat=1 the tile is "N01E103".
func tileName(lng, lat int) string {
	ns := byte('S')
	if lat >= 0 {
		ns = 'N'
	}
	ew := byte('W')
	if lng >= 0 {
		ew = 'E'
	}
	return fmt.Sprintf("%c%02d%c%03d", ns, abs(lat), ew, abs(lng))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// loadTile opens rootPath/<name>.hgt.zip and decodes its first entry
// as a flat big-endian int16 grid, exactly as NasaGridSquare::load
// reads the zip's entry 0 without matching on file name.
func loadTile(rootPath string, lng, lat int) (*tile, error) {
	name := tileName(lng, lat)
	zr, err := zip.OpenReader(rootPath + "/" + name + ".hgt.zip")
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("srtm: %s.hgt.zip has no entries", name)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("srtm: %s.hgt has odd byte length %d", name, len(raw))
	}
	n := len(raw) / 2
	side := int(math.Sqrt(float64(n)))
	if side*side != n {
		return nil, fmt.Errorf("srtm: %s.hgt payload of %d samples is not a square grid", name, n)
	}
	heights := make([]int16, n)
	for i := range heights {
		heights[i] = int16(binary.BigEndian.Uint16(raw[2*i:]))
	}
	return &tile{heights: heights, side: side}, nil
}

// heightAt returns the sample nearest the given fractional position
// within the tile, mirroring NasaGridSquare::lngLat_to_colRow /
// getHeight: column grows eastward, row grows southward from the
// tile's northernmost line, and a fraction whose rounded sample index
// falls outside the grid yields NoData rather than extrapolating.
func (t *tile) heightAt(lngFrac, latFrac float64) int16 {
	if t.side == 0 {
		return NoData
	}
	col := int(0.5 + lngFrac*float64(t.side-1))
	row := t.side - 1 - int(0.5+latFrac*float64(t.side-1))
	if col < 0 || col >= t.side || row < 0 || row >= t.side {
		return NoData
	}
	return t.heights[row*t.side+col]
}
