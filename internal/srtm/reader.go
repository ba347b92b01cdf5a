// Package srtm implements spec component "elevation/SRTM": an
// LRU-cached reader over one-degree SRTM elevation tiles, grounded on
// original_source/Util/SRTMLookup.h and NASAGridSquare.{h,cpp}. Out of
// core scope per SPEC_FULL.md's Non-goals (no caller in this repo
// invokes it yet), its interface is specified so a future caller can
// add elevation-aware routing without redesigning the cache.
//
// Only the in-process archive/zip decode path is implemented (Open
// Question 1): each tile is a one-degree-square .hgt file zipped
// individually, read fully into memory and decoded as a flat
// big-endian int16 raster on first access, then kept in an
// LRU-bounded cache so repeated lookups near the same tile don't repay
// the zip decode cost.
package srtm

import (
	"fmt"
	"sync"
)

// DefaultCacheSize mirrors SRTMLookup::MAX_CACHE_SIZE.
const DefaultCacheSize = 250

// Reader answers elevation queries over a directory of zipped SRTM
// tiles, caching decoded tiles up to a fixed capacity. The zero value
// is not usable; construct with NewReader.
type Reader struct {
	rootPath string

	mu    sync.Mutex
	cache *lruCache[*tile]
}

// NewReader builds a Reader over rootPath, caching up to cacheSize
// decoded tiles (DefaultCacheSize if cacheSize <= 0).
func NewReader(rootPath string, cacheSize int) *Reader {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Reader{rootPath: rootPath, cache: newLRUCache[*tile](cacheSize)}
}

// Height returns the elevation in meters above sea level at the given
// longitude/latitude, loading and caching the covering tile on a miss.
// If rootPath is unset it returns (0, true), matching
// SRTMLookup::height's "return 0 if ROOT_PATH unset". Otherwise it
// returns (NoData, false) if the tile is missing on disk or the
// decoded tile has no sample at that position — a missing tile is
// reported to the caller rather than silently folding into a height
// of zero.
func (r *Reader) Height(lng, lat float64) (int16, bool) {
	if r.rootPath == "" {
		return 0, true
	}
	lngInt, lngFrac := split(lng)
	latInt, latFrac := split(lat)

	key := tileKey(lngInt, latInt)

	r.mu.Lock()
	t, ok := r.cache.get(key)
	r.mu.Unlock()

	if !ok {
		loaded, err := loadTile(r.rootPath, lngInt, latInt)
		if err != nil {
			return NoData, false
		}
		t = loaded
		r.mu.Lock()
		r.cache.insert(key, t)
		r.mu.Unlock()
	}

	h := t.heightAt(lngFrac, latFrac)
	return h, h != NoData
}

// split decomposes a coordinate into its integer tile offset and the
// [0,1) fractional position within that tile, matching SRTMLookup's
// split(): floor-toward-negative-infinity, not truncation, so negative
// coordinates land in the correct southern/western tile.
func split(v float64) (int, float64) {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i, v - float64(i)
}

// tileKey mirrors SRTMLookup::key: a collision-free packing since
// |lng| <= 180 < 1000.
func tileKey(lng, lat int) int {
	return 1000*lat + lng
}

func (r *Reader) String() string {
	return fmt.Sprintf("srtm.Reader{root=%s}", r.rootPath)
}
