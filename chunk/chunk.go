// Package chunk defines the Chunk type — a rectangular, tile-aligned
// bitmap reusable across cels — its validity rules, and the content
// hash used to detect identical chunks within and across frames.
package chunk

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/spritekit/wan/internal/bufpool"
	"github.com/spritekit/wan/tilegrid"
)

// Size is a chunk's pixel dimensions; both components are multiples of 8.
type Size struct {
	W, H int
}

// AllowedSizes lists the 12 chunk dimensions the extractor may emit, in
// the fixed descending-area tie-break order the extractor requires:
// equal-area sizes appear wider-before-taller, and the scanner always
// walks this list front-to-back.
var AllowedSizes = []Size{
	{64, 64}, {64, 32}, {32, 64}, {32, 32}, {32, 16}, {16, 32},
	{32, 8}, {8, 32}, {16, 16}, {16, 8}, {8, 16}, {8, 8},
}

// Smallest is the always-available fallback size: a single tile.
var Smallest = Size{8, 8}

// Contains reports whether sizes contains s.
func Contains(sizes []Size, s Size) bool {
	for _, e := range sizes {
		if e == s {
			return true
		}
	}
	return false
}

// WithFallback returns sizes in AllowedSizes order, guaranteeing Smallest
// is present exactly once (appended if the caller's enabled list omits
// it) — 8x8 is always a fallback regardless of user choice, so an
// empty scan_chunk_sizes implicitly enables 8x8.
func WithFallback(enabled []Size) []Size {
	out := make([]Size, 0, len(AllowedSizes))
	for _, s := range AllowedSizes {
		if Contains(enabled, s) {
			out = append(out, s)
		}
	}
	if !Contains(out, Smallest) {
		out = append(out, Smallest)
	}
	return out
}

// MinDensity is the default row/column density threshold used when a
// config does not override it.
const MinDensity = 0.5

// Chunk is a rectangular region of tiles: pixel data, its single
// palette group, and a content hash stable across runs for identical
// (width, height, group, pixel) tuples.
type Chunk struct {
	ID    int
	W, H  int
	Group int
	// Pix holds W*H palette local-indices (0-15), row-major, with every
	// transparent pixel normalized to local index 0 regardless of which
	// group's transparent slot it came from.
	Pix  []byte
	Hash uint64
}

// Canonicalize builds the canonical byte form used for
// hashing: width, height, palette group, then the normalized pixel
// buffer. Two chunks are equal iff this form is bytewise identical.
func Canonicalize(w, h, group int, pix []byte) []byte {
	buf := bufpool.Get(6 + len(pix))
	buf[0] = byte(w)
	buf[1] = byte(w >> 8)
	buf[2] = byte(h)
	buf[3] = byte(h >> 8)
	buf[4] = byte(group)
	buf[5] = byte(group >> 8)
	copy(buf[6:], pix)
	return buf
}

// Hash computes the 64-bit bucket key for a canonical byte form.
// Collisions are resolved by an exact byte comparison at lookup time,
// never by trusting the hash alone.
func Hash(canon []byte) uint64 {
	return xxhash.Sum64(canon)
}

// ExtractPix copies region r's pixel data out of grid, normalizing every
// transparent pixel (any group) to local index 0.
func ExtractPix(grid *tilegrid.Grid, r tilegrid.Region) []byte {
	w := r.TilesWide * tilegrid.TileSize
	h := r.TilesHigh * tilegrid.TileSize
	pix := make([]byte, w*h)
	ox, oy := r.TX*tilegrid.TileSize, r.TY*tilegrid.TileSize
	for row := 0; row < h; row++ {
		base := (oy+row)*grid.Stride + ox
		dst := pix[row*w : (row+1)*w]
		for col := 0; col < w; col++ {
			idx := grid.Pix[base+col]
			dst[col] = idx % 16
		}
	}
	return pix
}

// Validate checks the two rules that govern chunk validity for a
// candidate region r against the global grid: a single palette
// group among its non-empty tiles, and the density rule in every tile
// row and column the region spans. It returns the region's group (or
// false if the region is entirely empty, which is itself invalid) and
// a density failure as a plain false (not an error — the scanner is
// expected to retry at a smaller size).
func Validate(grid *tilegrid.Grid, r tilegrid.Region, minDensity float64) (group int, ok bool, err error) {
	group, nonEmpty, gerr := grid.GroupOfRegion(r)
	if gerr != nil {
		return 0, false, gerr
	}
	if !nonEmpty {
		return 0, false, nil
	}
	if r.TilesWide == 1 && r.TilesHigh == 1 {
		// 8x8 chunks have one row and one column; the density rule is
		// vacuous (a single non-empty tile is 100% dense) and the
		// fallback must always accept.
		return group, true, nil
	}
	for ty := r.TY; ty < r.TY+r.TilesHigh; ty++ {
		if grid.RowDensity(r, ty) < minDensity {
			return group, false, nil
		}
	}
	for tx := r.TX; tx < r.TX+r.TilesWide; tx++ {
		if grid.ColDensity(r, tx) < minDensity {
			return group, false, nil
		}
	}
	return group, true, nil
}

// MemoryUnits returns a chunk's memory cost in the engine's tile-unit
// accounting: ceil(w/8) * ceil(h/8) tiles, rounded up to a multiple of 4.
func MemoryUnits(w, h int) int {
	tw := (w + tilegrid.TileSize - 1) / tilegrid.TileSize
	th := (h + tilegrid.TileSize - 1) / tilegrid.TileSize
	units := tw * th
	return (units + 3) / 4 * 4
}

func (c *Chunk) String() string {
	return fmt.Sprintf("Chunk{id=%d %dx%d group=%d}", c.ID, c.W, c.H, c.Group)
}
