// Package tilegrid views a paletted image as an 8x8 tile grid: tile
// emptiness, per-tile palette group, and the row/column density ratios
// the chunk extractor's validity rules depend on. A Grid is a thin view
// over the backing *image.Paletted pixels, the same zero-copy-subslice
// idiom a container chunk reader uses over its input buffer.
package tilegrid

import (
	"fmt"
	"image"

	"github.com/spritekit/wan/palette"
	"github.com/spritekit/wan/wanerr"
)

// TileSize is the atomic indexable unit: 8x8 pixels.
const TileSize = 8

// Grid is a view over one paletted image's pixel indices, addressed in
// tile coordinates (tx, ty).
type Grid struct {
	Pix    []byte
	Stride int
	W, H   int // pixels
}

// New validates that img's dimensions are multiples of TileSize and
// returns a Grid view over it.
func New(img *image.Paletted) (*Grid, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w%TileSize != 0 || h%TileSize != 0 {
		return nil, wanerr.New(wanerr.NotMultipleOf8, "",
			fmt.Sprintf("image is %dx%d, not a multiple of %d", w, h, TileSize))
	}
	return &Grid{Pix: img.Pix, Stride: img.Stride, W: w, H: h}, nil
}

// TilesWide and TilesHigh report the grid's size in tiles.
func (g *Grid) TilesWide() int { return g.W / TileSize }
func (g *Grid) TilesHigh() int { return g.H / TileSize }

// at returns the palette index at pixel (x, y).
func (g *Grid) at(x, y int) byte {
	return g.Pix[y*g.Stride+x]
}

// TileAt returns the 64 palette indices of tile (tx, ty), row-major.
func (g *Grid) TileAt(tx, ty int) [TileSize * TileSize]byte {
	var out [TileSize * TileSize]byte
	ox, oy := tx*TileSize, ty*TileSize
	for row := 0; row < TileSize; row++ {
		base := (oy+row)*g.Stride + ox
		copy(out[row*TileSize:(row+1)*TileSize], g.Pix[base:base+TileSize])
	}
	return out
}

// IsEmptyTile reports whether every pixel of tile (tx, ty) is
// transparent (palette.LocalIndex == 0).
func (g *Grid) IsEmptyTile(tx, ty int) bool {
	ox, oy := tx*TileSize, ty*TileSize
	for row := 0; row < TileSize; row++ {
		base := (oy+row)*g.Stride + ox
		for col := 0; col < TileSize; col++ {
			if !palette.IsTransparent(int(g.Pix[base+col])) {
				return false
			}
		}
	}
	return true
}

// GroupOfTile returns the palette group of tile (tx, ty)'s non-empty
// pixels, scanned row-major. ok is false for an empty tile, for which
// the group is undefined. It fails with MultiGroupTile if the tile's
// own non-empty pixels reference more than one group — a single 8x8
// tile spanning two palette groups, distinct from GroupOfRegion's
// cross-tile check.
func (g *Grid) GroupOfTile(tx, ty int) (group int, ok bool, err error) {
	ox, oy := tx*TileSize, ty*TileSize
	for row := 0; row < TileSize; row++ {
		base := (oy+row)*g.Stride + ox
		for col := 0; col < TileSize; col++ {
			idx := int(g.Pix[base+col])
			if palette.IsTransparent(idx) {
				continue
			}
			tg := palette.GroupOf(idx)
			if !ok {
				group, ok = tg, true
				continue
			}
			if tg != group {
				return 0, false, wanerr.New(wanerr.MultiGroupTile, "",
					fmt.Sprintf("tile (%d,%d) references both group %d and group %d", tx, ty, group, tg))
			}
		}
	}
	return group, ok, nil
}

// Region describes a tile-aligned rectangle in tile coordinates.
type Region struct {
	TX, TY, TilesWide, TilesHigh int
}

// RowDensity returns the fraction of non-empty tiles in tile row ty
// (relative to the grid's origin) across the tile columns
// [r.TX, r.TX+r.TilesWide).
func (g *Grid) RowDensity(r Region, ty int) float64 {
	nonEmpty := 0
	for tx := r.TX; tx < r.TX+r.TilesWide; tx++ {
		if !g.IsEmptyTile(tx, ty) {
			nonEmpty++
		}
	}
	if r.TilesWide == 0 {
		return 0
	}
	return float64(nonEmpty) / float64(r.TilesWide)
}

// ColDensity returns the fraction of non-empty tiles in tile column tx
// across the tile rows [r.TY, r.TY+r.TilesHigh).
func (g *Grid) ColDensity(r Region, tx int) float64 {
	nonEmpty := 0
	for ty := r.TY; ty < r.TY+r.TilesHigh; ty++ {
		if !g.IsEmptyTile(tx, ty) {
			nonEmpty++
		}
	}
	if r.TilesHigh == 0 {
		return 0
	}
	return float64(nonEmpty) / float64(r.TilesHigh)
}

// GroupOfRegion returns the single palette group referenced by all
// non-empty tiles in r. It fails with MultiGroupTile if more than one
// group is present; ok is false (no error) if every tile is empty.
func (g *Grid) GroupOfRegion(r Region) (group int, ok bool, err error) {
	found := false
	for ty := r.TY; ty < r.TY+r.TilesHigh; ty++ {
		for tx := r.TX; tx < r.TX+r.TilesWide; tx++ {
			tg, tok, terr := g.GroupOfTile(tx, ty)
			if terr != nil {
				return 0, false, terr
			}
			if !tok {
				continue
			}
			if !found {
				group, found = tg, true
				continue
			}
			if tg != group {
				return 0, false, wanerr.New(wanerr.MultiGroupTile, "",
					fmt.Sprintf("tile (%d,%d) is group %d, region already has group %d", tx, ty, tg, group))
			}
		}
	}
	return group, found, nil
}

// HasNonEmptyTile reports whether r contains at least one non-empty tile.
func (g *Grid) HasNonEmptyTile(r Region) bool {
	for ty := r.TY; ty < r.TY+r.TilesHigh; ty++ {
		for tx := r.TX; tx < r.TX+r.TilesWide; tx++ {
			if !g.IsEmptyTile(tx, ty) {
				return true
			}
		}
	}
	return false
}
