package chunk

import (
	"image"

	"github.com/spritekit/wan/tilegrid"
)

// Placement is a candidate chunk accepted by the extractor: its tile
// origin, size, and resolved palette group. Pixel data is fetched from
// the source grid with ExtractPix once a Placement is finalized.
type Placement struct {
	TX, TY int
	Size   Size
	Group  int
}

// ExtractLayer scans grid under the enabled chunk sizes (descending
// area, wider-before-taller tie-break, 8x8 always guaranteed as a
// fallback) and greedily covers every non-empty tile.
func ExtractLayer(grid *tilegrid.Grid, enabledSizes []Size, minDensity float64) ([]Placement, error) {
	sizes := WithFallback(enabledSizes)
	tw, th := grid.TilesWide(), grid.TilesHigh()
	covered := make([][]bool, th)
	for i := range covered {
		covered[i] = make([]bool, tw)
	}

	var placements []Placement

	for _, s := range sizes {
		sw, sh := s.W/tilegrid.TileSize, s.H/tilegrid.TileSize
		if sw > tw || sh > th {
			continue
		}
		for ty := 0; ty+sh <= th; ty++ {
			for tx := 0; tx+sw <= tw; tx++ {
				r := tilegrid.Region{TX: tx, TY: ty, TilesWide: sw, TilesHigh: sh}
				if !hasUncoveredNonEmptyTile(grid, covered, r) {
					continue
				}
				group, ok, err := Validate(grid, r, minDensity)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				markCovered(covered, r)
				placements = append(placements, Placement{TX: tx, TY: ty, Size: s, Group: group})
			}
		}
	}
	return placements, nil
}

// hasUncoveredNonEmptyTile reports whether some tile in r is both
// unclaimed by an earlier chunk and non-empty. Checking the two
// conditions independently would let a candidate qualify on an empty
// uncovered tile while re-covering an already-claimed non-empty one.
func hasUncoveredNonEmptyTile(grid *tilegrid.Grid, covered [][]bool, r tilegrid.Region) bool {
	for ty := r.TY; ty < r.TY+r.TilesHigh; ty++ {
		for tx := r.TX; tx < r.TX+r.TilesWide; tx++ {
			if !covered[ty][tx] && !grid.IsEmptyTile(tx, ty) {
				return true
			}
		}
	}
	return false
}

func markCovered(covered [][]bool, r tilegrid.Region) {
	for ty := r.TY; ty < r.TY+r.TilesHigh; ty++ {
		for tx := r.TX; tx < r.TX+r.TilesWide; tx++ {
			covered[ty][tx] = true
		}
	}
}

// SplitByGroup implements the single-cel frame mode split: if grid's
// image references more than one palette group, produce one derived
// *image.Paletted per group present,
// with every tile belonging to another group cleared to transparent.
// A single-group image is returned unchanged as the sole entry.
func SplitByGroup(img *image.Paletted, grid *tilegrid.Grid) (map[int]*image.Paletted, error) {
	groups := map[int]bool{}
	tw, th := grid.TilesWide(), grid.TilesHigh()
	for ty := 0; ty < th; ty++ {
		for tx := 0; tx < tw; tx++ {
			g, ok, err := grid.GroupOfTile(tx, ty)
			if err != nil {
				return nil, err
			}
			if ok {
				groups[g] = true
			}
		}
	}
	if len(groups) <= 1 {
		return map[int]*image.Paletted{soleGroup(groups): img}, nil
	}

	out := make(map[int]*image.Paletted, len(groups))
	for g := range groups {
		derived := image.NewPaletted(img.Rect, img.Palette)
		for ty := 0; ty < th; ty++ {
			for tx := 0; tx < tw; tx++ {
				tg, ok, err := grid.GroupOfTile(tx, ty)
				if err != nil {
					return nil, err
				}
				if ok && tg == g {
					copyTile(img, derived, tx, ty)
				}
				// else: leave transparent (zero-valued Pix).
			}
		}
		out[g] = derived
	}
	return out, nil
}

func soleGroup(groups map[int]bool) int {
	for g := range groups {
		return g
	}
	return 0
}

func copyTile(src, dst *image.Paletted, tx, ty int) {
	ox, oy := tx*tilegrid.TileSize, ty*tilegrid.TileSize
	for row := 0; row < tilegrid.TileSize; row++ {
		y := oy + row
		srcBase := src.PixOffset(ox, y)
		dstBase := dst.PixOffset(ox, y)
		copy(dst.Pix[dstBase:dstBase+tilegrid.TileSize], src.Pix[srcBase:srcBase+tilegrid.TileSize])
	}
}
