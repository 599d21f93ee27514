// Package render paints resolved cels back onto per-(frame, layer)
// canvases and writes them as Frame-<f>-Layer-<l>.png, the reverse
// pipeline's final output stage.
package render

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/spritekit/wan/chunk"
	"github.com/spritekit/wan/overlap"
	"github.com/spritekit/wan/palette"
	"github.com/spritekit/wan/tilegrid"
)

// Margin is the fixed padding added around a frame's cel bounding box
// when no authoritative canvas size is available (engine-ripped
// sprites carry no width/height field of their own).
const Margin = 8

// Bounds computes the tight pixel bounding box of cels, using pool to
// resolve each chunk's size.
func Bounds(cels []overlap.Cel, pool map[int]*chunk.Chunk) image.Rectangle {
	if len(cels) == 0 {
		return image.Rectangle{}
	}
	r := image.Rect(cels[0].X, cels[0].Y, cels[0].X, cels[0].Y)
	for _, c := range cels {
		ch, ok := pool[c.ChunkID]
		if !ok {
			continue
		}
		r = r.Union(image.Rect(c.X, c.Y, c.X+ch.W, c.Y+ch.H))
	}
	return r
}

// CanvasRect derives a render canvas from a frame's cels: the cels'
// bounding box expanded by Margin pixels on every side, then its right
// and bottom edges extended so both dimensions are multiples of 8 (cel
// origins read from frames.xml need not be tile-aligned to each other).
func CanvasRect(cels []overlap.Cel, pool map[int]*chunk.Chunk) image.Rectangle {
	b := Bounds(cels, pool)
	r := image.Rect(b.Min.X-Margin, b.Min.Y-Margin, b.Max.X+Margin, b.Max.Y+Margin)
	if rem := r.Dx() % tilegrid.TileSize; rem != 0 {
		r.Max.X += tilegrid.TileSize - rem
	}
	if rem := r.Dy() % tilegrid.TileSize; rem != 0 {
		r.Max.Y += tilegrid.TileSize - rem
	}
	return r
}

// Layer paints every cel assigned to one layer onto a canvas of size
// canvas, compositing in cels' slice order (the composer's y/x stable
// order) and skipping transparent source pixels so lower cels show
// through. Cel coordinates and canvas bounds share the same coordinate
// space (canvas.Min may be negative, per the margin CanvasRect adds).
func Layer(cels []overlap.Cel, pool map[int]*chunk.Chunk, pal *palette.Palette, canvas image.Rectangle) *image.Paletted {
	img := image.NewPaletted(canvas, pal.AsColorModel())
	for _, c := range cels {
		ch, ok := pool[c.ChunkID]
		if !ok {
			continue
		}
		for y := 0; y < ch.H; y++ {
			for x := 0; x < ch.W; x++ {
				local := ch.Pix[y*ch.W+x]
				if local == 0 {
					continue
				}
				gi := byte(ch.Group*palette.GroupSize + int(local))
				px, py := c.X+x, c.Y+y
				if px < canvas.Min.X || px >= canvas.Max.X || py < canvas.Min.Y || py >= canvas.Max.Y {
					continue
				}
				img.SetColorIndex(px, py, gi)
			}
		}
	}
	return img
}

// LayerFileName returns the conventional Frame-<f>-Layer-<l>.png name.
func LayerFileName(frame, layer int) string {
	return fmt.Sprintf("Frame-%d-Layer-%d.png", frame, layer)
}

// WriteLayer encodes img as a PNG to w.
func WriteLayer(w io.Writer, img *image.Paletted) error {
	return png.Encode(w, img)
}
