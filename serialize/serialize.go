// Package serialize emits and parses the object-folder format from
// palette.pal, imgs/NNNN.png, frames.xml, animations.xml,
// and config.json.
package serialize

import (
	"encoding/xml"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/spritekit/wan/chunk"
	"github.com/spritekit/wan/compose"
	"github.com/spritekit/wan/config"
	"github.com/spritekit/wan/palette"
	"github.com/spritekit/wan/wanerr"
)

// xmlHeader is written before every document, matching the canonical
// encoding/xml output any XML writer in the corpus would produce
// (the exact writer syntax is an external-collaborator concern).
const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// WritePalette emits palette.pal in JASC-PAL form.
func WritePalette(w io.Writer, p *palette.Palette) error {
	return p.WriteJASC(w)
}

// WriteChunkImage encodes one pool chunk as an indexed PNG, re-expanding
// its normalized local indices back into the shared global palette's
// index space (chunk.Group*16 + local).
func WriteChunkImage(w io.Writer, c *chunk.Chunk, pal *palette.Palette) error {
	img := image.NewPaletted(image.Rect(0, 0, c.W, c.H), pal.AsColorModel())
	for y := 0; y < c.H; y++ {
		srcRow := c.Pix[y*c.W : (y+1)*c.W]
		dstBase := img.PixOffset(0, y)
		for x := 0; x < c.W; x++ {
			img.Pix[dstBase+x] = byte(c.Group*palette.GroupSize + int(srcRow[x]))
		}
	}
	return png.Encode(w, img)
}

// ChunkImageName returns the zero-padded 4-digit filename for a chunk id.
func ChunkImageName(id int) string {
	return fmt.Sprintf("%04d.png", id)
}

// WriteChunkImages writes every pool chunk to dir/imgs/NNNN.png.
func WriteChunkImages(dir string, pool []*chunk.Chunk, pal *palette.Palette) error {
	imgsDir := filepath.Join(dir, "imgs")
	if err := os.MkdirAll(imgsDir, 0o755); err != nil {
		return err
	}
	for _, c := range pool {
		path := filepath.Join(imgsDir, ChunkImageName(c.ID))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = WriteChunkImage(f, c, pal)
		cerr := f.Close()
		if err != nil {
			return err
		}
		if cerr != nil {
			return cerr
		}
	}
	return nil
}

// ReadChunkImages parses dir/imgs back into Chunks, keyed by id, using
// pal to resolve each pixel's (group, local index).
func ReadChunkImages(dir string, pal *palette.Palette) (map[int]*chunk.Chunk, error) {
	imgsDir := filepath.Join(dir, "imgs")
	entries, err := os.ReadDir(imgsDir)
	if err != nil {
		return nil, wanerr.Wrap(wanerr.MissingFile, imgsDir, err)
	}
	out := make(map[int]*chunk.Chunk, len(entries))
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(ent.Name(), "%04d.png", &id); err != nil {
			continue
		}
		path := filepath.Join(imgsDir, ent.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			return nil, wanerr.Wrap(wanerr.WrongPixelFormat, path, err)
		}
		pimg, ok := img.(*image.Paletted)
		if !ok {
			return nil, wanerr.New(wanerr.WrongPixelFormat, path, "chunk image is not indexed")
		}
		w, h := pimg.Rect.Dx(), pimg.Rect.Dy()
		pix := make([]byte, w*h)
		group := -1
		for y := 0; y < h; y++ {
			base := pimg.PixOffset(0, y)
			for x := 0; x < w; x++ {
				gi := int(pimg.Pix[base+x])
				local := palette.LocalIndex(gi)
				if local != 0 {
					g := palette.GroupOf(gi)
					if group == -1 {
						group = g
					}
				}
				pix[y*w+x] = byte(local)
			}
		}
		if group == -1 {
			group = 0
		}
		out[id] = &chunk.Chunk{ID: id, W: w, H: h, Group: group, Pix: pix}
	}
	return out, nil
}

// WriteFramesXML serializes the per-frame cel lists. dx, dy is the
// user-supplied displace_sprite translation applied to every cel's
// origin (the alignment point maps to
// the engine actor center at (256, 512)).
func WriteFramesXML(w io.Writer, frames []*compose.Frame, dx, dy int) error {
	doc := FramesDoc{Frames: make([]FrameXML, len(frames))}
	for i, f := range frames {
		fx := FrameXML{Cels: make([]CelXML, len(f.Cels))}
		for j, c := range f.Cels {
			fx.Cels[j] = CelXML{Img: c.ChunkID, X: c.X + dx, Y: c.Y + dy, Pal: c.Group}
		}
		doc.Frames[i] = fx
	}
	return writeXML(w, doc)
}

// ParseFramesXML parses frames.xml back into frame-ordered Cel lists.
func ParseFramesXML(r io.Reader) (*FramesDoc, error) {
	var doc FramesDoc
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, wanerr.Wrap(wanerr.XMLParseError, "frames.xml", err)
	}
	return &doc, nil
}

// WriteAnimationsXML serializes the animation list.
func WriteAnimationsXML(w io.Writer, anims []config.Animation) error {
	doc := AnimationsDoc{Anims: make([]AnimXML, len(anims))}
	for i, a := range anims {
		ax := AnimXML{Frames: make([]AnimFrameXML, len(a.Frames))}
		for j, af := range a.Frames {
			ax.Frames[j] = AnimFrameXML{ID: af.Frame, Duration: af.Duration}
		}
		doc.Anims[i] = ax
	}
	return writeXML(w, doc)
}

// ParseAnimationsXML parses animations.xml.
func ParseAnimationsXML(r io.Reader) (*AnimationsDoc, error) {
	var doc AnimationsDoc
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, wanerr.Wrap(wanerr.XMLParseError, "animations.xml", err)
	}
	return &doc, nil
}

func writeXML(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xmlHeader); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
