// Package palette models the global palette shared by every image in a
// sprite conversion: an ordered sequence of 16-color groups, group 0's
// first color the canonical transparent, and the JASC-PAL text
// serialization the engine toolchain reads back.
package palette

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/spritekit/wan/wanerr"
)

// GroupSize is the number of colors in one palette group; index 0 of
// every group is that group's transparent color.
const GroupSize = 16

// Color is a 24-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// Group is one ordered sequence of exactly GroupSize colors.
type Group [GroupSize]Color

// Palette is the ordered sequence of 1-16 Groups shared by every image
// in one conversion. The sequence is never reordered by this package.
type Palette struct {
	Groups []Group
}

// MaxGroupsObject is the group ceiling of an object sprite;
// MaxGroupsGeneral is the largest group count FromImage accepts for any
// palette. Per-kind ceilings are enforced via config.SpriteKind.
const (
	MaxGroupsObject  = 12
	MaxGroupsGeneral = 16
)

// NumColors returns the total color count (len(Groups) * GroupSize).
func (p *Palette) NumColors() int {
	return len(p.Groups) * GroupSize
}

// GroupOf returns the group id a global color index belongs to.
func GroupOf(colorIndex int) int { return colorIndex / GroupSize }

// LocalIndex returns a global color index's position within its group (0-15).
func LocalIndex(colorIndex int) int { return colorIndex % GroupSize }

// IsTransparent reports whether a global color index is the transparent
// slot of its group (local index 0).
func IsTransparent(colorIndex int) bool { return LocalIndex(colorIndex) == 0 }

// AsColorModel returns a stdlib color.Palette for PNG encode/decode,
// preserving the exact color order of p.
func (p *Palette) AsColorModel() color.Palette {
	out := make(color.Palette, 0, p.NumColors())
	for _, g := range p.Groups {
		for _, c := range g {
			out = append(out, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}

// FromImage extracts a Palette from a decoded indexed image, without
// comparing it against any other image (use Validate for multi-image
// agreement).
func FromImage(img *image.Paletted) (*Palette, error) {
	n := len(img.Palette)
	if n == 0 || n%GroupSize != 0 {
		return nil, wanerr.New(wanerr.WrongPixelFormat, "",
			fmt.Sprintf("palette has %d colors, not a multiple of %d", n, GroupSize))
	}
	if n > GroupSize*MaxGroupsGeneral {
		return nil, wanerr.New(wanerr.WrongPixelFormat, "",
			fmt.Sprintf("palette has %d colors, exceeds %d", n, GroupSize*MaxGroupsGeneral))
	}
	p := &Palette{Groups: make([]Group, n/GroupSize)}
	for i, c := range img.Palette {
		r, g, b, _ := c.RGBA()
		p.Groups[i/GroupSize][i%GroupSize] = Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
	}
	return p, nil
}

// Validate checks that every image in images carries byte-identical
// palette entries and returns the shared Palette. It fails with
// PaletteMismatch if any image disagrees, or WrongPixelFormat if any
// image's palette is not a whole number of 16-color groups or exceeds
// 256 total colors.
func Validate(paths []string, images []*image.Paletted) (*Palette, error) {
	if len(images) == 0 {
		return nil, wanerr.New(wanerr.WrongPixelFormat, "", "no images supplied")
	}
	first, err := FromImage(images[0])
	if err != nil {
		return nil, err
	}
	if first.NumColors() > 256 {
		return nil, wanerr.New(wanerr.WrongPixelFormat, pathOrEmpty(paths, 0),
			fmt.Sprintf("palette has %d colors, exceeds 256", first.NumColors()))
	}
	for i := 1; i < len(images); i++ {
		p, err := FromImage(images[i])
		if err != nil {
			return nil, wanerr.Wrap(wanerr.WrongPixelFormat, pathOrEmpty(paths, i), err)
		}
		if !equalGroups(first.Groups, p.Groups) {
			return nil, wanerr.New(wanerr.PaletteMismatch, pathOrEmpty(paths, i),
				"palette differs from the first image's")
		}
	}
	return first, nil
}

func pathOrEmpty(paths []string, i int) string {
	if i < len(paths) {
		return paths[i]
	}
	return ""
}

func equalGroups(a, b []Group) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// WriteJASC serializes the palette in the widely-used JASC-PAL text
// format: a three-line header followed by one "R G B" line per color,
// in the original palette order.
func (p *Palette) WriteJASC(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "JASC-PAL\n0100\n%d\n", p.NumColors()); err != nil {
		return err
	}
	for _, g := range p.Groups {
		for _, c := range g {
			if _, err := fmt.Fprintf(bw, "%d %d %d\n", c.R, c.G, c.B); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// ReadJASC parses a JASC-PAL text file back into a Palette.
func ReadJASC(r io.Reader) (*Palette, error) {
	sc := bufio.NewScanner(r)
	lines := make([]string, 0, 16)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) < 3 || lines[0] != "JASC-PAL" {
		return nil, wanerr.New(wanerr.WrongPixelFormat, "", "not a JASC-PAL file")
	}
	count, err := strconv.Atoi(lines[2])
	if err != nil {
		return nil, wanerr.Wrap(wanerr.WrongPixelFormat, "", err)
	}
	if count == 0 || count%GroupSize != 0 {
		return nil, wanerr.New(wanerr.WrongPixelFormat, "",
			fmt.Sprintf("color count %d is not a multiple of %d", count, GroupSize))
	}
	if len(lines) < 3+count {
		return nil, wanerr.New(wanerr.WrongPixelFormat, "", "truncated JASC-PAL body")
	}
	p := &Palette{Groups: make([]Group, count/GroupSize)}
	for i := 0; i < count; i++ {
		fields := strings.Fields(lines[3+i])
		if len(fields) != 3 {
			return nil, wanerr.New(wanerr.WrongPixelFormat, "",
				fmt.Sprintf("malformed color line %d", i))
		}
		var rgb [3]uint8
		for j, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil || v < 0 || v > 255 {
				return nil, wanerr.New(wanerr.WrongPixelFormat, "", "malformed color component")
			}
			rgb[j] = uint8(v)
		}
		p.Groups[i/GroupSize][i%GroupSize] = Color{R: rgb[0], G: rgb[1], B: rgb[2]}
	}
	return p, nil
}
