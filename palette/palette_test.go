package palette

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/spritekit/wan/wanerr"
)

func testImage(colors int) *image.Paletted {
	pal := make(color.Palette, colors)
	for i := range pal {
		pal[i] = color.NRGBA{R: uint8(i), G: uint8(i), B: uint8(i), A: 0xff}
	}
	return image.NewPaletted(image.Rect(0, 0, 8, 8), pal)
}

func TestGroupOfAndLocalIndex(t *testing.T) {
	cases := []struct {
		idx        int
		group, loc int
	}{
		{0, 0, 0},
		{15, 0, 15},
		{16, 1, 0},
		{33, 2, 1},
	}
	for _, c := range cases {
		if g := GroupOf(c.idx); g != c.group {
			t.Errorf("GroupOf(%d) = %d, want %d", c.idx, g, c.group)
		}
		if l := LocalIndex(c.idx); l != c.loc {
			t.Errorf("LocalIndex(%d) = %d, want %d", c.idx, l, c.loc)
		}
	}
}

func TestIsTransparent(t *testing.T) {
	if !IsTransparent(0) || !IsTransparent(16) {
		t.Error("index 0 of any group must be transparent")
	}
	if IsTransparent(1) || IsTransparent(17) {
		t.Error("non-zero local index must not be transparent")
	}
}

func TestValidateMismatch(t *testing.T) {
	a := testImage(16)
	b := testImage(16)
	b.Palette[5] = color.NRGBA{R: 1, G: 2, B: 3, A: 0xff}
	_, err := Validate([]string{"a.png", "b.png"}, []*image.Paletted{a, b})
	var we *wanerr.Error
	if !errors.As(err, &we) || we.Kind != wanerr.PaletteMismatch {
		t.Fatalf("expected PaletteMismatch, got %v", err)
	}
}

func TestValidateOK(t *testing.T) {
	a := testImage(32)
	b := testImage(32)
	p, err := Validate([]string{"a.png", "b.png"}, []*image.Paletted{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Groups) != 2 {
		t.Errorf("expected 2 groups, got %d", len(p.Groups))
	}
}

func TestJASCRoundTrip(t *testing.T) {
	img := testImage(32)
	p, err := FromImage(img)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := p.WriteJASC(&buf); err != nil {
		t.Fatal(err)
	}
	p2, err := ReadJASC(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !equalGroups(p.Groups, p2.Groups) {
		t.Error("round-tripped palette differs from original")
	}
}

func TestWrongPixelFormatTooManyColors(t *testing.T) {
	img := testImage(16*17)
	_, err := FromImage(img)
	var we *wanerr.Error
	if !errors.As(err, &we) || we.Kind != wanerr.WrongPixelFormat {
		t.Fatalf("expected WrongPixelFormat, got %v", err)
	}
}
