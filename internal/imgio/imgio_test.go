package imgio

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spritekit/wan/wanerr"
)

func TestParseNameValid(t *testing.T) {
	frame, layer, err := ParseName("Frame-3-Layer-1.png")
	if err != nil {
		t.Fatal(err)
	}
	if frame != 3 || layer != 1 {
		t.Errorf("got frame=%d layer=%d", frame, layer)
	}
}

func TestParseNameRejectsMismatch(t *testing.T) {
	_, _, err := ParseName("sprite.png")
	var we *wanerr.Error
	if !errors.As(err, &we) || we.Kind != wanerr.InvalidFilename {
		t.Fatalf("expected InvalidFilename, got %v", err)
	}
}

func writeTestPNG(t *testing.T, path string) {
	img := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.NRGBA{}, color.NRGBA{R: 255, A: 255}})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeDirParallel(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "Frame-0-Layer-0.png"))
	writeTestPNG(t, filepath.Join(dir, "Frame-0-Layer-1.png"))
	writeTestPNG(t, filepath.Join(dir, "Frame-1-Layer-0.png"))
	writeTestPNG(t, filepath.Join(dir, "Frame-1-Layer-1.png"))

	results, err := DecodeDirParallel(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("%s: %v", r.Path, r.Err)
		}
		if r.Img == nil {
			t.Errorf("%s: nil image", r.Path)
		}
	}
}

func TestDecodeDirParallelMissingDir(t *testing.T) {
	_, err := DecodeDirParallel(filepath.Join(t.TempDir(), "nope"))
	var we *wanerr.Error
	if !errors.As(err, &we) || we.Kind != wanerr.MissingFile {
		t.Fatalf("expected MissingFile, got %v", err)
	}
}
