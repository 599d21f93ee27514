package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spritekit/wan/config"
)

func testPalette16() color.Palette {
	pal := make(color.Palette, 16)
	pal[0] = color.NRGBA{}
	pal[1] = color.NRGBA{R: 200, G: 50, B: 50, A: 255}
	for i := 2; i < 16; i++ {
		pal[i] = color.NRGBA{R: uint8(i), G: uint8(i * 2), B: uint8(i * 3), A: 255}
	}
	return pal
}

func writeFrame(t *testing.T, dir string, frame, layer int, fill bool) {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 16, 16), testPalette16())
	if fill {
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	f, err := os.Create(filepath.Join(dir, "Frame-"+itoa(frame)+"-Layer-"+itoa(layer)+".png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// TestScenarioS1: two 16x16 frames, each a solid square on tiles
// (0,0)-(1,1), group 0, min_density 0.5, only 16x16 enabled, intra
// off, inter on. Expect 1 chunk (0000.png 16x16) and frames.xml with 2
// frames each holding one Cel (img=0, x=0, y=0, pal=0).
func TestScenarioS1(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "obj")
	writeFrame(t, in, 0, 0, true)
	writeFrame(t, in, 1, 0, true)

	cfg := config.Default(config.KindObject)
	cfg.ScanChunkSizes = [][2]int{{16, 16}}
	cfg.IntraScan = false
	cfg.InterScan = true

	p := New()
	sum, err := p.Forward(context.Background(), cfg, config.KindObject, in, out)
	if err != nil {
		t.Fatal(err)
	}
	if sum.ChunkCount != 1 {
		t.Errorf("expected 1 chunk, got %d", sum.ChunkCount)
	}
	if sum.FrameCount != 2 {
		t.Errorf("expected 2 frames, got %d", sum.FrameCount)
	}
	for _, name := range []string{"palette.pal", "frames.xml", "animations.xml", "config.json", filepath.Join("imgs", "0000.png")} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

// TestScenarioS2: a 16x16 frame with only tile (0,0) filled, 16x16
// enabled with 8x8 as the always-available fallback. The 16x16
// candidate fails density (row 1, col 1 empty); the fallback emits one
// 8x8 chunk at (0,0).
func TestScenarioS2(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "obj")

	img := image.NewPaletted(image.Rect(0, 0, 16, 16), testPalette16())
	img.SetColorIndex(0, 0, 1)
	f, err := os.Create(filepath.Join(in, "Frame-0-Layer-0.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg := config.Default(config.KindObject)
	cfg.ScanChunkSizes = [][2]int{{16, 16}}

	p := New()
	sum, err := p.Forward(context.Background(), cfg, config.KindObject, in, out)
	if err != nil {
		t.Fatal(err)
	}
	if sum.ChunkCount != 1 {
		t.Errorf("expected the 8x8 fallback to emit 1 chunk, got %d", sum.ChunkCount)
	}
}

// TestScenarioS3: two 32x32 frames, both fully filled with group 0,
// 32x32 enabled, inter on. Expect 1 shared chunk and a per-frame memory
// cost of 16 tile-units (rounded up to a multiple of 4, already exact).
func TestScenarioS3(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "obj")

	mk := func(frame int) {
		img := image.NewPaletted(image.Rect(0, 0, 32, 32), testPalette16())
		for y := 0; y < 32; y++ {
			for x := 0; x < 32; x++ {
				img.SetColorIndex(x, y, 1)
			}
		}
		f, err := os.Create(filepath.Join(in, "Frame-"+itoa(frame)+"-Layer-0.png"))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	mk(0)
	mk(1)

	cfg := config.Default(config.KindObject)
	cfg.ScanChunkSizes = [][2]int{{32, 32}}

	p := New()
	sum, err := p.Forward(context.Background(), cfg, config.KindObject, in, out)
	if err != nil {
		t.Fatal(err)
	}
	if sum.ChunkCount != 1 {
		t.Errorf("expected both frames to dedup to 1 shared chunk, got %d", sum.ChunkCount)
	}
	if sum.FrameCount != 2 {
		t.Errorf("expected 2 frames, got %d", sum.FrameCount)
	}
}

// TestScenarioS4: reverse on an object with two cels at the same (x,y)
// sharing pal=0. Under policy "chunk", bounding boxes conflict but the
// palette groups are equal, so there is no conflict and both cels land
// on the same layer; only Frame-0-Layer-0.png is emitted.
func TestScenarioS4(t *testing.T) {
	in := t.TempDir()
	objDir := filepath.Join(t.TempDir(), "obj")
	writeFrame(t, in, 0, 0, true)

	cfg := config.Default(config.KindObject)
	cfg.ScanChunkSizes = [][2]int{{16, 16}}

	fwd := New()
	if _, err := fwd.Forward(context.Background(), cfg, config.KindObject, in, objDir); err != nil {
		t.Fatal(err)
	}

	// Duplicate the sole cel in frames.xml so the frame holds two cels
	// at the same (x, y) sharing pal=0.
	framesPath := filepath.Join(objDir, "frames.xml")
	data, err := os.ReadFile(framesPath)
	if err != nil {
		t.Fatal(err)
	}
	doubled := duplicateSoleCel(t, string(data))
	if err := os.WriteFile(framesPath, []byte(doubled), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg.OverlapPolicy = "chunk"
	reverseOut := filepath.Join(t.TempDir(), "frames-out")
	rev := New()
	sum, err := rev.Reverse(context.Background(), cfg, objDir, reverseOut)
	if err != nil {
		t.Fatal(err)
	}
	if sum.FrameCount != 1 {
		t.Errorf("expected 1 frame, got %d", sum.FrameCount)
	}
	if _, err := os.Stat(filepath.Join(reverseOut, "Frame-0-Layer-0.png")); err != nil {
		t.Errorf("expected Frame-0-Layer-0.png: %v", err)
	}
	if _, err := os.Stat(filepath.Join(reverseOut, "Frame-0-Layer-1.png")); err == nil {
		t.Error("expected no Frame-0-Layer-1.png: same-pal cels at the same position must share a layer")
	}
}

// duplicateSoleCel finds the one <Cel .../> element in a single-cel
// frames.xml document and repeats it, simulating two cels at the same
// position and palette group.
func duplicateSoleCel(t *testing.T, doc string) string {
	t.Helper()
	idx := indexOfCel(doc)
	if idx < 0 {
		t.Fatal("no <Cel element found in frames.xml")
	}
	end := idx
	for end < len(doc) && doc[end] != '\n' {
		end++
	}
	line := doc[idx:end]
	return doc[:end] + "\n" + line + doc[end:]
}

func indexOfCel(doc string) int {
	for i := 0; i+4 <= len(doc); i++ {
		if doc[i:i+4] == "<Cel" {
			return i
		}
	}
	return -1
}

// TestScenarioS5: a config with 8 animations of 1 frame each, duration
// 1. animations.xml must have 8 Anim entries, each with one Frame
// element carrying duration 1.
func TestScenarioS5(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "obj")
	writeFrame(t, in, 0, 0, true)

	cfg := config.Default(config.KindObject)
	cfg.ScanChunkSizes = [][2]int{{16, 16}}
	cfg.Animations = make([]config.Animation, 8)
	for i := range cfg.Animations {
		cfg.Animations[i] = config.Animation{Frames: []config.AnimFrame{{Frame: 0, Duration: 1}}}
	}

	p := New()
	if _, err := p.Forward(context.Background(), cfg, config.KindObject, in, out); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(out, "animations.xml"))
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)
	if got := countOccurrences(doc, "<Anim>"); got != 8 {
		t.Errorf("expected 8 <Anim> entries, got %d", got)
	}
	if got := countOccurrences(doc, `duration="1"`); got != 8 {
		t.Errorf("expected 8 Frame elements with duration=\"1\", got %d", got)
	}
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

// TestScenarioS6: a 16x16 cel whose four 8x8 tiles reference palette
// groups {0,0,1,0}. Forward must split the frame into two derived
// images (group 0 and group 1) and emit at least two chunks carrying
// pal 0 and pal 1 respectively.
func TestScenarioS6(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "obj")

	pal := make(color.Palette, 32)
	pal[0] = color.NRGBA{}
	pal[16] = color.NRGBA{}
	for i := 1; i < 16; i++ {
		pal[i] = color.NRGBA{R: uint8(i), G: 50, B: 50, A: 255}
		pal[16+i] = color.NRGBA{R: 50, G: uint8(i), B: 50, A: 255}
	}
	img := image.NewPaletted(image.Rect(0, 0, 16, 16), pal)
	// tile (0,0): group 0
	img.SetColorIndex(0, 0, 1)
	// tile (1,0): group 0
	img.SetColorIndex(8, 0, 2)
	// tile (0,1): group 1
	img.SetColorIndex(0, 8, 17)
	// tile (1,1): group 0
	img.SetColorIndex(8, 8, 3)
	f, err := os.Create(filepath.Join(in, "Frame-0-Layer-0.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg := config.Default(config.KindObject)
	cfg.ScanChunkSizes = [][2]int{{8, 8}}

	p := New()
	sum, err := p.Forward(context.Background(), cfg, config.KindObject, in, out)
	if err != nil {
		t.Fatal(err)
	}
	if sum.ChunkCount < 2 {
		t.Fatalf("expected at least 2 chunks (one per group), got %d", sum.ChunkCount)
	}
	groups := map[int]bool{}
	for _, c := range p.Pool.Chunks() {
		groups[c.Group] = true
	}
	if !groups[0] || !groups[1] {
		t.Errorf("expected chunks in both group 0 and group 1, got groups %v", groups)
	}
}

func TestRoundTripForwardThenReverse(t *testing.T) {
	in := t.TempDir()
	objDir := filepath.Join(t.TempDir(), "obj")
	writeFrame(t, in, 0, 0, true)

	cfg := config.Default(config.KindObject)
	cfg.ScanChunkSizes = [][2]int{{16, 16}}

	fwd := New()
	if _, err := fwd.Forward(context.Background(), cfg, config.KindObject, in, objDir); err != nil {
		t.Fatal(err)
	}

	reverseOut := filepath.Join(t.TempDir(), "frames-out")
	rev := New()
	sum, err := rev.Reverse(context.Background(), cfg, objDir, reverseOut)
	if err != nil {
		t.Fatal(err)
	}
	if sum.FrameCount != 1 {
		t.Errorf("expected 1 frame, got %d", sum.FrameCount)
	}
	if _, err := os.Stat(filepath.Join(reverseOut, "Frame-0-Layer-0.png")); err != nil {
		t.Errorf("expected rendered layer file: %v", err)
	}
}
