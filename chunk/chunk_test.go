package chunk

import "testing"

func TestMemoryUnitsRoundsUpToMultipleOf4(t *testing.T) {
	cases := []struct {
		w, h, want int
	}{
		{8, 8, 4},     // 1 tile -> rounds to 4
		{32, 32, 16},  // 16 tiles, already multiple of 4
		{16, 16, 4},   // 4 tiles
		{64, 64, 64},  // 64 tiles
		{8, 16, 4},    // 2 tiles -> rounds to 4
	}
	for _, c := range cases {
		if got := MemoryUnits(c.w, c.h); got != c.want {
			t.Errorf("MemoryUnits(%d,%d) = %d, want %d", c.w, c.h, got, c.want)
		}
	}
}

func TestHashStableForIdenticalInput(t *testing.T) {
	pix := []byte{1, 2, 3, 4}
	a := Canonicalize(8, 8, 0, pix)
	b := Canonicalize(8, 8, 0, pix)
	if Hash(a) != Hash(b) {
		t.Error("identical canonical forms must hash identically")
	}
}

func TestHashDiffersOnGroup(t *testing.T) {
	pix := []byte{1, 2, 3, 4}
	a := Canonicalize(8, 8, 0, pix)
	b := Canonicalize(8, 8, 1, pix)
	if Hash(a) == Hash(b) {
		t.Error("different palette groups must not share a hash (in practice)")
	}
}

func TestWithFallbackAlwaysIncludes8x8(t *testing.T) {
	out := WithFallback([]Size{{32, 32}})
	if !Contains(out, Smallest) {
		t.Fatal("8x8 must always be present as a fallback")
	}
}

func TestWithFallbackPreservesCanonicalOrder(t *testing.T) {
	out := WithFallback([]Size{{32, 16}, {64, 64}, {16, 32}})
	if len(out) != 4 { // 64x64, 32x16, 16x32, plus 8x8 fallback
		t.Fatalf("got %v", out)
	}
	if out[0] != (Size{64, 64}) {
		t.Errorf("expected 64x64 first, got %v", out[0])
	}
	if out[1] != (Size{32, 16}) || out[2] != (Size{16, 32}) {
		t.Errorf("expected canonical order preserved, got %v", out)
	}
}
