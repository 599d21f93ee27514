// Package overlap assigns composite layers to a frame's cels when the
// reverse pipeline has no Layer field to read back (frames.xml only
// carries img/x/y/pal). It runs first-fit graph coloring over the cels
// in their XML order: each cel takes the lowest-numbered layer that
// does not conflict, under one of four conflict policies.
package overlap

import "github.com/spritekit/wan/chunk"

// Policy selects how two cels are judged to conflict.
type Policy int

const (
	// PolicyChunk conflicts two cels whose pixel bounding boxes overlap
	// and which reference different palette groups; same-group overlaps
	// are assumed safe and share a layer.
	PolicyChunk Policy = iota
	// PolicyPixel conflicts two cels in different palette groups whose
	// overlapping region contains at least one pixel pair that is
	// non-transparent in both cels.
	PolicyPixel
	// PolicyPalette conflicts any two cels referencing different palette
	// groups, regardless of whether their bounding boxes overlap.
	PolicyPalette
	// PolicyNone never conflicts: every cel lands on layer 0.
	PolicyNone
)

func (p Policy) String() string {
	switch p {
	case PolicyChunk:
		return "chunk"
	case PolicyPixel:
		return "pixel"
	case PolicyPalette:
		return "palette"
	case PolicyNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a config string to a Policy, defaulting to PolicyChunk
// for an unrecognized or empty value.
func ParsePolicy(s string) Policy {
	switch s {
	case "pixel":
		return PolicyPixel
	case "palette":
		return PolicyPalette
	case "none":
		return PolicyNone
	default:
		return PolicyChunk
	}
}

// Cel is the minimal placement info the resolver needs: enough to find
// the backing chunk and test two placements for overlap.
type Cel struct {
	ChunkID int
	X, Y    int
	Group   int
}

// Resolve assigns a zero-based layer index to each cel in cels, in the
// same order, by first-fit graph coloring: cel i takes the lowest layer
// whose current members all test non-conflicting against it under
// policy. pool resolves a ChunkID to its Chunk for bounding-box and
// pixel lookups.
func Resolve(cels []Cel, pool map[int]*chunk.Chunk, policy Policy) []int {
	var layers [][]int
	result := make([]int, len(cels))
	for i, c := range cels {
		placed := false
		for li, members := range layers {
			if !anyConflict(c, members, cels, pool, policy) {
				layers[li] = append(members, i)
				result[i] = li
				placed = true
				break
			}
		}
		if !placed {
			layers = append(layers, []int{i})
			result[i] = len(layers) - 1
		}
	}
	return result
}

func anyConflict(c Cel, members []int, cels []Cel, pool map[int]*chunk.Chunk, policy Policy) bool {
	for _, j := range members {
		if conflicts(c, cels[j], pool, policy) {
			return true
		}
	}
	return false
}

func conflicts(a, b Cel, pool map[int]*chunk.Chunk, policy Policy) bool {
	if policy == PolicyNone {
		return false
	}
	if policy == PolicyPalette {
		return a.Group != b.Group
	}
	ca, okA := pool[a.ChunkID]
	cb, okB := pool[b.ChunkID]
	if !okA || !okB {
		return false
	}
	ox0, oy0, ox1, oy1, overlap := intersect(a.X, a.Y, ca.W, ca.H, b.X, b.Y, cb.W, cb.H)
	if !overlap {
		return false
	}
	switch policy {
	case PolicyChunk:
		return a.Group != b.Group
	case PolicyPixel:
		return a.Group != b.Group && pixelsOverlapNonTransparent(a, ca, b, cb, ox0, oy0, ox1, oy1)
	default:
		return true
	}
}

func intersect(ax, ay, aw, ah, bx, by, bw, bh int) (x0, y0, x1, y1 int, ok bool) {
	x0 = max(ax, bx)
	y0 = max(ay, by)
	x1 = min(ax+aw, bx+bw)
	y1 = min(ay+ah, by+bh)
	return x0, y0, x1, y1, x0 < x1 && y0 < y1
}

func pixelsOverlapNonTransparent(a Cel, ca *chunk.Chunk, b Cel, cb *chunk.Chunk, x0, y0, x1, y1 int) bool {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			ai := (y-a.Y)*ca.W + (x - a.X)
			bi := (y-b.Y)*cb.W + (x - b.X)
			if ca.Pix[ai] != 0 && cb.Pix[bi] != 0 {
				return true
			}
		}
	}
	return false
}
