// Package compose implements the forward Frame Composer:
// ordering a frame's cels, and the engine's memory-block accounting
// used to emit the ChunkLimitExceeded / MemoryLimitExceeded warnings.
package compose

import (
	"sort"

	"github.com/spritekit/wan/chunk"
)

// MaxChunksPerFrame is the hard per-frame cel-count limit; breaching
// it produces a non-fatal warning rather than aborting the run.
const MaxChunksPerFrame = 108

// Cel is a placement of a chunk inside a frame.
type Cel struct {
	ChunkID int
	X, Y    int // pixel origin, post-displacement
	Group   int
	Layer   int
	Z       int // insertion order within the layer, for stable sort
}

// Frame is one ordered list of Cels.
type Frame struct {
	ID   int
	Cels []Cel
}

// Order sorts f's cels by (layer, y, x), breaking ties by original
// insertion order (Z) so the sort is fully deterministic.
func (f *Frame) Order() {
	sort.SliceStable(f.Cels, func(i, j int) bool {
		a, b := f.Cels[i], f.Cels[j]
		if a.Layer != b.Layer {
			return a.Layer < b.Layer
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
}

// MemoryUnits returns a frame's memory cost: the sum over its distinct
// chunk ids of each chunk's MemoryUnits. Duplicate placements of the
// same chunk within a frame count once.
func (f *Frame) MemoryUnits(pool []*chunk.Chunk) int {
	seen := map[int]bool{}
	total := 0
	for _, c := range f.Cels {
		if seen[c.ChunkID] {
			continue
		}
		seen[c.ChunkID] = true
		ch := pool[c.ChunkID]
		total += chunk.MemoryUnits(ch.W, ch.H)
	}
	return total
}

// Warning describes a non-fatal limit breach surfaced to the caller
// without aborting the run.
type Warning struct {
	FrameID    int
	AnimID     int // -1 if not animation-scoped
	ChunkCount int
	Memory     int
	Budget     int
}

// CheckFrame returns a Warning if f's chunk count exceeds
// MaxChunksPerFrame, or nil.
func CheckFrame(f *Frame) *Warning {
	if len(f.Cels) <= MaxChunksPerFrame {
		return nil
	}
	return &Warning{FrameID: f.ID, AnimID: -1, ChunkCount: len(f.Cels)}
}

// CheckAnimationMemory returns a Warning if the summed memory of the
// distinct chunks referenced across an animation's frames exceeds
// budget tile-units, or nil.
func CheckAnimationMemory(animID int, frames []*Frame, pool []*chunk.Chunk, budget int) *Warning {
	seen := map[int]bool{}
	total := 0
	for _, f := range frames {
		for _, c := range f.Cels {
			if seen[c.ChunkID] {
				continue
			}
			seen[c.ChunkID] = true
			ch := pool[c.ChunkID]
			total += chunk.MemoryUnits(ch.W, ch.H)
		}
	}
	if total <= budget {
		return nil
	}
	return &Warning{AnimID: animID, FrameID: -1, Memory: total, Budget: budget}
}
