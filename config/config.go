// Package config parses and serializes config.json and holds the
// SpriteKind budgets that parameterize a tagged
// record instead of a class hierarchy.
package config

import (
	"encoding/json"
	"io"

	"github.com/spritekit/wan/chunk"
	"github.com/spritekit/wan/wanerr"
)

// SpriteKind collapses the source's sprite/object/effect class
// hierarchy into one tagged value that only parameterizes palette and
// memory budgets — never behavior.
type SpriteKind int

const (
	// KindObject is a standard object/sprite: up to 12 palette groups,
	// the engine's default 0x3C0 (960) tile-unit animation memory budget.
	KindObject SpriteKind = iota
	// KindEffect is a visual-effect sprite: up to 3 palette groups and a
	// tighter memory budget, reflecting the smaller VRAM slice the
	// original engine reserves for effects.
	KindEffect
)

// MaxGroups returns the palette group ceiling for k.
func (k SpriteKind) MaxGroups() int {
	if k == KindEffect {
		return 3
	}
	return 12
}

// DefaultMemoryBudget returns the default per-animation tile-unit memory
// ceiling for k.
func (k SpriteKind) DefaultMemoryBudget() int {
	if k == KindEffect {
		return 0x140 // 320 tile-units: effects get roughly a third of an object's slice.
	}
	return 0x3C0 // 960 tile-units, the engine default for objects.
}

// MaxAnimations is the hard ceiling on animation count for every
// SpriteKind: at most 8 entries.
const MaxAnimations = 8

// AnimFrame is one (frame_id, duration_in_ticks) pair. Duration is in
// 1/60s ticks.
type AnimFrame struct {
	Frame    int `json:"frame"`
	Duration int `json:"duration"`
}

// Animation is an ordered sequence of AnimFrames.
type Animation struct {
	Frames []AnimFrame `json:"frames"`
}

// Config mirrors the config.json schema.
type Config struct {
	MinDensity     float64     `json:"min_density"`
	DisplaceSprite [2]int      `json:"displace_sprite"`
	IntraScan      bool        `json:"intra_scan"`
	InterScan      bool        `json:"inter_scan"`
	ScanChunkSizes [][2]int    `json:"scan_chunk_sizes"`
	Animations     []Animation `json:"animations"`
	// OverlapPolicy selects the reverse pipeline's conflict test when
	// reassembling layers from frames.xml alone: chunk, pixel, palette,
	// or none.
	OverlapPolicy string `json:"overlap_policy"`
}

// Default returns the default configuration for a fresh forward run of
// the given SpriteKind: min_density 0.5, every allowed chunk size
// enabled, both dedup scans on.
func Default(kind SpriteKind) *Config {
	sizes := make([][2]int, len(chunk.AllowedSizes))
	for i, s := range chunk.AllowedSizes {
		sizes[i] = [2]int{s.W, s.H}
	}
	return &Config{
		MinDensity:     chunk.MinDensity,
		DisplaceSprite: [2]int{0, 0},
		IntraScan:      true,
		InterScan:      true,
		ScanChunkSizes: sizes,
		OverlapPolicy:  "chunk",
	}
}

// Sizes converts ScanChunkSizes to the chunk package's Size type. An
// empty list is not an error: the scan proceeds as if only 8x8 were
// named, and chunk.WithFallback still guarantees 8x8 regardless.
func (c *Config) Sizes() []chunk.Size {
	out := make([]chunk.Size, 0, len(c.ScanChunkSizes))
	for _, wh := range c.ScanChunkSizes {
		out = append(out, chunk.Size{W: wh[0], H: wh[1]})
	}
	return out
}

// Validate checks the one config-parse-time fatal rule: at
// config-parse time: at most MaxAnimations entries.
func (c *Config) Validate() error {
	if len(c.Animations) > MaxAnimations {
		return wanerr.New(wanerr.TooManyAnimations, "config.json",
			"more than 8 animations")
	}
	return nil
}

// Load parses a config.json document from r.
func Load(r io.Reader) (*Config, error) {
	dec := json.NewDecoder(r)
	var c Config
	if err := dec.Decode(&c); err != nil {
		return nil, wanerr.Wrap(wanerr.XMLParseError, "config.json", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save serializes c as config.json, suitable for round-tripping back
// into a later forward run.
func (c *Config) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
