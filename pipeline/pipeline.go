// Package pipeline orchestrates the object generator (Forward) and
// frames generator (Reverse) conversions, owning the palette and chunk
// pool for the duration of one run.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/spritekit/wan/chunk"
	"github.com/spritekit/wan/compose"
	"github.com/spritekit/wan/config"
	"github.com/spritekit/wan/dedup"
	"github.com/spritekit/wan/internal/imgio"
	"github.com/spritekit/wan/overlap"
	"github.com/spritekit/wan/palette"
	"github.com/spritekit/wan/render"
	"github.com/spritekit/wan/serialize"
	"github.com/spritekit/wan/tilegrid"
	"github.com/spritekit/wan/wanerr"
)

// Pipeline owns the palette and chunk pool scoped to one conversion
// run; neither is reused or cached across runs.
type Pipeline struct {
	Palette *palette.Palette
	Pool    *dedup.Pool
}

// New returns a Pipeline with a fresh, empty chunk pool.
func New() *Pipeline {
	return &Pipeline{Pool: dedup.NewPool()}
}

// Summary accumulates the non-fatal results of a run: limit warnings
// and basic counts, for the caller to report without aborting.
type Summary struct {
	Warnings   []compose.Warning
	ChunkCount int
	FrameCount int
}

func (s *Summary) addWarning(w *compose.Warning) {
	if w != nil {
		s.Warnings = append(s.Warnings, *w)
	}
}

// Forward runs the object generator: Frame-<f>-Layer-<l>.png inputs in
// in under one shared palette become a deduplicated chunk pool plus
// palette.pal / imgs/ / frames.xml / animations.xml / config.json in out.
func (p *Pipeline) Forward(ctx context.Context, cfg *config.Config, kind config.SpriteKind, in, out string) (*Summary, error) {
	decoded, err := imgio.DecodeDirParallel(in)
	if err != nil {
		return nil, err
	}
	for _, d := range decoded {
		if d.Err != nil {
			return nil, d.Err
		}
	}
	sort.Slice(decoded, func(i, j int) bool {
		if decoded[i].Frame != decoded[j].Frame {
			return decoded[i].Frame < decoded[j].Frame
		}
		return decoded[i].Layer < decoded[j].Layer
	})

	paths := make([]string, len(decoded))
	images := make([]*image.Paletted, len(decoded))
	for i, d := range decoded {
		paths[i], images[i] = d.Path, d.Img
	}
	pal, err := palette.Validate(paths, images)
	if err != nil {
		return nil, err
	}
	if len(pal.Groups) > kind.MaxGroups() {
		return nil, wanerr.New(wanerr.WrongPixelFormat, in,
			fmt.Sprintf("palette has %d groups, exceeds %d for this sprite kind", len(pal.Groups), kind.MaxGroups()))
	}
	p.Palette = pal

	byFrame := map[int][]imgio.Decoded{}
	for _, d := range decoded {
		byFrame[d.Frame] = append(byFrame[d.Frame], d)
	}
	frameIDs := make([]int, 0, len(byFrame))
	for f := range byFrame {
		frameIDs = append(frameIDs, f)
	}
	sort.Ints(frameIDs)

	frames := make([]*compose.Frame, 0, len(frameIDs))
	for _, fid := range frameIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layers := byFrame[fid]
		sort.Slice(layers, func(i, j int) bool { return layers[i].Layer < layers[j].Layer })

		f := &compose.Frame{ID: fid}
		z := 0
		for _, ld := range layers {
			cels, err := p.extractLayer(ld.Img, ld.Layer, cfg, &z)
			if err != nil {
				return nil, err
			}
			f.Cels = append(f.Cels, cels...)
		}
		f.Order()
		frames = append(frames, f)
	}

	sum := &Summary{ChunkCount: len(p.Pool.Chunks()), FrameCount: len(frames)}
	for _, f := range frames {
		sum.addWarning(compose.CheckFrame(f))
	}
	for animID, anim := range cfg.Animations {
		animFrames := make([]*compose.Frame, 0, len(anim.Frames))
		for _, af := range anim.Frames {
			for _, f := range frames {
				if f.ID == af.Frame {
					animFrames = append(animFrames, f)
				}
			}
		}
		sum.addWarning(compose.CheckAnimationMemory(animID, animFrames, p.Pool.Chunks(), kind.DefaultMemoryBudget()))
	}

	if err := writeForwardOutput(out, p.Palette, p.Pool.Chunks(), frames, cfg); err != nil {
		return nil, err
	}
	return sum, nil
}

// extractLayer runs the tile grid, single-cel group split, chunk
// extraction, and both dedup scans for one decoded layer image, and
// returns the cels it produced. z is the running per-frame insertion
// counter used to break sort ties deterministically.
func (p *Pipeline) extractLayer(img *image.Paletted, layer int, cfg *config.Config, z *int) ([]compose.Cel, error) {
	grid, err := tilegrid.New(img)
	if err != nil {
		return nil, err
	}
	groupImgs, err := chunk.SplitByGroup(img, grid)
	if err != nil {
		return nil, err
	}
	groups := make([]int, 0, len(groupImgs))
	for g := range groupImgs {
		groups = append(groups, g)
	}
	sort.Ints(groups)

	dx, dy := cfg.DisplaceSprite[0], cfg.DisplaceSprite[1]
	var cels []compose.Cel
	for _, g := range groups {
		subImg := groupImgs[g]
		subGrid, err := tilegrid.New(subImg)
		if err != nil {
			return nil, err
		}
		placements, err := chunk.ExtractLayer(subGrid, cfg.Sizes(), cfg.MinDensity)
		if err != nil {
			return nil, err
		}
		for _, pl := range placements {
			pix := chunk.ExtractPix(subGrid, tilegrid.Region{
				TX: pl.TX, TY: pl.TY,
				TilesWide: pl.Size.W / tilegrid.TileSize, TilesHigh: pl.Size.H / tilegrid.TileSize,
			})
			if existing, ok := p.Pool.Lookup(pl.Size.W, pl.Size.H, pl.Group, pix); ok {
				cels = append(cels, compose.Cel{
					ChunkID: existing.ID, X: pl.TX*tilegrid.TileSize + dx, Y: pl.TY*tilegrid.TileSize + dy,
					Group: pl.Group, Layer: layer, Z: *z,
				})
				*z++
				continue
			}
			if cfg.IntraScan {
				subs := dedup.IntraScan(subGrid, chunk.Placement{TX: pl.TX, TY: pl.TY, Size: pl.Size, Group: pl.Group}, p.Pool, cfg.Sizes())
				if subs != nil {
					for _, sub := range subs {
						subPix := chunk.ExtractPix(subGrid, tilegrid.Region{
							TX: sub.TX, TY: sub.TY,
							TilesWide: sub.Size.W / tilegrid.TileSize, TilesHigh: sub.Size.H / tilegrid.TileSize,
						})
						id, _ := p.Pool.Intern(sub.Size.W, sub.Size.H, sub.Group, subPix)
						cels = append(cels, compose.Cel{
							ChunkID: id, X: sub.TX*tilegrid.TileSize + dx, Y: sub.TY*tilegrid.TileSize + dy,
							Group: sub.Group, Layer: layer, Z: *z,
						})
						*z++
					}
					continue
				}
			}
			id, _ := p.Pool.InternWithScan(pl.Size.W, pl.Size.H, pl.Group, pix, cfg.InterScan)
			cels = append(cels, compose.Cel{
				ChunkID: id, X: pl.TX*tilegrid.TileSize + dx, Y: pl.TY*tilegrid.TileSize + dy,
				Group: pl.Group, Layer: layer, Z: *z,
			})
			*z++
		}
	}
	return cels, nil
}

func writeForwardOutput(out string, pal *palette.Palette, pool []*chunk.Chunk, frames []*compose.Frame, cfg *config.Config) error {
	tmp := out + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return err
	}

	palFile, err := os.Create(filepath.Join(tmp, "palette.pal"))
	if err != nil {
		return err
	}
	werr := serialize.WritePalette(palFile, pal)
	if cerr := palFile.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return werr
	}

	if err := serialize.WriteChunkImages(tmp, pool, pal); err != nil {
		return err
	}

	framesFile, err := os.Create(filepath.Join(tmp, "frames.xml"))
	if err != nil {
		return err
	}
	werr = serialize.WriteFramesXML(framesFile, frames, 0, 0)
	if cerr := framesFile.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return werr
	}

	animsFile, err := os.Create(filepath.Join(tmp, "animations.xml"))
	if err != nil {
		return err
	}
	werr = serialize.WriteAnimationsXML(animsFile, cfg.Animations)
	if cerr := animsFile.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return werr
	}

	cfgFile, err := os.Create(filepath.Join(tmp, "config.json"))
	if err != nil {
		return err
	}
	werr = cfg.Save(cfgFile)
	if cerr := cfgFile.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return werr
	}

	if err := os.RemoveAll(out); err != nil {
		return err
	}
	return os.Rename(tmp, out)
}

// Reverse runs the frames generator: a palette.pal/imgs/frames.xml
// folder in becomes one Frame-<f>-Layer-<l>.png per resolved layer,
// written to out.
func (p *Pipeline) Reverse(ctx context.Context, cfg *config.Config, in, out string) (*Summary, error) {
	palFile, err := os.Open(filepath.Join(in, "palette.pal"))
	if err != nil {
		return nil, wanerr.Wrap(wanerr.MissingFile, filepath.Join(in, "palette.pal"), err)
	}
	pal, err := palette.ReadJASC(palFile)
	palFile.Close()
	if err != nil {
		return nil, err
	}
	p.Palette = pal

	chunks, err := serialize.ReadChunkImages(in, pal)
	if err != nil {
		return nil, err
	}

	framesFile, err := os.Open(filepath.Join(in, "frames.xml"))
	if err != nil {
		return nil, wanerr.Wrap(wanerr.MissingFile, filepath.Join(in, "frames.xml"), err)
	}
	doc, err := serialize.ParseFramesXML(framesFile)
	framesFile.Close()
	if err != nil {
		return nil, err
	}

	policy := overlap.ParsePolicy(cfg.OverlapPolicy)

	tmp := out + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return nil, err
	}

	for fi, fx := range doc.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cels := make([]overlap.Cel, len(fx.Cels))
		for i, c := range fx.Cels {
			cels[i] = overlap.Cel{ChunkID: c.Img, X: c.X, Y: c.Y, Group: c.Pal}
		}
		layerOf := overlap.Resolve(cels, chunks, policy)
		byLayer := map[int][]overlap.Cel{}
		for i, c := range cels {
			l := layerOf[i]
			byLayer[l] = append(byLayer[l], c)
		}
		layerIDs := make([]int, 0, len(byLayer))
		for l := range byLayer {
			layerIDs = append(layerIDs, l)
		}
		sort.Ints(layerIDs)
		for _, l := range layerIDs {
			layerCels := byLayer[l]
			canvas := render.CanvasRect(layerCels, chunks)
			img := render.Layer(layerCels, chunks, pal, canvas)
			path := filepath.Join(tmp, render.LayerFileName(fi, l))
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			werr := render.WriteLayer(f, img)
			cerr := f.Close()
			if werr != nil {
				return nil, werr
			}
			if cerr != nil {
				return nil, cerr
			}
		}
	}

	if err := os.RemoveAll(out); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, out); err != nil {
		return nil, err
	}

	return &Summary{FrameCount: len(doc.Frames)}, nil
}
