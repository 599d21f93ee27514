// Package dedup implements the chunk deduplication scans from
// Inter-frame deduplication (a single content-addressed pool shared
// across the whole run) and Intra-frame (detecting that an already
// accepted chunk is itself assembled from chunks seen elsewhere, and
// splitting it to reuse them).
package dedup

import (
	"bytes"

	"github.com/spritekit/wan/chunk"
	"github.com/spritekit/wan/internal/bufpool"
	"github.com/spritekit/wan/tilegrid"
)

// Pool is the global, run-scoped chunk hash table. It is owned by one
// Pipeline run and dropped at its end — no cross-run caching. Chunks
// are only ever appended, never removed or mutated, accumulated
// monotonically over the run.
type Pool struct {
	chunks []*chunk.Chunk
	byHash map[uint64][]*chunk.Chunk
}

// NewPool returns an empty chunk pool.
func NewPool() *Pool {
	return &Pool{byHash: make(map[uint64][]*chunk.Chunk)}
}

// Chunks returns every distinct chunk registered so far, in insertion
// (chunk_id) order.
func (p *Pool) Chunks() []*chunk.Chunk { return p.chunks }

// Lookup reports the existing chunk matching (w, h, group, pix), if any,
// without registering a new one. A hash match is always confirmed with
// an exact byte comparison before being trusted.
func (p *Pool) Lookup(w, h, group int, pix []byte) (*chunk.Chunk, bool) {
	canon := chunk.Canonicalize(w, h, group, pix)
	defer bufpool.Put(canon)
	h64 := chunk.Hash(canon)
	for _, c := range p.byHash[h64] {
		if bytes.Equal(chunk.Canonicalize(c.W, c.H, c.Group, c.Pix), canon) {
			return c, true
		}
	}
	return nil, false
}

// Intern returns the id of the chunk matching (w, h, group, pix),
// registering a new chunk if no match exists. This is the Inter-frame
// scan: "maintain a global hash table...on hit, emit a Cel referencing
// the existing chunk_id instead of inserting a new chunk."
func (p *Pool) Intern(w, h, group int, pix []byte) (id int, isNew bool) {
	if existing, ok := p.Lookup(w, h, group, pix); ok {
		return existing.ID, false
	}
	id = len(p.chunks)
	c := &chunk.Chunk{
		ID:    id,
		W:     w,
		H:     h,
		Group: group,
		Pix:   append([]byte(nil), pix...),
	}
	canon := chunk.Canonicalize(w, h, group, c.Pix)
	c.Hash = chunk.Hash(canon)
	bufpool.Put(canon)
	p.chunks = append(p.chunks, c)
	p.byHash[c.Hash] = append(p.byHash[c.Hash], c)
	return id, true
}

// InternWithScan is Intern gated by the inter_scan config flag: when
// interScan is false, every call registers a brand new chunk even if an
// identical one is already pooled, so cross-frame reuse never happens.
func (p *Pool) InternWithScan(w, h, group int, pix []byte, interScan bool) (id int, isNew bool) {
	if !interScan {
		id = len(p.chunks)
		c := &chunk.Chunk{ID: id, W: w, H: h, Group: group, Pix: append([]byte(nil), pix...)}
		canon := chunk.Canonicalize(w, h, group, c.Pix)
		c.Hash = chunk.Hash(canon)
		bufpool.Put(canon)
		p.chunks = append(p.chunks, c)
		p.byHash[c.Hash] = append(p.byHash[c.Hash], c)
		return id, true
	}
	return p.Intern(w, h, group, pix)
}

// SubPlacement is one piece of a parent chunk that Intra-frame scan
// decided to split out, because it independently matches a chunk
// already known to the pool.
type SubPlacement struct {
	TX, TY int
	Size   chunk.Size
	Group  int
}

// IntraScan implements the Intra-frame scan: re-extract a freshly
// accepted chunk p at each enabled size smaller than p.Size that evenly
// tiles it; if every resulting sub-region already matches a pool chunk,
// p is split into those sub-regions (so the cel list references the
// already-known chunks instead of one unique, never-reused big one).
// The first size (largest to smallest, per enabled order) for which
// every sub-region matches wins; nil is returned if none do, and the
// caller keeps p whole.
func IntraScan(grid *tilegrid.Grid, p chunk.Placement, pool *Pool, enabledSizes []chunk.Size) []SubPlacement {
	ordered := chunk.WithFallback(enabledSizes)
	for _, ss := range ordered {
		if ss.W >= p.Size.W && ss.H >= p.Size.H {
			continue
		}
		if p.Size.W%ss.W != 0 || p.Size.H%ss.H != 0 {
			continue
		}
		cols := p.Size.W / ss.W
		rows := p.Size.H / ss.H
		if cols*rows <= 1 {
			continue
		}
		sw, sh := ss.W/tilegrid.TileSize, ss.H/tilegrid.TileSize
		subs := make([]SubPlacement, 0, cols*rows)
		allMatch := true
		for ry := 0; ry < rows && allMatch; ry++ {
			for rx := 0; rx < cols; rx++ {
				r := tilegrid.Region{
					TX:        p.TX + rx*sw,
					TY:        p.TY + ry*sh,
					TilesWide: sw,
					TilesHigh: sh,
				}
				if !grid.HasNonEmptyTile(r) {
					// An empty sub-region can't "match" a pool chunk
					// (chunks always contain at least one non-empty
					// tile); the split candidate fails here.
					allMatch = false
					break
				}
				group, ok, err := chunk.Validate(grid, r, 0)
				if err != nil || !ok {
					allMatch = false
					break
				}
				pix := chunk.ExtractPix(grid, r)
				if _, found := pool.Lookup(ss.W, ss.H, group, pix); !found {
					allMatch = false
					break
				}
				subs = append(subs, SubPlacement{TX: r.TX, TY: r.TY, Size: ss, Group: group})
			}
		}
		if allMatch {
			return subs
		}
	}
	return nil
}
