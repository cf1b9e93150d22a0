package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
	"github.com/robert-malhotra/go-mrrd/internal/btree"
	"github.com/robert-malhotra/go-mrrd/internal/filter"
	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// ChunkEntry locates one stored chunk. Size is the stored (filtered) size
// and Mask records filters skipped when the chunk was written.
type ChunkEntry struct {
	Addr uint64
	Size uint64
	Mask uint32
}

// Chunked reads data stored in chunks.
type Chunked struct {
	shape
	layout   *message.DataLayout
	chunk    []uint64 // chunk extent per dimension
	pipeline *filter.Pipeline
	r        *binary.Reader

	entries []ChunkEntry
	loaded  bool
}

// NewChunked creates a reader for a version 4 chunked layout.
func NewChunked(lm *message.DataLayout, s shape, p *filter.Pipeline, r *binary.Reader) (*Chunked, error) {
	if len(lm.ChunkDims) != len(s.dims)+1 {
		return nil, fmt.Errorf("%w: chunk rank %d for dataset rank %d", ErrCorrupt, len(lm.ChunkDims)-1, len(s.dims))
	}
	c := &Chunked{shape: s, layout: lm, pipeline: p, r: r}
	for _, d := range lm.ChunkDims[:len(s.dims)] {
		if d == 0 {
			return nil, fmt.Errorf("%w: zero chunk dimension", ErrCorrupt)
		}
		c.chunk = append(c.chunk, uint64(d))
	}
	return c, nil
}

func (c *Chunked) Class() message.LayoutClass { return message.LayoutChunked }

// Entries returns the chunk index in linear chunk order.
func (c *Chunked) Entries() ([]ChunkEntry, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	return append([]ChunkEntry(nil), c.entries...), nil
}

func (c *Chunked) load() error {
	if c.loaded {
		return nil
	}
	lm := c.layout
	if c.r.IsUndefinedOffset(lm.IndexAddr) {
		c.loaded = true
		return nil
	}
	switch lm.IndexType {
	case message.ChunkIndexSingleChunk:
		e := ChunkEntry{Addr: lm.IndexAddr, Size: c.chunkBytes()}
		if lm.Flags&message.LayoutFlagSingleIndexWithFilter != 0 {
			e.Size, e.Mask = lm.FilteredSize, lm.FilterMask
		}
		c.entries = []ChunkEntry{e}
	case message.ChunkIndexFixedArray:
		fa, err := ReadFixedArray(c.r, lm.IndexAddr, c.chunkBytes())
		if err != nil {
			return err
		}
		c.entries = fa.Entries
	case message.ChunkIndexBTreeV2:
		recs, err := btree.ReadChunks(c.r, lm.IndexAddr, len(c.dims))
		if errors.Is(err, btree.ErrUnsupported) {
			return fmt.Errorf("%w: %w", ErrUnsupported, err)
		}
		if err != nil {
			return err
		}
		if c.entries, err = c.place(recs); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: chunk index type %d", ErrUnsupported, lm.IndexType)
	}
	c.loaded = true
	return nil
}

// place lays B-tree records out in linear chunk order. Chunks without a
// record keep an undefined address.
func (c *Chunked) place(recs []btree.Record) ([]ChunkEntry, error) {
	grid := c.grid()
	n := uint64(1)
	for _, g := range grid {
		n *= g
	}
	undef := binary.Undefined(c.r.OffsetSize())
	entries := make([]ChunkEntry, n)
	for i := range entries {
		entries[i].Addr = undef
	}
	for _, rec := range recs {
		var linear uint64
		for i, s := range rec.Scaled {
			if s >= grid[i] {
				return nil, fmt.Errorf("%w: chunk %v outside grid %v", ErrCorrupt, rec.Scaled, grid)
			}
			linear = linear*grid[i] + s
		}
		e := ChunkEntry{Addr: rec.Addr, Size: rec.Size, Mask: rec.Mask}
		if e.Size == 0 {
			e.Size = c.chunkBytes()
		}
		entries[linear] = e
	}
	return entries, nil
}

func (c *Chunked) chunkBytes() uint64 {
	n := c.elemSize
	for _, d := range c.chunk {
		n *= d
	}
	return n
}

// grid returns the number of chunks along each dimension.
func (c *Chunked) grid() []uint64 {
	g := make([]uint64, len(c.dims))
	for i, d := range c.dims {
		g[i] = (d + c.chunk[i] - 1) / c.chunk[i]
	}
	return g
}

// ReadChunk decodes the chunk with linear index i. Chunks never written
// read as zeros.
func (c *Chunked) ReadChunk(i uint64) ([]byte, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	if i >= uint64(len(c.entries)) || c.r.IsUndefinedOffset(c.entries[i].Addr) {
		return make([]byte, c.chunkBytes()), nil
	}
	e := c.entries[i]
	raw, err := c.r.At(int64(e.Addr)).ReadBytes(int(e.Size))
	if err != nil {
		return nil, fmt.Errorf("reading chunk %d: %w", i, err)
	}
	data, err := c.pipeline.Decode(raw, e.Mask)
	if err != nil {
		return nil, fmt.Errorf("decoding chunk %d: %w", i, err)
	}
	if uint64(len(data)) != c.chunkBytes() {
		return nil, fmt.Errorf("%w: chunk %d decodes to %d bytes, want %d", ErrCorrupt, i, len(data), c.chunkBytes())
	}
	return data, nil
}

func (c *Chunked) Read() ([]byte, error) {
	return c.ReadSlice(zeros(uint64(len(c.dims))), c.dims)
}

func (c *Chunked) ReadSlice(start, count []uint64) ([]byte, error) {
	if err := c.check(start, count); err != nil {
		return nil, err
	}
	out := shape{dims: count, elemSize: c.elemSize}
	dst := region{data: make([]byte, out.bytes()), origin: start, dims: count}
	for _, n := range count {
		if n == 0 {
			return dst.data, nil
		}
	}

	rank := len(c.dims)
	grid := c.grid()
	first := make([]uint64, rank)
	last := make([]uint64, rank)
	for i := range c.dims {
		first[i] = start[i] / c.chunk[i]
		last[i] = (start[i] + count[i] - 1) / c.chunk[i]
	}

	hi := end(start, count)
	cc := append([]uint64(nil), first...)
	for {
		var linear uint64
		origin := make([]uint64, rank)
		lo := make([]uint64, rank)
		top := make([]uint64, rank)
		for i := 0; i < rank; i++ {
			linear = linear*grid[i] + cc[i]
			origin[i] = cc[i] * c.chunk[i]
			lo[i] = max(origin[i], start[i])
			top[i] = min(origin[i]+c.chunk[i], hi[i])
		}
		data, err := c.ReadChunk(linear)
		if err != nil {
			return nil, err
		}
		copyBox(dst, region{data: data, origin: origin, dims: c.chunk}, lo, top, c.elemSize)

		i := rank - 1
		for ; i >= 0; i-- {
			cc[i]++
			if cc[i] <= last[i] {
				break
			}
			cc[i] = first[i]
		}
		if i < 0 {
			return dst.data, nil
		}
	}
}
