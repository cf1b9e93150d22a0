package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/alloc"
	"github.com/robert-malhotra/go-mrrd/internal/binary"
	"github.com/robert-malhotra/go-mrrd/internal/filter"
)

// WriteChunk runs data through the pipeline and stores the result in a new
// block.
func WriteChunk(w *binary.Writer, a *alloc.Allocator, p *filter.Pipeline, data []byte) (ChunkEntry, error) {
	stored, mask, err := p.Encode(data)
	if err != nil {
		return ChunkEntry{}, err
	}
	e := ChunkEntry{Addr: a.Alloc(uint64(len(stored))), Size: uint64(len(stored)), Mask: mask}
	if err := w.At(int64(e.Addr)).WriteBytes(stored); err != nil {
		return ChunkEntry{}, fmt.Errorf("writing chunk: %w", err)
	}
	return e, nil
}

// WriteContiguous stores data in a new block and returns its address.
func WriteContiguous(w *binary.Writer, a *alloc.Allocator, data []byte) (uint64, error) {
	addr := a.Alloc(uint64(len(data)))
	if err := w.At(int64(addr)).WriteBytes(data); err != nil {
		return 0, fmt.Errorf("writing contiguous data: %w", err)
	}
	return addr, nil
}

// SplitChunks cuts a row-major dataset of the given dims into chunks of
// extent chunk, in linear chunk order. Edge chunks are zero padded to the
// full chunk size.
func SplitChunks(data []byte, dims, chunk []uint64, elemSize uint64) ([][]byte, error) {
	s := shape{dims: dims, elemSize: elemSize}
	if uint64(len(data)) != s.bytes() {
		return nil, fmt.Errorf("%w: %d bytes for %v elements of %d bytes", ErrSelection, len(data), dims, elemSize)
	}
	if len(chunk) != len(dims) {
		return nil, fmt.Errorf("%w: chunk rank %d for dataset rank %d", ErrCorrupt, len(chunk), len(dims))
	}
	c := &Chunked{shape: s, chunk: chunk}
	grid := c.grid()
	total := uint64(1)
	for _, g := range grid {
		total *= g
	}
	src := region{data: data, origin: zeros(uint64(len(dims))), dims: dims}
	out := make([][]byte, 0, total)
	cc := make([]uint64, len(dims))
	for n := uint64(0); n < total; n++ {
		origin := make([]uint64, len(dims))
		hi := make([]uint64, len(dims))
		for i := range dims {
			origin[i] = cc[i] * chunk[i]
			hi[i] = min(origin[i]+chunk[i], dims[i])
		}
		buf := make([]byte, c.chunkBytes())
		copyBox(region{data: buf, origin: origin, dims: chunk}, src, origin, hi, elemSize)
		out = append(out, buf)

		for i := len(dims) - 1; i >= 0; i-- {
			cc[i]++
			if cc[i] < grid[i] {
				break
			}
			cc[i] = 0
		}
	}
	return out, nil
}
