package layout

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/go-mrrd/internal/alloc"
	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// Fixed array signatures.
const (
	FixedArrayHeaderSignature = "FAHD"
	FixedArrayBlockSignature  = "FADB"
)

// MinPageBits is the smallest page size exponent written to a fixed array.
const MinPageBits = 10

// Fixed array client IDs.
const (
	clientChunks         = 0
	clientFilteredChunks = 1
)

// FixedArray is a chunk index holding one entry per chunk. Entries of a
// filtered dataset carry the stored chunk size and filter mask.
type FixedArray struct {
	HeaderAddr uint64
	BlockAddr  uint64
	PageBits   uint8
	Filtered   bool
	ChunkBytes uint64 // uncompressed chunk size, sizes the filtered entries
	Entries    []ChunkEntry

	written int // entries in the blocks at HeaderAddr
}

// chunkSizeLen returns the width of the chunk size field of a filtered
// entry: one byte more than needed to hold ChunkBytes, at most eight.
func chunkSizeLen(chunkBytes uint64) int {
	return min(1+(bits.Len64(chunkBytes)-1+8)/8, 8)
}

// PageBitsFor returns a page size exponent large enough that n entries fit
// in one page, so the data block is never paged.
func PageBitsFor(n int) uint8 {
	if n <= 1 {
		return MinPageBits
	}
	return uint8(max(MinPageBits, bits.Len64(uint64(n-1))))
}

func (fa *FixedArray) entrySize(cfg binary.Config) int {
	if fa.Filtered {
		return cfg.OffsetSize + chunkSizeLen(fa.ChunkBytes) + 4
	}
	return cfg.OffsetSize
}

func (fa *FixedArray) clientID() uint8 {
	if fa.Filtered {
		return clientFilteredChunks
	}
	return clientChunks
}

func headerBlockSize(cfg binary.Config) uint64 {
	return uint64(4 + 1 + 1 + 1 + 1 + cfg.LengthSize + cfg.OffsetSize + 4)
}

func (fa *FixedArray) dataBlockSize(cfg binary.Config, n int) uint64 {
	return uint64(4+1+1+cfg.OffsetSize+4) + uint64(n*fa.entrySize(cfg))
}

// Write stores the index in freshly allocated blocks and releases the
// blocks of the previous write. An empty index leaves HeaderAddr undefined.
func (fa *FixedArray) Write(w *binary.Writer, a *alloc.Allocator) error {
	cfg := w.Config()
	undef := binary.Undefined(cfg.OffsetSize)
	if fa.HeaderAddr != 0 && fa.HeaderAddr != undef {
		a.Free(fa.HeaderAddr, headerBlockSize(cfg))
		a.Free(fa.BlockAddr, fa.dataBlockSize(cfg, fa.written))
	}
	fa.HeaderAddr, fa.BlockAddr, fa.written = undef, undef, 0

	n := len(fa.Entries)
	if n == 0 {
		return nil
	}
	fa.PageBits = PageBitsFor(n)
	fa.HeaderAddr = a.Alloc(headerBlockSize(cfg))
	fa.BlockAddr = a.Alloc(fa.dataBlockSize(cfg, n))

	h := binary.NewEncoder(cfg)
	h.PutBytes([]byte(FixedArrayHeaderSignature))
	h.PutUint8(0)
	h.PutUint8(fa.clientID())
	h.PutUint8(uint8(fa.entrySize(cfg)))
	h.PutUint8(fa.PageBits)
	h.PutLength(uint64(n))
	h.PutOffset(fa.BlockAddr)
	h.PutChecksum()

	d := binary.NewEncoder(cfg)
	d.PutBytes([]byte(FixedArrayBlockSignature))
	d.PutUint8(0)
	d.PutUint8(fa.clientID())
	d.PutOffset(fa.HeaderAddr)
	sizeLen := chunkSizeLen(fa.ChunkBytes)
	for _, e := range fa.Entries {
		d.PutOffset(e.Addr)
		if fa.Filtered {
			d.PutUintN(e.Size, sizeLen)
			d.PutUint32(e.Mask)
		}
	}
	d.PutChecksum()

	if err := w.At(int64(fa.HeaderAddr)).WriteBytes(h.Bytes()); err != nil {
		return fmt.Errorf("writing fixed array header: %w", err)
	}
	if err := w.At(int64(fa.BlockAddr)).WriteBytes(d.Bytes()); err != nil {
		return fmt.Errorf("writing fixed array data block: %w", err)
	}
	fa.written = n
	return nil
}

// ReadFixedArray reads the index at addr. Unfiltered entries take their
// size from chunkBytes.
func ReadFixedArray(r *binary.Reader, addr, chunkBytes uint64) (*FixedArray, error) {
	cfg := r.Config()
	raw, err := r.At(int64(addr)).ReadBytes(int(headerBlockSize(cfg)))
	if err != nil {
		return nil, fmt.Errorf("reading fixed array header: %w", err)
	}
	if err := verify(raw, FixedArrayHeaderSignature, cfg); err != nil {
		return nil, err
	}
	d := binary.NewDecoder(raw[4:], cfg)
	if v := d.Uint8(); v != 0 {
		return nil, fmt.Errorf("%w: fixed array version %d", ErrUnsupported, v)
	}
	fa := &FixedArray{HeaderAddr: addr, ChunkBytes: chunkBytes}
	fa.Filtered = d.Uint8() == clientFilteredChunks
	entrySize := int(d.Uint8())
	fa.PageBits = d.Uint8()
	n := d.Length()
	fa.BlockAddr = d.Addr()
	if entrySize != fa.entrySize(cfg) {
		return nil, fmt.Errorf("%w: fixed array entry size %d", ErrCorrupt, entrySize)
	}
	if n > 1<<fa.PageBits {
		return nil, fmt.Errorf("%w: paged fixed array", ErrUnsupported)
	}

	raw, err = r.At(int64(fa.BlockAddr)).ReadBytes(int(fa.dataBlockSize(cfg, int(n))))
	if err != nil {
		return nil, fmt.Errorf("reading fixed array data block: %w", err)
	}
	if err := verify(raw, FixedArrayBlockSignature, cfg); err != nil {
		return nil, err
	}
	d = binary.NewDecoder(raw[4:], cfg)
	d.Skip(2)
	if back := d.Addr(); back != addr {
		return nil, fmt.Errorf("%w: data block points at header 0x%x, want 0x%x", ErrCorrupt, back, addr)
	}
	sizeLen := chunkSizeLen(chunkBytes)
	fa.Entries = make([]ChunkEntry, n)
	for i := range fa.Entries {
		e := ChunkEntry{Addr: d.Addr(), Size: chunkBytes}
		if fa.Filtered {
			e.Size = d.UintN(sizeLen)
			e.Mask = d.Uint32()
		}
		fa.Entries[i] = e
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	fa.written = int(n)
	return fa, nil
}

// verify checks the signature and trailing Jenkins checksum of a block.
func verify(raw []byte, sig string, cfg binary.Config) error {
	if len(raw) < len(sig)+4 || string(raw[:len(sig)]) != sig {
		return fmt.Errorf("%w: missing %s signature", ErrCorrupt, sig)
	}
	body := raw[:len(raw)-4]
	stored := binary.NewDecoder(raw[len(body):], cfg).Uint32()
	if got := binary.Lookup3Checksum(body); got != stored {
		return fmt.Errorf("%w: %s checksum 0x%08x, computed 0x%08x", ErrCorrupt, sig, stored, got)
	}
	return nil
}
