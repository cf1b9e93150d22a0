package heap

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/alloc"
	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// Writer appends objects to global heap collections.
type Writer struct {
	w     *binary.Writer
	alloc *alloc.Allocator

	addr uint64 // open collection, 0 if none
	size uint64
	used uint64
	next uint16
}

// NewWriter creates a heap writer. No collection is allocated until the
// first Insert.
func NewWriter(w *binary.Writer, a *alloc.Allocator) *Writer {
	return &Writer{w: w, alloc: a}
}

// Insert stores data as a new object and returns its ID.
func (hw *Writer) Insert(data []byte) (ID, error) {
	cfg := hw.w.Config()
	need := objectHeaderSize(cfg) + pad8(uint64(len(data)))
	if hw.addr == 0 || hw.size-hw.used < need || hw.next == 0xffff {
		if err := hw.grow(need); err != nil {
			return ID{}, err
		}
	}

	index := hw.next
	e := binary.NewEncoder(cfg)
	e.PutUint16(index)
	e.PutUint16(1)
	e.PutZeros(4)
	e.PutLength(uint64(len(data)))
	e.PutBytes(data)
	e.PutZeros(int(pad8(uint64(len(data))) - uint64(len(data))))
	hw.used += need
	hw.next++
	hw.putFreeSpace(e)

	if err := hw.w.At(int64(hw.addr + hw.used - need)).WriteBytes(e.Bytes()); err != nil {
		return ID{}, fmt.Errorf("writing global heap object: %w", err)
	}
	return ID{Collection: hw.addr, Index: uint32(index)}, nil
}

// Collection returns the address of the open collection, or 0.
func (hw *Writer) Collection() uint64 { return hw.addr }

func (hw *Writer) grow(need uint64) error {
	cfg := hw.w.Config()
	size := headerSize(cfg) + need + objectHeaderSize(cfg)
	if size < MinCollectionSize {
		size = MinCollectionSize
	}
	size = pad8(size)

	addr := hw.alloc.Alloc(size)
	e := binary.NewEncoder(cfg)
	e.PutBytes([]byte(Signature))
	e.PutUint8(1)
	e.PutZeros(3)
	e.PutLength(size)
	hw.addr, hw.size, hw.used, hw.next = addr, size, headerSize(cfg), 1
	hw.putFreeSpace(e)
	e.PutZeros(int(size) - e.Len())

	if err := hw.w.At(int64(addr)).WriteBytes(e.Bytes()); err != nil {
		return fmt.Errorf("writing global heap collection: %w", err)
	}
	return nil
}

// putFreeSpace appends the free-space object header describing the tail
// of the open collection. A tail too small for a header is left zeroed.
func (hw *Writer) putFreeSpace(e *binary.Encoder) {
	free := hw.size - hw.used
	if free < objectHeaderSize(e.Config()) {
		return
	}
	e.PutUint16(0)
	e.PutUint16(0)
	e.PutZeros(4)
	e.PutLength(free)
}
