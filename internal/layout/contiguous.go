package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// Contiguous reads data stored in a single block. An undefined address
// means no data was written yet and reads return zeros.
type Contiguous struct {
	shape
	addr uint64
	size uint64
	r    *binary.Reader
}

func (c *Contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

// Address returns the file address of the data block.
func (c *Contiguous) Address() uint64 { return c.addr }

func (c *Contiguous) allocated() bool {
	return !c.r.IsUndefinedOffset(c.addr) && c.size > 0
}

func (c *Contiguous) Read() ([]byte, error) {
	return c.readAt(0, c.bytes())
}

func (c *Contiguous) ReadSlice(start, count []uint64) ([]byte, error) {
	if err := c.check(start, count); err != nil {
		return nil, err
	}
	if len(c.dims) > 0 && c.leadingRows(start, count) {
		row := c.rowBytes()
		return c.readAt(start[0]*row, count[0]*row)
	}
	all, err := c.Read()
	if err != nil {
		return nil, err
	}
	out := shape{dims: count, elemSize: c.elemSize}
	dst := region{data: make([]byte, out.bytes()), origin: start, dims: count}
	copyBox(dst, region{data: all, origin: zeros(uint64(len(c.dims))), dims: c.dims}, start, end(start, count), c.elemSize)
	return dst.data, nil
}

func (c *Contiguous) readAt(off, n uint64) ([]byte, error) {
	if !c.allocated() {
		return make([]byte, n), nil
	}
	if off+n > c.size {
		return nil, fmt.Errorf("%w: contiguous block of %d bytes, read [%d, %d)", ErrCorrupt, c.size, off, off+n)
	}
	data, err := c.r.At(int64(c.addr + off)).ReadBytes(int(n))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data: %w", err)
	}
	return data, nil
}
