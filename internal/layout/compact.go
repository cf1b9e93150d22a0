package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// Compact reads data stored in the object header.
type Compact struct {
	shape
	data []byte
}

func (c *Compact) Class() message.LayoutClass { return message.LayoutCompact }

// Size returns the number of stored bytes.
func (c *Compact) Size() int { return len(c.data) }

func (c *Compact) Read() ([]byte, error) {
	if uint64(len(c.data)) < c.bytes() {
		return nil, fmt.Errorf("%w: compact data holds %d of %d bytes", ErrCorrupt, len(c.data), c.bytes())
	}
	return append([]byte(nil), c.data[:c.bytes()]...), nil
}

func (c *Compact) ReadSlice(start, count []uint64) ([]byte, error) {
	if err := c.check(start, count); err != nil {
		return nil, err
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

func end(start, count []uint64) []uint64 {
	hi := make([]uint64, len(start))
	for i := range start {
		hi[i] = start[i] + count[i]
	}
	return hi
}
