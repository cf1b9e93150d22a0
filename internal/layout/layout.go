package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
	"github.com/robert-malhotra/go-mrrd/internal/filter"
	"github.com/robert-malhotra/go-mrrd/internal/message"
)

var (
	ErrUnsupported = errors.New("unsupported storage layout")
	ErrSelection   = errors.New("selection out of bounds")
	ErrCorrupt     = errors.New("corrupt chunk index")
)

// Layout reads the raw bytes of a dataset.
type Layout interface {
	// Read returns the whole dataset in row-major order.
	Read() ([]byte, error)

	// ReadSlice returns the elements in [start, start+count) per dimension.
	ReadSlice(start, count []uint64) ([]byte, error)

	Class() message.LayoutClass
}

// New returns the reader for a dataset's layout message. pipeline may be nil.
func New(
	lm *message.DataLayout,
	ds *message.Dataspace,
	dt *message.Datatype,
	pipeline *message.FilterPipeline,
	r *binary.Reader,
) (Layout, error) {
	if lm == nil || ds == nil || dt == nil {
		return nil, fmt.Errorf("%w: missing layout, dataspace or datatype", ErrUnsupported)
	}
	shape := newShape(ds, uint64(dt.Size))
	switch lm.Class {
	case message.LayoutCompact:
		return &Compact{shape: shape, data: lm.CompactData}, nil
	case message.LayoutContiguous:
		return &Contiguous{shape: shape, addr: lm.Address, size: lm.Size, r: r}, nil
	case message.LayoutChunked:
		p, err := filter.NewPipeline(pipeline)
		if err != nil {
			return nil, err
		}
		return NewChunked(lm, shape, p, r)
	}
	return nil, fmt.Errorf("%w: class %d", ErrUnsupported, lm.Class)
}

// shape is the extent of a dataset and its element size. A scalar has
// rank 0 and one element.
type shape struct {
	dims     []uint64
	elemSize uint64
}

func newShape(ds *message.Dataspace, elemSize uint64) shape {
	s := shape{elemSize: elemSize}
	if !ds.IsScalar() {
		s.dims = append([]uint64(nil), ds.Dims...)
	}
	return s
}

func (s shape) bytes() uint64 {
	n := s.elemSize
	for _, d := range s.dims {
		n *= d
	}
	return n
}

func (s shape) check(start, count []uint64) error {
	if len(start) != len(s.dims) || len(count) != len(s.dims) {
		return fmt.Errorf("%w: rank %d selection on rank %d dataset", ErrSelection, len(start), len(s.dims))
	}
	for i := range s.dims {
		if start[i]+count[i] > s.dims[i] || start[i]+count[i] < start[i] {
			return fmt.Errorf("%w: dimension %d: [%d, %d) of %d", ErrSelection, i, start[i], start[i]+count[i], s.dims[i])
		}
	}
	return nil
}

// leadingRows reports whether a selection covers whole rows: every
// dimension after the first is fully selected.
func (s shape) leadingRows(start, count []uint64) bool {
	for i := 1; i < len(s.dims); i++ {
		if start[i] != 0 || count[i] != s.dims[i] {
			return false
		}
	}
	return true
}

func (s shape) rowBytes() uint64 {
	n := s.elemSize
	for _, d := range s.dims[1:] {
		n *= d
	}
	return n
}

func zeros(n uint64) []uint64 { return make([]uint64, n) }

// region is a row-major block of elements placed at origin.
type region struct {
	data   []byte
	origin []uint64
	dims   []uint64
}

// copyBox copies the elements of the box [lo, hi) from src to dst. Both
// regions must contain the box.
func copyBox(dst, src region, lo, hi []uint64, elemSize uint64) {
	rank := len(lo)
	if rank == 0 {
		copy(dst.data, src.data[:elemSize])
		return
	}
	for i := range lo {
		if lo[i] >= hi[i] {
			return
		}
	}
	run := (hi[rank-1] - lo[rank-1]) * elemSize
	p := append([]uint64(nil), lo...)
	for {
		so, do := uint64(0), uint64(0)
		for i := 0; i < rank; i++ {
			so = so*src.dims[i] + (p[i] - src.origin[i])
			do = do*dst.dims[i] + (p[i] - dst.origin[i])
		}
		so *= elemSize
		do *= elemSize
		copy(dst.data[do:do+run], src.data[so:so+run])

		i := rank - 2
		for ; i >= 0; i-- {
			p[i]++
			if p[i] < hi[i] {
				break
			}
			p[i] = lo[i]
		}
		if i < 0 {
			return
		}
	}
}
