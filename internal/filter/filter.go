// Package filter implements the HDF5 chunk filters used by the writer:
// deflate, shuffle and Fletcher-32.
//
// Filters run in pipeline order when a chunk is written and in reverse
// order when it is read back.
package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// ErrUnsupported is returned for a required filter with no implementation.
var ErrUnsupported = errors.New("unsupported filter")

// Filter transforms chunk bytes in both directions.
type Filter interface {
	ID() uint16
	Encode(input []byte) ([]byte, error)
	Decode(input []byte) ([]byte, error)
}

var registry = map[uint16]func(cd []uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	message.FilterFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
}

// New creates the filter described by info. A nil filter with a nil error
// means the filter is optional and unavailable, so it is skipped.
func New(info message.FilterInfo) (Filter, error) {
	ctor, ok := registry[info.ID]
	if !ok {
		if info.Optional {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: id %d", ErrUnsupported, info.ID)
	}
	return ctor(info.ClientData), nil
}
