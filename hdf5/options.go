package hdf5

import (
	"fmt"

	"go.uber.org/multierr"
)

// FileOption configures file creation.
type FileOption func(*fileOptions)

type fileOptions struct {
	offsetSize int
	lengthSize int
	err        error
}

func newFileOptions(opts []FileOption) (*fileOptions, error) {
	o := &fileOptions{offsetSize: 8, lengthSize: 8}
	for _, opt := range opts {
		opt(o)
	}
	return o, o.err
}

func fieldWidth(what string, size int) error {
	switch size {
	case 2, 4, 8:
		return nil
	}
	return fmt.Errorf("%w: %s size %d, want 2, 4 or 8", ErrInvalidOption, what, size)
}

// WithOffsetSize sets the width of file addresses. Variable-length data
// requires 8.
func WithOffsetSize(size int) FileOption {
	return func(o *fileOptions) {
		o.offsetSize = size
		o.err = multierr.Append(o.err, fieldWidth("offset", size))
	}
}

// WithLengthSize sets the width of length fields.
func WithLengthSize(size int) FileOption {
	return func(o *fileOptions) {
		o.lengthSize = size
		o.err = multierr.Append(o.err, fieldWidth("length", size))
	}
}

// DatasetOption configures dataset creation.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	chunks     []uint64
	maxDims    []uint64
	deflate    int
	shuffle    bool
	fletcher32 bool
	compact    bool
	err        error
}

func newDatasetOptions(opts []DatasetOption) (*datasetOptions, error) {
	o := &datasetOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o, o.err
}

// WithChunks sets the chunk extents. Extendible datasets default to one
// chunk per row.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) { o.chunks = dims }
}

// WithMaxDims sets the maximum extents of a dataset that can grow. 0 is
// unlimited. Only the first dimension may grow.
func WithMaxDims(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) { o.maxDims = dims }
}

// WithCompression sets the deflate level. 0 disables compression.
func WithCompression(level int) DatasetOption {
	return func(o *datasetOptions) {
		if level < 0 || level > 9 {
			o.err = multierr.Append(o.err, fmt.Errorf("%w: deflate level %d", ErrInvalidOption, level))
			return
		}
		o.deflate = level
	}
}

// WithShuffle byte-shuffles elements ahead of compression.
func WithShuffle() DatasetOption {
	return func(o *datasetOptions) { o.shuffle = true }
}

// WithFletcher32 checksums every chunk.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) { o.fletcher32 = true }
}

// WithCompact stores a small fixed-size dataset inside its object header.
func WithCompact() DatasetOption {
	return func(o *datasetOptions) { o.compact = true }
}
