// Package hdf5 reads and writes HDF5 files in pure Go.
//
// The writer produces superblock version 3 files with version 2 object
// headers and compact link storage. Datasets are stored compact,
// contiguous or chunked; chunked datasets may grow along their first
// dimension one row at a time. Variable-length sequences and strings live
// in global heap collections.
package hdf5

import (
	"errors"

	"github.com/robert-malhotra/go-mrrd/internal/superblock"
)

// Common errors
var (
	ErrNotHDF5       = superblock.ErrNotHDF5
	ErrNotFound      = errors.New("object not found")
	ErrNotDataset    = errors.New("object is not a dataset")
	ErrNotGroup      = errors.New("object is not a group")
	ErrUnsupported   = errors.New("unsupported feature")
	ErrInvalidPath   = errors.New("invalid path")
	ErrClosed        = errors.New("file is closed")
	ErrReadOnly      = errors.New("file is not writable")
	ErrLocked        = errors.New("file is open for writing elsewhere")
	ErrExists        = errors.New("object already exists")
	ErrNotExtendible = errors.New("dataset cannot grow")
	ErrRowSize       = errors.New("row size does not match dataset")
	ErrOutOfRange    = errors.New("index out of range")
	ErrInvalidOption = errors.New("invalid option")
)
