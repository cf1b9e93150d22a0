package hdf5

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/go-mrrd/internal/alloc"
	"github.com/robert-malhotra/go-mrrd/internal/binary"
	"github.com/robert-malhotra/go-mrrd/internal/heap"
	"github.com/robert-malhotra/go-mrrd/internal/superblock"
	"go.uber.org/multierr"
)

// File represents an open HDF5 file.
type File struct {
	path       string
	file       *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool

	// Handles are cached by path so that a header relocated by one handle
	// is seen by every other.
	groups   map[string]*Group
	datasets map[string]*Dataset

	collections map[uint64]*heap.Collection

	// Write support fields
	writable  bool
	writer    *binary.Writer
	allocator *alloc.Allocator
	heap      *heap.Writer
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	osFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	sb, err := superblock.Read(osFile)
	if err != nil {
		osFile.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	f := newFile(path, osFile, sb)
	if err := f.loadRoot(); err != nil {
		osFile.Close()
		return nil, err
	}
	return f, nil
}

func newFile(path string, osFile *os.File, sb *superblock.Superblock) *File {
	return &File{
		path:        path,
		file:        osFile,
		reader:      binary.NewReader(osFile, sb.Config()),
		superblock:  sb,
		groups:      make(map[string]*Group),
		datasets:    make(map[string]*Dataset),
		collections: make(map[uint64]*heap.Collection),
	}
}

func (f *File) loadRoot() error {
	root, err := f.openGroupAt(f.superblock.RootGroupAddress, "/", "", nil)
	if err != nil {
		return fmt.Errorf("opening root group: %w", err)
	}
	f.root = root
	return nil
}

// Close flushes a writable file, releases its write lock and closes it.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	var err error
	if f.writable {
		f.superblock.FileConsistencyFlags &^= superblock.FlagWriteAccess
		err = multierr.Append(err, f.flush())
	}
	f.groups, f.datasets, f.collections = nil, nil, nil
	return multierr.Append(err, f.file.Close())
}

// Root returns the root group of the file.
func (f *File) Root() *Group {
	return f.root
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Version returns the superblock version.
func (f *File) Version() int {
	return int(f.superblock.Version)
}

// IsWritable returns true if the file was opened for writing.
func (f *File) IsWritable() bool {
	return f.writable
}

// OpenGroup opens a group by path.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

// Exists reports whether an object exists at path.
func (f *File) Exists(path string) bool {
	if f.closed {
		return false
	}
	if _, err := f.root.OpenGroup(path); err == nil {
		return true
	}
	_, err := f.root.OpenDataset(path)
	return err == nil
}

// collection returns the global heap collection at addr, reading it once.
func (f *File) collection(addr uint64) (*heap.Collection, error) {
	if c, ok := f.collections[addr]; ok {
		return c, nil
	}
	c, err := heap.ReadCollection(f.file, f.superblock.Config(), addr)
	if err != nil {
		return nil, err
	}
	f.collections[addr] = c
	return c, nil
}
