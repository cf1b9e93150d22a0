package hdf5

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/go-mrrd/internal/alloc"
	"github.com/robert-malhotra/go-mrrd/internal/binary"
	"github.com/robert-malhotra/go-mrrd/internal/heap"
	"github.com/robert-malhotra/go-mrrd/internal/object"
	"github.com/robert-malhotra/go-mrrd/internal/superblock"
)

// Create creates a new HDF5 file at the given path, truncating any
// existing file. The file is marked as open for writing until Close.
func Create(path string, opts ...FileOption) (*File, error) {
	options, err := newFileOptions(opts)
	if err != nil {
		return nil, err
	}

	osFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	sb := superblock.New()
	sb.OffsetSize = uint8(options.offsetSize)
	sb.LengthSize = uint8(options.lengthSize)
	sb.SuperblockExtensionAddress = binary.Undefined(options.offsetSize)
	sb.FileConsistencyFlags = superblock.FlagWriteAccess

	f := newFile(path, osFile, sb)
	f.startWriting(alloc.New(uint64(sb.Size())))

	rootHeader, err := object.Encode(sb.Config(), object.NewGroupHeader(nil), object.MinGroupChunkSize)
	if err == nil {
		sb.RootGroupAddress = f.allocator.Alloc(uint64(len(rootHeader)))
		err = f.writer.At(int64(sb.RootGroupAddress)).WriteBytes(rootHeader)
	}
	if err == nil {
		err = f.writeSuperblock()
	}
	if err == nil {
		err = f.loadRoot()
	}
	if err != nil {
		osFile.Close()
		os.Remove(path)
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

// OpenReadWrite opens an existing HDF5 file for reading and writing.
// A file whose superblock says another writer holds it fails with ErrLocked.
func OpenReadWrite(path string) (*File, error) {
	osFile, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	sb, err := superblock.Read(osFile)
	if err != nil {
		osFile.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	if sb.Version < 3 {
		osFile.Close()
		return nil, fmt.Errorf("%w: writing to superblock version %d", ErrUnsupported, sb.Version)
	}
	if sb.WriteLocked() {
		osFile.Close()
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	f := newFile(path, osFile, sb)
	if err := f.loadRoot(); err != nil {
		osFile.Close()
		return nil, err
	}

	// Everything up to the recorded EOF belongs to the existing file.
	f.startWriting(alloc.Resume(uint64(sb.Size()), sb.EOFAddress))
	sb.FileConsistencyFlags |= superblock.FlagWriteAccess
	if err := f.writeSuperblock(); err != nil {
		osFile.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) startWriting(a *alloc.Allocator) {
	f.writable = true
	f.writer = binary.NewWriter(f.file, f.superblock.Config())
	f.allocator = a
	f.heap = heap.NewWriter(f.writer, a)
}

func (f *File) writeSuperblock() error {
	f.superblock.EOFAddress = f.allocator.EOFAddr()
	if err := f.superblock.Write(f.writer); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

// Flush writes the superblock with the current end of file and syncs the
// file to disk.
func (f *File) Flush() error {
	if f.closed {
		return ErrClosed
	}
	return f.flush()
}

func (f *File) flush() error {
	if !f.writable {
		return nil
	}
	if err := f.writeSuperblock(); err != nil {
		return err
	}
	return f.file.Sync()
}

// AllocStats returns allocation statistics (for debugging/testing).
func (f *File) AllocStats() alloc.Stats {
	if f.allocator == nil {
		return alloc.Stats{}
	}
	return f.allocator.Stats()
}

// Size returns the logical size of the file: the end-of-file address.
func (f *File) Size() uint64 {
	if f.allocator != nil {
		return f.allocator.EOFAddr()
	}
	return f.superblock.EOFAddress
}

func (f *File) checkWritable() error {
	if f.closed {
		return ErrClosed
	}
	if !f.writable {
		return ErrReadOnly
	}
	return nil
}

// insertHeap stores data in the global heap.
func (f *File) insertHeap(data []byte) (heap.ID, error) {
	id, err := f.heap.Insert(data)
	if err != nil {
		return heap.ID{}, err
	}
	delete(f.collections, id.Collection)
	return id, nil
}
