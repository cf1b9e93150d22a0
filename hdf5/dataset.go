package hdf5

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-mrrd/internal/dtype"
	"github.com/robert-malhotra/go-mrrd/internal/layout"
	"github.com/robert-malhotra/go-mrrd/internal/message"
	"github.com/robert-malhotra/go-mrrd/internal/object"
)

// Dataset represents an HDF5 dataset.
type Dataset struct {
	file      *File
	path      string
	name      string
	parent    *Group
	header    *object.Header
	dataspace *message.Dataspace
	datatype  *message.Datatype
	layoutMsg *message.DataLayout
	pipeline  *message.FilterPipeline
	layout    layout.Layout

	index   *layout.FixedArray // loaded on first append
	removed bool               // replaced by another object of the same name
}

// newDataset creates a Dataset from an object header.
func (f *File) newDataset(h *object.Header, path, name string, parent *Group) (*Dataset, error) {
	ds := &Dataset{
		file:   f,
		path:   path,
		name:   name,
		parent: parent,
	}
	if err := ds.load(h); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	f.datasets[path] = ds
	return ds, nil
}

func (d *Dataset) load(h *object.Header) error {
	d.header = h
	d.dataspace = h.Dataspace()
	if d.dataspace == nil {
		return fmt.Errorf("missing dataspace message")
	}
	d.datatype = h.Datatype()
	if d.datatype == nil {
		return fmt.Errorf("missing datatype message")
	}
	d.layoutMsg = h.DataLayout()
	if d.layoutMsg == nil {
		return fmt.Errorf("missing layout message")
	}
	d.pipeline = h.FilterPipeline()

	var err error
	d.layout, err = layout.New(d.layoutMsg, d.dataspace, d.datatype, d.pipeline, d.file.reader)
	if err != nil {
		return fmt.Errorf("creating layout: %w", err)
	}
	return nil
}

// Name returns the dataset name (last component of path).
func (d *Dataset) Name() string {
	return d.name
}

// Path returns the full path to this dataset.
func (d *Dataset) Path() string {
	return d.path
}

// Shape returns the dimensions of the dataset. A scalar has none.
func (d *Dataset) Shape() []uint64 {
	if d.dataspace.IsScalar() {
		return nil
	}
	return append([]uint64(nil), d.dataspace.Dims...)
}

// MaxShape returns the maximum dimensions. message.Unlimited marks a
// dimension without bound.
func (d *Dataset) MaxShape() []uint64 {
	if len(d.dataspace.MaxDims) == 0 {
		return d.Shape()
	}
	return append([]uint64(nil), d.dataspace.MaxDims...)
}

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int {
	return len(d.dataspace.Dims)
}

// Len returns the extent of the first dimension, 1 for a scalar.
func (d *Dataset) Len() uint64 {
	if d.dataspace.IsScalar() {
		return 1
	}
	if len(d.dataspace.Dims) == 0 {
		return 0
	}
	return d.dataspace.Dims[0]
}

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() uint64 {
	return d.dataspace.NumElements()
}

// IsScalar returns true if this is a scalar dataset.
func (d *Dataset) IsScalar() bool {
	return d.dataspace.IsScalar()
}

// Datatype returns the element type.
func (d *Dataset) Datatype() *Datatype {
	return d.datatype
}

// Layout returns the storage layout class.
func (d *Dataset) Layout() message.LayoutClass {
	return d.layoutMsg.Class
}

// Filters returns the IDs of the filters applied to each chunk.
func (d *Dataset) Filters() []uint16 {
	if d.pipeline == nil {
		return nil
	}
	ids := make([]uint16, len(d.pipeline.Filters))
	for i, fi := range d.pipeline.Filters {
		ids[i] = fi.ID
	}
	return ids
}

// Extendible reports whether rows can be appended with Append.
func (d *Dataset) Extendible() bool {
	if d.layoutMsg.Class != message.LayoutChunked || d.Rank() == 0 {
		return false
	}
	if d.layoutMsg.ChunkDims[0] != 1 || !d.dataspace.Extendible(0) {
		return false
	}
	for i := 1; i < d.Rank(); i++ {
		if d.dataspace.Extendible(i) {
			return false
		}
	}
	return true
}

// GoType returns the Go type Read decodes elements into.
func (d *Dataset) GoType() (reflect.Type, error) {
	return dtype.GoType(d.datatype)
}

func (d *Dataset) check() error {
	if d.file.closed {
		return ErrClosed
	}
	if d.removed {
		return fmt.Errorf("%w: %s was replaced", ErrNotFound, d.path)
	}
	return nil
}

// ReadRaw returns the raw bytes of the dataset in row-major order.
func (d *Dataset) ReadRaw() ([]byte, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return d.layout.Read()
}

// ReadSlice returns the raw bytes of the hyperslab [start, start+count).
func (d *Dataset) ReadSlice(start, count []uint64) ([]byte, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return d.layout.ReadSlice(start, count)
}

// ReadRow returns the raw bytes of row i along the first dimension.
func (d *Dataset) ReadRow(i uint64) ([]byte, error) {
	if d.Rank() == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", ErrUnsupported, d.path)
	}
	if i >= d.Len() {
		return nil, fmt.Errorf("%w: row %d of %d in %s", ErrOutOfRange, i, d.Len(), d.path)
	}
	start := make([]uint64, d.Rank())
	count := d.Shape()
	start[0], count[0] = i, 1
	return d.ReadSlice(start, count)
}

// Read decodes the whole dataset into dest, a pointer to a slice or to a
// single value.
func (d *Dataset) Read(dest any) error {
	if d.datatype.Class == message.ClassVarLen {
		return fmt.Errorf("%w: use ReadVarLen or ReadStrings for variable-length data", ErrUnsupported)
	}
	raw, err := d.ReadRaw()
	if err != nil {
		return err
	}
	return dtype.Decode(d.datatype, raw, dest)
}

// Decode unpacks raw bytes read from this dataset, such as a row from
// ReadRow, into dest.
func (d *Dataset) Decode(raw []byte, dest any) error {
	return dtype.Decode(d.datatype, raw, dest)
}

// ReadFloat32 reads the dataset as []float32.
func (d *Dataset) ReadFloat32() ([]float32, error) {
	var out []float32
	err := d.Read(&out)
	return out, err
}

// ReadFloat64 reads the dataset as []float64.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	var out []float64
	err := d.Read(&out)
	return out, err
}
