package mrrd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-mrrd/hdf5"
)

// ElementType is the element type of an NDArray.
type ElementType uint8

const (
	Float32 ElementType = iota + 1
	Float64
	Complex64
	Complex128
)

func (t ElementType) String() string {
	switch t {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	}
	return fmt.Sprintf("ElementType(%d)", uint8(t))
}

// Valid reports whether t is one of the four element types.
func (t ElementType) Valid() bool {
	return t >= Float32 && t <= Complex128
}

// Size returns the size of one element in bytes.
func (t ElementType) Size() int {
	switch t {
	case Float32:
		return 4
	case Float64, Complex64:
		return 8
	case Complex128:
		return 16
	}
	return 0
}

// Datatype returns the HDF5 type elements are stored as.
func (t ElementType) Datatype() *hdf5.Datatype {
	switch t {
	case Float32:
		return hdf5.Float32()
	case Float64:
		return hdf5.Float64()
	case Complex64:
		return hdf5.Complex64()
	case Complex128:
		return hdf5.Complex128()
	}
	return nil
}

// elementTypeOf maps a stored datatype back to an element type.
func elementTypeOf(dt *hdf5.Datatype) (ElementType, bool) {
	switch {
	case dt.Equal(hdf5.Float32()):
		return Float32, true
	case dt.Equal(hdf5.Float64()):
		return Float64, true
	case hdf5.IsComplex(dt) && dt.Size == 8:
		return Complex64, true
	case hdf5.IsComplex(dt) && dt.Size == 16:
		return Complex128, true
	}
	return 0, false
}

// Element is the set of Go types an NDArray can hold.
type Element interface {
	float32 | float64 | complex64 | complex128
}

// ElementTypeOf returns the element type of T.
func ElementTypeOf[T Element]() ElementType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case complex64:
		return Complex64
	default:
		return Complex128
	}
}

// NDArray is an N-dimensional array in column-major order: the element at
// (i0, i1, ..., ik-1) lies at i0 + i1*d0 + i2*d0*d1 + ...
//
// Data is a []float32, []float64, []complex64 or []complex128 matching Type.
type NDArray struct {
	Type ElementType
	Dims []uint64
	Data any
}

// NewNDArray returns a zeroed array of the given dimensions.
func NewNDArray[T Element](dims ...uint64) *NDArray {
	return &NDArray{
		Type: ElementTypeOf[T](),
		Dims: slices.Clone(dims),
		Data: make([]T, product(dims)),
	}
}

// FromSlice wraps data as an array of the given dimensions without
// copying.
func FromSlice[T Element](data []T, dims ...uint64) (*NDArray, error) {
	a := &NDArray{Type: ElementTypeOf[T](), Dims: slices.Clone(dims), Data: data}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Values returns the backing slice of a.
func Values[T Element](a *NDArray) ([]T, error) {
	v, ok := a.Data.([]T)
	if !ok {
		return nil, fmt.Errorf("%w: array holds %v, not %v", ErrTypeMismatch, a.Type, ElementTypeOf[T]())
	}
	return v, nil
}

// At returns the element at idx.
func At[T Element](a *NDArray, idx ...uint64) (T, error) {
	var zero T
	v, err := Values[T](a)
	if err != nil {
		return zero, err
	}
	off, err := a.Offset(idx...)
	if err != nil {
		return zero, err
	}
	return v[off], nil
}

// Set stores x at idx.
func Set[T Element](a *NDArray, x T, idx ...uint64) error {
	v, err := Values[T](a)
	if err != nil {
		return err
	}
	off, err := a.Offset(idx...)
	if err != nil {
		return err
	}
	v[off] = x
	return nil
}

// Len returns the number of elements the dimensions describe.
func (a *NDArray) Len() uint64 {
	return product(a.Dims)
}

// Offset returns the linear column-major offset of idx.
func (a *NDArray) Offset(idx ...uint64) (uint64, error) {
	if len(idx) != len(a.Dims) {
		return 0, fmt.Errorf("%w: %d indices for %d dimensions", ErrShapeMismatch, len(idx), len(a.Dims))
	}
	var off, stride uint64 = 0, 1
	for i, x := range idx {
		if x >= a.Dims[i] {
			return 0, fmt.Errorf("%w: index %d of dimension %d is %d", ErrOutOfRange, x, i, a.Dims[i])
		}
		off += x * stride
		stride *= a.Dims[i]
	}
	return off, nil
}

// Validate checks that Data matches Type and holds exactly Len elements.
// Every extent must be at least 1.
func (a *NDArray) Validate() error {
	if !a.Type.Valid() {
		return fmt.Errorf("%w: %v", ErrTypeMismatch, a.Type)
	}
	if len(a.Dims) == 0 {
		return fmt.Errorf("%w: array has no dimensions", ErrShapeMismatch)
	}
	if slices.Contains(a.Dims, 0) {
		return fmt.Errorf("%w: zero extent in %v", ErrShapeMismatch, a.Dims)
	}
	var n int
	switch v := a.Data.(type) {
	case []float32:
		n = checkType(a.Type, Float32, len(v))
	case []float64:
		n = checkType(a.Type, Float64, len(v))
	case []complex64:
		n = checkType(a.Type, Complex64, len(v))
	case []complex128:
		n = checkType(a.Type, Complex128, len(v))
	default:
		n = -1
	}
	if n < 0 {
		return fmt.Errorf("%w: %v array backed by %T", ErrTypeMismatch, a.Type, a.Data)
	}
	if uint64(n) != a.Len() {
		return fmt.Errorf("%w: %d elements for dimensions %v", ErrShapeMismatch, n, a.Dims)
	}
	return nil
}

func checkType(have, want ElementType, n int) int {
	if have != want {
		return -1
	}
	return n
}

func product(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}

// storageShape is the HDF5 row shape of an array: its dimensions reversed.
func storageShape(dims []uint64) []uint64 {
	s := slices.Clone(dims)
	slices.Reverse(s)
	return s
}

// AppendArray pushes a onto the stack called name. The first append
// creates the stack; later appends must match its element type and
// dimensions exactly or fail with ErrSchemaMismatch, leaving the stack
// unchanged.
func (d *Dataset) AppendArray(name string, a *NDArray) error {
	if err := d.checkWrite(); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if name == streamGroup || name == headerName {
		return fmt.Errorf("%w: %q is reserved", ErrSchemaMismatch, name)
	}
	row := storageShape(a.Dims)

	ds, err := d.stack(name)
	switch {
	case errors.Is(err, ErrNotFound):
		dims := append([]uint64{0}, row...)
		maxDims := append([]uint64{0}, row...)
		chunks := append([]uint64{1}, row...)
		opts := append([]hdf5.DatasetOption{hdf5.WithMaxDims(maxDims...), hdf5.WithChunks(chunks...)}, d.createOptions()...)
		ds, err = d.group.CreateDatasetWithType(name, dims, a.Type.Datatype(), opts...)
		if err != nil {
			return writeFailed("creating array "+name, err)
		}
		d.log.Debugw("created array stack", "name", name, "type", a.Type, "dims", a.Dims)
	case err != nil:
		return err
	default:
		have, _ := elementTypeOf(ds.Datatype())
		if have != a.Type {
			return fmt.Errorf("%w: %s holds %v, appending %v", ErrSchemaMismatch, name, have, a.Type)
		}
		if !slices.Equal(ds.Shape()[1:], row) {
			return fmt.Errorf("%w: %s holds %v arrays, appending %v", ErrSchemaMismatch, name, storageShape(ds.Shape()[1:]), a.Dims)
		}
	}

	if err := ds.AppendValue(a.Data); err != nil {
		return writeFailed("appending to array "+name, err)
	}
	d.log.Debugw("appended array", "name", name, "depth", ds.Len())
	return nil
}

// stack opens the array stack called name.
func (d *Dataset) stack(name string) (*hdf5.Dataset, error) {
	if name == "" || !d.group.HasMember(name) {
		return nil, fmt.Errorf("%w: array %q", ErrNotFound, name)
	}
	ds, err := d.group.OpenDataset(name)
	if errors.Is(err, hdf5.ErrNotDataset) {
		return nil, fmt.Errorf("%w: %q is not an array", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	if _, ok := elementTypeOf(ds.Datatype()); !ok || ds.Rank() < 2 || !ds.Extendible() {
		return nil, fmt.Errorf("%w: %q is not an array stack", ErrSchemaMismatch, name)
	}
	return ds, nil
}

// ReadArray returns the array at position index of the stack called
// name. want must match the stored element type.
func (d *Dataset) ReadArray(name string, index uint64, want ElementType) (*NDArray, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	ds, err := d.stack(name)
	if err != nil {
		return nil, err
	}
	have, _ := elementTypeOf(ds.Datatype())
	if have != want {
		return nil, fmt.Errorf("%w: %s holds %v, requested %v", ErrTypeMismatch, name, have, want)
	}
	if index >= ds.Len() {
		return nil, fmt.Errorf("%w: %s[%d] of depth %d", ErrOutOfRange, name, index, ds.Len())
	}

	raw, err := ds.ReadRow(index)
	if err != nil {
		return nil, fmt.Errorf("reading %s[%d]: %w", name, index, err)
	}
	a := &NDArray{Type: have, Dims: storageShape(ds.Shape()[1:])}
	switch have {
	case Float32:
		a.Data, err = decodeRow[float32](ds, raw)
	case Float64:
		a.Data, err = decodeRow[float64](ds, raw)
	case Complex64:
		a.Data, err = decodeRow[complex64](ds, raw)
	case Complex128:
		a.Data, err = decodeRow[complex128](ds, raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s[%d]: %w", name, index, err)
	}
	return a, nil
}

func decodeRow[T Element](ds *hdf5.Dataset, raw []byte) ([]T, error) {
	var out []T
	err := ds.Decode(raw, &out)
	return out, err
}

// ReadArrayAs is ReadArray for a known Go element type. It returns the
// values and the array dimensions.
func ReadArrayAs[T Element](d *Dataset, name string, index uint64) ([]T, []uint64, error) {
	a, err := d.ReadArray(name, index, ElementTypeOf[T]())
	if err != nil {
		return nil, nil, err
	}
	v, err := Values[T](a)
	return v, a.Dims, err
}

// ArrayDepth returns the number of arrays in the stack called name.
func (d *Dataset) ArrayDepth(name string) (uint64, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	ds, err := d.stack(name)
	if err != nil {
		return 0, err
	}
	return ds.Len(), nil
}

// ArrayInfo describes an array stack.
type ArrayInfo struct {
	Name  string
	Type  ElementType
	Dims  []uint64
	Depth uint64
}

// Stat describes the stack called name without reading its arrays.
func (d *Dataset) Stat(name string) (ArrayInfo, error) {
	if err := d.check(); err != nil {
		return ArrayInfo{}, err
	}
	ds, err := d.stack(name)
	if err != nil {
		return ArrayInfo{}, err
	}
	t, _ := elementTypeOf(ds.Datatype())
	return ArrayInfo{
		Name:  name,
		Type:  t,
		Dims:  storageShape(ds.Shape()[1:]),
		Depth: ds.Len(),
	}, nil
}

// ArrayNames returns the names of the array stacks in storage order.
func (d *Dataset) ArrayNames() ([]string, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	var names []string
	for _, name := range d.group.Members() {
		if name == streamGroup || name == headerName {
			continue
		}
		if _, err := d.stack(name); err == nil {
			names = append(names, name)
		}
	}
	return names, nil
}
