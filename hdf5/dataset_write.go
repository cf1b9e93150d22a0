package hdf5

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
	"github.com/robert-malhotra/go-mrrd/internal/dtype"
	"github.com/robert-malhotra/go-mrrd/internal/filter"
	"github.com/robert-malhotra/go-mrrd/internal/layout"
	"github.com/robert-malhotra/go-mrrd/internal/message"
	"github.com/robert-malhotra/go-mrrd/internal/object"
)

// CreateDataset creates a dataset holding data, a value or a (nested)
// slice. The datatype and dimensions are inferred from the Go type.
func (g *Group) CreateDataset(name string, data any, opts ...DatasetOption) (*Dataset, error) {
	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if !val.IsValid() {
		return nil, fmt.Errorf("%w: nil data", ErrUnsupported)
	}

	dims, elemType := inferDimensionsAndType(val)
	dt, err := dtype.For(elemType)
	if err != nil {
		return nil, fmt.Errorf("creating datatype: %w", err)
	}
	ds, err := g.CreateDatasetWithType(name, dims, dt, opts...)
	if err != nil {
		return nil, err
	}
	if len(dims) > 0 && dims[0] == 0 {
		return ds, nil
	}
	if err := ds.Write(flatten(val, elemType).Interface()); err != nil {
		return nil, err
	}
	return ds, nil
}

// CreateDatasetWithType creates an empty dataset with explicit dimensions
// and datatype. Nil dims create a scalar dataset.
//
// A dataset whose maximum first dimension exceeds its current one is
// chunked with one row per chunk and grows with Append. Filters also
// select chunked storage; everything else is contiguous unless
// WithCompact is given.
func (g *Group) CreateDatasetWithType(name string, dims []uint64, dt *Datatype, opts ...DatasetOption) (*Dataset, error) {
	f := g.file
	if err := f.checkWritable(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	if g.HasMember(name) {
		return nil, fmt.Errorf("%w: %s", ErrExists, JoinPath(g.path, name))
	}
	if dt == nil || dt.Size == 0 {
		return nil, fmt.Errorf("%w: empty datatype", ErrUnsupported)
	}
	if hasVarLen(dt) && f.superblock.OffsetSize != 8 {
		return nil, fmt.Errorf("%w: variable-length data needs 8-byte offsets", ErrUnsupported)
	}

	options, err := newDatasetOptions(opts)
	if err != nil {
		return nil, err
	}

	space, err := newDataspace(dims, options.maxDims)
	if err != nil {
		return nil, err
	}
	pipeline := newPipeline(options, dt)
	lm, err := newLayout(space, dt, options, pipeline, f.superblock.OffsetSize)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", JoinPath(g.path, name), err)
	}

	msgs := object.NewDatasetHeader(space, dt, lm, pipeline)
	block, err := object.Encode(f.superblock.Config(), msgs, 0)
	if err != nil {
		return nil, err
	}
	addr := f.allocator.Alloc(uint64(len(block)))
	if err := f.writer.At(int64(addr)).WriteBytes(block); err != nil {
		return nil, fmt.Errorf("writing dataset header: %w", err)
	}
	if err := g.setLink(name, addr); err != nil {
		return nil, fmt.Errorf("adding link to parent: %w", err)
	}

	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, err
	}
	return f.newDataset(h, JoinPath(g.path, name), name, g)
}

func newDataspace(dims, maxDims []uint64) (*message.Dataspace, error) {
	if dims == nil {
		if maxDims != nil {
			return nil, fmt.Errorf("%w: scalar dataset with maximum dimensions", ErrUnsupported)
		}
		return message.NewScalarDataspace(), nil
	}
	if maxDims == nil {
		return message.NewDataspace(dims, nil), nil
	}
	if len(maxDims) != len(dims) {
		return nil, fmt.Errorf("%w: %d maximum dimensions for rank %d", ErrUnsupported, len(maxDims), len(dims))
	}
	limits := make([]uint64, len(dims))
	for i, m := range maxDims {
		switch {
		case m == 0:
			limits[i] = message.Unlimited
		case m < dims[i]:
			return nil, fmt.Errorf("%w: maximum %d below extent %d", ErrUnsupported, m, dims[i])
		default:
			limits[i] = m
		}
		if i > 0 && limits[i] != dims[i] {
			return nil, fmt.Errorf("%w: only the first dimension may grow", ErrUnsupported)
		}
	}
	return message.NewDataspace(dims, limits), nil
}

func newPipeline(o *datasetOptions, dt *message.Datatype) *message.FilterPipeline {
	fp := &message.FilterPipeline{}
	if o.shuffle {
		fp.Filters = append(fp.Filters, message.FilterInfo{
			ID:         message.FilterShuffle,
			ClientData: []uint32{dt.Size},
		})
	}
	if o.deflate > 0 {
		fp.Filters = append(fp.Filters, message.FilterInfo{
			ID:         message.FilterDeflate,
			ClientData: []uint32{uint32(o.deflate)},
		})
	}
	if o.fletcher32 {
		fp.Filters = append(fp.Filters, message.FilterInfo{ID: message.FilterFletcher32})
	}
	if len(fp.Filters) == 0 {
		return nil
	}
	return fp
}

func newLayout(space *message.Dataspace, dt *message.Datatype, o *datasetOptions, fp *message.FilterPipeline, offsetSize uint8) (*message.DataLayout, error) {
	extendible := space.Extendible(0)
	chunked := o.chunks != nil || extendible || fp != nil
	undef := binary.Undefined(int(offsetSize))

	if !chunked {
		if o.compact {
			return message.NewCompactLayout(make([]byte, space.NumElements()*uint64(dt.Size))), nil
		}
		lm := message.NewContiguousLayout(undef, space.NumElements()*uint64(dt.Size))
		return lm, nil
	}
	if o.compact {
		return nil, fmt.Errorf("%w: compact storage cannot be chunked or filtered", ErrUnsupported)
	}
	if space.IsScalar() {
		return nil, fmt.Errorf("%w: chunked scalar dataset", ErrUnsupported)
	}

	chunks := o.chunks
	if chunks == nil {
		chunks = append([]uint64{1}, space.Dims[1:]...)
		for i := 1; i < len(chunks); i++ {
			chunks[i] = max(chunks[i], 1)
		}
	}
	if len(chunks) != len(space.Dims) {
		return nil, fmt.Errorf("%w: %d chunk dimensions for rank %d", ErrUnsupported, len(chunks), len(space.Dims))
	}
	if extendible && chunks[0] != 1 {
		return nil, fmt.Errorf("%w: a dataset that grows needs one row per chunk", ErrUnsupported)
	}
	cd := make([]uint32, len(chunks))
	for i, c := range chunks {
		if c == 0 || c > 0xFFFFFFFF {
			return nil, fmt.Errorf("%w: chunk dimension %d", ErrUnsupported, c)
		}
		cd[i] = uint32(c)
	}
	lm := message.NewChunkedLayout(cd, dt.Size, message.ChunkIndexFixedArray)
	lm.IndexAddr = undef
	lm.PageBits = layout.MinPageBits
	return lm, nil
}

// Write stores the whole dataset. data is encoded with the dataset's
// datatype and must hold exactly NumElements elements.
func (d *Dataset) Write(data any) error {
	if hasVarLen(d.datatype) {
		return fmt.Errorf("%w: use AppendVarLen or WriteString for variable-length data", ErrUnsupported)
	}
	raw, err := dtype.Encode(d.datatype, data)
	if err != nil {
		return fmt.Errorf("encoding data: %w", err)
	}
	return d.WriteRaw(raw)
}

// WriteRaw stores already encoded bytes as the whole dataset.
func (d *Dataset) WriteRaw(raw []byte) error {
	if err := d.checkWrite(); err != nil {
		return err
	}
	want := d.NumElements() * uint64(d.datatype.Size)
	if uint64(len(raw)) != want {
		return fmt.Errorf("%w: %d bytes for %s, want %d", ErrRowSize, len(raw), d.path, want)
	}
	if want == 0 {
		return nil
	}

	f := d.file
	lm := *d.layoutMsg
	switch lm.Class {
	case message.LayoutCompact:
		lm.CompactData = append([]byte(nil), raw...)
	case message.LayoutContiguous:
		if f.reader.IsUndefinedOffset(lm.Address) {
			lm.Address = f.allocator.Alloc(want)
		}
		if err := f.writer.At(int64(lm.Address)).WriteBytes(raw); err != nil {
			return fmt.Errorf("writing data: %w", err)
		}
	case message.LayoutChunked:
		if err := d.writeChunks(&lm, raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: layout class %d", ErrUnsupported, lm.Class)
	}
	return d.updateHeader(d.dataspace, &lm)
}

// writeChunks replaces every chunk of the dataset.
func (d *Dataset) writeChunks(lm *message.DataLayout, raw []byte) error {
	chunkDims := make([]uint64, d.Rank())
	for i := range chunkDims {
		chunkDims[i] = uint64(lm.ChunkDims[i])
	}
	chunks, err := layout.SplitChunks(raw, d.dataspace.Dims, chunkDims, uint64(d.datatype.Size))
	if err != nil {
		return err
	}
	p, err := filter.NewPipeline(d.pipeline)
	if err != nil {
		return err
	}
	fa, err := d.fixedArray()
	if err != nil {
		return err
	}
	for _, e := range fa.Entries {
		if !d.file.reader.IsUndefinedOffset(e.Addr) {
			d.file.allocator.Free(e.Addr, e.Size)
		}
	}
	fa.Entries = fa.Entries[:0]
	for _, c := range chunks {
		e, err := layout.WriteChunk(d.file.writer, d.file.allocator, p, c)
		if err != nil {
			return err
		}
		fa.Entries = append(fa.Entries, e)
	}
	return d.writeIndex(lm, fa)
}

// Append adds one row along the first dimension. row holds the encoded
// elements of a single row.
func (d *Dataset) Append(row []byte) error {
	if err := d.checkWrite(); err != nil {
		return err
	}
	if !d.Extendible() {
		return fmt.Errorf("%w: %s", ErrNotExtendible, d.path)
	}
	rowDims := d.Shape()
	rowDims[0] = 1
	rowBytes := uint64(d.datatype.Size)
	for _, n := range rowDims {
		rowBytes *= n
	}
	if uint64(len(row)) != rowBytes {
		return fmt.Errorf("%w: %d bytes for %s, want %d", ErrRowSize, len(row), d.path, rowBytes)
	}
	space := *d.dataspace
	if space.MaxDims[0] != message.Unlimited && space.Dims[0] >= space.MaxDims[0] {
		return fmt.Errorf("%w: %s is at its maximum of %d rows", ErrNotExtendible, d.path, space.MaxDims[0])
	}

	lm := *d.layoutMsg
	chunkDims := make([]uint64, d.Rank())
	for i := range chunkDims {
		chunkDims[i] = uint64(lm.ChunkDims[i])
	}
	chunks, err := layout.SplitChunks(row, rowDims, chunkDims, uint64(d.datatype.Size))
	if err != nil {
		return err
	}
	p, err := filter.NewPipeline(d.pipeline)
	if err != nil {
		return err
	}
	fa, err := d.fixedArray()
	if err != nil {
		return err
	}

	// Rows present before the first append were never written.
	undef := binary.Undefined(int(d.file.superblock.OffsetSize))
	for uint64(len(fa.Entries)) < space.Dims[0]*uint64(len(chunks)) {
		fa.Entries = append(fa.Entries, layout.ChunkEntry{Addr: undef})
	}
	for _, c := range chunks {
		e, err := layout.WriteChunk(d.file.writer, d.file.allocator, p, c)
		if err != nil {
			return err
		}
		fa.Entries = append(fa.Entries, e)
	}
	if err := d.writeIndex(&lm, fa); err != nil {
		return err
	}

	space.Dims = append([]uint64(nil), space.Dims...)
	space.Dims[0]++
	return d.updateHeader(&space, &lm)
}

// AppendValue encodes v with the dataset's datatype and appends it as
// one row.
func (d *Dataset) AppendValue(v any) error {
	row, err := dtype.Encode(d.datatype, v)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}
	return d.Append(row)
}

func (d *Dataset) checkWrite() error {
	if err := d.check(); err != nil {
		return err
	}
	return d.file.checkWritable()
}

// fixedArray returns the chunk index, reading it on first use.
func (d *Dataset) fixedArray() (*layout.FixedArray, error) {
	if d.index != nil {
		return d.index, nil
	}
	lm := d.layoutMsg
	if lm.IndexType != message.ChunkIndexFixedArray {
		return nil, fmt.Errorf("%w: rewriting chunk index type %d", ErrUnsupported, lm.IndexType)
	}
	if d.file.reader.IsUndefinedOffset(lm.IndexAddr) {
		d.index = &layout.FixedArray{
			HeaderAddr: lm.IndexAddr,
			Filtered:   d.pipeline != nil && len(d.pipeline.Filters) > 0,
			ChunkBytes: lm.ChunkBytes(),
		}
		return d.index, nil
	}
	fa, err := layout.ReadFixedArray(d.file.reader, lm.IndexAddr, lm.ChunkBytes())
	if err != nil {
		return nil, err
	}
	d.index = fa
	return fa, nil
}

func (d *Dataset) writeIndex(lm *message.DataLayout, fa *layout.FixedArray) error {
	if err := fa.Write(d.file.writer, d.file.allocator); err != nil {
		return err
	}
	lm.IndexAddr = fa.HeaderAddr
	lm.PageBits = fa.PageBits
	return nil
}

// updateHeader rewrites the dataset header with a new dataspace and
// layout, relinking the parent if the header moved.
func (d *Dataset) updateHeader(space *message.Dataspace, lm *message.DataLayout) error {
	msgs := make([]message.Message, 0, len(d.header.Messages))
	for _, m := range d.header.Messages {
		switch m.Type() {
		case message.TypeDataspace:
			m = space
		case message.TypeDataLayout:
			m = lm
		}
		msgs = append(msgs, m)
	}

	addr, err := d.file.rewriteHeader(d.header, msgs, 0)
	if err != nil {
		return fmt.Errorf("updating dataset %s: %w", d.path, err)
	}
	moved := addr != d.header.Address
	h, err := object.Read(d.file.reader, addr)
	if err != nil {
		return err
	}
	if err := d.load(h); err != nil {
		return err
	}
	if moved {
		return d.parent.setLink(d.name, addr)
	}
	return nil
}

// hasVarLen reports whether dt holds variable-length data anywhere.
func hasVarLen(dt *message.Datatype) bool {
	switch dt.Class {
	case message.ClassVarLen:
		return true
	case message.ClassArray:
		return hasVarLen(dt.Base)
	case message.ClassCompound:
		for _, m := range dt.Members {
			if hasVarLen(m.Type) {
				return true
			}
		}
	}
	return false
}

// inferDimensionsAndType infers the dimensions and element type from a Go
// value. Nested slices give one dimension each; a non-slice is a scalar.
// Byte arrays and complex values are elements, not dimensions.
func inferDimensionsAndType(val reflect.Value) ([]uint64, reflect.Type) {
	var dims []uint64
	t := val.Type()
	current := val
	for t.Kind() == reflect.Slice {
		n := 0
		if current.IsValid() {
			n = current.Len()
		}
		dims = append(dims, uint64(n))
		t = t.Elem()
		if n > 0 {
			current = current.Index(0)
		} else {
			current = reflect.Value{}
		}
	}
	return dims, t
}

// flatten collects the leaves of nested slices into one slice of elem.
func flatten(val reflect.Value, elem reflect.Type) reflect.Value {
	if val.Type() == elem || val.Type().Elem() == elem {
		return val
	}
	out := reflect.MakeSlice(reflect.SliceOf(elem), 0, 0)
	for i := 0; i < val.Len(); i++ {
		out = reflect.AppendSlice(out, flatten(val.Index(i), elem))
	}
	return out
}
