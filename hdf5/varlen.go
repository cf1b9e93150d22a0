package hdf5

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
	"github.com/robert-malhotra/go-mrrd/internal/dtype"
	"github.com/robert-malhotra/go-mrrd/internal/heap"
	"github.com/robert-malhotra/go-mrrd/internal/message"
	"github.com/robert-malhotra/go-mrrd/internal/object"
)

// AppendVarLen appends one variable-length element to a rank 1 dataset of
// sequences. values is a slice encoded with the sequence's base type; an
// empty slice stores an empty sequence.
func (d *Dataset) AppendVarLen(values any) error {
	dt := d.datatype
	if dt.Class != message.ClassVarLen || dt.VarLenString || d.Rank() != 1 {
		return fmt.Errorf("%w: %s is not a one-dimensional sequence dataset", ErrUnsupported, d.path)
	}
	raw, err := dtype.Encode(dt.Base, values)
	if err != nil {
		return fmt.Errorf("encoding sequence: %w", err)
	}
	return d.appendVarLenRaw(raw, uint32(len(raw)/int(dt.Base.Size)))
}

func (d *Dataset) appendVarLenRaw(raw []byte, count uint32) error {
	if err := d.checkWrite(); err != nil {
		return err
	}
	if !d.Extendible() {
		return fmt.Errorf("%w: %s", ErrNotExtendible, d.path)
	}
	elem, err := d.file.varLenElement(raw, count)
	if err != nil {
		return err
	}
	return d.Append(elem)
}

// varLenElement stores raw in the global heap and returns the in-row
// element pointing at it. Empty data gets a null heap ID.
func (f *File) varLenElement(raw []byte, count uint32) ([]byte, error) {
	var id heap.ID
	if count > 0 {
		var err error
		if id, err = f.insertHeap(raw); err != nil {
			return nil, err
		}
	}
	e := binary.NewEncoder(f.superblock.Config())
	heap.EncodeVarLen(e, count, id)
	return e.Bytes(), nil
}

// ReadVarLenRaw returns the encoded base elements of sequence i and their
// count.
func (d *Dataset) ReadVarLenRaw(i uint64) ([]byte, uint32, error) {
	if d.datatype.Class != message.ClassVarLen {
		return nil, 0, fmt.Errorf("%w: %s is not variable-length", ErrUnsupported, d.path)
	}
	var elem []byte
	var err error
	if d.IsScalar() {
		if i != 0 {
			return nil, 0, fmt.Errorf("%w: element %d of a scalar", ErrOutOfRange, i)
		}
		elem, err = d.ReadRaw()
	} else {
		elem, err = d.ReadRow(i)
	}
	if err != nil {
		return nil, 0, err
	}
	return d.file.resolveVarLen(elem)
}

// ReadVarLen decodes sequence i into dest, a pointer to a slice.
func (d *Dataset) ReadVarLen(i uint64, dest any) error {
	raw, _, err := d.ReadVarLenRaw(i)
	if err != nil {
		return err
	}
	return dtype.Decode(d.datatype.Base, raw, dest)
}

func (f *File) resolveVarLen(elem []byte) ([]byte, uint32, error) {
	dec := binary.NewDecoder(elem, f.superblock.Config())
	count, id := heap.DecodeVarLen(dec)
	if err := dec.Err(); err != nil {
		return nil, 0, fmt.Errorf("decoding variable-length element: %w", err)
	}
	if id.IsNull() || count == 0 {
		return nil, 0, nil
	}
	c, err := f.collection(id.Collection)
	if err != nil {
		return nil, 0, err
	}
	data, err := c.Object(id.Index)
	if err != nil {
		return nil, 0, err
	}
	return data, count, nil
}

// WriteString stores s as a scalar variable-length UTF-8 string dataset
// called name. An existing dataset of that name is replaced.
func (g *Group) WriteString(name, s string) (*Dataset, error) {
	f := g.file
	if err := f.checkWritable(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	if f.superblock.OffsetSize != 8 {
		return nil, fmt.Errorf("%w: variable-length data needs 8-byte offsets", ErrUnsupported)
	}

	var old *Dataset
	if g.HasMember(name) {
		obj, err := g.child(name)
		if err != nil {
			return nil, err
		}
		var ok bool
		if old, ok = obj.(*Dataset); !ok {
			return nil, fmt.Errorf("%w: %s", ErrExists, JoinPath(g.path, name))
		}
	}

	elem, err := f.varLenElement([]byte(s), uint32(len(s)))
	if err != nil {
		return nil, err
	}
	msgs := object.NewDatasetHeader(
		message.NewScalarDataspace(),
		VarLenString(),
		message.NewCompactLayout(elem),
		nil,
	)
	block, err := object.Encode(f.superblock.Config(), msgs, 0)
	if err != nil {
		return nil, err
	}
	addr := f.allocator.Alloc(uint64(len(block)))
	if err := f.writer.At(int64(addr)).WriteBytes(block); err != nil {
		return nil, fmt.Errorf("writing dataset header: %w", err)
	}
	if err := g.setLink(name, addr); err != nil {
		return nil, err
	}

	path := JoinPath(g.path, name)
	if old != nil {
		// The old string stays in its heap collection.
		f.allocator.Free(old.header.Address, uint64(old.header.Size))
		old.removed = true
		delete(f.datasets, path)
	}
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, err
	}
	return f.newDataset(h, path, name, g)
}

// ReadString returns the value of a scalar string dataset, variable or
// fixed length.
func (d *Dataset) ReadString() (string, error) {
	strs, err := d.ReadStrings()
	if err != nil {
		return "", err
	}
	if len(strs) != 1 {
		return "", fmt.Errorf("%w: %s holds %d strings", ErrUnsupported, d.path, len(strs))
	}
	return strs[0], nil
}

// ReadStrings returns every element of a string dataset.
func (d *Dataset) ReadStrings() ([]string, error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	dt := d.datatype
	size := int(dt.Size)
	n := int(d.NumElements())
	if len(raw) < n*size {
		return nil, fmt.Errorf("%w: %s is truncated", ErrUnsupported, d.path)
	}

	out := make([]string, n)
	switch {
	case dt.Class == message.ClassVarLen && dt.VarLenString:
		for i := range out {
			data, _, err := d.file.resolveVarLen(raw[i*size : (i+1)*size])
			if err != nil {
				return nil, err
			}
			out[i] = string(data)
		}
	case dt.Class == message.ClassString:
		for i := range out {
			b := raw[i*size : (i+1)*size]
			if dt.Padding != message.PadSpacePad {
				if j := bytes.IndexByte(b, 0); j >= 0 {
					b = b[:j]
				}
			} else {
				b = bytes.TrimRight(b, " ")
			}
			out[i] = string(b)
		}
	default:
		return nil, fmt.Errorf("%w: %s holds %v, not strings", ErrUnsupported, d.path, dt)
	}
	return out, nil
}
