package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// Unlimited is the maximum extent of a dimension that can grow without bound.
const Unlimited = ^uint64(0)

// DataspaceKind distinguishes scalar, simple and null dataspaces.
type DataspaceKind uint8

const (
	DataspaceScalar DataspaceKind = 0
	DataspaceSimple DataspaceKind = 1
	DataspaceNull   DataspaceKind = 2
)

// Dataspace represents a dataspace message (type 0x0001).
type Dataspace struct {
	Kind    DataspaceKind
	Dims    []uint64
	MaxDims []uint64 // nil when equal to Dims
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NewDataspace creates a simple dataspace. maxDims may be nil; use
// Unlimited for a dimension that can grow.
func NewDataspace(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{
		Kind:    DataspaceSimple,
		Dims:    append([]uint64(nil), dims...),
		MaxDims: append([]uint64(nil), maxDims...),
	}
}

// NewScalarDataspace creates a dataspace holding exactly one element.
func NewScalarDataspace() *Dataspace {
	return &Dataspace{Kind: DataspaceScalar}
}

// NumElements returns the number of elements the dataspace describes.
func (m *Dataspace) NumElements() uint64 {
	switch m.Kind {
	case DataspaceScalar:
		return 1
	case DataspaceNull:
		return 0
	}
	n := uint64(1)
	for _, d := range m.Dims {
		n *= d
	}
	return n
}

// IsScalar reports whether the dataspace is scalar.
func (m *Dataspace) IsScalar() bool { return m.Kind == DataspaceScalar }

// Extendible reports whether dimension i may grow past its current extent.
func (m *Dataspace) Extendible(i int) bool {
	return i < len(m.MaxDims) && m.MaxDims[i] > m.Dims[i]
}

// Encode writes a version 2 dataspace message.
func (m *Dataspace) Encode(e *binary.Encoder) {
	e.PutUint8(2)
	e.PutUint8(uint8(len(m.Dims)))
	var flags uint8
	if len(m.MaxDims) > 0 {
		flags |= 0x01
	}
	e.PutUint8(flags)
	e.PutUint8(uint8(m.Kind))
	for _, d := range m.Dims {
		e.PutLength(d)
	}
	for _, d := range m.MaxDims {
		if d == Unlimited {
			e.PutUintN(binary.Undefined(e.Config().LengthSize), e.Config().LengthSize)
			continue
		}
		e.PutLength(d)
	}
}

func parseDataspace(data []byte, cfg binary.Config) (*Dataspace, error) {
	d := binary.NewDecoder(data, cfg)
	version := d.Uint8()
	rank := int(d.Uint8())
	flags := d.Uint8()

	ds := &Dataspace{Kind: DataspaceSimple}
	switch version {
	case 1:
		d.Skip(5) // reserved
		if rank == 0 {
			ds.Kind = DataspaceScalar
		}
	case 2:
		ds.Kind = DataspaceKind(d.Uint8())
	default:
		return nil, fmt.Errorf("%w: dataspace version %d", ErrUnsupported, version)
	}

	ds.Dims = make([]uint64, rank)
	for i := range ds.Dims {
		ds.Dims[i] = d.Length()
	}
	if flags&0x01 != 0 {
		ds.MaxDims = make([]uint64, rank)
		for i := range ds.MaxDims {
			v := d.Length()
			if v == binary.Undefined(cfg.LengthSize) {
				v = Unlimited
			}
			ds.MaxDims[i] = v
		}
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("dataspace message: %w", err)
	}
	return ds, nil
}
