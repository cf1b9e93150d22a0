package message

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// DatatypeClass represents the class of an HDF5 datatype.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0  // Integers
	ClassFloatPoint DatatypeClass = 1  // Floating-point
	ClassString     DatatypeClass = 3  // Fixed-length strings
	ClassCompound   DatatypeClass = 6  // Structs
	ClassVarLen     DatatypeClass = 9  // Variable-length sequences and strings
	ClassArray      DatatypeClass = 10 // Fixed-size arrays
)

func (c DatatypeClass) String() string {
	switch c {
	case ClassFixedPoint:
		return "integer"
	case ClassFloatPoint:
		return "float"
	case ClassString:
		return "string"
	case ClassCompound:
		return "compound"
	case ClassVarLen:
		return "vlen"
	case ClassArray:
		return "array"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ByteOrder represents the byte order of numeric types.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// StringPadding represents how strings are terminated.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

// CharacterSet represents the character encoding of a string.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// VarLenSize is the in-row size of a variable-length element with 8-byte
// offsets: a 4-byte element count followed by a global heap ID.
const VarLenSize = 4 + 8 + 4

// Datatype represents a datatype message (type 0x0003).
type Datatype struct {
	Class     DatatypeClass
	Size      uint32
	ByteOrder ByteOrder

	// Fixed-point
	Signed bool

	// String and variable-length string
	Padding StringPadding
	Charset CharacterSet

	// Compound
	Members []CompoundMember

	// Array and variable-length
	ArrayDims    []uint32
	Base         *Datatype
	VarLenString bool
}

// CompoundMember is one field of a compound datatype.
type CompoundMember struct {
	Name   string
	Offset uint32
	Type   *Datatype
}

func (m *Datatype) Type() Type { return TypeDatatype }

// NewIntDatatype returns a little-endian integer type of size bytes.
func NewIntDatatype(size uint32, signed bool) *Datatype {
	return &Datatype{Class: ClassFixedPoint, Size: size, Signed: signed}
}

// NewFloatDatatype returns a little-endian IEEE float type of 4 or 8 bytes.
func NewFloatDatatype(size uint32) *Datatype {
	return &Datatype{Class: ClassFloatPoint, Size: size}
}

// NewCompoundDatatype returns a compound type. Members must not overlap and
// must fit in size.
func NewCompoundDatatype(size uint32, members []CompoundMember) *Datatype {
	return &Datatype{Class: ClassCompound, Size: size, Members: members}
}

// NewArrayDatatype returns a fixed-size array of base.
func NewArrayDatatype(dims []uint32, base *Datatype) *Datatype {
	size := base.Size
	for _, d := range dims {
		size *= d
	}
	return &Datatype{Class: ClassArray, Size: size, ArrayDims: dims, Base: base}
}

// NewVarLenDatatype returns a variable-length sequence of base.
func NewVarLenDatatype(base *Datatype) *Datatype {
	return &Datatype{Class: ClassVarLen, Size: VarLenSize, Base: base}
}

// NewVarLenStringDatatype returns a variable-length null-terminated string.
func NewVarLenStringDatatype(charset CharacterSet) *Datatype {
	return &Datatype{
		Class:        ClassVarLen,
		Size:         VarLenSize,
		VarLenString: true,
		Charset:      charset,
		Base:         NewIntDatatype(1, false),
	}
}

// Member returns the compound member with the given name.
func (m *Datatype) Member(name string) (CompoundMember, bool) {
	for _, mem := range m.Members {
		if mem.Name == name {
			return mem, true
		}
	}
	return CompoundMember{}, false
}

// Equal reports whether two datatypes describe the same memory layout.
func (m *Datatype) Equal(o *Datatype) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Class != o.Class || m.Size != o.Size || m.ByteOrder != o.ByteOrder {
		return false
	}
	switch m.Class {
	case ClassFixedPoint:
		return m.Signed == o.Signed
	case ClassString:
		return m.Padding == o.Padding && m.Charset == o.Charset
	case ClassCompound:
		if len(m.Members) != len(o.Members) {
			return false
		}
		for i := range m.Members {
			a, b := m.Members[i], o.Members[i]
			if a.Name != b.Name || a.Offset != b.Offset || !a.Type.Equal(b.Type) {
				return false
			}
		}
		return true
	case ClassArray:
		if len(m.ArrayDims) != len(o.ArrayDims) {
			return false
		}
		for i := range m.ArrayDims {
			if m.ArrayDims[i] != o.ArrayDims[i] {
				return false
			}
		}
		return m.Base.Equal(o.Base)
	case ClassVarLen:
		return m.VarLenString == o.VarLenString && m.Base.Equal(o.Base)
	}
	return true
}

// String returns a short description such as "compound{real:float32,imag:float32}".
func (m *Datatype) String() string {
	switch m.Class {
	case ClassFixedPoint:
		if m.Signed {
			return fmt.Sprintf("int%d", m.Size*8)
		}
		return fmt.Sprintf("uint%d", m.Size*8)
	case ClassFloatPoint:
		return fmt.Sprintf("float%d", m.Size*8)
	case ClassString:
		return fmt.Sprintf("string[%d]", m.Size)
	case ClassCompound:
		parts := make([]string, len(m.Members))
		for i, mem := range m.Members {
			parts[i] = mem.Name + ":" + mem.Type.String()
		}
		return "compound{" + strings.Join(parts, ",") + "}"
	case ClassArray:
		return fmt.Sprintf("%s%v", m.Base, m.ArrayDims)
	case ClassVarLen:
		if m.VarLenString {
			return "vlen string"
		}
		return "vlen " + m.Base.String()
	}
	return m.Class.String()
}

func (m *Datatype) version() uint8 {
	switch m.Class {
	case ClassCompound, ClassArray:
		return 3
	}
	return 1
}

func (m *Datatype) classBits() uint32 {
	var b uint32
	switch m.Class {
	case ClassFixedPoint:
		b = uint32(m.ByteOrder)
		if m.Signed {
			b |= 0x08
		}
	case ClassFloatPoint:
		// Implied leading mantissa bit; sign bit is the most significant.
		b = uint32(m.ByteOrder) | 0x20 | (m.Size*8-1)<<8
	case ClassString:
		b = uint32(m.Padding) | uint32(m.Charset)<<4
	case ClassCompound:
		b = uint32(len(m.Members))
	case ClassVarLen:
		if m.VarLenString {
			b = 1 | uint32(m.Padding)<<4 | uint32(m.Charset)<<8
		}
	}
	return b
}

// Encode appends the datatype message body.
func (m *Datatype) Encode(e *binary.Encoder) {
	e.PutUint8(uint8(m.Class) | m.version()<<4)
	e.PutUintN(uint64(m.classBits()), 3)
	e.PutUint32(m.Size)

	switch m.Class {
	case ClassFixedPoint:
		e.PutUint16(0)
		e.PutUint16(uint16(m.Size * 8))
	case ClassFloatPoint:
		expLoc, expSize, mantSize, bias := uint8(23), uint8(8), uint8(23), uint32(127)
		if m.Size == 8 {
			expLoc, expSize, mantSize, bias = 52, 11, 52, 1023
		}
		e.PutUint16(0)
		e.PutUint16(uint16(m.Size * 8))
		e.PutUint8(expLoc)
		e.PutUint8(expSize)
		e.PutUint8(0)
		e.PutUint8(mantSize)
		e.PutUint32(bias)
	case ClassCompound:
		width := limitEncSize(uint64(m.Size))
		for _, mem := range m.Members {
			e.PutBytes([]byte(mem.Name))
			e.PutUint8(0)
			e.PutUintN(uint64(mem.Offset), width)
			mem.Type.Encode(e)
		}
	case ClassArray:
		e.PutUint8(uint8(len(m.ArrayDims)))
		for _, d := range m.ArrayDims {
			e.PutUint32(d)
		}
		m.Base.Encode(e)
	case ClassVarLen:
		m.Base.Encode(e)
	}
}

// limitEncSize is the number of bytes needed to hold offsets below n.
func limitEncSize(n uint64) int {
	if n == 0 {
		return 1
	}
	return (bits.Len64(n)-1)/8 + 1
}

func parseDatatype(d *binary.Decoder) (*Datatype, int, error) {
	start := d.Offset()
	head := d.Uint8()
	classBits := uint32(d.UintN(3))
	size := d.Uint32()
	if err := d.Err(); err != nil {
		return nil, 0, fmt.Errorf("datatype message: %w", err)
	}

	dt := &Datatype{Class: DatatypeClass(head & 0x0F), Size: size}
	version := head >> 4

	switch dt.Class {
	case ClassFixedPoint:
		dt.ByteOrder = ByteOrder(classBits & 0x01)
		dt.Signed = classBits&0x08 != 0
		d.Skip(4)
	case ClassFloatPoint:
		dt.ByteOrder = ByteOrder(classBits & 0x01)
		d.Skip(12)
	case ClassString:
		dt.Padding = StringPadding(classBits & 0x0F)
		dt.Charset = CharacterSet((classBits >> 4) & 0x0F)
	case ClassCompound:
		n := int(classBits & 0xFFFF)
		for i := 0; i < n; i++ {
			mem, err := parseCompoundMember(d, version, size)
			if err != nil {
				return nil, 0, err
			}
			dt.Members = append(dt.Members, mem)
		}
	case ClassArray:
		rank := int(d.Uint8())
		if version < 3 {
			d.Skip(3)
		}
		dt.ArrayDims = make([]uint32, rank)
		for i := range dt.ArrayDims {
			dt.ArrayDims[i] = d.Uint32()
		}
		if version < 3 {
			d.Skip(4 * rank) // permutation indices
		}
		base, _, err := parseDatatype(d)
		if err != nil {
			return nil, 0, err
		}
		dt.Base = base
	case ClassVarLen:
		dt.VarLenString = classBits&0x0F == 1
		dt.Padding = StringPadding((classBits >> 4) & 0x0F)
		dt.Charset = CharacterSet((classBits >> 8) & 0x0F)
		base, _, err := parseDatatype(d)
		if err != nil {
			return nil, 0, err
		}
		dt.Base = base
	default:
		return nil, 0, fmt.Errorf("%w: datatype class %s", ErrUnsupported, dt.Class)
	}

	if err := d.Err(); err != nil {
		return nil, 0, fmt.Errorf("datatype message: %w", err)
	}
	return dt, d.Offset() - start, nil
}

func parseCompoundMember(d *binary.Decoder, version uint8, compoundSize uint32) (CompoundMember, error) {
	var name []byte
	for {
		c := d.Uint8()
		if d.Err() != nil {
			return CompoundMember{}, fmt.Errorf("compound member name: %w", d.Err())
		}
		if c == 0 {
			break
		}
		name = append(name, c)
	}

	mem := CompoundMember{Name: string(name)}
	switch version {
	case 1, 2:
		// Names are padded with nulls to a multiple of 8 bytes.
		if pad := (8 - (len(name)+1)%8) % 8; pad > 0 {
			d.Skip(pad)
		}
		mem.Offset = d.Uint32()
		if version == 1 {
			d.Skip(1 + 3 + 4 + 4 + 16) // dimensionality, reserved, permutation, reserved, dims
		}
	case 3:
		mem.Offset = uint32(d.UintN(limitEncSize(uint64(compoundSize))))
	default:
		return CompoundMember{}, fmt.Errorf("%w: compound version %d", ErrUnsupported, version)
	}

	typ, _, err := parseDatatype(d)
	if err != nil {
		return CompoundMember{}, fmt.Errorf("compound member %q: %w", mem.Name, err)
	}
	mem.Type = typ
	return mem, nil
}
