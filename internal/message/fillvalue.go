package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// AllocTime controls when storage for a dataset is allocated.
type AllocTime uint8

const (
	AllocEarly       AllocTime = 1
	AllocLate        AllocTime = 2
	AllocIncremental AllocTime = 3
)

// FillTime controls when the fill value is written to new storage.
type FillTime uint8

const (
	FillOnAlloc FillTime = 0
	FillNever   FillTime = 1
	FillIfSet   FillTime = 2
)

// FillValue represents a version 3 fill value message (type 0x0005).
type FillValue struct {
	AllocTime AllocTime
	FillTime  FillTime
	Value     []byte // nil when no fill value is defined
}

func (m *FillValue) Type() Type { return TypeFillValue }

// NewFillValue returns a message without a user-defined fill value.
func NewFillValue(alloc AllocTime) *FillValue {
	return &FillValue{AllocTime: alloc, FillTime: FillIfSet}
}

// Encode appends the message body.
func (m *FillValue) Encode(e *binary.Encoder) {
	flags := uint8(m.AllocTime&0x03) | uint8(m.FillTime&0x03)<<2
	if m.Value != nil {
		flags |= 0x20
	}
	e.PutUint8(3)
	e.PutUint8(flags)
	if m.Value != nil {
		e.PutUint32(uint32(len(m.Value)))
		e.PutBytes(m.Value)
	}
}

func parseFillValue(data []byte, cfg binary.Config) (*FillValue, error) {
	d := binary.NewDecoder(data, cfg)
	version := d.Uint8()
	m := &FillValue{}
	switch version {
	case 1, 2:
		m.AllocTime = AllocTime(d.Uint8())
		m.FillTime = FillTime(d.Uint8())
		if d.Uint8() != 0 {
			n := int(d.Uint32())
			m.Value = append([]byte(nil), d.Bytes(n)...)
		}
	case 3:
		flags := d.Uint8()
		m.AllocTime = AllocTime(flags & 0x03)
		m.FillTime = FillTime((flags >> 2) & 0x03)
		if flags&0x20 != 0 {
			n := int(d.Uint32())
			m.Value = append([]byte(nil), d.Bytes(n)...)
		}
	default:
		return nil, fmt.Errorf("%w: fill value version %d", ErrUnsupported, version)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("fill value message: %w", err)
	}
	return m, nil
}
