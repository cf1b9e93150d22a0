package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// LinkType represents the type of a link.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link represents a link message (type 0x0006). Only hard links are
// written; soft and external links are parsed so they can be reported.
type Link struct {
	LinkType LinkType
	Name     string

	// Hard link target
	ObjectAddress uint64

	// Soft or external link value, kept raw.
	Value []byte
}

func (m *Link) Type() Type { return TypeLink }

// NewHardLink returns a hard link to the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{LinkType: LinkTypeHard, Name: name, ObjectAddress: addr}
}

// IsHard reports whether the link points at an object header address.
func (m *Link) IsHard() bool { return m.LinkType == LinkTypeHard }

// Encode writes a version 1 link message with a UTF-8 name.
func (m *Link) Encode(e *binary.Encoder) {
	width := 0
	switch n := len(m.Name); {
	case n <= 0xFF:
		width = 0
	case n <= 0xFFFF:
		width = 1
	default:
		width = 2
	}
	flags := uint8(width) | 0x10 // charset field present
	if m.LinkType != LinkTypeHard {
		flags |= 0x08
	}

	e.PutUint8(1)
	e.PutUint8(flags)
	if m.LinkType != LinkTypeHard {
		e.PutUint8(uint8(m.LinkType))
	}
	e.PutUint8(uint8(CharsetUTF8))
	e.PutUintN(uint64(len(m.Name)), 1<<width)
	e.PutBytes([]byte(m.Name))
	if m.LinkType == LinkTypeHard {
		e.PutOffset(m.ObjectAddress)
		return
	}
	e.PutUint16(uint16(len(m.Value)))
	e.PutBytes(m.Value)
}

func parseLink(data []byte, cfg binary.Config) (*Link, error) {
	d := binary.NewDecoder(data, cfg)
	if v := d.Uint8(); v != 1 {
		return nil, fmt.Errorf("%w: link version %d", ErrUnsupported, v)
	}
	flags := d.Uint8()

	m := &Link{}
	if flags&0x08 != 0 {
		m.LinkType = LinkType(d.Uint8())
	}
	if flags&0x04 != 0 {
		d.Skip(8) // creation order
	}
	if flags&0x10 != 0 {
		d.Skip(1) // charset
	}
	nameLen := int(d.UintN(1 << (flags & 0x03)))
	m.Name = string(d.Bytes(nameLen))

	switch m.LinkType {
	case LinkTypeHard:
		m.ObjectAddress = d.Addr()
	default:
		n := int(d.Uint16())
		m.Value = append([]byte(nil), d.Bytes(n)...)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("link message: %w", err)
	}
	return m, nil
}

// LinkInfo represents a link info message (type 0x0002). Groups written
// here keep their links in the object header, so the fractal heap and name
// index addresses are undefined.
type LinkInfo struct {
	FractalHeapAddr uint64
	NameIndexAddr   uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// NewLinkInfo returns link info for compact link storage.
func NewLinkInfo() *LinkInfo {
	return &LinkInfo{FractalHeapAddr: binary.Undefined(8), NameIndexAddr: binary.Undefined(8)}
}

// Compact reports whether links are stored in the object header.
func (m *LinkInfo) Compact() bool {
	return m.FractalHeapAddr == binary.Undefined(8)
}

// Encode appends the message body.
func (m *LinkInfo) Encode(e *binary.Encoder) {
	e.PutUint8(0)
	e.PutUint8(0)
	e.PutOffset(m.FractalHeapAddr)
	e.PutOffset(m.NameIndexAddr)
}

func parseLinkInfo(data []byte, cfg binary.Config) (*LinkInfo, error) {
	d := binary.NewDecoder(data, cfg)
	d.Skip(1)
	flags := d.Uint8()
	if flags&0x01 != 0 {
		d.Skip(8) // max creation index
	}
	m := &LinkInfo{FractalHeapAddr: d.Addr(), NameIndexAddr: d.Addr()}
	if cfg.OffsetSize != 8 {
		// Normalise so Compact works for any offset width.
		if m.FractalHeapAddr == binary.Undefined(cfg.OffsetSize) {
			m.FractalHeapAddr = binary.Undefined(8)
		}
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("link info message: %w", err)
	}
	return m, nil
}

// GroupInfo represents a group info message (type 0x000A) with default
// link storage thresholds.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

// NewGroupInfo returns a group info message.
func NewGroupInfo() *GroupInfo { return &GroupInfo{} }

// Encode appends the message body.
func (m *GroupInfo) Encode(e *binary.Encoder) {
	e.PutUint8(0)
	e.PutUint8(0)
}
