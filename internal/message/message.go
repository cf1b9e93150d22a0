package message

import (
	"errors"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// Type represents an HDF5 header message type.
type Type uint16

// Header message types
const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeDataLayout               Type = 0x0008
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
)

// ErrUnsupported is returned for message versions or variants the parser
// does not handle.
var ErrUnsupported = errors.New("unsupported message")

// Message is implemented by every header message.
type Message interface {
	Type() Type
	// Encode appends the message body to e.
	Encode(e *binary.Encoder)
}

// EncodedSize returns the length of m's encoded body.
func EncodedSize(m Message, cfg binary.Config) int {
	e := binary.NewEncoder(cfg)
	m.Encode(e)
	return e.Len()
}

// Parse decodes a message body of the given type.
func Parse(typ Type, data []byte, cfg binary.Config) (Message, error) {
	switch typ {
	case TypeDataspace:
		return parseDataspace(data, cfg)
	case TypeDatatype:
		dt, _, err := parseDatatype(binary.NewDecoder(data, cfg))
		return dt, err
	case TypeDataLayout:
		return parseDataLayout(data, cfg)
	case TypeFilterPipeline:
		return parseFilterPipeline(data, cfg)
	case TypeFillValue:
		return parseFillValue(data, cfg)
	case TypeLink:
		return parseLink(data, cfg)
	case TypeLinkInfo:
		return parseLinkInfo(data, cfg)
	case TypeGroupInfo:
		return &GroupInfo{}, nil
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
}

// Unknown preserves a message the parser does not interpret. It re-encodes
// to its original bytes, so rewriting a header keeps it intact.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type               { return m.typ }
func (m *Unknown) Data() []byte             { return m.data }
func (m *Unknown) Encode(e *binary.Encoder) { e.PutBytes(m.data) }
