package object

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/go-mrrd/internal/binary"
	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// Object header signatures
var (
	SignatureV2           = []byte("OHDR")
	SignatureContinuation = []byte("OCHK")
)

// Errors
var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
)

// Header is a parsed object header.
type Header struct {
	Address uint64
	Flags   uint8

	// ChunkSize is the capacity of chunk 0 and Size the length of the whole
	// block, prefix and checksum included.
	ChunkSize int
	Size      int

	Messages []message.Message
}

// Read parses the object header at address.
func Read(r *binpkg.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	prefix, err := hr.ReadBytes(6)
	if err != nil {
		return nil, fmt.Errorf("reading object header at 0x%x: %w", address, err)
	}
	if !bytes.Equal(prefix[:4], SignatureV2) {
		return nil, fmt.Errorf("%w: no OHDR signature at 0x%x", ErrInvalidHeader, address)
	}
	if prefix[4] != 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, prefix[4])
	}

	h := &Header{Address: address, Flags: prefix[5]}
	if h.Flags&0x20 != 0 {
		hr.Skip(16) // access, modification, change and birth times
	}
	if h.Flags&0x10 != 0 {
		hr.Skip(4) // attribute phase change values
	}
	chunkSize, err := hr.ReadUintN(1 << (h.Flags & 0x03))
	if err != nil {
		return nil, err
	}
	h.ChunkSize = int(chunkSize)

	bodyStart := hr.Pos()
	h.Size = int(bodyStart-int64(address)) + h.ChunkSize + 4
	block, err := r.At(int64(address)).ReadBytes(h.Size)
	if err != nil {
		return nil, fmt.Errorf("reading object header at 0x%x: %w", address, err)
	}
	if err := verify(block); err != nil {
		return nil, fmt.Errorf("object header at 0x%x: %w", address, err)
	}

	body := block[bodyStart-int64(address) : len(block)-4]
	if err := h.parseMessages(r, body); err != nil {
		return nil, err
	}
	return h, nil
}

func verify(block []byte) error {
	n := len(block) - 4
	if binpkg.Lookup3Checksum(block[:n]) != binary.LittleEndian.Uint32(block[n:]) {
		return ErrChecksumMismatch
	}
	return nil
}

func (h *Header) parseMessages(r *binpkg.Reader, body []byte) error {
	cfg := r.Config()
	d := binpkg.NewDecoder(body, cfg)
	for d.Remaining() >= 4 {
		typ := message.Type(d.Uint8())
		size := int(d.Uint16())
		d.Skip(1) // message flags
		if h.Flags&0x04 != 0 {
			d.Skip(2) // creation order
		}
		data := d.Bytes(size)
		if d.Err() != nil {
			return fmt.Errorf("%w: truncated message at 0x%x", ErrInvalidHeader, h.Address)
		}

		switch typ {
		case message.TypeNIL:
			continue
		case message.TypeObjectHeaderContinuation:
			cd := binpkg.NewDecoder(data, cfg)
			addr, length := cd.Addr(), cd.Length()
			if err := h.readContinuation(r, addr, length); err != nil {
				return err
			}
			continue
		}

		msg, err := message.Parse(typ, data, cfg)
		if err != nil {
			return fmt.Errorf("object header at 0x%x: %w", h.Address, err)
		}
		h.Messages = append(h.Messages, msg)
	}
	return nil
}

func (h *Header) readContinuation(r *binpkg.Reader, addr, length uint64) error {
	block, err := r.At(int64(addr)).ReadBytes(int(length))
	if err != nil {
		return fmt.Errorf("reading continuation block at 0x%x: %w", addr, err)
	}
	if len(block) < 8 || !bytes.Equal(block[:4], SignatureContinuation) {
		return fmt.Errorf("%w: bad continuation block at 0x%x", ErrInvalidHeader, addr)
	}
	if err := verify(block); err != nil {
		return fmt.Errorf("continuation block at 0x%x: %w", addr, err)
	}
	return h.parseMessages(r, block[4:len(block)-4])
}

// Message returns the first message of the given type, or nil.
func (h *Header) Message(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// Dataspace returns the dataspace message, or nil for groups.
func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.Message(message.TypeDataspace).(*message.Dataspace)
	return m
}

// Datatype returns the datatype message.
func (h *Header) Datatype() *message.Datatype {
	m, _ := h.Message(message.TypeDatatype).(*message.Datatype)
	return m
}

// DataLayout returns the data layout message.
func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.Message(message.TypeDataLayout).(*message.DataLayout)
	return m
}

// FilterPipeline returns the filter pipeline message, or nil.
func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := h.Message(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

// Links returns the link messages of a group header in storage order.
func (h *Header) Links() []*message.Link {
	var links []*message.Link
	for _, msg := range h.Messages {
		if l, ok := msg.(*message.Link); ok {
			links = append(links, l)
		}
	}
	return links
}

// IsGroup reports whether the header describes a group.
func (h *Header) IsGroup() bool {
	return h.Message(message.TypeLinkInfo) != nil || h.Message(message.TypeSymbolTable) != nil
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.Dataspace() != nil && h.DataLayout() != nil
}
