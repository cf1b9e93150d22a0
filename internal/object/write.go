package object

import (
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/go-mrrd/internal/binary"
	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// MinGroupChunkSize is the smallest chunk used for group headers, matching
// what h5py writes.
const MinGroupChunkSize = 120

// ErrNoRoom is returned by EncodeChunk when the messages do not fit.
var ErrNoRoom = errors.New("messages do not fit in object header chunk")

const nilMessageHeader = 4

type encodedMessage struct {
	typ   message.Type
	flags uint8
	body  []byte
}

func encodeMessages(cfg binpkg.Config, msgs []message.Message) ([]encodedMessage, int, error) {
	out := make([]encodedMessage, 0, len(msgs))
	total := 0
	for _, m := range msgs {
		e := binpkg.NewEncoder(cfg)
		m.Encode(e)
		if e.Len() > 0xFFFF {
			return nil, 0, fmt.Errorf("%w: %v message is %d bytes", ErrInvalidHeader, m.Type(), e.Len())
		}
		var flags uint8
		if m.Type() == message.TypeDatatype {
			flags = 0x01 // constant
		}
		out = append(out, encodedMessage{typ: m.Type(), flags: flags, body: e.Bytes()})
		total += nilMessageHeader + e.Len()
	}
	return out, total, nil
}

// MessagesSize returns the number of chunk bytes msgs occupy.
func MessagesSize(cfg binpkg.Config, msgs []message.Message) (int, error) {
	_, n, err := encodeMessages(cfg, msgs)
	return n, err
}

// Encode returns a header block for msgs whose chunk holds at least
// minChunk bytes. Unused room is filled with a NIL message.
func Encode(cfg binpkg.Config, msgs []message.Message, minChunk int) ([]byte, error) {
	enc, size, err := encodeMessages(cfg, msgs)
	if err != nil {
		return nil, err
	}
	chunk := size
	if chunk < minChunk {
		chunk = minChunk
	}
	if gap := chunk - size; gap > 0 && gap < nilMessageHeader {
		chunk = size + nilMessageHeader
	}
	return build(cfg, enc, size, chunk), nil
}

// EncodeChunk returns a header block whose chunk is exactly chunkSize bytes,
// so it can overwrite an existing header of that size.
func EncodeChunk(cfg binpkg.Config, msgs []message.Message, chunkSize int) ([]byte, error) {
	enc, size, err := encodeMessages(cfg, msgs)
	if err != nil {
		return nil, err
	}
	if gap := chunkSize - size; gap < 0 || (gap > 0 && gap < nilMessageHeader) {
		return nil, ErrNoRoom
	}
	return build(cfg, enc, size, chunkSize), nil
}

func build(cfg binpkg.Config, msgs []encodedMessage, size, chunk int) []byte {
	width := chunkSizeFieldBytes(chunk)
	flags := uint8(0)
	switch width {
	case 2:
		flags = 1
	case 4:
		flags = 2
	case 8:
		flags = 3
	}

	e := binpkg.NewEncoder(cfg)
	e.PutBytes(SignatureV2)
	e.PutUint8(2)
	e.PutUint8(flags)
	e.PutUintN(uint64(chunk), width)
	for _, m := range msgs {
		e.PutUint8(uint8(m.typ))
		e.PutUint16(uint16(len(m.body)))
		e.PutUint8(m.flags)
		e.PutBytes(m.body)
	}
	if pad := chunk - size; pad > 0 {
		e.PutUint8(uint8(message.TypeNIL))
		e.PutUint16(uint16(pad - nilMessageHeader))
		e.PutUint8(0)
		e.PutZeros(pad - nilMessageHeader)
	}
	e.PutChecksum()
	return e.Bytes()
}

func chunkSizeFieldBytes(size int) int {
	switch {
	case size <= 0xFF:
		return 1
	case size <= 0xFFFF:
		return 2
	case size <= 0xFFFFFFFF:
		return 4
	}
	return 8
}

// Fits reports whether msgs can be rewritten into the header's existing chunk.
func (h *Header) Fits(cfg binpkg.Config, msgs []message.Message) bool {
	size, err := MessagesSize(cfg, msgs)
	if err != nil {
		return false
	}
	gap := h.ChunkSize - size
	return gap == 0 || gap >= nilMessageHeader
}

// NewGroupHeader returns the messages of a group with compact link storage.
func NewGroupHeader(links []*message.Link) []message.Message {
	msgs := make([]message.Message, 0, len(links)+2)
	msgs = append(msgs, message.NewLinkInfo(), message.NewGroupInfo())
	for _, l := range links {
		msgs = append(msgs, l)
	}
	return msgs
}

// NewDatasetHeader returns the messages of a dataset. pipeline may be nil.
func NewDatasetHeader(ds *message.Dataspace, dt *message.Datatype, layout *message.DataLayout, pipeline *message.FilterPipeline) []message.Message {
	alloc := message.AllocLate
	if layout.Class == message.LayoutChunked {
		alloc = message.AllocIncremental
	}
	msgs := []message.Message{ds, dt, message.NewFillValue(alloc), layout}
	if pipeline != nil && len(pipeline.Filters) > 0 {
		msgs = append(msgs, pipeline)
	}
	return msgs
}
