package heap

import (
	"errors"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// Signature is the magic prefix of a global heap collection.
const Signature = "GCOL"

// MinCollectionSize is the smallest collection the writer allocates.
const MinCollectionSize = 4096

var (
	ErrInvalidCollection = errors.New("invalid global heap collection")
	ErrObjectNotFound    = errors.New("global heap object not found")
)

// ID references one object in a global heap collection.
type ID struct {
	Collection uint64
	Index      uint32
}

// IsNull reports whether the ID references nothing, as stored for empty
// variable-length elements.
func (id ID) IsNull() bool { return id.Collection == 0 && id.Index == 0 }

// IDSize returns the encoded size of an ID.
func IDSize(cfg binary.Config) int { return cfg.OffsetSize + 4 }

func headerSize(cfg binary.Config) uint64 { return uint64(8 + cfg.LengthSize) }

func objectHeaderSize(cfg binary.Config) uint64 { return uint64(8 + cfg.LengthSize) }

func pad8(n uint64) uint64 { return (n + 7) &^ 7 }

// Collection is a parsed global heap collection.
type Collection struct {
	Address uint64
	Size    uint64
	objects map[uint16][]byte
}

// ReadCollection reads and parses the collection at addr.
func ReadCollection(r io.ReaderAt, cfg binary.Config, addr uint64) (*Collection, error) {
	if addr == 0 || addr == binary.Undefined(cfg.OffsetSize) {
		return nil, fmt.Errorf("%w: address 0x%x", ErrInvalidCollection, addr)
	}
	br := binary.NewReader(r, cfg).At(int64(addr))
	head, err := br.ReadBytes(int(headerSize(cfg)))
	if err != nil {
		return nil, fmt.Errorf("reading global heap at 0x%x: %w", addr, err)
	}
	d := binary.NewDecoder(head, cfg)
	if string(d.Bytes(4)) != Signature {
		return nil, fmt.Errorf("%w: bad signature at 0x%x", ErrInvalidCollection, addr)
	}
	if v := d.Uint8(); v != 1 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidCollection, v)
	}
	d.Skip(3)
	size := d.Length()
	if size < headerSize(cfg) {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidCollection, size)
	}

	body, err := br.ReadBytes(int(size - headerSize(cfg)))
	if err != nil {
		return nil, fmt.Errorf("reading global heap at 0x%x: %w", addr, err)
	}
	c := &Collection{Address: addr, Size: size, objects: make(map[uint16][]byte)}
	d = binary.NewDecoder(body, cfg)
	for uint64(d.Remaining()) >= objectHeaderSize(cfg) {
		index := d.Uint16()
		if index == 0 {
			break
		}
		d.Skip(6)
		n := d.Length()
		if n > uint64(d.Remaining()) {
			return nil, fmt.Errorf("%w: object %d overruns collection", ErrInvalidCollection, index)
		}
		c.objects[index] = d.Bytes(int(n))
		d.Skip(int(pad8(n) - n))
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCollection, err)
	}
	return c, nil
}

// Object returns a copy of the object at index.
func (c *Collection) Object(index uint32) ([]byte, error) {
	data, ok := c.objects[uint16(index)]
	if !ok || index > 0xffff {
		return nil, fmt.Errorf("%w: index %d in collection 0x%x", ErrObjectNotFound, index, c.Address)
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of objects in the collection.
func (c *Collection) Len() int { return len(c.objects) }

// EncodeVarLen appends a variable-length element: the sequence length
// followed by the heap ID of the contents.
func EncodeVarLen(e *binary.Encoder, length uint32, id ID) {
	e.PutUint32(length)
	e.PutOffset(id.Collection)
	e.PutUint32(id.Index)
}

// DecodeVarLen reads an element written by EncodeVarLen.
func DecodeVarLen(d *binary.Decoder) (uint32, ID) {
	length := d.Uint32()
	id := ID{Collection: d.Addr()}
	id.Index = d.Uint32()
	return length, id
}
