package heap

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/robert-malhotra/go-mrrd/internal/alloc"
	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

type memFile struct {
	buf []byte
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	return copy(m.buf[off:], p), nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, errors.New("eof")
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, errors.New("short read")
	}
	return n, nil
}

func newTestWriter() (*memFile, *Writer) {
	f := &memFile{}
	cfg := binary.DefaultConfig()
	return f, NewWriter(binary.NewWriter(f, cfg), alloc.New(48))
}

func TestInsertAndRead(t *testing.T) {
	f, w := newTestWriter()
	cfg := binary.DefaultConfig()

	objects := [][]byte{
		[]byte("<ismrmrdHeader/>"),
		{},
		bytes.Repeat([]byte{0xab}, 13),
	}
	var ids []ID
	for _, obj := range objects {
		id, err := w.Insert(obj)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, id)
	}

	for i, id := range ids {
		if id.Collection != ids[0].Collection {
			t.Errorf("object %d in collection 0x%x, want 0x%x", i, id.Collection, ids[0].Collection)
		}
		if id.Index != uint32(i+1) {
			t.Errorf("object %d has index %d", i, id.Index)
		}
	}

	c, err := ReadCollection(f, cfg, ids[0].Collection)
	if err != nil {
		t.Fatalf("ReadCollection: %v", err)
	}
	if c.Size != MinCollectionSize {
		t.Errorf("Size = %d, want %d", c.Size, MinCollectionSize)
	}
	if c.Len() != len(objects) {
		t.Errorf("Len = %d, want %d", c.Len(), len(objects))
	}
	for i, id := range ids {
		got, err := c.Object(id.Index)
		if err != nil {
			t.Fatalf("Object(%d): %v", id.Index, err)
		}
		if !bytes.Equal(got, objects[i]) {
			t.Errorf("Object(%d) = %x, want %x", id.Index, got, objects[i])
		}
	}

	if _, err := c.Object(99); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("missing object: err = %v", err)
	}
}

func TestObjectReturnsCopy(t *testing.T) {
	f, w := newTestWriter()
	id, _ := w.Insert([]byte("abc"))
	c, err := ReadCollection(f, binary.DefaultConfig(), id.Collection)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := c.Object(id.Index)
	a[0] = 'X'
	b, _ := c.Object(id.Index)
	if string(b) != "abc" {
		t.Errorf("collection modified through returned slice: %q", b)
	}
}

func TestCollectionRollover(t *testing.T) {
	f, w := newTestWriter()
	cfg := binary.DefaultConfig()

	// 2 KiB payloads: one fits beside the header, the second does not.
	payload := bytes.Repeat([]byte{1}, 2048)
	first, err := w.Insert(payload)
	if err != nil {
		t.Fatal(err)
	}
	second, err := w.Insert(payload)
	if err != nil {
		t.Fatal(err)
	}
	if second.Collection == first.Collection {
		t.Fatalf("second object should start a new collection")
	}
	if second.Index != 1 {
		t.Errorf("first object of new collection has index %d", second.Index)
	}

	big := bytes.Repeat([]byte{2}, 10000)
	id, err := w.Insert(big)
	if err != nil {
		t.Fatal(err)
	}
	c, err := ReadCollection(f, cfg, id.Collection)
	if err != nil {
		t.Fatal(err)
	}
	if c.Size < 10000 {
		t.Errorf("collection of %d bytes cannot hold a 10000 byte object", c.Size)
	}
	got, _ := c.Object(id.Index)
	if !bytes.Equal(got, big) {
		t.Error("large object mismatch")
	}
}

func TestReadCollectionErrors(t *testing.T) {
	cfg := binary.DefaultConfig()
	f := &memFile{buf: make([]byte, 64)}
	copy(f.buf[8:], "NOPE")

	tests := []struct {
		name string
		addr uint64
	}{
		{"zero address", 0},
		{"undefined address", binary.Undefined(8)},
		{"bad signature", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCollection(f, cfg, tt.addr); !errors.Is(err, ErrInvalidCollection) {
				t.Errorf("err = %v, want ErrInvalidCollection", err)
			}
		})
	}

	copy(f.buf[8:], "GCOL\x02")
	if _, err := ReadCollection(f, cfg, 8); !errors.Is(err, ErrInvalidCollection) {
		t.Errorf("version 2: err = %v", err)
	}
}

func TestVarLenElement(t *testing.T) {
	cfg := binary.DefaultConfig()
	for _, tt := range []struct {
		length uint32
		id     ID
	}{
		{0, ID{}},
		{256, ID{Collection: 0x1234, Index: 7}},
	} {
		t.Run(fmt.Sprint(tt.length), func(t *testing.T) {
			e := binary.NewEncoder(cfg)
			EncodeVarLen(e, tt.length, tt.id)
			if e.Len() != 4+IDSize(cfg) {
				t.Fatalf("encoded %d bytes, want %d", e.Len(), 4+IDSize(cfg))
			}
			n, id := DecodeVarLen(binary.NewDecoder(e.Bytes(), cfg))
			if n != tt.length || id != tt.id {
				t.Errorf("got (%d, %+v), want (%d, %+v)", n, id, tt.length, tt.id)
			}
			if id.IsNull() != (tt.length == 0) {
				t.Errorf("IsNull = %v", id.IsNull())
			}
		})
	}
}
