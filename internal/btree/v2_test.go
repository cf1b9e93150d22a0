package btree

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// image assembles blocks at fixed addresses.
type image struct {
	cfg binary.Config
	buf []byte
}

func newImage() *image { return &image{cfg: binary.DefaultConfig()} }

func (im *image) put(addr int, b []byte) {
	if end := addr + len(b); end > len(im.buf) {
		im.buf = append(im.buf, make([]byte, end-len(im.buf))...)
	}
	copy(im.buf[addr:], b)
}

func (im *image) reader() *binary.Reader {
	return binary.NewReader(bytes.NewReader(im.buf), im.cfg)
}

func (im *image) header(addr int, h Header) {
	e := binary.NewEncoder(im.cfg)
	e.PutBytes([]byte(HeaderSignature))
	e.PutUint8(0)
	e.PutUint8(h.Type)
	e.PutUint32(h.NodeSize)
	e.PutUint16(h.RecordSize)
	e.PutUint16(h.Depth)
	e.PutUint8(h.SplitPercent)
	e.PutUint8(h.MergePercent)
	e.PutOffset(h.RootAddr)
	e.PutUint16(h.RootRecords)
	e.PutLength(h.TotalRecords)
	e.PutChecksum()
	im.put(addr, e.Bytes())
}

func putRecord(e *binary.Encoder, typ uint8, r Record, sizeLen int) {
	e.PutOffset(r.Addr)
	if typ == TypeFilteredChunks {
		e.PutUintN(r.Size, sizeLen)
		e.PutUint32(r.Mask)
	}
	for _, s := range r.Scaled {
		e.PutUint64(s)
	}
}

func (im *image) leaf(addr int, typ uint8, sizeLen int, recs ...Record) {
	e := binary.NewEncoder(im.cfg)
	e.PutBytes([]byte(LeafSignature))
	e.PutUint8(0)
	e.PutUint8(typ)
	for _, r := range recs {
		putRecord(e, typ, r, sizeLen)
	}
	e.PutChecksum()
	im.put(addr, e.Bytes())
}

func rec(addr uint64, scaled ...uint64) Record {
	return Record{Addr: addr, Scaled: scaled}
}

func TestLimitSize(t *testing.T) {
	tests := []struct {
		n    uint64
		want int
	}{
		{0, 1}, {1, 1}, {255, 1}, {256, 2}, {65535, 2}, {65536, 3},
	}
	for _, tt := range tests {
		if got := limitSize(tt.n); got != tt.want {
			t.Errorf("limitSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestReadChunksLeafRoot(t *testing.T) {
	im := newImage()
	recs := []Record{rec(4096, 0, 0), rec(4196, 0, 1), rec(4296, 1, 0)}
	im.leaf(512, TypeChunks, 0, recs...)
	im.header(0, Header{
		Type: TypeChunks, NodeSize: 512, RecordSize: 24, SplitPercent: 100, MergePercent: 40,
		RootAddr: 512, RootRecords: 3, TotalRecords: 3,
	})

	got, err := ReadChunks(im.reader(), 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, recs) {
		t.Errorf("records = %+v, want %+v", got, recs)
	}
}

func TestReadChunksFiltered(t *testing.T) {
	im := newImage()
	recs := []Record{
		{Addr: 8000, Size: 700, Mask: 0, Scaled: []uint64{0}},
		{Addr: 8700, Size: 65000, Mask: 1, Scaled: []uint64{1}},
	}
	// 8 address + 3 size + 4 mask + 8 scaled
	im.leaf(256, TypeFilteredChunks, 3, recs...)
	im.header(0, Header{
		Type: TypeFilteredChunks, NodeSize: 256, RecordSize: 23,
		RootAddr: 256, RootRecords: 2, TotalRecords: 2,
	})

	got, err := ReadChunks(im.reader(), 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, recs) {
		t.Errorf("records = %+v, want %+v", got, recs)
	}
}

func TestReadChunksInternalRoot(t *testing.T) {
	// With 64 byte nodes and 24 byte records a leaf holds 2 records and
	// the root holds 1 record between 2 children.
	im := newImage()
	im.leaf(200, TypeChunks, 0, rec(1000, 0, 0), rec(1100, 0, 1))
	im.leaf(300, TypeChunks, 0, rec(1300, 1, 1), rec(1400, 2, 0))

	e := binary.NewEncoder(im.cfg)
	e.PutBytes([]byte(InternalSignature))
	e.PutUint8(0)
	e.PutUint8(TypeChunks)
	putRecord(e, TypeChunks, rec(1200, 1, 0), 0)
	e.PutOffset(200)
	e.PutUint8(2)
	e.PutOffset(300)
	e.PutUint8(2)
	e.PutChecksum()
	im.put(100, e.Bytes())

	im.header(0, Header{
		Type: TypeChunks, NodeSize: 64, RecordSize: 24, Depth: 1,
		RootAddr: 100, RootRecords: 1, TotalRecords: 5,
	})

	got, err := ReadChunks(im.reader(), 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	var addrs []uint64
	for _, r := range got {
		addrs = append(addrs, r.Addr)
	}
	if want := []uint64{1000, 1100, 1200, 1300, 1400}; !reflect.DeepEqual(addrs, want) {
		t.Errorf("addresses = %v, want %v", addrs, want)
	}
}

func TestReadChunksEmpty(t *testing.T) {
	im := newImage()
	im.header(0, Header{
		Type: TypeChunks, NodeSize: 512, RecordSize: 16,
		RootAddr: binary.Undefined(8),
	})
	got, err := ReadChunks(im.reader(), 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("records = %+v", got)
	}
}

func TestReadChunksErrors(t *testing.T) {
	valid := func() *image {
		im := newImage()
		im.leaf(512, TypeChunks, 0, rec(4096, 0))
		im.header(0, Header{
			Type: TypeChunks, NodeSize: 512, RecordSize: 16,
			RootAddr: 512, RootRecords: 1, TotalRecords: 1,
		})
		return im
	}

	tests := []struct {
		name  string
		edit  func(im *image)
		rank  int
		error error
	}{
		{"valid", func(*image) {}, 1, nil},
		{"rank mismatch", func(*image) {}, 2, ErrCorrupt},
		{"leaf checksum", func(im *image) { im.buf[520] ^= 0xff }, 1, ErrCorrupt},
		{"header checksum", func(im *image) { im.buf[8] ^= 0xff }, 1, ErrCorrupt},
		{"bad signature", func(im *image) { copy(im.buf, "TREE") }, 1, ErrCorrupt},
		{"record count", func(im *image) {
			im.header(0, Header{
				Type: TypeChunks, NodeSize: 512, RecordSize: 16,
				RootAddr: 512, RootRecords: 1, TotalRecords: 2,
			})
		}, 1, ErrCorrupt},
		{"group records", func(im *image) {
			im.header(0, Header{Type: 5, NodeSize: 512, RecordSize: 11, RootAddr: 512})
		}, 1, ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := valid()
			tt.edit(im)
			_, err := ReadChunks(im.reader(), 0, tt.rank)
			if tt.error == nil {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			if !errors.Is(err, tt.error) {
				t.Errorf("err = %v, want %v", err, tt.error)
			}
		})
	}
}
