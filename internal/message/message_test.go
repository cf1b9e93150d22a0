package message

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

func encode(m Message) []byte {
	e := binary.NewEncoder(binary.DefaultConfig())
	m.Encode(e)
	return e.Bytes()
}

func reparse(t *testing.T, m Message) Message {
	t.Helper()
	got, err := Parse(m.Type(), encode(m), binary.DefaultConfig())
	if err != nil {
		t.Fatalf("Parse(%v): %v", m.Type(), err)
	}
	return got
}

func TestDataspaceUnlimited(t *testing.T) {
	ds := NewDataspace([]uint64{3, 128, 256}, []uint64{Unlimited, 128, 256})
	got := reparse(t, ds).(*Dataspace)

	if diff := cmp.Diff(ds, got); diff != "" {
		t.Errorf("dataspace mismatch (-want +got):\n%s", diff)
	}
	if !got.Extendible(0) || got.Extendible(1) {
		t.Errorf("Extendible = %v/%v, want true/false", got.Extendible(0), got.Extendible(1))
	}
	if got.NumElements() != 3*128*256 {
		t.Errorf("NumElements = %d", got.NumElements())
	}
}

func TestDataspaceScalar(t *testing.T) {
	got := reparse(t, NewScalarDataspace()).(*Dataspace)
	if !got.IsScalar() || got.NumElements() != 1 {
		t.Errorf("scalar dataspace parsed as %+v", got)
	}
}

func TestDatatypeFloatEncoding(t *testing.T) {
	// Class 1, version 1; little-endian, implied mantissa bit, sign at bit 31.
	want := []byte{
		0x11, 0x20, 0x1F, 0x00,
		0x04, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x20, 0x00,
		0x17, 0x08, 0x00, 0x17,
		0x7F, 0x00, 0x00, 0x00,
	}
	if got := encode(NewFloatDatatype(4)); !bytes.Equal(got, want) {
		t.Errorf("float32 datatype\n got % x\nwant % x", got, want)
	}
}

func TestDatatypeNestedCompound(t *testing.T) {
	f32 := NewFloatDatatype(4)
	idx := NewCompoundDatatype(4, []CompoundMember{
		{Name: "kspace_encode_step_1", Offset: 0, Type: NewIntDatatype(2, false)},
		{Name: "kspace_encode_step_2", Offset: 2, Type: NewIntDatatype(2, false)},
	})
	head := NewCompoundDatatype(4+12+4+VarLenSize, []CompoundMember{
		{Name: "idx", Offset: 0, Type: idx},
		{Name: "position", Offset: 4, Type: NewArrayDatatype([]uint32{3}, f32)},
		{Name: "flags", Offset: 16, Type: NewIntDatatype(4, true)},
		{Name: "data", Offset: 20, Type: NewVarLenDatatype(f32)},
	})

	got := reparse(t, head).(*Datatype)
	if !got.Equal(head) {
		t.Fatalf("compound changed across encode/parse:\n got %s\nwant %s", got, head)
	}
	pos, ok := got.Member("position")
	if !ok || pos.Type.Class != ClassArray || pos.Type.Size != 12 {
		t.Errorf("position member = %+v", pos)
	}
	if _, ok := got.Member("missing"); ok {
		t.Error("Member found a field that does not exist")
	}
}

func TestDatatypeEqual(t *testing.T) {
	complex64 := NewCompoundDatatype(8, []CompoundMember{
		{Name: "real", Offset: 0, Type: NewFloatDatatype(4)},
		{Name: "imag", Offset: 4, Type: NewFloatDatatype(4)},
	})
	tests := []struct {
		name string
		a, b *Datatype
		want bool
	}{
		{"same float", NewFloatDatatype(4), NewFloatDatatype(4), true},
		{"float widths", NewFloatDatatype(4), NewFloatDatatype(8), false},
		{"float vs complex", NewFloatDatatype(4), complex64, false},
		{"signedness", NewIntDatatype(2, true), NewIntDatatype(2, false), false},
		{"vlen string vs vlen seq", NewVarLenStringDatatype(CharsetUTF8), NewVarLenDatatype(NewIntDatatype(1, false)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVarLenString(t *testing.T) {
	got := reparse(t, NewVarLenStringDatatype(CharsetUTF8)).(*Datatype)
	if !got.VarLenString || got.Charset != CharsetUTF8 || got.Size != VarLenSize {
		t.Errorf("vlen string parsed as %+v", got)
	}
}

func TestLayoutChunkedFixedArray(t *testing.T) {
	l := NewChunkedLayout([]uint32{1, 128, 256}, 8, ChunkIndexFixedArray)
	l.PageBits = 10
	l.IndexAddr = 0x4000

	got := reparse(t, l).(*DataLayout)
	if diff := cmp.Diff(l, got); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
	if got.ChunkBytes() != 128*256*8 || got.ElementSize() != 8 {
		t.Errorf("ChunkBytes=%d ElementSize=%d", got.ChunkBytes(), got.ElementSize())
	}
}

func TestLayoutChunkedBTree(t *testing.T) {
	l := NewChunkedLayout([]uint32{4, 4}, 2, ChunkIndexBTreeV2)
	l.NodeSize, l.SplitPercent, l.MergePercent = 2048, 100, 40
	l.IndexAddr = 0x900

	got := reparse(t, l).(*DataLayout)
	if diff := cmp.Diff(l, got); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestLayoutSingleChunkFiltered(t *testing.T) {
	l := NewChunkedLayout([]uint32{64}, 4, ChunkIndexSingleChunk)
	l.Flags = LayoutFlagSingleIndexWithFilter
	l.FilteredSize = 99
	l.IndexAddr = 0x200

	got := reparse(t, l).(*DataLayout)
	if got.FilteredSize != 99 || got.IndexAddr != 0x200 {
		t.Errorf("single chunk layout = %+v", got)
	}
}

func TestLayoutContiguousAndCompact(t *testing.T) {
	c := reparse(t, NewContiguousLayout(0x800, 16)).(*DataLayout)
	if c.Class != LayoutContiguous || c.Address != 0x800 || c.Size != 16 {
		t.Errorf("contiguous = %+v", c)
	}
	k := reparse(t, NewCompactLayout([]byte("abc"))).(*DataLayout)
	if k.Class != LayoutCompact || string(k.CompactData) != "abc" {
		t.Errorf("compact = %+v", k)
	}
}

func TestFilterPipeline(t *testing.T) {
	p := &FilterPipeline{Filters: []FilterInfo{
		{ID: FilterShuffle, ClientData: []uint32{8}},
		{ID: FilterDeflate, Optional: true, ClientData: []uint32{6}},
		{ID: FilterFletcher32},
	}}
	got := reparse(t, p).(*FilterPipeline)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("pipeline mismatch (-want +got):\n%s", diff)
	}
	if !got.HasFilter(FilterDeflate) || got.HasFilter(32001) {
		t.Error("HasFilter wrong")
	}
}

func TestLinkLongName(t *testing.T) {
	name := string(bytes.Repeat([]byte("n"), 300))
	got := reparse(t, NewHardLink(name, 0xABC)).(*Link)
	if got.Name != name || got.ObjectAddress != 0xABC || !got.IsHard() {
		t.Errorf("link = %q -> 0x%x", got.Name[:10], got.ObjectAddress)
	}
}

func TestLinkInfoCompact(t *testing.T) {
	got := reparse(t, NewLinkInfo()).(*LinkInfo)
	if !got.Compact() {
		t.Error("link info should describe compact storage")
	}
}

func TestFillValue(t *testing.T) {
	got := reparse(t, NewFillValue(AllocIncremental)).(*FillValue)
	if got.AllocTime != AllocIncremental || got.FillTime != FillIfSet || got.Value != nil {
		t.Errorf("fill value = %+v", got)
	}
}

func TestParseUnsupported(t *testing.T) {
	_, err := Parse(TypeDataLayout, []byte{1, 2}, binary.DefaultConfig())
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("layout v1: got %v, want ErrUnsupported", err)
	}

	m, err := Parse(TypeAttribute, []byte{9, 9}, binary.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if u, ok := m.(*Unknown); !ok || !bytes.Equal(encode(u), []byte{9, 9}) {
		t.Errorf("unknown message not preserved: %#v", m)
	}
}
