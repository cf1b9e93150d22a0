package filter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/robert-malhotra/go-mrrd/internal/message"
)

func TestDeflateRoundtrip(t *testing.T) {
	original := bytes.Repeat([]byte("k-space sample "), 64)

	f := NewDeflate([]uint32{9})
	compressed, err := f.Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(compressed) >= len(original) {
		t.Errorf("compressed %d bytes, want fewer than %d", len(compressed), len(original))
	}

	got, err := f.Decode(compressed)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("roundtrip mismatch")
	}
}

func TestDeflateLevel(t *testing.T) {
	if got := NewDeflate(nil).Level(); got != DefaultDeflateLevel {
		t.Errorf("default level = %d, want %d", got, DefaultDeflateLevel)
	}
	if got := NewDeflate([]uint32{42}).Level(); got != DefaultDeflateLevel {
		t.Errorf("out of range level = %d, want default", got)
	}
}

func TestDeflateGarbage(t *testing.T) {
	if _, err := NewDeflate(nil).Decode([]byte{1, 2, 3}); err == nil {
		t.Error("expected error decoding garbage")
	}
}

func TestShuffle(t *testing.T) {
	original := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x11, 0x12, 0x13, 0x14,
		0x21, 0x22, 0x23, 0x24,
		0xff,
	}
	shuffled := []byte{
		0x01, 0x11, 0x21,
		0x02, 0x12, 0x22,
		0x03, 0x13, 0x23,
		0x04, 0x14, 0x24,
		0xff,
	}

	f := NewShuffle([]uint32{4})
	got, err := f.Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(got, shuffled) {
		t.Errorf("Encode = %x, want %x", got, shuffled)
	}

	back, err := f.Decode(got)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(back, original) {
		t.Errorf("Decode = %x, want %x", back, original)
	}
}

func TestShuffleSingleByte(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	got, _ := NewShuffle(nil).Encode(data)
	if !bytes.Equal(got, data) {
		t.Errorf("single-byte shuffle should be identity")
	}
}

func TestFletcher32(t *testing.T) {
	data := []byte("test data for checksum")
	f := NewFletcher32(nil)

	enc, err := f.Encode(data)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(enc) != len(data)+4 {
		t.Fatalf("encoded length = %d, want %d", len(enc), len(data)+4)
	}

	dec, err := f.Decode(enc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Errorf("Decode = %q, want %q", dec, data)
	}

	enc[0] ^= 0xff
	if _, err := f.Decode(enc); !errors.Is(err, ErrChecksum) {
		t.Errorf("corrupted chunk: err = %v, want ErrChecksum", err)
	}
	if _, err := f.Decode([]byte{1}); !errors.Is(err, ErrChecksum) {
		t.Errorf("short chunk: err = %v, want ErrChecksum", err)
	}
}

func TestPipelineEmpty(t *testing.T) {
	p, err := NewPipeline(nil)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	if !p.Empty() {
		t.Error("expected empty pipeline")
	}

	data := []byte("unchanged")
	enc, mask, err := p.Encode(data)
	if err != nil || mask != 0 || !bytes.Equal(enc, data) {
		t.Errorf("Encode = %q, %d, %v", enc, mask, err)
	}
}

func TestPipelineRoundtrip(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: message.FilterShuffle, ClientData: []uint32{8}},
		{ID: message.FilterDeflate, ClientData: []uint32{6}},
		{ID: message.FilterFletcher32},
	}}
	p, err := NewPipeline(fp)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3", p.Len())
	}

	data := make([]byte, 8*256)
	for i := range data {
		data[i] = byte(i % 7)
	}
	enc, mask, err := p.Encode(data)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	dec, err := p.Decode(enc, mask)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Error("pipeline roundtrip mismatch")
	}
}

func TestPipelineFilterMask(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: message.FilterShuffle, ClientData: []uint32{2}},
	}}
	p, err := NewPipeline(fp)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	data := []byte{1, 2, 3, 4}
	got, err := p.Decode(data, 0x01)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("skipped filter should leave data unchanged")
	}
}

func TestUnsupportedFilter(t *testing.T) {
	_, err := NewPipeline(&message.FilterPipeline{Filters: []message.FilterInfo{{ID: 4}}})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("required SZIP: err = %v, want ErrUnsupported", err)
	}

	p, err := NewPipeline(&message.FilterPipeline{Filters: []message.FilterInfo{{ID: 32001, Optional: true}}})
	if err != nil {
		t.Fatalf("optional filter: %v", err)
	}
	if !p.Empty() {
		t.Error("unavailable optional filter should be dropped")
	}
}
