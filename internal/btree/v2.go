package btree

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// Node signatures.
const (
	HeaderSignature   = "BTHD"
	InternalSignature = "BTIN"
	LeafSignature     = "BTLF"
)

// Record types for chunk indexes.
const (
	TypeChunks         uint8 = 10
	TypeFilteredChunks uint8 = 11
)

var (
	ErrCorrupt     = errors.New("corrupt v2 B-tree")
	ErrUnsupported = errors.New("unsupported v2 B-tree")
)

// prefixSize covers signature, version, type and checksum of every node.
const prefixSize = 4 + 1 + 1 + 4

// Header is the decoded BTHD block.
type Header struct {
	Type         uint8
	NodeSize     uint32
	RecordSize   uint16
	Depth        uint16
	SplitPercent uint8
	MergePercent uint8
	RootAddr     uint64
	RootRecords  uint16
	TotalRecords uint64
}

// Record locates one chunk. Scaled holds the chunk's offset divided by the
// chunk extent in each dimension. Size and Mask are only set for filtered
// records.
type Record struct {
	Addr   uint64
	Size   uint64
	Mask   uint32
	Scaled []uint64
}

// nodeInfo holds the per-depth limits that size the child pointers.
type nodeInfo struct {
	maxRecords    uint64
	recordsSize   int
	cumRecords    uint64
	cumRecordsLen int
}

// limitSize returns the bytes needed to encode counts up to n.
func limitSize(n uint64) int {
	if n == 0 {
		return 1
	}
	return (bits.Len64(n)-1)/8 + 1
}

type tree struct {
	r       *binary.Reader
	hdr     Header
	rank    int
	sizeLen int // chunk size width of a filtered record
	info    []nodeInfo
}

// ReadHeader reads and verifies the header at addr.
func ReadHeader(r *binary.Reader, addr uint64) (Header, error) {
	cfg := r.Config()
	n := 4 + 1 + 1 + 4 + 2 + 2 + 1 + 1 + cfg.OffsetSize + 2 + cfg.LengthSize + 4
	raw, err := r.At(int64(addr)).ReadBytes(n)
	if err != nil {
		return Header{}, fmt.Errorf("reading B-tree header: %w", err)
	}
	if err := verify(raw, HeaderSignature, cfg); err != nil {
		return Header{}, err
	}
	d := binary.NewDecoder(raw[4:], cfg)
	if v := d.Uint8(); v != 0 {
		return Header{}, fmt.Errorf("%w: header version %d", ErrUnsupported, v)
	}
	h := Header{
		Type:       d.Uint8(),
		NodeSize:   d.Uint32(),
		RecordSize: d.Uint16(),
		Depth:      d.Uint16(),
	}
	h.SplitPercent = d.Uint8()
	h.MergePercent = d.Uint8()
	h.RootAddr = d.Addr()
	h.RootRecords = d.Uint16()
	h.TotalRecords = d.Length()
	return h, nil
}

// ReadChunks returns the chunk records of the tree at addr. rank is the
// dataset rank.
func ReadChunks(r *binary.Reader, addr uint64, rank int) ([]Record, error) {
	h, err := ReadHeader(r, addr)
	if err != nil {
		return nil, err
	}
	t := &tree{r: r, hdr: h, rank: rank}
	if err := t.init(); err != nil {
		return nil, err
	}
	if h.TotalRecords == 0 || r.IsUndefinedOffset(h.RootAddr) {
		return nil, nil
	}
	out := make([]Record, 0, h.TotalRecords)
	out, err = t.node(out, h.RootAddr, int(h.Depth), uint64(h.RootRecords))
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != h.TotalRecords {
		return nil, fmt.Errorf("%w: found %d records, header says %d", ErrCorrupt, len(out), h.TotalRecords)
	}
	return out, nil
}

func (t *tree) init() error {
	h := t.hdr
	off := t.r.OffsetSize()
	base := off + 8*t.rank
	switch h.Type {
	case TypeChunks:
		if int(h.RecordSize) != base {
			return fmt.Errorf("%w: record size %d for rank %d", ErrCorrupt, h.RecordSize, t.rank)
		}
	case TypeFilteredChunks:
		t.sizeLen = int(h.RecordSize) - base - 4
		if t.sizeLen < 1 || t.sizeLen > 8 {
			return fmt.Errorf("%w: record size %d for rank %d", ErrCorrupt, h.RecordSize, t.rank)
		}
	default:
		return fmt.Errorf("%w: record type %d", ErrUnsupported, h.Type)
	}
	if h.RecordSize == 0 || h.NodeSize <= prefixSize {
		return fmt.Errorf("%w: node size %d", ErrCorrupt, h.NodeSize)
	}

	leaf := uint64(h.NodeSize-prefixSize) / uint64(h.RecordSize)
	t.info = []nodeInfo{{maxRecords: leaf, recordsSize: limitSize(leaf), cumRecords: leaf}}
	for d := 1; d <= int(h.Depth); d++ {
		ptr := uint64(t.pointerSize(d))
		avail := uint64(h.NodeSize - prefixSize)
		if avail < ptr {
			return fmt.Errorf("%w: node size %d too small for depth %d", ErrCorrupt, h.NodeSize, d)
		}
		n := (avail - ptr) / (uint64(h.RecordSize) + ptr)
		cum := (n+1)*t.info[d-1].cumRecords + n
		t.info = append(t.info, nodeInfo{
			maxRecords:    n,
			recordsSize:   limitSize(n),
			cumRecords:    cum,
			cumRecordsLen: limitSize(cum),
		})
	}
	return nil
}

// pointerSize is the width of a child pointer stored in a node at depth d.
func (t *tree) pointerSize(d int) int {
	child := t.info[d-1]
	n := t.r.OffsetSize() + child.recordsSize
	if d > 1 {
		n += child.cumRecordsLen
	}
	return n
}

// node appends the records of the subtree at addr in key order.
func (t *tree) node(out []Record, addr uint64, depth int, n uint64) ([]Record, error) {
	if n > t.info[depth].maxRecords {
		return nil, fmt.Errorf("%w: %d records in a node holding %d", ErrCorrupt, n, t.info[depth].maxRecords)
	}
	cfg := t.r.Config()
	sig, size := LeafSignature, prefixSize+int(n)*int(t.hdr.RecordSize)
	if depth > 0 {
		sig = InternalSignature
		size += int(n+1) * t.pointerSize(depth)
	}
	raw, err := t.r.At(int64(addr)).ReadBytes(size)
	if err != nil {
		return nil, fmt.Errorf("reading B-tree node at 0x%x: %w", addr, err)
	}
	if err := verify(raw, sig, cfg); err != nil {
		return nil, err
	}
	d := binary.NewDecoder(raw[4:], cfg)
	if v := d.Uint8(); v != 0 {
		return nil, fmt.Errorf("%w: node version %d", ErrUnsupported, v)
	}
	if typ := d.Uint8(); typ != t.hdr.Type {
		return nil, fmt.Errorf("%w: node type %d in a type %d tree", ErrCorrupt, typ, t.hdr.Type)
	}

	recs := make([]Record, n)
	for i := range recs {
		recs[i] = t.record(d)
	}
	if depth == 0 {
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return append(out, recs...), nil
	}

	type child struct {
		addr uint64
		n    uint64
	}
	info := t.info[depth-1]
	children := make([]child, n+1)
	for i := range children {
		children[i] = child{addr: d.Addr(), n: d.UintN(info.recordsSize)}
		if depth > 1 {
			d.Skip(info.cumRecordsLen)
		}
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for i, c := range children {
		if out, err = t.node(out, c.addr, depth-1, c.n); err != nil {
			return nil, err
		}
		if i < len(recs) {
			out = append(out, recs[i])
		}
	}
	return out, nil
}

func (t *tree) record(d *binary.Decoder) Record {
	rec := Record{Addr: d.Addr(), Scaled: make([]uint64, t.rank)}
	if t.hdr.Type == TypeFilteredChunks {
		rec.Size = d.UintN(t.sizeLen)
		rec.Mask = d.Uint32()
	}
	for i := range rec.Scaled {
		rec.Scaled[i] = d.Uint64()
	}
	return rec
}

// verify checks the signature and trailing Jenkins checksum of a block.
func verify(raw []byte, sig string, cfg binary.Config) error {
	if len(raw) < len(sig)+4 || string(raw[:len(sig)]) != sig {
		return fmt.Errorf("%w: missing %s signature", ErrCorrupt, sig)
	}
	body := raw[:len(raw)-4]
	stored := binary.NewDecoder(raw[len(body):], cfg).Uint32()
	if got := binary.Lookup3Checksum(body); got != stored {
		return fmt.Errorf("%w: %s checksum 0x%08x, computed 0x%08x", ErrCorrupt, sig, stored, got)
	}
	return nil
}
