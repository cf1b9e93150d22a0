package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// LayoutClass represents the storage layout class.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0 // Data stored in the object header
	LayoutContiguous LayoutClass = 1 // Data in one contiguous block
	LayoutChunked    LayoutClass = 2 // Data in indexed chunks
)

// ChunkIndexType is the chunk index of a version 4 chunked layout.
type ChunkIndexType uint8

const (
	ChunkIndexSingleChunk ChunkIndexType = 1
	ChunkIndexImplicit    ChunkIndexType = 2
	ChunkIndexFixedArray  ChunkIndexType = 3
	ChunkIndexExtensible  ChunkIndexType = 4
	ChunkIndexBTreeV2     ChunkIndexType = 5
)

// Layout flags for version 4 chunked storage.
const (
	LayoutFlagDontFilterPartialChunks uint8 = 0x01
	LayoutFlagSingleIndexWithFilter   uint8 = 0x02
)

// DataLayout represents a data layout message (type 0x0008).
type DataLayout struct {
	Class LayoutClass

	// Compact
	CompactData []byte

	// Contiguous
	Address uint64
	Size    uint64

	// Chunked. ChunkDims has one more entry than the dataspace rank: the
	// last entry is the element size in bytes.
	Flags        uint8
	ChunkDims    []uint32
	IndexType    ChunkIndexType
	IndexAddr    uint64
	PageBits     uint8  // fixed array
	FilteredSize uint64 // single chunk with filter
	FilterMask   uint32 // single chunk with filter
	NodeSize     uint32 // v2 B-tree
	SplitPercent uint8  // v2 B-tree
	MergePercent uint8  // v2 B-tree
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// NewCompactLayout stores data directly in the object header.
func NewCompactLayout(data []byte) *DataLayout {
	return &DataLayout{Class: LayoutCompact, CompactData: data}
}

// NewContiguousLayout stores size bytes at address.
func NewContiguousLayout(address, size uint64) *DataLayout {
	return &DataLayout{Class: LayoutContiguous, Address: address, Size: size}
}

// NewChunkedLayout returns a chunked layout. chunkDims are the chunk extents
// in dataspace order; the element size is appended as HDF5 requires.
func NewChunkedLayout(chunkDims []uint32, elementSize uint32, index ChunkIndexType) *DataLayout {
	dims := make([]uint32, len(chunkDims)+1)
	copy(dims, chunkDims)
	dims[len(chunkDims)] = elementSize
	return &DataLayout{Class: LayoutChunked, ChunkDims: dims, IndexType: index}
}

// ChunkBytes returns the uncompressed size of one chunk.
func (m *DataLayout) ChunkBytes() uint64 {
	n := uint64(1)
	for _, d := range m.ChunkDims {
		n *= uint64(d)
	}
	return n
}

// ElementSize returns the element size recorded in a chunked layout.
func (m *DataLayout) ElementSize() uint32 {
	if len(m.ChunkDims) == 0 {
		return 0
	}
	return m.ChunkDims[len(m.ChunkDims)-1]
}

func (m *DataLayout) dimWidth() int {
	var max uint32
	for _, d := range m.ChunkDims {
		if d > max {
			max = d
		}
	}
	switch {
	case max <= 0xFF:
		return 1
	case max <= 0xFFFF:
		return 2
	}
	return 4
}

// Encode writes version 3 for compact and contiguous storage and version 4
// for chunked storage.
func (m *DataLayout) Encode(e *binary.Encoder) {
	switch m.Class {
	case LayoutCompact:
		e.PutUint8(3)
		e.PutUint8(uint8(m.Class))
		e.PutUint16(uint16(len(m.CompactData)))
		e.PutBytes(m.CompactData)
	case LayoutContiguous:
		e.PutUint8(3)
		e.PutUint8(uint8(m.Class))
		e.PutOffset(m.Address)
		e.PutLength(m.Size)
	case LayoutChunked:
		e.PutUint8(4)
		e.PutUint8(uint8(m.Class))
		e.PutUint8(m.Flags)
		e.PutUint8(uint8(len(m.ChunkDims)))
		width := m.dimWidth()
		e.PutUint8(uint8(width))
		for _, d := range m.ChunkDims {
			e.PutUintN(uint64(d), width)
		}
		e.PutUint8(uint8(m.IndexType))
		switch m.IndexType {
		case ChunkIndexSingleChunk:
			if m.Flags&LayoutFlagSingleIndexWithFilter != 0 {
				e.PutLength(m.FilteredSize)
				e.PutUint32(m.FilterMask)
			}
		case ChunkIndexFixedArray:
			e.PutUint8(m.PageBits)
		case ChunkIndexBTreeV2:
			e.PutUint32(m.NodeSize)
			e.PutUint8(m.SplitPercent)
			e.PutUint8(m.MergePercent)
		}
		e.PutOffset(m.IndexAddr)
	}
}

func parseDataLayout(data []byte, cfg binary.Config) (*DataLayout, error) {
	d := binary.NewDecoder(data, cfg)
	version := d.Uint8()
	if version != 3 && version != 4 {
		return nil, fmt.Errorf("%w: layout version %d", ErrUnsupported, version)
	}
	m := &DataLayout{Class: LayoutClass(d.Uint8())}

	switch m.Class {
	case LayoutCompact:
		n := int(d.Uint16())
		m.CompactData = append([]byte(nil), d.Bytes(n)...)
	case LayoutContiguous:
		m.Address = d.Addr()
		m.Size = d.Length()
	case LayoutChunked:
		if version != 4 {
			return nil, fmt.Errorf("%w: chunked layout version %d", ErrUnsupported, version)
		}
		m.Flags = d.Uint8()
		rank := int(d.Uint8())
		width := int(d.Uint8())
		m.ChunkDims = make([]uint32, rank)
		for i := range m.ChunkDims {
			m.ChunkDims[i] = uint32(d.UintN(width))
		}
		m.IndexType = ChunkIndexType(d.Uint8())
		switch m.IndexType {
		case ChunkIndexSingleChunk:
			if m.Flags&LayoutFlagSingleIndexWithFilter != 0 {
				m.FilteredSize = d.Length()
				m.FilterMask = d.Uint32()
			}
		case ChunkIndexFixedArray:
			m.PageBits = d.Uint8()
		case ChunkIndexBTreeV2:
			m.NodeSize = d.Uint32()
			m.SplitPercent = d.Uint8()
			m.MergePercent = d.Uint8()
		case ChunkIndexImplicit:
		default:
			return nil, fmt.Errorf("%w: chunk index type %d", ErrUnsupported, m.IndexType)
		}
		m.IndexAddr = d.Addr()
	default:
		return nil, fmt.Errorf("%w: layout class %d", ErrUnsupported, m.Class)
	}

	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("layout message: %w", err)
	}
	return m, nil
}
