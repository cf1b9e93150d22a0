package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/binary"
)

// Standard filter identifiers.
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
)

// FilterInfo describes one filter in a pipeline.
type FilterInfo struct {
	ID         uint16
	Name       string
	Optional   bool
	ClientData []uint32
}

// FilterPipeline represents a filter pipeline message (type 0x000B).
// Filters are listed in the order they are applied when writing.
type FilterPipeline struct {
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

// HasFilter reports whether the pipeline contains the filter id.
func (m *FilterPipeline) HasFilter(id uint16) bool {
	for _, f := range m.Filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

// Encode writes a version 2 pipeline. Standard filters carry no name.
func (m *FilterPipeline) Encode(e *binary.Encoder) {
	e.PutUint8(2)
	e.PutUint8(uint8(len(m.Filters)))
	for _, f := range m.Filters {
		var name []byte
		e.PutUint16(f.ID)
		if f.ID >= 256 {
			name = append([]byte(f.Name), 0)
			e.PutUint16(uint16(len(name)))
		}
		var flags uint16
		if f.Optional {
			flags = 0x01
		}
		e.PutUint16(flags)
		e.PutUint16(uint16(len(f.ClientData)))
		e.PutBytes(name)
		for _, v := range f.ClientData {
			e.PutUint32(v)
		}
	}
}

func parseFilterPipeline(data []byte, cfg binary.Config) (*FilterPipeline, error) {
	d := binary.NewDecoder(data, cfg)
	version := d.Uint8()
	n := int(d.Uint8())
	if version != 1 && version != 2 {
		return nil, fmt.Errorf("%w: filter pipeline version %d", ErrUnsupported, version)
	}
	if version == 1 {
		d.Skip(6)
	}

	m := &FilterPipeline{}
	for i := 0; i < n; i++ {
		f := FilterInfo{ID: d.Uint16()}
		nameLen := 0
		if version == 1 || f.ID >= 256 {
			nameLen = int(d.Uint16())
		}
		f.Optional = d.Uint16()&0x01 != 0
		nvalues := int(d.Uint16())
		if nameLen > 0 {
			name := d.Bytes(nameLen)
			for j, c := range name {
				if c == 0 {
					name = name[:j]
					break
				}
			}
			f.Name = string(name)
		}
		for j := 0; j < nvalues; j++ {
			f.ClientData = append(f.ClientData, d.Uint32())
		}
		if version == 1 && nvalues%2 == 1 {
			d.Skip(4)
		}
		m.Filters = append(m.Filters, f)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("filter pipeline message: %w", err)
	}
	return m, nil
}
