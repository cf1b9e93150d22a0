package filter

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/message"
)

// Pipeline applies an ordered list of filters to chunk data.
type Pipeline struct {
	filters []Filter
}

// NewPipeline builds a pipeline from a filter pipeline message. A nil or
// empty message yields an empty pipeline.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, fmt.Errorf("creating filter %d: %w", info.ID, err)
		}
		if f != nil {
			p.filters = append(p.filters, f)
		}
	}
	return p, nil
}

// Empty reports whether the pipeline has no filters.
func (p *Pipeline) Empty() bool { return len(p.filters) == 0 }

// Len returns the number of filters.
func (p *Pipeline) Len() int { return len(p.filters) }

// Encode runs every filter in order. The returned mask is always zero
// because no filter is ever skipped on write.
func (p *Pipeline) Encode(input []byte) ([]byte, uint32, error) {
	data := input
	for _, f := range p.filters {
		var err error
		if data, err = f.Encode(data); err != nil {
			return nil, 0, fmt.Errorf("filter %d encode: %w", f.ID(), err)
		}
	}
	return data, 0, nil
}

// Decode runs the filters in reverse order. Bit i of mask marks filter i
// as skipped when the chunk was written.
func (p *Pipeline) Decode(input []byte, mask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		if data, err = p.filters[i].Decode(data); err != nil {
			return nil, fmt.Errorf("filter %d decode: %w", p.filters[i].ID(), err)
		}
	}
	return data, nil
}
