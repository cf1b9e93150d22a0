package binary

import (
	"io"
)

// Writer writes at absolute file positions. Metadata blocks are normally
// built with an Encoder and written in one call with WriteBytes.
type Writer struct {
	w   io.WriterAt
	cfg Config
	pos int64
}

// NewWriter creates a writer positioned at offset 0.
func NewWriter(w io.WriterAt, cfg Config) *Writer {
	return &Writer{w: w, cfg: cfg}
}

// At returns a new writer positioned at offset, sharing the underlying file.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, cfg: w.cfg, pos: offset}
}

// Pos returns the current write position.
func (w *Writer) Pos() int64 { return w.pos }

// WriteBytes writes data at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	return w.WriteBytes(make([]byte, n))
}

// Encoder returns an empty Encoder using this writer's field sizes.
func (w *Writer) Encoder() *Encoder { return NewEncoder(w.cfg) }

// Config returns the field configuration the writer was created with.
func (w *Writer) Config() Config { return w.cfg }

// OffsetSize returns the configured offset size in bytes.
func (w *Writer) OffsetSize() int { return w.cfg.OffsetSize }

// LengthSize returns the configured length size in bytes.
func (w *Writer) LengthSize() int { return w.cfg.LengthSize }
