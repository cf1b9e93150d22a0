package binary

// Encoder appends HDF5 fields to an in-memory buffer. Metadata structures
// that end in a checksum are always assembled this way so the checksum can be
// computed over the exact bytes that reach the file.
type Encoder struct {
	cfg Config
	buf []byte
}

// NewEncoder returns an empty encoder.
func NewEncoder(cfg Config) *Encoder {
	return &Encoder{cfg: cfg}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int { return len(e.buf) }

// Config returns the encoder's field configuration.
func (e *Encoder) Config() Config { return e.cfg }

// PutBytes appends raw bytes.
func (e *Encoder) PutBytes(b []byte) { e.buf = append(e.buf, b...) }

// PutZeros appends n zero bytes.
func (e *Encoder) PutZeros(n int) {
	for ; n > 0; n-- {
		e.buf = append(e.buf, 0)
	}
}

// PutUintN appends v as an n-byte unsigned integer.
func (e *Encoder) PutUintN(v uint64, n int) {
	start := len(e.buf)
	e.PutZeros(n)
	putUint(e.cfg.ByteOrder, e.buf[start:], v)
}

// PutUint8 appends a single byte.
func (e *Encoder) PutUint8(v uint8) { e.buf = append(e.buf, v) }

// PutUint16 appends a 16-bit integer.
func (e *Encoder) PutUint16(v uint16) { e.PutUintN(uint64(v), 2) }

// PutUint32 appends a 32-bit integer.
func (e *Encoder) PutUint32(v uint32) { e.PutUintN(uint64(v), 4) }

// PutUint64 appends a 64-bit integer.
func (e *Encoder) PutUint64(v uint64) { e.PutUintN(v, 8) }

// PutOffset appends a file address.
func (e *Encoder) PutOffset(v uint64) { e.PutUintN(v, e.cfg.OffsetSize) }

// PutUndefinedOffset appends the undefined address.
func (e *Encoder) PutUndefinedOffset() { e.PutOffset(Undefined(e.cfg.OffsetSize)) }

// PutLength appends a length field.
func (e *Encoder) PutLength(v uint64) { e.PutUintN(v, e.cfg.LengthSize) }

// PutChecksum appends the lookup3 checksum of everything encoded so far.
func (e *Encoder) PutChecksum() { e.PutUint32(Lookup3Checksum(e.buf)) }

// Decoder reads HDF5 fields from a byte slice, such as the body of a
// header message. Errors are sticky: after the first short read every
// further call returns zero and Err reports ErrShortBuffer.
type Decoder struct {
	cfg Config
	buf []byte
	off int
	err error
}

// NewDecoder returns a decoder over buf.
func NewDecoder(buf []byte, cfg Config) *Decoder {
	return &Decoder{cfg: cfg, buf: buf}
}

// Err returns the first error encountered.
func (d *Decoder) Err() error { return d.err }

// Offset returns the number of bytes consumed.
func (d *Decoder) Offset() int { return d.off }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Config returns the decoder's field configuration.
func (d *Decoder) Config() Config { return d.cfg }

// Bytes returns the next n bytes without copying.
func (d *Decoder) Bytes(n int) []byte {
	if d.err != nil || n < 0 || d.off+n > len(d.buf) {
		d.err = ErrShortBuffer
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

// Skip discards n bytes.
func (d *Decoder) Skip(n int) { d.Bytes(n) }

// UintN decodes an n-byte unsigned integer.
func (d *Decoder) UintN(n int) uint64 {
	b := d.Bytes(n)
	if b == nil {
		return 0
	}
	return getUint(d.cfg.ByteOrder, b)
}

// Uint8 decodes a single byte.
func (d *Decoder) Uint8() uint8 { return uint8(d.UintN(1)) }

// Uint16 decodes a 16-bit integer.
func (d *Decoder) Uint16() uint16 { return uint16(d.UintN(2)) }

// Uint32 decodes a 32-bit integer.
func (d *Decoder) Uint32() uint32 { return uint32(d.UintN(4)) }

// Uint64 decodes a 64-bit integer.
func (d *Decoder) Uint64() uint64 { return d.UintN(8) }

// Addr decodes a file address.
func (d *Decoder) Addr() uint64 { return d.UintN(d.cfg.OffsetSize) }

// Length decodes a length field.
func (d *Decoder) Length() uint64 { return d.UintN(d.cfg.LengthSize) }
