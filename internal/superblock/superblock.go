package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-mrrd/internal/binary"
)

// Signature is the 8-byte HDF5 file signature.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// Possible superblock locations, searched in order.
var superblockOffsets = []int64{0, 512, 1024, 2048}

// Errors
var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

// FlagWriteAccess is set in FileConsistencyFlags while a writer owns the file.
const FlagWriteAccess uint8 = 0x01

// Superblock holds the file-level metadata.
type Superblock struct {
	Version              uint8
	OffsetSize           uint8
	LengthSize           uint8
	FileConsistencyFlags uint8

	BaseAddress                uint64
	SuperblockExtensionAddress uint64
	EOFAddress                 uint64
	RootGroupAddress           uint64

	// FileOffset is where the signature was found.
	FileOffset int64
}

// New returns a version 3 superblock with 8-byte offsets and lengths and no
// extension.
func New() *Superblock {
	return &Superblock{
		Version:                    3,
		OffsetSize:                 8,
		LengthSize:                 8,
		SuperblockExtensionAddress: binpkg.Undefined(8),
	}
}

// Config returns the binary configuration implied by the superblock.
func (sb *Superblock) Config() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Size returns the encoded size of the superblock.
func (sb *Superblock) Size() int {
	return 12 + 4*int(sb.OffsetSize) + 4
}

// WriteLocked reports whether another writer holds the file.
func (sb *Superblock) WriteLocked() bool {
	return sb.FileConsistencyFlags&FlagWriteAccess != 0
}

// Read locates and parses the superblock.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, len(Signature)+1)
	for _, offset := range superblockOffsets {
		if _, err := r.ReadAt(sig, offset); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig[:len(Signature)], Signature) {
			continue
		}
		switch version := sig[len(Signature)]; version {
		case 2, 3:
			sb, err := read(r, offset)
			if err != nil {
				return nil, err
			}
			sb.FileOffset = offset
			return sb, nil
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}
	}
	return nil, ErrNotHDF5
}

func read(r io.ReaderAt, offset int64) (*Superblock, error) {
	head := make([]byte, 12)
	if _, err := r.ReadAt(head, offset); err != nil {
		return nil, err
	}
	osize := int(head[9])
	cfg := binpkg.Config{ByteOrder: binary.LittleEndian, OffsetSize: osize, LengthSize: int(head[10])}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuperblock, err)
	}

	buf := make([]byte, 12+4*osize+4)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	body := buf[:len(buf)-4]
	stored := binary.LittleEndian.Uint32(buf[len(buf)-4:])
	if binpkg.Lookup3Checksum(body) != stored {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}

	d := binpkg.NewDecoder(body[12:], cfg)
	sb := &Superblock{
		Version:                    head[8],
		OffsetSize:                 head[9],
		LengthSize:                 head[10],
		FileConsistencyFlags:       head[11],
		BaseAddress:                d.Addr(),
		SuperblockExtensionAddress: d.Addr(),
		EOFAddress:                 d.Addr(),
		RootGroupAddress:           d.Addr(),
	}
	return sb, d.Err()
}

// Encode returns the on-disk bytes of the superblock, checksum included.
func (sb *Superblock) Encode() []byte {
	e := binpkg.NewEncoder(sb.Config())
	e.PutBytes(Signature)
	e.PutUint8(sb.Version)
	e.PutUint8(sb.OffsetSize)
	e.PutUint8(sb.LengthSize)
	e.PutUint8(sb.FileConsistencyFlags)
	e.PutOffset(sb.BaseAddress)
	e.PutOffset(sb.SuperblockExtensionAddress)
	e.PutOffset(sb.EOFAddress)
	e.PutOffset(sb.RootGroupAddress)
	e.PutChecksum()
	return e.Bytes()
}

// Write writes the superblock where it was found, offset 0 for new files.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	return w.At(sb.FileOffset).WriteBytes(sb.Encode())
}
