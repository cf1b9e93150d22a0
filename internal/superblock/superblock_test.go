package superblock

import (
	"bytes"
	"errors"
	"testing"

	binpkg "github.com/robert-malhotra/go-mrrd/internal/binary"
)

type memFile struct{ buf []byte }

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	return copy(m.buf[off:], p), nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, errors.New("EOF")
	}
	n := copy(p, m.buf[off:])
	return n, nil
}

func TestWriteReadRoundTrip(t *testing.T) {
	sb := New()
	sb.EOFAddress = 0x1234
	sb.RootGroupAddress = 48
	sb.FileConsistencyFlags = FlagWriteAccess

	f := &memFile{}
	if err := sb.Write(binpkg.NewWriter(f, sb.Config())); err != nil {
		t.Fatal(err)
	}
	if len(f.buf) != sb.Size() {
		t.Fatalf("wrote %d bytes, Size() = %d", len(f.buf), sb.Size())
	}

	got, err := Read(f)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Version != 3 || got.OffsetSize != 8 || got.LengthSize != 8 {
		t.Errorf("header fields = %d/%d/%d", got.Version, got.OffsetSize, got.LengthSize)
	}
	if got.EOFAddress != 0x1234 || got.RootGroupAddress != 48 {
		t.Errorf("addresses = eof 0x%x root 0x%x", got.EOFAddress, got.RootGroupAddress)
	}
	if !got.WriteLocked() {
		t.Error("write access flag lost")
	}
	if got.SuperblockExtensionAddress != binpkg.Undefined(8) {
		t.Errorf("extension address = 0x%x, want undefined", got.SuperblockExtensionAddress)
	}
}

func TestReadAtUserBlockOffset(t *testing.T) {
	sb := New()
	sb.FileOffset = 512
	f := &memFile{buf: make([]byte, 512)}
	if err := sb.Write(binpkg.NewWriter(f, sb.Config())); err != nil {
		t.Fatal(err)
	}
	got, err := Read(f)
	if err != nil {
		t.Fatal(err)
	}
	if got.FileOffset != 512 {
		t.Errorf("FileOffset = %d, want 512", got.FileOffset)
	}
}

func TestReadErrors(t *testing.T) {
	t.Run("not hdf5", func(t *testing.T) {
		_, err := Read(&memFile{buf: make([]byte, 4096)})
		if !errors.Is(err, ErrNotHDF5) {
			t.Errorf("got %v, want ErrNotHDF5", err)
		}
	})

	t.Run("version 0", func(t *testing.T) {
		buf := make([]byte, 256)
		copy(buf, Signature)
		_, err := Read(&memFile{buf: buf})
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("got %v, want ErrUnsupportedVersion", err)
		}
	})

	t.Run("checksum", func(t *testing.T) {
		buf := New().Encode()
		buf[20] ^= 0xFF
		_, err := Read(&memFile{buf: buf})
		if !errors.Is(err, ErrInvalidSuperblock) {
			t.Errorf("got %v, want ErrInvalidSuperblock", err)
		}
	})
}

func TestEncodeSignature(t *testing.T) {
	if !bytes.HasPrefix(New().Encode(), Signature) {
		t.Error("encoded superblock does not start with the signature")
	}
}
