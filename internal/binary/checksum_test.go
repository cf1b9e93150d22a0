package binary

import "testing"

func TestLookup3Checksum(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  uint32
	}{
		{"empty", "", 0xdeadbeef},
		{"four score", "Four score and seven years ago", 0x17770551},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Lookup3Checksum([]byte(tt.input)); got != tt.want {
				t.Errorf("Lookup3Checksum(%q) = 0x%08x, want 0x%08x", tt.input, got, tt.want)
			}
		})
	}
}

func TestLookup3ChecksumLengthVariations(t *testing.T) {
	seen := make(map[uint32]int)
	for length := 0; length <= 40; length++ {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(i)
		}
		seen[Lookup3Checksum(data)] = length
	}
	if len(seen) != 41 {
		t.Errorf("expected 41 distinct checksums for lengths 0-40, got %d", len(seen))
	}
}

func TestFletcher32(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  uint32
	}{
		// Two big-endian words 0x0102 and 0x0304.
		{"two words", []byte{0x01, 0x02, 0x03, 0x04}, 0x05080406},
		{"odd byte", []byte{0x01}, 0x01000100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fletcher32(tt.input); got != tt.want {
				t.Errorf("Fletcher32 = 0x%08x, want 0x%08x", got, tt.want)
			}
		})
	}
}

func TestFletcher32DetectsChange(t *testing.T) {
	data := make([]byte, 2048)
	for i := range data {
		data[i] = byte(i * 7)
	}
	before := Fletcher32(data)
	data[1000] ^= 0x10
	if Fletcher32(data) == before {
		t.Error("checksum did not change after flipping a bit")
	}
}
