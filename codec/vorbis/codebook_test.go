package vorbis

import (
	"bytes"
	"testing"

	"github.com/mewkiz/audiocore/internal/bitio"
)

// buildCodebookPacket packs a minimal type-0 (no lookup) codebook with a
// dense code-length list, per Vorbis I §3.2.1.
func buildCodebookPacket(t *testing.T, lengths []int) []byte {
	t.Helper()
	var buf bytes.Buffer
	bw := bitio.NewLSBWriter(&buf)
	bw.WriteBits(0x564342, 24)
	bw.WriteBits(uint64(1), 16) // dimensions
	bw.WriteBits(uint64(len(lengths)), 24)
	bw.WriteBit(false) // not ordered
	bw.WriteBit(false) // not sparse
	for _, l := range lengths {
		bw.WriteBits(uint64(l-1), 5)
	}
	bw.WriteBits(0, 4) // lookup type 0
	bw.Flush()
	return buf.Bytes()
}

func TestReadCodebookDense(t *testing.T) {
	lengths := []int{2, 2, 2, 3, 3}
	data := buildCodebookPacket(t, lengths)
	br := bitio.NewLSBReader(bytes.NewReader(data))
	cb, err := ReadCodebook(br)
	if err != nil {
		t.Fatal(err)
	}
	if cb.Entries != len(lengths) {
		t.Fatalf("Entries = %d, want %d", cb.Entries, len(lengths))
	}
	if cb.Dimensions != 1 {
		t.Fatalf("Dimensions = %d, want 1", cb.Dimensions)
	}
}

func TestFloat32Unpack(t *testing.T) {
	// A zero-mantissa value always unpacks to zero regardless of exponent
	// or sign.
	if v := float32Unpack(0); v != 0 {
		t.Fatalf("float32Unpack(0) = %v, want 0", v)
	}
}

func TestLookup1Values(t *testing.T) {
	tests := []struct {
		entries, dims, want int
	}{
		{entries: 27, dims: 3, want: 3},
		{entries: 64, dims: 2, want: 8},
	}
	for _, tt := range tests {
		got := lookup1Values(tt.entries, tt.dims)
		if got != tt.want {
			t.Errorf("lookup1Values(%d, %d) = %d, want %d", tt.entries, tt.dims, got, tt.want)
		}
	}
}
