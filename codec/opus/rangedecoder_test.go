package opus

import (
	"bytes"
	"testing"
)

func TestNewRangeDecoderInitializesRange(t *testing.T) {
	d, err := NewRangeDecoder(bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x00}))
	if err != nil {
		t.Fatal(err)
	}
	if d.rng <= 1<<23 {
		t.Fatalf("rng = %d, want > 1<<23 after initial normalization", d.rng)
	}
}

func TestDecodeSymbolLogPReturnsValidBit(t *testing.T) {
	d, err := NewRangeDecoder(bytes.NewReader(bytes.Repeat([]byte{0xAA}, 8)))
	if err != nil {
		t.Fatal(err)
	}
	bit, err := d.DecodeSymbolLogP(1)
	if err != nil {
		t.Fatal(err)
	}
	if bit != 0 && bit != 1 {
		t.Fatalf("bit = %d, want 0 or 1", bit)
	}
	if d.rng <= 1<<23 {
		t.Fatalf("rng = %d, want > 1<<23 after renormalization", d.rng)
	}
}

func TestDecodeSymbolWithICDFSelectsInRange(t *testing.T) {
	d, err := NewRangeDecoder(bytes.NewReader(bytes.Repeat([]byte{0x40}, 8)))
	if err != nil {
		t.Fatal(err)
	}
	// A 3-symbol ICDF table scaled to 1<<6, per RFC 6716 ?4.1.3.2 layout.
	icdf := []uint32{48, 16, 0}
	sym, err := d.DecodeSymbolWithICDF(icdf, 6)
	if err != nil {
		t.Fatal(err)
	}
	if sym < 0 || sym >= len(icdf) {
		t.Fatalf("sym = %d, out of range [0,%d)", sym, len(icdf))
	}
}

func TestMissingBytesTreatedAsZero(t *testing.T) {
	d, err := NewRangeDecoder(bytes.NewReader([]byte{0x01}))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if _, err := d.DecodeSymbolLogP(1); err != nil {
			t.Fatalf("decode past end of buffer should not error, got %v", err)
		}
	}
}
