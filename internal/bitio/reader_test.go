package bitio

import (
	"bytes"
	"testing"

	"github.com/mewkiz/audiocore/internal/checksum"
)

func TestReadBitsAcrossBoundaries(t *testing.T) {
	// 0xB5 = 1011_0101
	r := NewReader(bytes.NewReader([]byte{0xB5}))
	bits := []struct {
		n    uint
		want uint64
	}{
		{3, 0b101},
		{2, 0b10},
		{3, 0b101},
	}
	for i, b := range bits {
		got, err := r.Read(b.n)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got != b.want {
			t.Fatalf("step %d: Read(%d) = %b, want %b", i, b.n, got, b.want)
		}
	}
}

func TestReadMonitorFeedsOnlyConsumedBytes(t *testing.T) {
	data := []byte{0xAA, 0xBB, 0xCC}
	r := NewReader(bytes.NewReader(data))
	mon := checksum.NewCRC8()
	r.AddMonitor(mon)

	if _, err := r.Read(8); err != nil {
		t.Fatal(err)
	}
	want := checksum.NewCRC8()
	want.Write(data[:1])
	if mon.Sum() != want.Sum() {
		t.Fatalf("monitor fed wrong bytes: got sum %x, want %x", mon.Sum(), want.Sum())
	}
}

func TestReadUnary(t *testing.T) {
	// 0b0010_0001 -> leading zeros 2, then after consuming "001" the next
	// unary value starts at the remaining bits "0_0001" -> 4 zeros then a 1.
	r := NewReader(bytes.NewReader([]byte{0b00100001}))
	v1, err := r.ReadUnary()
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 2 {
		t.Fatalf("first ReadUnary = %d, want 2", v1)
	}
	v2, err := r.ReadUnary()
	if err != nil {
		t.Fatal(err)
	}
	if v2 != 4 {
		t.Fatalf("second ReadUnary = %d, want 4", v2)
	}
}

func TestReadRiceZigZag(t *testing.T) {
	// Rice k=0 encodes zigzag(v) in unary only. zigzag(-1) = 1 => unary "01".
	r := NewReader(bytes.NewReader([]byte{0b01000000}))
	v, err := r.ReadRice(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != -1 {
		t.Fatalf("ReadRice(0) = %d, want -1", v)
	}
}

func TestScopedReaderOverrun(t *testing.T) {
	s := NewScopedReader(bytes.NewReader([]byte{1, 2, 3, 4}), 2)
	buf := make([]byte, 4)
	n, _ := s.Read(buf)
	if n != 2 {
		t.Fatalf("ScopedReader read past its declared length: got %d bytes, want 2", n)
	}
	if s.Remaining() != 0 {
		t.Fatalf("Remaining() = %d, want 0", s.Remaining())
	}
}
