package mpa

import (
	"bytes"
	"testing"

	"github.com/mewkiz/audiocore/internal/bitio"
)

func TestDecodeBigValuesTable0IsAllZero(t *testing.T) {
	br := bitio.NewReader(bytes.NewReader(nil))
	out := make([]float32, 4)
	pos, err := decodeBigValues(br, 0, 2, out, 0)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 4 {
		t.Fatalf("pos = %d, want 4", pos)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want 0", i, v)
		}
	}
}

func TestDecodeBigValuesUnimplementedTable(t *testing.T) {
	br := bitio.NewReader(bytes.NewReader(nil))
	out := make([]float32, 4)
	if _, err := decodeBigValues(br, 5, 2, out, 0); err == nil {
		t.Fatal("expected unimplemented-table error for table_select 5")
	}
}

func TestReadQuadTableBDecodesBitsDirectly(t *testing.T) {
	// 0b1010 -> v=1, w=0, x=1, y=0
	br := bitio.NewReader(bytes.NewReader([]byte{0b1010_0000}))
	v, w, x, y, err := readQuadTableB(br)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 || w != 0 || x != 1 || y != 0 {
		t.Fatalf("(v,w,x,y) = (%d,%d,%d,%d), want (1,0,1,0)", v, w, x, y)
	}
}

func TestBigValuesTable1Codewords(t *testing.T) {
	entries := bigValuesTables[1].entries
	cases := []struct {
		firstByte    byte
		wantX, wantY int
	}{
		{0b1000_0000, 0, 0}, // code 1, length 1
		{0b0100_0000, 1, 0}, // code 01, length 2
		{0b0010_0000, 0, 1}, // code 001, length 3
		{0b0000_0000, 1, 1}, // code 000, length 3
	}
	for _, c := range cases {
		br := bitio.NewReader(bytes.NewReader([]byte{c.firstByte}))
		e, err := decodeHuffmanEntries(br, entries)
		if err != nil {
			t.Fatalf("decodeHuffmanEntries(%08b): %v", c.firstByte, err)
		}
		if e.x != c.wantX || e.y != c.wantY {
			t.Fatalf("decodeHuffmanEntries(%08b) = (%d,%d), want (%d,%d)", c.firstByte, e.x, e.y, c.wantX, c.wantY)
		}
	}
}

func TestBigValuesTable1IsCompletePrefixCode(t *testing.T) {
	entries := bigValuesTables[1].entries
	var kraft float64
	for _, e := range entries {
		for _, other := range entries {
			if &e == &other {
				continue
			}
			if e.length <= other.length {
				continue
			}
			mask := uint32(1)<<other.length - 1
			if (e.code>>(e.length-other.length))&mask == other.code {
				t.Fatalf("codeword %0*b is a prefix of %0*b", other.length, other.code, e.length, e.code)
			}
		}
		kraft += 1 / float64(uint32(1)<<e.length)
	}
	if kraft != 1 {
		t.Fatalf("Kraft sum = %v, want 1 (table 1 should be a complete code)", kraft)
	}
}

func TestDecodeCount1SignBits(t *testing.T) {
	// quad bits 1111, then signs for v,w,x,y: 0,1,0,1 (sign 1 means negative)
	br := bitio.NewReader(bytes.NewReader([]byte{0b1111_0101, 0b0000_0000}))
	out := make([]float32, 4)
	pos, err := decodeCount1(br, 1, out, 0)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 4 {
		t.Fatalf("pos = %d, want 4", pos)
	}
	want := []float32{1, -1, 1, -1}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}
