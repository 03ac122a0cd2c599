package huffman

import (
	"bytes"
	"testing"

	"github.com/mewkiz/audiocore/internal/bitio"
)

func TestBuildCanonicalCodewords(t *testing.T) {
	// Classic example: lengths {2, 2, 2, 3, 3}, fully saturated.
	lengths := []int{2, 2, 2, 3, 3}
	words, err := Build(lengths)
	if err != nil {
		t.Fatal(err)
	}
	want := map[int]Codeword{
		0: {Symbol: 0, Code: 0b00, Len: 2},
		1: {Symbol: 1, Code: 0b01, Len: 2},
		2: {Symbol: 2, Code: 0b10, Len: 2},
		3: {Symbol: 3, Code: 0b110, Len: 3},
		4: {Symbol: 4, Code: 0b111, Len: 3},
	}
	for _, w := range words {
		if w != want[w.Symbol] {
			t.Fatalf("symbol %d: got %+v, want %+v", w.Symbol, w, want[w.Symbol])
		}
	}
}

func TestBuildUnderspecified(t *testing.T) {
	_, err := Build([]int{1, 3})
	if err != ErrUnderspecified {
		t.Fatalf("got %v, want ErrUnderspecified", err)
	}
}

func TestBuildSingleEntry(t *testing.T) {
	words, err := Build([]int{0, 5, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 1 || words[0].Len != 0 {
		t.Fatalf("single-entry codebook should get the zero-length codeword, got %+v", words)
	}
}

func TestDecodeTableRoundTrip(t *testing.T) {
	lengths := []int{2, 2, 2, 3, 3}
	words, err := Build(lengths)
	if err != nil {
		t.Fatal(err)
	}
	table := NewDecodeTable(words)

	// Encode symbol 4's codeword (0b111, 3 bits) into a byte and decode it
	// back via the bit reader.
	var buf bytes.Buffer
	buf.WriteByte(0b11100000)
	br := bitio.NewReader(&buf)
	sym, err := table.Decode(br)
	if err != nil {
		t.Fatal(err)
	}
	if sym != 4 {
		t.Fatalf("decoded symbol = %d, want 4", sym)
	}
}
