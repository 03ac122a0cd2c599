// Package huffman builds canonical Huffman decode tables from code-length
// vectors, used by codec/vorbis codebook parsing (spec §4.5 "Codebook
// construction"). codec/mpa does not use it: its fixed tables are walked
// as codeword lists of their own.
//
// Vorbis's own codebook setup (see the teacher's counterpart in
// _examples/other_examples for a Go Vorbis decoder) builds codewords the
// same way: walk code lengths in increasing order, assign the next
// available code at each length, and propagate the used prefix forward so
// longer codewords branch off of it.
package huffman

import "github.com/pkg/errors"

// ErrUnderspecified is returned when a code-length vector does not fully
// saturate the code space at its maximum length, the "under-specification"
// case spec §4.5 calls out as an error (excepting single-entry codebooks).
var ErrUnderspecified = errors.New("huffman: underspecified codebook")

// Codeword is one synthesized canonical codeword.
type Codeword struct {
	// Symbol is the index into the original length vector.
	Symbol int
	// Code is the codeword value, with Len significant bits, MSB first.
	Code uint32
	// Len is the codeword's bit length.
	Len uint8
}

// Build synthesizes canonical codewords for a code-length vector. lengths
// values are 0..32, where 0 means the symbol is absent from the codebook.
// A fully specified tree is one whose next-codeword at each length
// saturates (all ones below the bit width); under-specified trees are
// rejected with ErrUnderspecified, except the single-entry special case
// (exactly one present symbol), which is accepted per spec errata and
// assigned the zero-length codeword.
func Build(lengths []int) ([]Codeword, error) {
	present := 0
	maxLen := 0
	for _, l := range lengths {
		if l < 0 || l > 32 {
			return nil, errors.Errorf("huffman: invalid code length %d", l)
		}
		if l > 0 {
			present++
			if l > maxLen {
				maxLen = l
			}
		}
	}
	if present == 0 {
		return nil, errors.New("huffman: empty codebook")
	}
	if present == 1 {
		for sym, l := range lengths {
			if l > 0 {
				return []Codeword{{Symbol: sym, Code: 0, Len: 0}}, nil
			}
		}
	}

	// Count symbols per length, then derive the first codeword at each
	// length via the standard canonical-Huffman recurrence:
	//   firstCode[1] = 0
	//   firstCode[l] = (firstCode[l-1] + count[l-1]) << 1
	count := make([]int, maxLen+1)
	for _, l := range lengths {
		if l > 0 {
			count[l]++
		}
	}
	nextCode := make([]uint32, maxLen+1)
	var code uint32
	for l := 1; l <= maxLen; l++ {
		code = (code + uint32(count[l-1])) << 1
		nextCode[l] = code
	}

	words := make([]Codeword, 0, present)
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		words = append(words, Codeword{Symbol: sym, Code: nextCode[l], Len: uint8(l)})
		nextCode[l]++
	}

	// Saturation check: the next codeword at maxLen must have overflowed
	// past all-ones, i.e. nextCode[maxLen] == 1<<maxLen.
	if nextCode[maxLen] != uint32(1)<<uint(maxLen) {
		return nil, ErrUnderspecified
	}

	return words, nil
}

// DecodeTable is a lookup structure mapping MSB-first bit sequences to
// symbols, built from a set of Codewords.
type DecodeTable struct {
	root *node
}

type node struct {
	leaf     bool
	symbol   int
	children [2]*node
}

// NewDecodeTable builds a binary-trie decode table from synthesized
// codewords.
func NewDecodeTable(words []Codeword) *DecodeTable {
	root := &node{}
	for _, w := range words {
		n := root
		for i := int(w.Len) - 1; i >= 0; i-- {
			bit := (w.Code >> uint(i)) & 1
			if n.children[bit] == nil {
				n.children[bit] = &node{}
			}
			n = n.children[bit]
		}
		n.leaf = true
		n.symbol = w.Symbol
	}
	return &DecodeTable{root: root}
}

// BitReader is the minimal capability DecodeTable.Decode needs: reading
// one bit at a time, MSB first.
type BitReader interface {
	ReadBit() (uint8, error)
}

// Decode walks br one bit at a time until a leaf is reached, returning its
// symbol.
func (t *DecodeTable) Decode(br BitReader) (int, error) {
	n := t.root
	for !n.leaf {
		bit, err := br.ReadBit()
		if err != nil {
			return 0, err
		}
		next := n.children[bit]
		if next == nil {
			return 0, errors.New("huffman: invalid codeword (no matching path)")
		}
		n = next
	}
	return n.symbol, nil
}
