// Package opus implements the Opus range decoder core, per spec §4.4.5:
// the entropy coder shared by SILK and CELT, exposed as its own decodable
// unit. Full SILK/CELT synthesis is out of this package's scope, matching
// the module's own stated scope line ("Opus range decoder", not a
// complete Opus audio decoder); a Decoder that produced PCM would need
// both synthesis paths, which is a substantial independent undertaking
// this module does not attempt.
//
// Grounded directly on RFC 6716 §4.1's reference algorithm (the primary
// source the distilled spec.md text itself paraphrases); no pack repo
// supplied a pure-Go Opus range coder to adapt instead.
package opus

import "io"

// RangeDecoder is an RFC 6716 §4.1 range decoder: maintains (rng, val)
// over a byte source, with rng always greater than 1<<23 immediately
// after each renormalization.
type RangeDecoder struct {
	r   io.ByteReader
	rng uint32
	val uint32
	eof bool
}

const rangeTop = uint32(1) << 24

// NewRangeDecoder initializes a range decoder from the first bytes of an
// Opus frame, per RFC 6716 §4.1.1: rng starts at 128, and val is seeded
// from the first byte's complement.
func NewRangeDecoder(r io.ByteReader) (*RangeDecoder, error) {
	d := &RangeDecoder{r: r, rng: 128}
	b, err := d.readByte()
	if err != nil {
		return nil, err
	}
	d.val = 127 - uint32(b)
	d.normalize()
	return d, nil
}

func (d *RangeDecoder) readByte() (byte, error) {
	if d.eof {
		return 0, nil
	}
	b, err := d.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			// Missing bytes past end-of-buffer are treated as zero, per
			// spec §4.4.5.
			d.eof = true
			return 0, nil
		}
		return 0, err
	}
	return b, nil
}

// normalize renormalizes rng/val by reading one byte at a time while rng
// stays at or below 1<<23, per RFC 6716 §4.1.1: rng is shifted left by 8
// and 255-byte is folded into val, masked to 31 bits.
func (d *RangeDecoder) normalize() error {
	for d.rng <= 1<<23 {
		b, err := d.readByte()
		if err != nil {
			return err
		}
		d.rng <<= 8
		d.val = ((d.val << 8) | uint32(255-b)) & 0x7FFFFFFF
	}
	return nil
}

// DecodeSymbolWithICDF decodes one symbol given an inverse cumulative
// distribution function table (icdf), per RFC 6716 §4.1.3.2:
// icdf[i] for i in [0,len) is a strictly decreasing sequence ending in 0,
// each entry representing the total probability mass of all symbols at
// index >= i scaled to a total of 1<<bits. Returns the smallest index
// whose icdf value is less than or equal to the scaled fractional
// position within rng, updating rng/val and renormalizing.
func (d *RangeDecoder) DecodeSymbolWithICDF(icdf []uint32, bits uint) (int, error) {
	total := uint32(1) << bits
	r := d.rng / total
	fs := total - minU32(d.val/r+1, total)

	sym := 0
	for sym < len(icdf)-1 && icdf[sym] > fs {
		sym++
	}

	var high, low uint32
	if sym == 0 {
		high = total
	} else {
		high = icdf[sym-1]
	}
	low = icdf[sym]

	d.val -= r * (total - high)
	d.rng = r * (high - low)
	if err := d.normalize(); err != nil {
		return 0, err
	}
	return sym, nil
}

// DecodeSymbolLogP implements the equally weighted binary symbol
// shortcut, per RFC 6716 §4.1.3.3: rng is split in half logp times (i.e.
// divided by 1<<logp), and the decoded bit is 1 if val falls in the upper
// half.
func (d *RangeDecoder) DecodeSymbolLogP(logp uint) (int, error) {
	r := d.rng >> logp
	var bit int
	var high, low uint32
	if d.val >= r {
		bit = 0
		low, high = 0, d.rng-r
	} else {
		bit = 1
		low, high = d.rng-r, d.rng
	}
	d.val -= low
	d.rng = high - low
	if err := d.normalize(); err != nil {
		return 0, err
	}
	return bit, nil
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
