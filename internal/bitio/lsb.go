package bitio

import (
	"io"

	icza "github.com/icza/bitio"
)

// LSBReader is an LSB-first bit reader, used by Vorbis and Opus packet
// parsing where fields are packed starting at the least-significant bit of
// each byte. It wraps github.com/icza/bitio's Reader, the LSB-first bit
// library already present in the example pack's FLAC teacher dependency
// set (mewkiz/flac's encoder side uses icza/bitio's Writer for the
// complementary unary/Rice encode path), rather than hand-rolling a second
// bit-packing scheme alongside the MSB Reader above.
type LSBReader struct {
	r *icza.Reader
}

// NewLSBReader returns an LSBReader reading from r.
func NewLSBReader(r io.Reader) *LSBReader {
	return &LSBReader{r: icza.NewReader(r)}
}

// ReadBits reads n low-to-high ordered bits (n <= 64) and returns them
// right-aligned.
func (r *LSBReader) ReadBits(n uint8) (uint64, error) {
	return r.r.ReadBits(n)
}

// LSBWriter is the write-side counterpart to LSBReader, used by tests that
// need to pack a well-formed LSB-first bitstream (e.g. a Vorbis codebook)
// without hand-assembling bytes.
type LSBWriter struct {
	w *icza.Writer
}

// NewLSBWriter returns an LSBWriter writing to w.
func NewLSBWriter(w io.Writer) *LSBWriter {
	return &LSBWriter{w: icza.NewWriter(w)}
}

// WriteBits writes the low n bits of v, low-to-high ordered.
func (w *LSBWriter) WriteBits(v uint64, n uint8) error {
	return w.w.WriteBits(v, n)
}

// WriteBit writes a single bit.
func (w *LSBWriter) WriteBit(b bool) error {
	return w.w.WriteBool(b)
}

// Flush pads the current byte with zero bits and flushes it to the
// underlying writer.
func (w *LSBWriter) Flush() error {
	return w.w.Close()
}

// ReadBit reads a single bit.
func (r *LSBReader) ReadBit() (bool, error) {
	return r.r.ReadBool()
}

// ReadByte reads 8 bits as a byte, byte-aligned or not.
func (r *LSBReader) ReadByte() (byte, error) {
	return r.r.ReadByte()
}

// Align discards any partially consumed byte, advancing to the next byte
// boundary.
func (r *LSBReader) Align() {
	r.r.TryAlign()
}

// BitsCount reports the total number of bits read so far.
func (r *LSBReader) BitsCount() int64 {
	return r.r.BitsCount
}
