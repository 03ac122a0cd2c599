// Package bitio implements the buffered bit-reading primitives shared by
// every format and codec package: an MSB-first reader for FLAC and MPEG
// Audio headers/side info, an LSB-first reader (wrapping icza/bitio) for
// Vorbis and Opus, a scoped sub-reader enforcing declared chunk/box/block
// lengths, and Rice/unary decode helpers (spec §4.5, §6 "Bit/Byte IO
// primitives").
//
// The MSB reader's buffering and inline-checksum design is grounded on
// farcloser-flac's internal/bits.Reader: a fixed read-ahead buffer refilled
// by shifting unread bytes to the front, with checksum accumulation
// happening as bytes are *consumed* from the buffer rather than as they
// enter it, so read-ahead never corrupts a CRC computed over the logical
// stream. That package has no go.mod of its own, so it is pack reference
// material rather than the chosen teacher, but its bit-reader shape is the
// most complete one available and mewkiz/flac's own frame package performs
// the equivalent job with github.com/mewkiz/pkg/bit plus an io.TeeReader,
// which this generalizes.
package bitio

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/internal/checksum"
)

const readBufSize = 4096

// Reader is a buffered MSB-first bit reader with optional inline Monitor
// feeding (CRC-8, CRC-32, MD5) over consumed bytes.
type Reader struct {
	r   io.Reader
	buf [readBufSize]byte
	pos int
	end int

	x uint8 // up to 7 buffered bits from a partial byte read
	n uint

	monitors []checksum.Monitor
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// AddMonitor attaches a Monitor that will be fed every byte consumed from
// this point forward. Multiple monitors may be active at once (e.g. FLAC
// feeds both CRC-8 over a frame header and CRC-16 over the whole frame
// through the one reader).
func (br *Reader) AddMonitor(m checksum.Monitor) {
	br.monitors = append(br.monitors, m)
}

// ClearMonitors detaches all monitors.
func (br *Reader) ClearMonitors() {
	br.monitors = nil
}

func (br *Reader) feed(p []byte) {
	for _, m := range br.monitors {
		m.Write(p)
	}
}

// FeedExtra feeds bytes identified outside the normal Read path (e.g. a
// sync sequence matched during resync scanning) to the active monitors.
func (br *Reader) FeedExtra(p []byte) {
	br.feed(p)
}

func (br *Reader) available() int { return br.end - br.pos }

func (br *Reader) fill() error {
	if br.pos > 0 {
		n := copy(br.buf[:], br.buf[br.pos:br.end])
		br.pos = 0
		br.end = n
	}
	n, err := br.r.Read(br.buf[br.end:])
	br.end += n
	if n > 0 {
		return nil
	}
	return err
}

func (br *Reader) needBytes(n int) error {
	for br.available() < n {
		if err := br.fill(); err != nil {
			if br.available() >= n {
				return nil
			}
			if br.available() > 0 && err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

func (br *Reader) consumeBytes(from, to int) {
	if from >= to || len(br.monitors) == 0 {
		return
	}
	br.feed(br.buf[from:to])
}

// IsAligned reports whether the reader sits at a byte boundary.
func (br *Reader) IsAligned() bool { return br.n == 0 }

// Available reports the number of whole bytes currently buffered but not
// yet consumed from the underlying reader. Callers that need to know
// exactly how many bytes of an underlying stream a parse consumed (e.g. a
// demuxer delimiting a self-terminating frame with no explicit length
// field) subtract this from the count of bytes they fed into the
// underlying reader.
func (br *Reader) Available() int { return br.available() }

// BitsBuffered returns the number of buffered bits left from a partial byte
// read, in [0, 7].
func (br *Reader) BitsBuffered() uint { return br.n }

// Reset discards buffered data and partial-byte state. Call after seeking
// the underlying reader.
func (br *Reader) Reset() {
	br.pos = 0
	br.end = 0
	br.x = 0
	br.n = 0
}

// Seek implements io.Seeker when the underlying reader supports it,
// accounting for buffered-but-unconsumed bytes.
func (br *Reader) Seek(offset int64, whence int) (int64, error) {
	seeker, ok := br.r.(io.Seeker)
	if !ok {
		return 0, errors.New("bitio.Reader.Seek: underlying reader is not seekable")
	}
	if offset == 0 && whence == io.SeekCurrent {
		pos, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		return pos - int64(br.available()), nil
	}
	if whence == io.SeekCurrent {
		offset -= int64(br.available())
	}
	br.Reset()
	return seeker.Seek(offset, whence)
}

// ReadAligned reads exactly len(p) bytes into p. The reader must be
// byte-aligned.
func (br *Reader) ReadAligned(p []byte) error {
	if br.n != 0 {
		return errors.New("bitio.Reader.ReadAligned: reader not byte-aligned")
	}
	avail := br.available()
	if avail > 0 {
		n := copy(p, br.buf[br.pos:br.end])
		br.consumeBytes(br.pos, br.pos+n)
		br.pos += n
		p = p[n:]
	}
	if len(p) == 0 {
		return nil
	}
	if _, err := io.ReadFull(br.r, p); err != nil {
		return err
	}
	br.feed(p)
	return nil
}

// Read reads and returns the next n bits (n <= 64), MSB first.
func (br *Reader) Read(n uint) (x uint64, err error) {
	if n == 0 {
		return 0, nil
	}
	if n > 64 {
		return 0, errors.Errorf("bitio.Reader.Read: n (%d) exceeds 64", n)
	}

	if br.n > 0 {
		switch {
		case br.n == n:
			br.n = 0
			return uint64(br.x), nil
		case br.n > n:
			br.n -= n
			mask := ^uint8(0) << br.n
			x = uint64(br.x&mask) >> br.n
			br.x &^= mask
			return x, nil
		}
		n -= br.n
		x = uint64(br.x)
		br.n = 0
	}

	nBytes := n / 8
	nBits := n % 8
	if nBits > 0 {
		nBytes++
	}

	if err = br.needBytes(int(nBytes)); err != nil {
		return 0, err
	}

	oldPos := br.pos
	for i := uint(0); i < nBytes-1; i++ {
		x <<= 8
		x |= uint64(br.buf[br.pos])
		br.pos++
	}
	b := br.buf[br.pos]
	br.pos++
	br.consumeBytes(oldPos, br.pos)

	if nBits > 0 {
		x <<= nBits
		br.n = 8 - nBits
		mask := ^uint8(0) << br.n
		x |= uint64(b&mask) >> br.n
		br.x = b &^ mask
	} else {
		x <<= 8
		x |= uint64(b)
	}
	return x, nil
}

// ReadBit reads a single bit.
func (br *Reader) ReadBit() (uint8, error) {
	x, err := br.Read(1)
	return uint8(x), err
}

// ByteReader adapts the bit reader to io.Reader for byte-aligned callers
// (e.g. UTF-8 coded integer decoding). The bit reader must be byte-aligned
// whenever the returned reader's Read is called.
func (br *Reader) ByteReader() io.Reader {
	return &byteAdapter{br: br}
}

type byteAdapter struct{ br *Reader }

func (a *byteAdapter) Read(p []byte) (int, error) {
	for i := range p {
		x, err := a.br.Read(8)
		if err != nil {
			return i, err
		}
		p[i] = byte(x)
	}
	return len(p), nil
}
