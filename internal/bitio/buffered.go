package bitio

import (
	"io"

	"github.com/pkg/errors"
)

// BufferedSource implements core.MediaSource over an io.Reader that may not
// itself support Seek: a sliding read-ahead window retains the last window
// bytes handed out, letting Rewind (and the equivalent negative
// io.SeekCurrent Seek) step back within that window without touching the
// underlying reader at all. This is the variant spec §4.1 describes as "a
// buffered media source with a sliding read-ahead window supporting short
// backwards seeks without going to the underlying source" — probe.Registry's
// marker disambiguation is the intended caller, rewinding a handful of bytes
// at a time to re-examine a candidate match.
//
// Only short backward seeks are supported; forward seeks and SeekStart/
// SeekEnd return an error, since BufferedSource exists precisely for
// sources that cannot do those either.
type BufferedSource struct {
	r      io.Reader
	window int
	buf    []byte // buf[0] is the oldest byte still retained
	base   int64  // absolute stream offset of buf[0]
	pos    int64  // absolute stream offset of the next byte Read returns
}

// NewBufferedSource wraps r with a Rewind window of window bytes: a Rewind
// or backward Seek more than window bytes past the current position fails.
func NewBufferedSource(r io.Reader, window int) *BufferedSource {
	return &BufferedSource{r: r, window: window}
}

// Read implements io.Reader, serving from the retained window first and
// only pulling from the underlying reader once the window is exhausted.
func (b *BufferedSource) Read(p []byte) (int, error) {
	if off := b.pos - b.base; off < int64(len(b.buf)) {
		n := copy(p, b.buf[off:])
		b.pos += int64(n)
		return n, nil
	}
	n, err := b.r.Read(p)
	if n > 0 {
		b.buf = append(b.buf, p[:n]...)
		b.pos += int64(n)
		if over := len(b.buf) - b.window; over > 0 && b.window > 0 {
			copy(b.buf, b.buf[over:])
			b.buf = b.buf[:len(b.buf)-over]
			b.base += int64(over)
		}
	}
	return n, err
}

// Rewind moves the read cursor back n bytes, provided they are still held
// in the read-ahead window.
func (b *BufferedSource) Rewind(n int) error {
	if n < 0 {
		return errors.New("bitio: negative Rewind")
	}
	target := b.pos - int64(n)
	if target < b.base {
		return errors.New("bitio: rewind past buffered window")
	}
	b.pos = target
	return nil
}

// Seek implements the negative-offset, SeekCurrent case of io.Seeker (the
// shape Rewind needs to satisfy core.MediaSource); any other case reports
// a KindIO-style error, since forward seeks and absolute positioning are
// exactly what the wrapped reader cannot do either.
func (b *BufferedSource) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekCurrent || offset > 0 {
		return 0, errors.New("bitio: BufferedSource only supports short backward seeks")
	}
	if offset == 0 {
		return b.pos, nil
	}
	if err := b.Rewind(int(-offset)); err != nil {
		return 0, err
	}
	return b.pos, nil
}

// Len reports (0, false): a BufferedSource exists precisely because the
// underlying reader's total length isn't knowable up front.
func (b *BufferedSource) Len() (int64, bool) { return 0, false }
