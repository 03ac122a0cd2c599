package bitio

import (
	"io"

	"github.com/pkg/errors"
)

// ScopedReader wraps an io.Reader with a declared byte budget, enforcing
// bytes_read <= declared_length (spec §6): Read truncates at the budget and
// returns io.EOF once it is spent, so it never crosses into the next
// structural element. Grounded on farcloser-flac/meta.Block.Skip's
// declared-length bookkeeping. The format packages bound their boxes,
// chunks and blocks with io.LimitReader; ScopedReader is exercised only by
// this package's tests.
type ScopedReader struct {
	r         io.Reader
	remaining int64
}

// ErrOverrun names a read that would exceed a declared length.
// ScopedReader.Read does not return it; it returns io.EOF instead.
var ErrOverrun = errors.New("bitio: read exceeds declared length")

// NewScopedReader returns a ScopedReader limited to length bytes from r.
func NewScopedReader(r io.Reader, length int64) *ScopedReader {
	return &ScopedReader{r: r, remaining: length}
}

// Remaining reports the number of bytes left in the declared scope.
func (s *ScopedReader) Remaining() int64 { return s.remaining }

// Read implements io.Reader, never returning more bytes than Remaining.
func (s *ScopedReader) Read(p []byte) (int, error) {
	if s.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > s.remaining {
		p = p[:s.remaining]
	}
	n, err := s.r.Read(p)
	s.remaining -= int64(n)
	return n, err
}

// Skip discards any unread bytes in the scope, seeking forward when the
// underlying reader supports it and falling back to io.Copy otherwise.
func (s *ScopedReader) Skip() error {
	if s.remaining <= 0 {
		return nil
	}
	if seeker, ok := s.r.(io.Seeker); ok {
		_, err := seeker.Seek(s.remaining, io.SeekCurrent)
		if err == nil {
			s.remaining = 0
			return nil
		}
	}
	n, err := io.CopyN(io.Discard, s.r, s.remaining)
	s.remaining -= n
	if err == io.EOF && s.remaining == 0 {
		return nil
	}
	return err
}
