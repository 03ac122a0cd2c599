package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the category of an Error, matching the closed error
// surface of spec §6.
type Kind int

// Error kinds.
const (
	// KindIO wraps an underlying I/O failure from the byte source.
	KindIO Kind = iota
	// KindDecode reports recoverable, mid-packet data corruption.
	KindDecode
	// KindUnsupported reports a container or codec feature this build
	// cannot handle.
	KindUnsupported
	// KindSeek reports a failed seek; see SeekKind for the subkind.
	KindSeek
	// KindResetRequired reports that Decoder.Reset must be called before
	// the next Decode, typically after a seek.
	KindResetRequired
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io error"
	case KindDecode:
		return "decode error"
	case KindUnsupported:
		return "unsupported"
	case KindSeek:
		return "seek error"
	case KindResetRequired:
		return "reset required"
	default:
		return "unknown error"
	}
}

// SeekKind distinguishes the reasons a seek can fail.
type SeekKind int

// Seek failure reasons.
const (
	SeekUnseekable SeekKind = iota
	SeekForwardOnly
	SeekOutOfRange
	SeekInvalidTrack
)

func (k SeekKind) String() string {
	switch k {
	case SeekUnseekable:
		return "unseekable"
	case SeekForwardOnly:
		return "forward only"
	case SeekOutOfRange:
		return "out of range"
	case SeekInvalidTrack:
		return "invalid track"
	default:
		return "unknown"
	}
}

// Error is the unified error type returned by every format reader and
// decoder operation in the core. It is always one of the Kind values above;
// Cause unwraps to the underlying error, if any (e.g. an io.Error from the
// media source), following the same errors.Cause convention the teacher
// repo's go.mod dependency on github.com/pkg/errors implies.
type Error struct {
	kind     Kind
	seekKind SeekKind
	reason   string
	cause    error
}

// NewIOError wraps an I/O failure from the media source.
func NewIOError(cause error) *Error {
	return &Error{kind: KindIO, cause: cause}
}

// NewDecodeError reports a recoverable mid-packet parse failure.
func NewDecodeError(reason string) *Error {
	return &Error{kind: KindDecode, reason: reason}
}

// NewDecodeErrorf reports a recoverable mid-packet parse failure with a
// formatted reason.
func NewDecodeErrorf(format string, args ...interface{}) *Error {
	return &Error{kind: KindDecode, reason: fmt.Sprintf(format, args...)}
}

// NewUnsupportedError reports a container or codec feature this build
// cannot handle; it is never downgraded to a decode error.
func NewUnsupportedError(reason string) *Error {
	return &Error{kind: KindUnsupported, reason: reason}
}

// NewSeekError reports a failed seek of the given subkind.
func NewSeekError(sk SeekKind, reason string) *Error {
	return &Error{kind: KindSeek, seekKind: sk, reason: reason}
}

// ErrResetRequired signals that Decoder.Reset must be called before the
// next Decode call, typically issued right after a seek.
var ErrResetRequired = &Error{kind: KindResetRequired}

// ErrEof is a distinct non-error signal returned by FormatReader.NextPacket
// at graceful end of stream. It is safe to keep calling NextPacket after
// receiving it.
var ErrEof = errors.New("core: end of stream")

func (e *Error) Error() string {
	switch e.kind {
	case KindIO:
		return fmt.Sprintf("io error: %v", e.cause)
	case KindSeek:
		if e.reason != "" {
			return fmt.Sprintf("seek error (%s): %s", e.seekKind, e.reason)
		}
		return fmt.Sprintf("seek error (%s)", e.seekKind)
	case KindResetRequired:
		return "decoder reset required"
	default:
		if e.reason != "" {
			return fmt.Sprintf("%s: %s", e.kind, e.reason)
		}
		return e.kind.String()
	}
}

// Unwrap returns the wrapped cause, if any, enabling errors.Is/errors.As to
// reach the underlying I/O error.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error's category.
func (e *Error) Kind() Kind { return e.kind }

// SeekKind returns the seek failure subkind. It is only meaningful when
// Kind() == KindSeek.
func (e *Error) SeekKind() SeekKind { return e.seekKind }

// IsFatal reports whether err is fatal to the reader/decoder that produced
// it. Per spec §7, every error other than ResetRequired, DecodeError, and
// Eof is fatal.
func IsFatal(err error) bool {
	if err == nil || errors.Is(err, ErrEof) {
		return false
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.kind != KindDecode && ce.kind != KindResetRequired
	}
	return true
}
