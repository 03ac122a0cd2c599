package core

import "io"

// MediaSource is the byte-source capability consumed by the core, per
// spec §6. Seek and Len are optional: a source that cannot seek still
// satisfies MediaSource, but FormatReader.Seek then fails with
// SeekUnseekable, and backward Seek calls with SeekForwardOnly.
type MediaSource interface {
	io.Reader
	// Seek repositions the source, mirroring io.Seeker. Implementations
	// that cannot seek should return a KindIO *Error.
	Seek(offset int64, whence int) (int64, error)
	// Len reports the total byte length of the source, or (0, false) if
	// unknown.
	Len() (int64, bool)
}
