package flac

import (
	"io"

	"github.com/pkg/errors"
)

// decodeUTF8Int decodes a FLAC "UTF-8"-coded number: the same prefix-length
// encoding as UTF-8 text, extended up to 6 continuation bytes (7 bytes in
// all) to carry 36 bits instead of UTF-8's 31. Frame headers use it for the variable-length
// sample/frame number field. Grounded on the encode side in the teacher's
// utf8_encode.go (encodeUTF8), inverted here since the teacher's own
// decode counterpart was not present in the retrieved tree.
func decodeUTF8Int(r io.Reader) (uint64, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	c0 := b[0]

	if c0&0x80 == 0 {
		return uint64(c0), nil
	}

	var l int
	var x uint64
	switch {
	case c0&0xE0 == 0xC0:
		l = 1
		x = uint64(c0 & 0x1F)
	case c0&0xF0 == 0xE0:
		l = 2
		x = uint64(c0 & 0x0F)
	case c0&0xF8 == 0xF0:
		l = 3
		x = uint64(c0 & 0x07)
	case c0&0xFC == 0xF8:
		l = 4
		x = uint64(c0 & 0x03)
	case c0&0xFE == 0xFC:
		l = 5
		x = uint64(c0 & 0x01)
	case c0 == 0xFE:
		l = 6
		x = 0
	default:
		return 0, errors.New("flac: invalid UTF-8 coded number leading byte")
	}

	for i := 0; i < l; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		if b[0]&0xC0 != 0x80 {
			return 0, errors.New("flac: invalid UTF-8 coded number continuation byte")
		}
		x = x<<6 | uint64(b[0]&0x3F)
	}
	return x, nil
}
