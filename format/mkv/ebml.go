// Package mkv implements the Matroska/WebM container, per spec §4.3.4: an
// EBML (RFC 8794) element tree whose Segment master carries Info, Tracks,
// Cues, and a sequence of timestamped Clusters of laced Block frames.
//
// Grounded on the pack's retrieved other_examples WebM caller
// (petervdpas-goop2's internal/call/webm.go, which shells out to a CLI
// rather than parsing EBML itself) only for the shape of which Matroska
// fields a consumer cares about (codec ID, sample rate, channels); the VINT
// reader and element walker below follow RFC 8794 directly, since no pack
// repo vendors a pure-Go EBML parser.
package mkv

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Element IDs used by this reader. Matroska assigns the EBML header itself
// ID 0x1A45DFA3; Segment and everything beneath it are listed here by the
// Matroska element specification.
const (
	idEBML    uint64 = 0x1A45DFA3
	idSegment uint64 = 0x18538067

	idSeekHead uint64 = 0x114D9B74

	idInfo            uint64 = 0x1549A966
	idTimestampScale   uint64 = 0x2AD7B1
	idDuration        uint64 = 0x4489
	idTitle           uint64 = 0x7BA9

	idTracks       uint64 = 0x1654AE6B
	idTrackEntry   uint64 = 0xAE
	idTrackNumber  uint64 = 0xD7
	idTrackType    uint64 = 0x83
	idCodecID      uint64 = 0x86
	idCodecPrivate uint64 = 0x63A2
	idLanguage     uint64 = 0x22B59C
	idAudio        uint64 = 0xE1
	idSamplingFreq uint64 = 0xB5
	idChannels     uint64 = 0x9F
	idBitDepth     uint64 = 0x6264

	idCluster   uint64 = 0x1F43B675
	idTimestamp uint64 = 0xE7
	idSimpleBlock uint64 = 0xA3
	idBlockGroup  uint64 = 0xA0
	idBlock       uint64 = 0xA1
	idBlockDuration uint64 = 0x9B

	idCues             uint64 = 0x1C53BB6B
	idCuePoint         uint64 = 0xBB
	idCueTime          uint64 = 0xB3
	idCueTrackPositions uint64 = 0xB7
	idCueTrack         uint64 = 0xF7
	idCueClusterPosition uint64 = 0xF1

	// trackTypeAudio is Matroska's TrackType value for an audio track.
	trackTypeAudio = 2
)

// unknownSize is the EBML sentinel for a master element whose size could
// not be determined at write time (all value bits of the size VINT set to
// one), per RFC 8794 §6. Readers are expected to keep consuming child
// elements until a sibling at the parent level is encountered.
const unknownSize = ^uint64(0)

// readVint reads one RFC 8794 variable-length integer. When keepMarker is
// true (element IDs), the returned width-marker bit is preserved in value,
// since IDs are compared byte-for-byte including their width marker; when
// false (element sizes and Matroska's vint-encoded Block track numbers),
// the marker bit is stripped so value is the plain integer.
func readVint(r io.Reader, keepMarker bool) (value uint64, width int, err error) {
	var b0 [1]byte
	if _, err = io.ReadFull(r, b0[:]); err != nil {
		return 0, 0, err
	}
	first := b0[0]
	if first == 0 {
		return 0, 0, errors.New("mkv: vint: invalid leading byte 0x00")
	}
	width = 1
	mask := byte(0x80)
	for mask != 0 && first&mask == 0 {
		mask >>= 1
		width++
	}
	if width > 8 {
		return 0, 0, errors.New("mkv: vint: width exceeds 8 bytes")
	}
	if keepMarker {
		value = uint64(first)
	} else {
		value = uint64(first &^ mask)
	}
	rest := make([]byte, width-1)
	if width > 1 {
		if _, err = io.ReadFull(r, rest); err != nil {
			return 0, 0, err
		}
	}
	for _, b := range rest {
		value = value<<8 | uint64(b)
	}
	if !keepMarker {
		// An all-ones value field (every value bit set) is RFC 8794's
		// "unknown size" sentinel.
		maxVal := uint64(1)<<(7*uint(width)) - 1
		if value == maxVal {
			return unknownSize, width, nil
		}
	}
	return value, width, nil
}

// elemHeader is one element's ID, declared size (unknownSize if the size
// VINT was all-ones), and combined header width in bytes.
type elemHeader struct {
	ID         uint64
	Size       uint64
	HeaderSize int64
}

func readElemHeader(r io.Reader) (elemHeader, error) {
	id, idw, err := readVint(r, true)
	if err != nil {
		return elemHeader{}, err
	}
	size, sw, err := readVint(r, false)
	if err != nil {
		return elemHeader{}, err
	}
	return elemHeader{ID: id, Size: size, HeaderSize: int64(idw + sw)}, nil
}

// readUint reads a big-endian unsigned integer element body of up to 8
// bytes, per RFC 8794 §7.3.
func readUint(r io.Reader, n int64) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if n > 8 {
		return 0, errors.New("mkv: uint element wider than 8 bytes")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// readFloat reads a big-endian IEEE-754 float element body (4 or 8 bytes),
// per RFC 8794 §7.5.
func readFloat(r io.Reader, n int64) (float64, error) {
	switch n {
	case 4:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(buf[:]))), nil
	case 8:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
	case 0:
		return 0, nil
	default:
		return 0, errors.Errorf("mkv: float element of unsupported width %d", n)
	}
}

func readBytes(r io.Reader, n int64) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func skip(r io.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	return err
}
