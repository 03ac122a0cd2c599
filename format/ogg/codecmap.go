package ogg

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	vorbisIdent = []byte("\x01vorbis")
	opusIdent   = []byte("OpusHead")
)

// identifyCodec inspects a logical stream's first packet (its
// identification packet) and populates the stream's codec fields, per
// spec §4.1.3 "each first page's identification packet is handed to a
// codec mapper (Vorbis, Opus, ...) which returns codec parameters".
func identifyCodec(ls *logicalStream, pkt []byte) error {
	switch {
	case hasPrefix(pkt, vorbisIdent):
		return identifyVorbis(ls, pkt)
	case hasPrefix(pkt, opusIdent):
		return identifyOpus(ls, pkt)
	default:
		return errors.New("ogg: unrecognized codec identification packet")
	}
}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == string(prefix)
}

// identifyVorbis decodes a Vorbis identification header per the Vorbis I
// specification ?4.2.2: version, channels, sample rate, bitrate hints, and
// packed blocksize exponents.
func identifyVorbis(ls *logicalStream, pkt []byte) error {
	body := pkt[len(vorbisIdent):]
	if len(body) < 23 {
		return errors.New("ogg: vorbis identification packet too short")
	}
	version := binary.LittleEndian.Uint32(body[0:4])
	if version != 0 {
		return errors.Errorf("ogg: unsupported vorbis version %d", version)
	}
	ls.channels = int(body[4])
	ls.sampleRate = binary.LittleEndian.Uint32(body[5:9])
	ls.codecName = "vorbis"
	ls.codecExtra = append([]byte(nil), pkt...)
	return nil
}

// identifyOpus decodes an Opus identification header ("OpusHead") per RFC
// 7845 ?5.1. Opus audio is always presented to the decoder at a fixed
// 48kHz timebase regardless of the input sample rate field, which is
// informational only.
func identifyOpus(ls *logicalStream, pkt []byte) error {
	body := pkt[len(opusIdent):]
	if len(body) < 9 {
		return errors.New("ogg: opus identification packet too short")
	}
	version := body[0]
	if version&0xF0 != 0 {
		return errors.Errorf("ogg: unsupported opus header version %d", version)
	}
	ls.channels = int(body[1])
	ls.sampleRate = 48000
	ls.codecName = "opus"
	ls.codecExtra = append([]byte(nil), pkt...)
	return nil
}
