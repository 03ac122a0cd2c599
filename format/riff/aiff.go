package riff

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/codec/pcm"
	"github.com/mewkiz/audiocore/core"
)

// AiffMarker is the four-byte big-endian FORM tag AIFF and AIFC files
// open with, per spec S5.
var AiffMarker = []byte("FORM")

// TryNewAIFF probes src for a big-endian "FORM....AIFF"/"AIFC" container
// and walks its chunks: COMM (codec parameters, 80-bit IEEE sample rate),
// SSND (the PCM region), per spec §4.1.1.
func TryNewAIFF(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error) {
	outer, err := readChunkHeader(src, true)
	if err != nil {
		return nil, core.NewIOError(err)
	}
	if !bytes.Equal(outer.ID[:], []byte("FORM")) {
		return nil, errors.New("aiff: missing FORM tag")
	}
	var form [4]byte
	if _, err := io.ReadFull(src, form[:]); err != nil {
		return nil, core.NewIOError(err)
	}
	isAIFC := bytes.Equal(form[:], []byte("AIFC"))
	if !isAIFC && !bytes.Equal(form[:], []byte("AIFF")) {
		return nil, errors.New("aiff: not an AIFF/AIFC form")
	}

	var (
		channels, bitsPerSample uint16
		numSampleFrames         uint32
		sampleRate              uint32
		compressionType         string
		dataStart               int64
		dataLen                 int64
		haveSSND                bool
	)

	for {
		h, herr := readChunkHeader(src, true)
		if herr == io.EOF || herr == io.ErrUnexpectedEOF {
			break
		}
		if herr != nil {
			return nil, core.NewIOError(herr)
		}
		declaredLen := int64(h.Length)

		switch string(h.ID[:]) {
		case "COMM":
			body := make([]byte, h.Length)
			if _, err := io.ReadFull(src, body); err != nil {
				return nil, core.NewIOError(err)
			}
			if len(body) < 18 {
				return nil, errors.New("aiff: COMM chunk too short")
			}
			channels = binary.BigEndian.Uint16(body[0:2])
			numSampleFrames = binary.BigEndian.Uint32(body[2:6])
			bitsPerSample = binary.BigEndian.Uint16(body[6:8])
			var rate80 [10]byte
			copy(rate80[:], body[8:18])
			sampleRate = uint32(decodeIEEE80(rate80))
			if isAIFC && len(body) >= 22 {
				compressionType = string(body[18:22])
			}
		case "SSND":
			var hdr [8]byte
			if _, err := io.ReadFull(src, hdr[:]); err != nil {
				return nil, core.NewIOError(err)
			}
			offset := binary.BigEndian.Uint32(hdr[0:4])
			pos, perr := src.Seek(int64(offset), io.SeekCurrent)
			if perr != nil {
				return nil, core.NewIOError(perr)
			}
			dataStart = pos
			dataLen = declaredLen - 8 - int64(offset)
			haveSSND = true
			if _, err := src.Seek(dataLen, io.SeekCurrent); err != nil {
				return nil, core.NewIOError(err)
			}
		default:
			if _, err := io.CopyN(io.Discard, src, declaredLen); err != nil {
				return nil, core.NewIOError(err)
			}
		}
		if h.Length%2 == 1 {
			if _, err := src.Seek(1, io.SeekCurrent); err != nil {
				return nil, core.NewIOError(err)
			}
		}
	}

	if channels == 0 || sampleRate == 0 {
		return nil, errors.New("aiff: missing COMM chunk")
	}
	if !haveSSND {
		return nil, errors.New("aiff: missing SSND chunk")
	}

	codecName, err := aiffCodecName(compressionType, bitsPerSample)
	if err != nil {
		return nil, err
	}

	frameSize := int(channels) * ((int(bitsPerSample) + 7) / 8)

	log := &core.MetadataLog{}
	if opts.ExternalMetadata != nil {
		log.Tags = opts.ExternalMetadata.Tags
		log.Visuals = opts.ExternalMetadata.Visuals
	}

	track := core.Track{
		ID: 0,
		Params: core.CodecParams{
			Codec:         codecName,
			SampleRate:    sampleRate,
			Channels:      int(channels),
			BitsPerSample: uint8(bitsPerSample),
			NumFrames:     uint64(numSampleFrames),
			TimeBase:      core.TimeBase{Num: 1, Den: sampleRate},
		},
	}

	if _, err := src.Seek(dataStart, io.SeekStart); err != nil {
		return nil, core.NewIOError(err)
	}

	return &pcmReader{
		src:       src,
		track:     track,
		log:       log,
		dataStart: dataStart,
		dataLen:   dataLen,
		frameSize: frameSize,
	}, nil
}

// aiffCodecName resolves an AIFC compression type (falling back to
// uncompressed big-endian PCM for plain AIFF, and to uncompressed PCM for
// AIFC's "NONE"/"sowt" compression types, per SPEC_FULL.md's RIFF
// supplement) to a codec/pcm identifier. "sowt" additionally swaps the
// byte order to little-endian, the one case where AIFC samples are not
// big-endian.
func aiffCodecName(compression string, bits uint16) (string, error) {
	switch compression {
	case "", "NONE":
		return bigEndianPCMCodec(bits), nil
	case "sowt":
		return littleEndianPCMCodec(bits), nil
	case "fl32", "FL32":
		return pcm.CodecF32BE, nil
	case "fl64", "FL64":
		return pcm.CodecF64BE, nil
	case "alaw", "ALAW":
		return pcm.CodecALaw, nil
	case "ulaw", "ULAW":
		return pcm.CodecMuLaw, nil
	default:
		return "", errors.Errorf("aiff: unsupported AIFC compression type %q", compression)
	}
}

func bigEndianPCMCodec(bits uint16) string {
	switch {
	case bits <= 8:
		return pcm.CodecS8
	case bits <= 16:
		return pcm.CodecS16BE
	case bits <= 24:
		return pcm.CodecS24BE
	default:
		return pcm.CodecS32BE
	}
}

func littleEndianPCMCodec(bits uint16) string {
	switch {
	case bits <= 8:
		return pcm.CodecS8
	case bits <= 16:
		return pcm.CodecS16LE
	case bits <= 24:
		return pcm.CodecS24LE
	default:
		return pcm.CodecS32LE
	}
}

// decodeIEEE80 decodes an 80-bit big-endian IEEE 754 extended-precision
// float, the encoding AIFF's COMM chunk uses for its sample rate field.
func decodeIEEE80(b [10]byte) float64 {
	sign := 1.0
	if b[0]&0x80 != 0 {
		sign = -1.0
	}
	exponent := int(binary.BigEndian.Uint16(b[0:2]) & 0x7FFF)
	mantissa := binary.BigEndian.Uint64(b[2:10])
	if exponent == 0 && mantissa == 0 {
		return 0
	}
	return sign * float64(mantissa) * math.Pow(2, float64(exponent-16383-63))
}
