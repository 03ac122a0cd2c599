package riff

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/codec/pcm"
	"github.com/mewkiz/audiocore/core"
)

// WaveMarker is the four-byte "RIFF" tag (followed in the stream by a
// 4-byte length and "WAVE") probe registers for the WAVE format, per spec S5.
var WaveMarker = []byte("RIFF")

// waveFormatTag identifies the codec family a WAVE fmt chunk declares.
type waveFormatTag uint16

const (
	tagPCM        waveFormatTag = 0x0001
	tagIEEEFloat  waveFormatTag = 0x0003
	tagALaw       waveFormatTag = 0x0006
	tagMuLaw      waveFormatTag = 0x0007
	tagExtensible waveFormatTag = 0xFFFE
)

// pcmSubformatGUID is the first two bytes of KSDATAFORMAT_SUBTYPE_PCM;
// the remaining 14 bytes are the fixed "\x00\x00\x00\x00\x10\x00\x80\x00\x00\xAA\x00\x38\x9B\x71"
// suffix common to every WAVEX subformat GUID.
var (
	pcmSubformatGUID       = uint16(0x0001)
	ieeeFloatSubformatGUID = uint16(0x0003)
)

// TryNewWAVE probes src for a "RIFF....WAVE" container and, on success,
// walks its chunks: fmt (codec parameters), fact (total frame count),
// LIST/INFO (tags), data (the PCM region), per spec §4.1.1.
func TryNewWAVE(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error) {
	outer, err := readChunkHeader(src, false)
	if err != nil {
		return nil, core.NewIOError(err)
	}
	if !bytes.Equal(outer.ID[:], []byte("RIFF")) {
		return nil, errors.New("riff: missing RIFF tag")
	}
	var form [4]byte
	if _, err := io.ReadFull(src, form[:]); err != nil {
		return nil, core.NewIOError(err)
	}
	if !bytes.Equal(form[:], []byte("WAVE")) {
		return nil, errors.New("riff: not a WAVE form")
	}

	var (
		channels, bitsPerSample, blockAlign uint16
		sampleRate                          uint32
		tag                                 waveFormatTag
		haveFact                            bool
		factFrames                          uint32
		tags                                []core.Tag
		dataStart                           int64
		dataLen                             int64 = -1
	)

	for {
		h, herr := readChunkHeader(src, false)
		if herr == io.EOF || herr == io.ErrUnexpectedEOF {
			break
		}
		if herr != nil {
			return nil, core.NewIOError(herr)
		}
		declaredLen := int64(h.Length)
		unknown := h.Length == unknownLength

		switch string(h.ID[:]) {
		case "fmt ":
			body := make([]byte, h.Length)
			if _, err := io.ReadFull(src, body); err != nil {
				return nil, core.NewIOError(err)
			}
			if len(body) < 16 {
				return nil, errors.New("riff: fmt chunk too short")
			}
			tag = waveFormatTag(binary.LittleEndian.Uint16(body[0:2]))
			channels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = binary.LittleEndian.Uint32(body[4:8])
			blockAlign = binary.LittleEndian.Uint16(body[12:14])
			bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			if tag == tagExtensible && len(body) >= 40 {
				subFormat := binary.LittleEndian.Uint16(body[24:26])
				switch subFormat {
				case pcmSubformatGUID:
					tag = tagPCM
				case ieeeFloatSubformatGUID:
					tag = tagIEEEFloat
				}
			}
		case "fact":
			body := make([]byte, h.Length)
			if _, err := io.ReadFull(src, body); err != nil {
				return nil, core.NewIOError(err)
			}
			if len(body) >= 4 {
				haveFact = true
				factFrames = binary.LittleEndian.Uint32(body[0:4])
			}
		case "LIST":
			t, lerr := readInfoList(src, declaredLen)
			if lerr != nil {
				return nil, core.NewIOError(lerr)
			}
			tags = append(tags, t...)
		case "data":
			pos, perr := src.Seek(0, io.SeekCurrent)
			if perr != nil {
				return nil, core.NewIOError(perr)
			}
			dataStart = pos
			if unknown {
				dataLen = -1
				// Unknown-length data chunk with a seekable source: the
				// region runs to EOF.
				if n, ok := src.Len(); ok {
					dataLen = n - pos
				}
			} else {
				dataLen = declaredLen
			}
			if dataLen >= 0 {
				if _, err := src.Seek(dataLen, io.SeekCurrent); err != nil {
					return nil, core.NewIOError(err)
				}
			}
			if declaredLen%2 == 1 && !unknown {
				if _, err := src.Seek(1, io.SeekCurrent); err != nil {
					return nil, core.NewIOError(err)
				}
			}
			continue
		default:
			if _, err := io.CopyN(io.Discard, src, declaredLen); err != nil {
				return nil, core.NewIOError(err)
			}
			if declaredLen%2 == 1 {
				if _, err := src.Seek(1, io.SeekCurrent); err != nil {
					return nil, core.NewIOError(err)
				}
			}
			continue
		}
		if h.Length%2 == 1 {
			if _, err := src.Seek(1, io.SeekCurrent); err != nil {
				return nil, core.NewIOError(err)
			}
		}
	}

	if channels == 0 || sampleRate == 0 {
		return nil, errors.New("riff: missing fmt chunk")
	}
	if dataStart == 0 {
		return nil, errors.New("riff: missing data chunk")
	}

	codecName, err := waveCodecName(tag, bitsPerSample)
	if err != nil {
		return nil, err
	}

	frameSize := int(blockAlign)
	if frameSize == 0 {
		frameSize = int(channels) * ((int(bitsPerSample) + 7) / 8)
	}

	var numFrames uint64
	if haveFact {
		numFrames = uint64(factFrames)
	} else if dataLen >= 0 && frameSize > 0 {
		numFrames = uint64(dataLen) / uint64(frameSize)
	}

	log := &core.MetadataLog{Tags: tags}
	if opts.ExternalMetadata != nil {
		log.Tags = append(opts.ExternalMetadata.Tags, log.Tags...)
		log.Visuals = append(opts.ExternalMetadata.Visuals, log.Visuals...)
	}

	track := core.Track{
		ID: 0,
		Params: core.CodecParams{
			Codec:         codecName,
			SampleRate:    sampleRate,
			Channels:      int(channels),
			BitsPerSample: uint8(bitsPerSample),
			NumFrames:     numFrames,
			TimeBase:      core.TimeBase{Num: 1, Den: sampleRate},
		},
	}

	if _, err := src.Seek(dataStart, io.SeekStart); err != nil {
		return nil, core.NewIOError(err)
	}

	var dl int64
	if dataLen >= 0 {
		dl = dataLen
	}
	return &pcmReader{
		src:       src,
		track:     track,
		log:       log,
		dataStart: dataStart,
		dataLen:   dl,
		frameSize: frameSize,
	}, nil
}

// waveCodecName maps a WAVE format tag and bit depth to a codec/pcm
// identifier. The IEEE float gate applies the corrected check from spec
// §9's REDESIGN FLAG (`!= 32 && != 64`, not the tautological `!= 32 || !=
// 64` the source this spec was distilled from carries).
func waveCodecName(tag waveFormatTag, bits uint16) (string, error) {
	switch tag {
	case tagPCM:
		switch {
		case bits <= 8:
			return pcm.CodecU8, nil
		case bits <= 16:
			return pcm.CodecS16LE, nil
		case bits <= 24:
			return pcm.CodecS24LE, nil
		default:
			return pcm.CodecS32LE, nil
		}
	case tagIEEEFloat:
		if bits != 32 && bits != 64 {
			return "", errors.Errorf("riff: invalid IEEE float bit depth %d", bits)
		}
		if bits == 32 {
			return pcm.CodecF32LE, nil
		}
		return pcm.CodecF64LE, nil
	case tagALaw:
		return pcm.CodecALaw, nil
	case tagMuLaw:
		return pcm.CodecMuLaw, nil
	default:
		return "", errors.Errorf("riff: unsupported WAVE format tag 0x%04X", tag)
	}
}
