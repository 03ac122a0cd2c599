package mp4

import (
	"io"

	"github.com/mewkiz/audiocore/codec/pcm"
)

// sampleEntryInfo is what this package extracts from one `stsd` sample
// entry: a codec identifier (this module's short name where recognized,
// the raw four-byte format otherwise), plus the audio parameters every
// ISO-BMFF AudioSampleEntry carries.
type sampleEntryInfo struct {
	Codec      string
	SampleRate uint32
	Channels   int
	BitsPerSample uint8
	ExtraData  []byte
}

// readStsd parses the `stsd` box's first sample entry (this reader, like
// nearly every consumer, assumes one sample description per track; a
// second alternate entry would require per-chunk description switching
// that spec §4.3.5 does not ask for).
func readStsd(r io.Reader) (sampleEntryInfo, error) {
	if _, _, err := readFullBoxVersion(r); err != nil {
		return sampleEntryInfo{}, err
	}
	count, err := readU32(r)
	if err != nil || count == 0 {
		return sampleEntryInfo{}, err
	}
	hdr, err := readBoxHeader(r)
	if err != nil {
		return sampleEntryInfo{}, err
	}
	body := io.LimitReader(r, hdr.BodySize)
	return readAudioSampleEntry(body, hdr.TypeString())
}

func readAudioSampleEntry(r io.Reader, format string) (sampleEntryInfo, error) {
	var hdr [16]byte // reserved[6] + data_reference_index[2] + reserved[8]
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return sampleEntryInfo{}, err
	}
	channels, err := readU16(r)
	if err != nil {
		return sampleEntryInfo{}, err
	}
	sampleSize, err := readU16(r)
	if err != nil {
		return sampleEntryInfo{}, err
	}
	var tail [4]byte // pre_defined[2] + reserved[2]
	if _, err := io.ReadFull(r, tail[:]); err != nil {
		return sampleEntryInfo{}, err
	}
	sampleRateFixed, err := readU32(r)
	if err != nil {
		return sampleEntryInfo{}, err
	}

	info := sampleEntryInfo{
		Codec:         resolveSampleEntryCodec(format, uint8(sampleSize)),
		SampleRate:    sampleRateFixed >> 16,
		Channels:      int(channels),
		BitsPerSample: uint8(sampleSize),
	}

	// Remaining bytes, if any, are codec-configuration child boxes (esds
	// for mp4a, dfLa for fLaC, dOps for Opus, alac for ALAC, ...).
	for {
		child, err := readBoxHeader(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		body := io.LimitReader(r, child.BodySize)
		switch child.TypeString() {
		case "esds":
			if codec, extra, ok := parseEsds(body); ok {
				info.Codec = codec
				info.ExtraData = extra
			} else {
				_, _ = io.Copy(io.Discard, body)
			}
		case "dfLa":
			extra, _ := io.ReadAll(body)
			info.ExtraData = extra
		case "dOps":
			extra, _ := io.ReadAll(body)
			info.ExtraData = extra
		case "alac":
			extra, _ := io.ReadAll(body)
			info.ExtraData = extra
		default:
			_, _ = io.Copy(io.Discard, body)
		}
	}
	return info, nil
}

// formatToCodec maps ISO-BMFF sample entry four-byte formats to this
// module's short codec identifiers, for the fourccs whose codec identifier
// doesn't depend on the entry's bit depth.
var formatToCodec = map[string]string{
	"fLaC": "flac",
	"Opus": "opus",
	"in24": pcm.CodecS24BE,
	"in32": pcm.CodecS32BE,
	"fl32": pcm.CodecF32BE,
	"fl64": pcm.CodecF64BE,
	"raw ": pcm.CodecU8,
	"ulaw": pcm.CodecMuLaw,
	"alaw": pcm.CodecALaw,
	// "mp4a" is resolved via its esds ObjectTypeIndication/AudioObjectType
	// in parseEsds instead of this static table.
}

// resolveSampleEntryCodec maps a sample entry format fourcc, plus the
// entry's own bit depth for the big/little-endian integer PCM fourccs
// ("twos"/"sowt"/"NONE" carry no bit width of their own), to this module's
// pcm.Codec* identifiers. An unrecognized fourcc is passed through
// unchanged.
func resolveSampleEntryCodec(format string, bits uint8) string {
	switch format {
	case "twos", "NONE":
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
	case "sowt":
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
	if codec, ok := formatToCodec[format]; ok {
		return codec
	}
	return format
}
