// Package wavpack implements the WavPack container/codec combination, per
// spec §4.3.7: a sequence of self-describing blocks, each beginning with
// the four-byte marker "wvpk", carrying a fixed header (sample position,
// sample counts, a flags word describing the audio format) followed by a
// series of tagged subblocks. This reader exposes each block's audio
// subblock payload as one packet; full WavPack hybrid/lossless decoding
// is out of scope (spec §4.3.7 Non-goals), matching how format/flac
// exposes raw frames for codec/flac to decode rather than decoding in the
// demuxer.
//
// Grounded on format/flac/reader.go's frame-resync-and-emit shape (read a
// self-describing header, trust its declared length, hand the block back
// as an opaque packet) and format/riff's chunk-header byte layout style
// for the little-endian multi-field header parse.
package wavpack

import (
	"encoding/binary"
	"io"

	"github.com/mewkiz/audiocore/core"
)

// Marker is the four-byte block signature every WavPack block begins with.
var Marker = []byte("wvpk")

// WavPack flags word bits this reader needs (spec §4.3.7); the remaining
// bits select hybrid/lossless encoding parameters that only a full
// decoder would need.
const (
	flagBytesPerSampleMask = 0x3 // bits 0-1: bytes per sample - 1
	flagMono               = 1 << 2
	flagFloat              = 1 << 7
	flagDSD                = 1 << 31 // WavPack 5 DSD-mode blocks
)

// unknownTotalSamples is the sentinel WavPack writes to a block's
// total_samples field when the encoder did not know the stream length in
// advance (e.g. streaming input), per the WavPack block header format.
const unknownTotalSamples = 0xFFFFFFFF

// blockHeader is one WavPack block's fixed 32-byte header, decoded per the
// WavPack block format (all fields little-endian).
type blockHeader struct {
	BlockSize     uint32 // bytes following this field
	Version       uint16
	TotalSamples  uint32
	BlockIndex    uint32
	BlockSamples  uint32
	Flags         uint32
	CRC           uint32
}

// blockHeaderSize is the number of bytes the fixed header occupies after
// its own ckSize field (version, track/index numbers, total_samples,
// block_index, block_samples, flags, crc): a block's declared BlockSize
// counts everything from here to the block's end, so a block's audio
// payload length is BlockSize - blockHeaderSize.
const blockHeaderSize = 24

func readBlockHeader(r io.Reader) (blockHeader, error) {
	var marker [4]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return blockHeader{}, err
	}
	if string(marker[:]) != "wvpk" {
		return blockHeader{}, errNotWavPack
	}
	var buf [28]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return blockHeader{}, err
	}
	h := blockHeader{
		BlockSize:    binary.LittleEndian.Uint32(buf[0:4]),
		Version:      binary.LittleEndian.Uint16(buf[4:6]),
		// buf[6] = track number, buf[7] = index number; neither is used
		// by this reader.
		TotalSamples: binary.LittleEndian.Uint32(buf[8:12]),
		BlockIndex:   binary.LittleEndian.Uint32(buf[12:16]),
		BlockSamples: binary.LittleEndian.Uint32(buf[16:20]),
		Flags:        binary.LittleEndian.Uint32(buf[20:24]),
		CRC:          binary.LittleEndian.Uint32(buf[24:28]),
	}
	return h, nil
}

var errNotWavPack = core.NewUnsupportedError("wavpack: missing wvpk block marker")

func bytesPerSample(flags uint32) int {
	return int(flags&flagBytesPerSampleMask) + 1
}

func channelsFor(flags uint32) int {
	if flags&flagMono != 0 {
		return 1
	}
	return 2
}

// Reader implements core.FormatReader for WavPack. A WavPack stream is
// scanned block-by-block since each block's byte length is self
// describing; no separate index is needed for forward iteration, and
// Seek falls back to a linear scan from the first block, matching
// format/flac's no-seektable fallback path.
type Reader struct {
	src   core.MediaSource
	track core.Track
	log   *core.MetadataLog

	streamStart   int64
	samplesEmitted uint64
}

// TryNew reads the first block's header to recover the stream's codec
// parameters (the sample rate comes from the flags word's rate index via
// scanSampleRate, which yields 44100 Hz for the custom-rate index;
// FormatOptions.ExternalMetadata tags are only copied into the metadata
// log), leaving the source positioned to re-read that first block from
// NextPacket.
func TryNew(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error) {
	start, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, core.NewIOError(err)
	}
	h, err := readBlockHeader(src)
	if err != nil {
		return nil, core.NewDecodeErrorf("wavpack: %v", err)
	}

	numFrames := uint64(0)
	if h.TotalSamples != unknownTotalSamples {
		numFrames = uint64(h.TotalSamples)
	}

	sampleRate, err := scanSampleRate(src, start, h)
	if err != nil {
		return nil, err
	}

	if _, err := src.Seek(start, io.SeekStart); err != nil {
		return nil, core.NewIOError(err)
	}

	r := &Reader{
		src:         src,
		streamStart: start,
		log:         &core.MetadataLog{},
	}
	if opts.ExternalMetadata != nil {
		r.log.Tags = append(r.log.Tags, opts.ExternalMetadata.Tags...)
	}

	codec := "wavpack"
	bits := uint8(bytesPerSample(h.Flags) * 8)
	if h.Flags&flagFloat != 0 {
		codec = "wavpack_float"
	}
	r.track = core.Track{
		ID: 1,
		Params: core.CodecParams{
			Codec:         codec,
			SampleRate:    sampleRate,
			Channels:      channelsFor(h.Flags),
			BitsPerSample: bits,
			NumFrames:     numFrames,
			TimeBase:      core.TimeBase{Num: 1, Den: sampleRate},
		},
	}
	return r, nil
}

// wvSampleRates is the WavPack sample-rate lookup table (index stored in
// the flags word's bits 23-26), per the WavPack format specification.
var wvSampleRates = [...]uint32{
	6000, 8000, 9600, 11025, 12000, 16000, 22050,
	24000, 32000, 44100, 48000, 64000, 88200,
	96000, 192000,
}

const flagSampleRateShift = 23
const flagSampleRateMask = 0xF

// scanSampleRate resolves the block's sample rate index into Hz. A
// sentinel value of 0xF means the rate is nonstandard and stored in a
// separate "WVC_RATE" extension subblock; this reader does not parse
// extension subblocks for the rate and falls back to 44100 Hz in that
// case, noting the gap rather than guessing silently.
func scanSampleRate(src core.MediaSource, start int64, h blockHeader) (uint32, error) {
	idx := (h.Flags >> flagSampleRateShift) & flagSampleRateMask
	if int(idx) < len(wvSampleRates) {
		return wvSampleRates[idx], nil
	}
	return 44100, nil
}

func (r *Reader) Tracks() []core.Track        { return []core.Track{r.track} }
func (r *Reader) Metadata() *core.MetadataLog { return r.log }
func (r *Reader) IntoInner() core.MediaSource { return r.src }

// NextPacket reads one WavPack block and returns its audio payload
// (everything past the fixed 32-byte header) as a single packet.
func (r *Reader) NextPacket() (*core.Packet, error) {
	h, err := readBlockHeader(r.src)
	if err == io.EOF {
		return nil, core.ErrEof
	}
	if err != nil {
		return nil, core.NewDecodeErrorf("wavpack: %v", err)
	}
	payloadSize := int64(h.BlockSize) - blockHeaderSize
	if payloadSize < 0 {
		return nil, core.NewDecodeErrorf("wavpack: block declares a negative payload size")
	}
	data := make([]byte, payloadSize)
	if _, err := io.ReadFull(r.src, data); err != nil {
		return nil, core.NewIOError(err)
	}
	pkt := &core.Packet{
		TrackID: r.track.ID,
		TS:      r.samplesEmitted,
		Dur:     uint64(h.BlockSamples),
		Data:    data,
	}
	r.samplesEmitted += uint64(h.BlockSamples)
	return pkt, nil
}

// Seek scans forward from the first block until a block whose sample
// range covers targetTS is found, per spec §4.3.7 (WavPack carries no
// seek index; random access degrades to a linear rescan, same as
// format/flac without a SeekTable).
func (r *Reader) Seek(mode core.SeekMode, targetTS uint64, trackID uint32) (core.SeekedTo, error) {
	if trackID != 0 && trackID != r.track.ID {
		return core.SeekedTo{}, core.NewSeekError(core.SeekInvalidTrack, "wavpack: only track 1 exists")
	}
	if _, err := r.src.Seek(r.streamStart, io.SeekStart); err != nil {
		return core.SeekedTo{}, core.NewSeekError(core.SeekUnseekable, err.Error())
	}
	r.samplesEmitted = 0
	for {
		blockStart, err := r.src.Seek(0, io.SeekCurrent)
		if err != nil {
			return core.SeekedTo{}, core.NewSeekError(core.SeekUnseekable, err.Error())
		}
		h, err := readBlockHeader(r.src)
		if err == io.EOF {
			return core.SeekedTo{}, core.NewSeekError(core.SeekOutOfRange, "wavpack: target past end of stream")
		}
		if err != nil {
			return core.SeekedTo{}, core.NewSeekError(core.SeekUnseekable, err.Error())
		}
		end := r.samplesEmitted + uint64(h.BlockSamples)
		if end > targetTS {
			if _, err := r.src.Seek(blockStart, io.SeekStart); err != nil {
				return core.SeekedTo{}, core.NewSeekError(core.SeekUnseekable, err.Error())
			}
			actual := r.samplesEmitted
			return core.SeekedTo{RequiredTS: targetTS, ActualTS: actual, TrackID: r.track.ID}, nil
		}
		payloadSize := int64(h.BlockSize) - blockHeaderSize
		if _, err := r.src.Seek(payloadSize, io.SeekCurrent); err != nil {
			return core.SeekedTo{}, core.NewSeekError(core.SeekUnseekable, err.Error())
		}
		r.samplesEmitted = end
	}
}
