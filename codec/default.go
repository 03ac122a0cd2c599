package codec

import (
	"sync"

	flaccodec "github.com/mewkiz/audiocore/codec/flac"
	"github.com/mewkiz/audiocore/codec/mpa"
	"github.com/mewkiz/audiocore/codec/pcm"
	"github.com/mewkiz/audiocore/codec/vorbis"
	"github.com/mewkiz/audiocore/core"
)

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide codec Registry, built once on first use.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewDefaultRegistry()
	})
	return defaultRegistry
}

// framesPerPacket is the synthetic packet size, in frames, this registry
// hands to codecs whose AudioBuffer sizing takes a frame-count hint
// (mpa, vorbis, pcm). It matches format/riff's own packetFrames constant
// (1152, MPEG Layer III's granule-pair size): vorbis.NewDecoder clamps it
// up to its own block size 1 when that's larger, and mpa's Layer III
// frames are exactly 1152 samples, so nothing is ever truncated.
const framesPerPacket = 1152

// maxFlacBlockSize is the largest legal FLAC block size (a 16-bit field),
// used to size a Decoder's buffers when the StreamInfo block's own
// MaxBlockSize isn't available to this registry (see newFlacDecoder).
const maxFlacBlockSize = 65535

// NewDefaultRegistry builds a fresh Registry with every codec this module
// implements registered under its short identifier.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("flac", newFlacDecoder)
	r.Register("mp3", newMpaDecoder)
	r.Register("mp2", newMpaDecoder)
	r.Register("mp1", newMpaDecoder)
	r.Register("vorbis", newVorbisDecoder)
	for _, id := range []string{
		pcm.CodecS8, pcm.CodecU8,
		pcm.CodecS16LE, pcm.CodecS16BE,
		pcm.CodecS24LE, pcm.CodecS24BE,
		pcm.CodecS32LE, pcm.CodecS32BE,
		pcm.CodecF32LE, pcm.CodecF32BE,
		pcm.CodecF64LE, pcm.CodecF64BE,
		pcm.CodecALaw, pcm.CodecMuLaw,
	} {
		r.Register(id, newPCMDecoder)
	}
	return r
}

// newFlacDecoder reconstructs the StreamInfo a flaccodec.Decoder needs from
// params. CodecParams.ExtraData holds the exact raw STREAMINFO block body
// only when the track came from the native FLAC demuxer (format/flac sets
// it to precisely that, and nothing else); container wrappers (MP4 `dfLa`,
// Matroska CodecPrivate) prepend their own framing bytes ahead of it, which
// this registry does not attempt to strip since their exact layout isn't
// exercised by any test in this module. In that case, and whenever
// ExtraData is absent, StreamInfo is synthesized from the fields every
// demuxer populates directly on CodecParams, with MaxBlockSize defaulted to
// the format's maximum legal value so the decoder's buffers are never
// undersized.
func newFlacDecoder(params core.CodecParams, opts core.DecoderOptions) (core.AudioDecoder, error) {
	var si *flaccodec.StreamInfo
	if len(params.ExtraData) == 34 {
		parsed, err := flaccodec.ParseStreamInfo(params.ExtraData)
		if err == nil {
			si = parsed
		}
	}
	if si == nil {
		si = &flaccodec.StreamInfo{
			MaxBlockSize:  maxFlacBlockSize,
			SampleRate:    params.SampleRate,
			ChannelCount:  uint8(params.Channels),
			BitsPerSample: params.BitsPerSample,
			SampleCount:   params.NumFrames,
		}
	}
	return flaccodec.NewDecoder(si, params, opts.Verify), nil
}

func newMpaDecoder(params core.CodecParams, opts core.DecoderOptions) (core.AudioDecoder, error) {
	return mpa.NewDecoder(params, framesPerPacket)
}

func newVorbisDecoder(params core.CodecParams, opts core.DecoderOptions) (core.AudioDecoder, error) {
	return vorbis.NewDecoder(params, framesPerPacket)
}

func newPCMDecoder(params core.CodecParams, opts core.DecoderOptions) (core.AudioDecoder, error) {
	return pcm.NewDecoder(params, framesPerPacket)
}
