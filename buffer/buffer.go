// Package buffer implements the planar multi-channel sample buffer that every
// codec decoder in audiocore writes into and every consumer reads from
// (spec §3 AudioBuffer). It builds its public conversions on top of
// github.com/go-audio/audio, the sample-buffer library mewkiz/flac already
// depends on, so embedders already using that ecosystem (e.g. for
// go-audio/wav output) can consume decoded audio without an extra copy
// step.
package buffer

import "github.com/go-audio/audio"

// SampleFormat names the buffer's native sample representation, per spec §3:
// a decoder advertises which of these it produces.
type SampleFormat int

// Supported sample formats.
const (
	// FormatS32 stores left-aligned signed 32-bit integer samples; unused
	// low bits are zero.
	FormatS32 SampleFormat = iota
	// FormatF32 stores 32-bit float samples.
	FormatF32
)

// AudioBuffer is a planar container of N channels, each holding up to
// Capacity samples, per spec §3. The invariant is: for every channel, the
// written prefix length equals Frames; reads beyond Frames are undefined.
type AudioBuffer struct {
	// Format carries the channel count and sample rate, reusing
	// go-audio/audio's Format type directly rather than duplicating it.
	Format *audio.Format
	// SampleFmt is the native representation advertised by the producing
	// decoder.
	SampleFmt SampleFormat
	// BitsPerSample is the effective bit width of each sample, left-aligned
	// within the 32-bit container for FormatS32.
	BitsPerSample int
	// Capacity is the maximum number of frames each channel plane can hold.
	Capacity int
	// Frames is the number of valid frames currently written.
	Frames int

	planesI [][]int32
	planesF [][]float32
}

// NewAudioBuffer allocates a buffer for the given channel count, sample
// rate, native format, and maximum frames-per-packet capacity. Per spec §5
// Memory discipline, decoders preallocate to the maximum frames per packet
// and reuse this buffer across Decode calls rather than reallocating.
func NewAudioBuffer(channels, sampleRate int, format SampleFormat, bitsPerSample, capacity int) *AudioBuffer {
	b := &AudioBuffer{
		Format:        &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SampleFmt:     format,
		BitsPerSample: bitsPerSample,
		Capacity:      capacity,
	}
	switch format {
	case FormatF32:
		b.planesF = make([][]float32, channels)
		for i := range b.planesF {
			b.planesF[i] = make([]float32, capacity)
		}
	default:
		b.planesI = make([][]int32, channels)
		for i := range b.planesI {
			b.planesI[i] = make([]int32, capacity)
		}
	}
	return b
}

// Channels returns the channel count.
func (b *AudioBuffer) Channels() int { return b.Format.NumChannels }

// SampleRate returns the sample rate in Hz.
func (b *AudioBuffer) SampleRate() int { return b.Format.SampleRate }

// PlaneI32 returns the writable integer plane for channel ch. Panics if the
// buffer's SampleFmt is not FormatS32.
func (b *AudioBuffer) PlaneI32(ch int) []int32 {
	return b.planesI[ch][:b.Capacity]
}

// PlaneF32 returns the writable float plane for channel ch. Panics if the
// buffer's SampleFmt is not FormatF32.
func (b *AudioBuffer) PlaneF32(ch int) []float32 {
	return b.planesF[ch][:b.Capacity]
}

// SetFrames sets the valid frame count after a decoder has written samples
// into the channel planes. n must not exceed Capacity.
func (b *AudioBuffer) SetFrames(n int) {
	if n > b.Capacity {
		n = b.Capacity
	}
	b.Frames = n
}

// Clear resets the valid frame count to zero without releasing the
// underlying planes, so the buffer can be reused for the next packet.
func (b *AudioBuffer) Clear() {
	b.Frames = 0
}

// IntBuffer converts the valid portion of the buffer into a go-audio/audio
// IntBuffer, interleaving channels. Integer samples are right-shifted back
// from their left-aligned container representation to bitsPerSample-wide
// values, matching the convention go-audio/wav callers expect.
func (b *AudioBuffer) IntBuffer() *audio.IntBuffer {
	ch := b.Channels()
	data := make([]int, b.Frames*ch)
	shift := uint(32 - b.BitsPerSample)
	if b.SampleFmt == FormatS32 {
		for c := 0; c < ch; c++ {
			plane := b.planesI[c]
			for i := 0; i < b.Frames; i++ {
				data[i*ch+c] = int(plane[i] >> shift)
			}
		}
	} else {
		for c := 0; c < ch; c++ {
			plane := b.planesF[c]
			for i := 0; i < b.Frames; i++ {
				data[i*ch+c] = int(plane[i] * float32(int32(1)<<uint(b.BitsPerSample-1)))
			}
		}
	}
	return &audio.IntBuffer{
		Format:         b.Format,
		Data:           data,
		SourceBitDepth: b.BitsPerSample,
	}
}

// FloatBuffer converts the valid portion of the buffer into a
// go-audio/audio FloatBuffer, interleaving channels and normalizing integer
// samples to [-1, 1).
func (b *AudioBuffer) FloatBuffer() *audio.FloatBuffer {
	ch := b.Channels()
	data := make([]float64, b.Frames*ch)
	if b.SampleFmt == FormatF32 {
		for c := 0; c < ch; c++ {
			plane := b.planesF[c]
			for i := 0; i < b.Frames; i++ {
				data[i*ch+c] = float64(plane[i])
			}
		}
	} else {
		scale := float64(int64(1) << 31)
		for c := 0; c < ch; c++ {
			plane := b.planesI[c]
			for i := 0; i < b.Frames; i++ {
				data[i*ch+c] = float64(plane[i]) / scale
			}
		}
	}
	return &audio.FloatBuffer{
		Format: b.Format,
		Data:   data,
	}
}
