// Package pcm implements the PCM codec family: linear integer PCM at
// 8/16/24/32 bits (signed or unsigned, big- or little-endian), IEEE float
// PCM at 32/64 bits, and the two companded log-PCM codecs, A-law and
// µ-law, per spec §4.4.1.
//
// The interleaved-to-planar transfer loop is grounded on the teacher's
// sample-buffer conventions in buffer.AudioBuffer (left-aligned integer
// samples, unused low bits zero) and on the ecosystem counterpart named in
// SPEC_FULL.md's DOMAIN STACK, github.com/go-audio/wav, whose decoder
// performs the same per-sample-width dispatch but at the sample-accessor
// level rather than the packet level this core needs; the PCM codec here
// is still grounded on the FLAC teacher's convention that a decoder owns
// and reuses one AudioBuffer across Decode calls.
package pcm

import (
	"encoding/binary"
	"math"

	"github.com/mewkiz/audiocore/buffer"
	"github.com/mewkiz/audiocore/core"
)

// Codec short names recognized by NewDecoder, matching the identifiers a
// RIFF/AIFF format chunk maps its format tag to.
const (
	CodecS8    = "pcm_s8"
	CodecU8    = "pcm_u8"
	CodecS16LE = "pcm_s16le"
	CodecS16BE = "pcm_s16be"
	CodecS24LE = "pcm_s24le"
	CodecS24BE = "pcm_s24be"
	CodecS32LE = "pcm_s32le"
	CodecS32BE = "pcm_s32be"
	CodecF32LE = "pcm_f32le"
	CodecF32BE = "pcm_f32be"
	CodecF64LE = "pcm_f64le"
	CodecF64BE = "pcm_f64be"
	CodecALaw  = "pcm_alaw"
	CodecMuLaw = "pcm_mulaw"
)

// Decoder implements core.AudioDecoder for one PCM variant.
type Decoder struct {
	params core.CodecParams
	codec  string
	bytesPerSample int
	buf    *buffer.AudioBuffer
}

// NewDecoder constructs a Decoder for params.Codec, preallocating a reused
// AudioBuffer sized to maxFramesPerPacket, per spec §5 Memory discipline.
func NewDecoder(params core.CodecParams, maxFramesPerPacket int) (*Decoder, error) {
	bps, sf, nativeBits := layout(params.Codec)
	if bps == 0 {
		return nil, core.NewUnsupportedError("pcm: unrecognized codec " + params.Codec)
	}
	if params.BitsPerSample != 0 {
		nativeBits = int(params.BitsPerSample)
	}
	d := &Decoder{
		params:         params,
		codec:          params.Codec,
		bytesPerSample: bps,
		buf:            buffer.NewAudioBuffer(params.Channels, int(params.SampleRate), sf, nativeBits, maxFramesPerPacket),
	}
	return d, nil
}

// layout returns the on-wire byte width, the buffer's native
// representation, and the nominal bit depth for a codec identifier.
func layout(codec string) (bytesPerSample int, sf buffer.SampleFormat, bits int) {
	switch codec {
	case CodecS8, CodecU8:
		return 1, buffer.FormatS32, 8
	case CodecALaw, CodecMuLaw:
		return 1, buffer.FormatS32, 16
	case CodecS16LE, CodecS16BE:
		return 2, buffer.FormatS32, 16
	case CodecS24LE, CodecS24BE:
		return 3, buffer.FormatS32, 24
	case CodecS32LE, CodecS32BE:
		return 4, buffer.FormatS32, 32
	case CodecF32LE, CodecF32BE:
		return 4, buffer.FormatF32, 32
	case CodecF64LE, CodecF64BE:
		return 8, buffer.FormatF32, 64
	default:
		return 0, buffer.FormatS32, 0
	}
}

// CodecParams returns the parameters this decoder was constructed with.
func (d *Decoder) CodecParams() core.CodecParams { return d.params }

// LastDecoded returns the buffer produced by the most recent Decode call.
func (d *Decoder) LastDecoded() *buffer.AudioBuffer { return d.buf }

// Reset is a no-op: PCM packets carry no carry state across calls.
func (d *Decoder) Reset() {}

// Decode transfers pkt.Data, interleaved at bytesPerSample width, into the
// reused planar AudioBuffer.
func (d *Decoder) Decode(pkt *core.Packet) (*buffer.AudioBuffer, error) {
	ch := d.params.Channels
	frameSize := d.bytesPerSample * ch
	if frameSize == 0 || len(pkt.Data)%frameSize != 0 {
		return nil, core.NewDecodeErrorf("pcm: packet length %d not a multiple of frame size %d", len(pkt.Data), frameSize)
	}
	n := len(pkt.Data) / frameSize
	if n > d.buf.Capacity {
		n = d.buf.Capacity
	}
	d.buf.Clear()

	switch d.codec {
	case CodecS8:
		d.transferInt(pkt.Data, ch, n, 1, false, false)
	case CodecU8:
		d.transferInt(pkt.Data, ch, n, 1, false, true)
	case CodecS16LE:
		d.transferInt(pkt.Data, ch, n, 2, false, false)
	case CodecS16BE:
		d.transferInt(pkt.Data, ch, n, 2, true, false)
	case CodecS24LE:
		d.transferInt(pkt.Data, ch, n, 3, false, false)
	case CodecS24BE:
		d.transferInt(pkt.Data, ch, n, 3, true, false)
	case CodecS32LE:
		d.transferInt(pkt.Data, ch, n, 4, false, false)
	case CodecS32BE:
		d.transferInt(pkt.Data, ch, n, 4, true, false)
	case CodecF32LE:
		d.transferFloat32(pkt.Data, ch, n, false)
	case CodecF32BE:
		d.transferFloat32(pkt.Data, ch, n, true)
	case CodecF64LE:
		d.transferFloat64(pkt.Data, ch, n, false)
	case CodecF64BE:
		d.transferFloat64(pkt.Data, ch, n, true)
	case CodecALaw:
		d.transferLogPCM(pkt.Data, ch, n, alawDecode)
	case CodecMuLaw:
		d.transferLogPCM(pkt.Data, ch, n, mulawDecode)
	}

	d.buf.SetFrames(n)
	return d.buf, nil
}

// transferInt reads n frames of ch channels at byteWidth each (big or
// little endian, sign bit flipped when unsigned) and left-aligns each sample to
// the most significant bits of a 32-bit container, per spec §4.4.1.
func (d *Decoder) transferInt(data []byte, ch, n, byteWidth int, bigEndian, unsigned bool) {
	shift := uint(32 - 8*byteWidth)
	frameSize := byteWidth * ch
	for c := 0; c < ch; c++ {
		plane := d.buf.PlaneI32(c)
		for i := 0; i < n; i++ {
			off := i*frameSize + c*byteWidth
			var v uint32
			if bigEndian {
				for b := 0; b < byteWidth; b++ {
					v = v<<8 | uint32(data[off+b])
				}
			} else {
				for b := byteWidth - 1; b >= 0; b-- {
					v = v<<8 | uint32(data[off+b])
				}
			}
			v <<= shift
			if unsigned {
				v ^= 0x80000000
			}
			plane[i] = int32(v)
		}
	}
}

func (d *Decoder) transferFloat32(data []byte, ch, n int, bigEndian bool) {
	frameSize := 4 * ch
	order := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		order = binary.BigEndian
	}
	for c := 0; c < ch; c++ {
		plane := d.buf.PlaneF32(c)
		for i := 0; i < n; i++ {
			off := i*frameSize + c*4
			bits := order.Uint32(data[off : off+4])
			plane[i] = math.Float32frombits(bits)
		}
	}
}

func (d *Decoder) transferFloat64(data []byte, ch, n int, bigEndian bool) {
	frameSize := 8 * ch
	order := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		order = binary.BigEndian
	}
	for c := 0; c < ch; c++ {
		plane := d.buf.PlaneF32(c)
		for i := 0; i < n; i++ {
			off := i*frameSize + c*8
			bits := order.Uint64(data[off : off+8])
			plane[i] = float32(math.Float64frombits(bits))
		}
	}
}

func (d *Decoder) transferLogPCM(data []byte, ch, n int, expand func(byte) int16) {
	for c := 0; c < ch; c++ {
		plane := d.buf.PlaneI32(c)
		for i := 0; i < n; i++ {
			off := i*ch + c
			linear := expand(data[off])
			plane[i] = int32(linear) << 16
		}
	}
}

// alawDecode expands an 8-bit A-law sample to 16-bit linear PCM using the
// canonical SUN-Microsystems-style segment/quantization/bias expansion
// named in spec §4.4.1.
func alawDecode(b byte) int16 {
	b ^= 0x55
	sign := b & 0x80
	exponent := (b >> 4) & 0x07
	mantissa := b & 0x0F
	var sample int32
	if exponent == 0 {
		sample = int32(mantissa)<<4 + 8
	} else {
		sample = (int32(mantissa)<<4 + 0x108) << (exponent - 1)
	}
	if sign == 0 {
		sample = -sample
	}
	return int16(sample)
}

// mulawDecode expands an 8-bit µ-law sample to 16-bit linear PCM, per the
// canonical bias-and-shift expansion spec §4.4.1 names.
func mulawDecode(b byte) int16 {
	const bias = 0x84
	b = ^b
	sign := b & 0x80
	exponent := (b >> 4) & 0x07
	mantissa := b & 0x0F
	sample := (int32(mantissa)<<3 + bias) << exponent
	sample -= bias
	if sign != 0 {
		sample = -sample
	}
	return int16(sample)
}
