package flac

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/buffer"
	"github.com/mewkiz/audiocore/core"
	"github.com/mewkiz/audiocore/internal/bitio"
	"github.com/mewkiz/audiocore/internal/checksum"
)

// Decoder implements core.AudioDecoder for native FLAC frames. One Decoder
// is constructed per Track and reused across every packet it decodes,
// grounded on the teacher's per-frame Header.NewSubFrame loop in
// frame/frame.go, generalized here into the streaming AudioDecoder
// contract and extended to perform the stereo decorrelation and MD5
// verification the teacher leaves to callers outside its frame package.
type Decoder struct {
	si     *StreamInfo
	params core.CodecParams
	verify bool

	buf *buffer.AudioBuffer
	md5 *checksum.MD5

	residual [][]int32
}

// NewDecoder constructs a Decoder for a track described by si. verify
// enables running MD5 verification of decoded audio against
// si.MD5Sum, matching spec §6 DecoderOptions.Verify.
func NewDecoder(si *StreamInfo, params core.CodecParams, verify bool) *Decoder {
	d := &Decoder{
		si:     si,
		params: params,
		verify: verify,
	}
	d.buf = buffer.NewAudioBuffer(int(si.ChannelCount), int(si.SampleRate), buffer.FormatS32, int(si.BitsPerSample), int(si.MaxBlockSize))
	d.residual = make([][]int32, si.ChannelCount)
	for i := range d.residual {
		d.residual[i] = make([]int32, si.MaxBlockSize)
	}
	if verify {
		d.md5 = checksum.NewMD5()
	}
	return d
}

// CodecParams returns the parameters this decoder was constructed with.
func (d *Decoder) CodecParams() core.CodecParams { return d.params }

// LastDecoded returns the buffer produced by the most recent Decode call.
func (d *Decoder) LastDecoded() *buffer.AudioBuffer { return d.buf }

// Reset clears no carry state: FLAC frames are independently decodable,
// so a seek never requires anything beyond handing the decoder its next
// packet, per spec §5 Cancellation.
func (d *Decoder) Reset() {}

// Decode parses one FLAC frame out of pkt.Data: a frame header (CRC-8
// verified), one subframe per channel, byte-alignment padding, and a
// CRC-16 footer over the whole frame, then applies stereo decorrelation
// and writes the result into the reused AudioBuffer. Grounded on the
// teacher's frame.NewFrame / Header.NewSubFrame / lpcDecode pipeline,
// generalized to write directly into a planar AudioBuffer instead of
// building a tree of Frame/SubFrame structs.
func (d *Decoder) Decode(pkt *core.Packet) (*buffer.AudioBuffer, error) {
	crc8 := checksum.NewCRC8()
	crc16 := checksum.NewCRC16()
	br := bitio.NewReader(bytes.NewReader(pkt.Data))
	br.AddMonitor(crc8)
	br.AddMonitor(crc16)

	hdr, err := ReadFrameHeader(br, d.si, crc8)
	if err != nil {
		return nil, core.NewDecodeErrorf("flac: frame header: %v", err)
	}

	sampleCount := int(hdr.SampleCount)
	if sampleCount > d.buf.Capacity {
		return nil, core.NewDecodeErrorf("flac: frame sample count %d exceeds StreamInfo max block size %d", sampleCount, d.buf.Capacity)
	}

	if err := DecodeFrameBody(br, hdr, crc16, d.residual); err != nil {
		return nil, err
	}

	chCount := hdr.ChannelOrder.ChannelCount()
	decorrelate(hdr.ChannelOrder, d.residual, sampleCount)

	d.buf.Clear()
	shift := uint(32 - int(hdr.BitsPerSample))
	for ch := 0; ch < chCount; ch++ {
		plane := d.buf.PlaneI32(ch)
		src := d.residual[ch]
		for i := 0; i < sampleCount; i++ {
			plane[i] = src[i] << shift
		}
	}
	d.buf.SetFrames(sampleCount)

	if d.verify {
		writeMD5Samples(d.md5, d.residual, chCount, sampleCount, int(hdr.BitsPerSample))
	}

	return d.buf, nil
}

// DecodeFrameBody decodes every subframe of a frame whose header has
// already been parsed as hdr, verifies the byte-alignment padding and the
// CRC-16 footer against crc (which must have been attached to br from the
// start of the frame, alongside the header's CRC-8 monitor), and leaves
// the decoded samples in channels[0:ChannelCount()][0:hdr.SampleCount].
//
// This is factored out of Decoder.Decode so format/flac's FormatReader can
// reuse the exact same subframe/residual/CRC-16 logic to measure a frame's
// byte length when delimiting packets, without maintaining a second,
// independent implementation of FLAC frame parsing (FLAC frames carry no
// explicit length field, so the only reliable way to find one's end is to
// parse it).
func DecodeFrameBody(br *bitio.Reader, hdr *FrameHeader, crc *checksum.CRC16, channels [][]int32) error {
	sampleCount := int(hdr.SampleCount)
	chCount := hdr.ChannelOrder.ChannelCount()
	bps := uint(hdr.BitsPerSample)

	for ch := 0; ch < chCount; ch++ {
		subBps := bps
		switch hdr.ChannelOrder {
		case ChannelLeftSide, ChannelMidSide:
			if ch == 1 {
				subBps++
			}
		case ChannelRightSide:
			if ch == 0 {
				subBps++
			}
		}
		dst := channels[ch][:sampleCount]
		if err := decodeSubframe(br, subBps, sampleCount, dst); err != nil {
			return core.NewDecodeErrorf("flac: subframe %d: %v", ch, err)
		}
	}

	if !br.IsAligned() {
		pad, err := br.Read(br.BitsBuffered())
		if err != nil {
			return core.NewDecodeErrorf("flac: frame padding: %v", err)
		}
		if pad != 0 {
			return core.NewDecodeError("flac: invalid frame padding; must be 0")
		}
	}

	gotCRC16 := crc.Sum()
	wantCRC16, err := br.Read(16)
	if err != nil {
		return core.NewDecodeErrorf("flac: frame footer: %v", err)
	}
	if uint16(wantCRC16) != gotCRC16 {
		return core.NewDecodeErrorf("flac: frame CRC-16 mismatch: expected 0x%04X, got 0x%04X", wantCRC16, gotCRC16)
	}
	return nil
}

// decorrelate reverses FLAC's inter-channel decorrelation in place,
// following the transforms named in the FLAC format's channel assignment
// field: left/side reconstructs right = left - side, right/side
// reconstructs left = right + side, and mid/side reconstructs both
// channels from the averaged mid and the difference side. Not present in
// the teacher's own package surface (mewkiz/flac's frame package returns
// raw per-subframe samples and leaves decorrelation to the caller); this
// follows the standard FLAC reference decoder's inverse transforms.
func decorrelate(order ChannelOrder, ch [][]int32, n int) {
	switch order {
	case ChannelLeftSide:
		left, side := ch[0], ch[1]
		for i := 0; i < n; i++ {
			side[i] = left[i] - side[i]
		}
	case ChannelRightSide:
		side, right := ch[0], ch[1]
		for i := 0; i < n; i++ {
			ch[0][i] = right[i] + side[i]
		}
	case ChannelMidSide:
		mid, side := ch[0], ch[1]
		for i := 0; i < n; i++ {
			s := side[i]
			m := mid[i]<<1 | (s & 1)
			mid[i] = (m + s) >> 1
			side[i] = (m - s) >> 1
		}
	}
}

// writeMD5Samples feeds the decoded samples, packed little-endian at their
// nominal bits-per-sample width, to the running MD5 monitor, matching the
// byte layout StreamInfo.MD5Sum was computed over by a conforming
// encoder.
func writeMD5Samples(m *checksum.MD5, ch [][]int32, chCount, n, bps int) {
	bytesPerSample := (bps + 7) / 8
	buf := make([]byte, 0, n*chCount*bytesPerSample)
	for i := 0; i < n; i++ {
		for c := 0; c < chCount; c++ {
			v := uint32(ch[c][i])
			for b := 0; b < bytesPerSample; b++ {
				buf = append(buf, byte(v>>(8*b)))
			}
		}
	}
	m.Write(buf)
}

// VerifyMD5 compares the accumulated MD5 digest against StreamInfo's
// recorded digest. Called once after the final packet when verify was
// requested at construction.
func (d *Decoder) VerifyMD5() error {
	if d.md5 == nil {
		return nil
	}
	got := d.md5.Sum()
	if d.si.MD5Sum == ([16]byte{}) {
		return nil
	}
	if got != d.si.MD5Sum {
		return errors.Errorf("flac: MD5 mismatch: expected %x, got %x", d.si.MD5Sum, got)
	}
	return nil
}
