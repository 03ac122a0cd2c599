package flac

import (
	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/internal/bitio"
	"github.com/mewkiz/audiocore/internal/checksum"
)

// SyncCode is the 14-bit frame header sync code, per the teacher's
// frame.SyncCode.
const SyncCode = 0x3FFE

// ChannelOrder mirrors the teacher's frame.ChannelOrder: the channel
// assignment field of a frame header, naming either an independent channel
// count or one of the three stereo decorrelation modes.
type ChannelOrder uint8

// Channel assignment values, per the FLAC format.
const (
	ChannelMono ChannelOrder = iota
	ChannelLR
	ChannelLRC
	ChannelLRLsRs
	ChannelLRCLsRs
	ChannelLRCLfeLsRs
	Channel7
	Channel8
	ChannelLeftSide
	ChannelRightSide
	ChannelMidSide
)

var channelCounts = map[ChannelOrder]int{
	ChannelMono:       1,
	ChannelLR:         2,
	ChannelLRC:        3,
	ChannelLRLsRs:     4,
	ChannelLRCLsRs:    5,
	ChannelLRCLfeLsRs: 6,
	Channel7:          7,
	Channel8:          8,
	ChannelLeftSide:   2,
	ChannelRightSide:  2,
	ChannelMidSide:    2,
}

// ChannelCount returns the number of channels used by this channel order.
func (o ChannelOrder) ChannelCount() int { return channelCounts[o] }

// FrameHeader is a parsed FLAC frame header, grounded on the teacher's
// frame.Header.
type FrameHeader struct {
	HasVariableSampleCount bool
	SampleCount            uint16
	SampleRate             uint32
	ChannelOrder           ChannelOrder
	BitsPerSample          uint8
	SampleNum              uint64
	FrameNum               uint32
}

var sampleRateSpecTable = [12]uint32{
	0, // 0000: get from StreamInfo
	88200, 176400, 192000, 8000, 16000, 22050, 24000, 32000, 44100, 48000, 96000,
}

var bitsPerSampleSpecTable = map[uint64]uint8{
	1: 8, 2: 12, 4: 16, 5: 20, 6: 24,
}

// ReadFrameHeader parses one frame header from br, verifying its trailing
// CRC-8 against crc, which must have been attached to br as a Monitor
// immediately before this call (so it accumulates exactly the sync code
// through the byte preceding the checksum). Grounded on the teacher's
// frame.NewHeader, which achieves the same effect with an io.TeeReader
// into a crc8.NewATM hash. si supplies the StreamInfo fallback values for
// a header that defers its sample rate or bits-per-sample field; the
// teacher panics on these paths, but both are reachable by a conforming
// encoder so both are implemented here.
func ReadFrameHeader(br *bitio.Reader, si *StreamInfo, crc *checksum.CRC8) (*FrameHeader, error) {
	sync, err := br.Read(14)
	if err != nil {
		return nil, err
	}
	if sync != SyncCode {
		return nil, errors.Errorf("flac: invalid frame sync code 0x%04X", sync)
	}
	reserved1, err := br.Read(1)
	if err != nil {
		return nil, err
	}
	if reserved1 != 0 {
		return nil, errors.New("flac: reserved frame header bit set")
	}

	hasVar, err := br.Read(1)
	if err != nil {
		return nil, err
	}
	sampleCountSpec, err := br.Read(4)
	if err != nil {
		return nil, err
	}
	sampleRateSpec, err := br.Read(4)
	if err != nil {
		return nil, err
	}
	chanSpec, err := br.Read(4)
	if err != nil {
		return nil, err
	}
	sizeSpec, err := br.Read(3)
	if err != nil {
		return nil, err
	}
	reserved2, err := br.Read(1)
	if err != nil {
		return nil, err
	}
	if reserved2 != 0 {
		return nil, errors.New("flac: reserved frame header bit set")
	}

	hdr := &FrameHeader{HasVariableSampleCount: hasVar != 0}

	if chanSpec > 10 {
		return nil, errors.Errorf("flac: reserved channel assignment 0x%X", chanSpec)
	}
	hdr.ChannelOrder = ChannelOrder(chanSpec)

	switch sizeSpec {
	case 0:
		if si == nil || si.BitsPerSample == 0 {
			return nil, errors.New("flac: frame header defers bits-per-sample to StreamInfo, but none is available")
		}
		hdr.BitsPerSample = si.BitsPerSample
	case 3, 7:
		return nil, errors.Errorf("flac: reserved sample size bit pattern %03b", sizeSpec)
	default:
		bps, ok := bitsPerSampleSpecTable[sizeSpec]
		if !ok {
			return nil, errors.Errorf("flac: unhandled sample size bit pattern %03b", sizeSpec)
		}
		hdr.BitsPerSample = bps
	}

	byteReader := br.ByteReader()
	if hdr.HasVariableSampleCount {
		hdr.SampleNum, err = decodeUTF8Int(byteReader)
		if err != nil {
			return nil, err
		}
	} else {
		frameNum, derr := decodeUTF8Int(byteReader)
		if derr != nil {
			return nil, derr
		}
		hdr.FrameNum = uint32(frameNum)
	}

	switch {
	case sampleCountSpec == 0:
		return nil, errors.New("flac: reserved block size bit pattern 0000")
	case sampleCountSpec == 1:
		hdr.SampleCount = 192
	case sampleCountSpec >= 2 && sampleCountSpec <= 5:
		hdr.SampleCount = uint16(576 * (1 << (sampleCountSpec - 2)))
	case sampleCountSpec == 6:
		x, rerr := br.Read(8)
		if rerr != nil {
			return nil, rerr
		}
		hdr.SampleCount = uint16(x) + 1
	case sampleCountSpec == 7:
		x, rerr := br.Read(16)
		if rerr != nil {
			return nil, rerr
		}
		hdr.SampleCount = uint16(x) + 1
	default:
		hdr.SampleCount = uint16(256 * (1 << (sampleCountSpec - 8)))
	}

	switch sampleRateSpec {
	case 0:
		if si == nil || si.SampleRate == 0 {
			return nil, errors.New("flac: frame header defers sample rate to StreamInfo, but none is available")
		}
		hdr.SampleRate = si.SampleRate
	case 12:
		x, rerr := br.Read(8)
		if rerr != nil {
			return nil, rerr
		}
		hdr.SampleRate = uint32(x) * 1000
	case 13:
		x, rerr := br.Read(16)
		if rerr != nil {
			return nil, rerr
		}
		hdr.SampleRate = uint32(x)
	case 14:
		x, rerr := br.Read(16)
		if rerr != nil {
			return nil, rerr
		}
		hdr.SampleRate = uint32(x) * 10
	case 15:
		return nil, errors.New("flac: invalid sample rate bit pattern 1111")
	default:
		hdr.SampleRate = sampleRateSpecTable[sampleRateSpec]
	}

	gotCRC := crc.Sum()
	wantCRC, err := br.Read(8)
	if err != nil {
		return nil, err
	}
	if uint8(wantCRC) != gotCRC {
		return nil, errors.Errorf("flac: frame header CRC-8 mismatch: expected 0x%02X, got 0x%02X", wantCRC, gotCRC)
	}

	return hdr, nil
}
