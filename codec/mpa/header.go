// Package mpa implements MPEG Audio Layer III (MP3) frame decoding, per
// spec §4.4.3. Frame header and side-information parsing are grounded on
// the pack's retrieved hajimehoshi/go-mp3 source files
// (other_examples/..._source.go, ..._sideinfo.go, ..._maindata.go,
// ..._read.go): same header bit layout, the same granule/channel side-info
// field order, and the same main-data bit-reservoir assembly. That
// source itself restricts to Layer III only ("mp3: only layer3 ... is
// supported"), which this package matches: Layer I/II headers are
// recognized (for frame-size bookkeeping so a demuxer can still skip
// them) but Decode on a Layer I/II frame returns a core.Error of
// KindUnsupported.
package mpa

import (
	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/internal/mpatables"
)

// ChannelMode is the MPEG Audio channel mode field.
type ChannelMode int

// Channel modes, per ISO/IEC 11172-3.
const (
	ModeStereo ChannelMode = iota
	ModeJointStereo
	ModeDualChannel
	ModeSingleChannel
)

// Header is one parsed MPEG Audio frame header.
type Header struct {
	Version        mpatables.Version
	Layer          mpatables.Layer
	ProtectionBit  bool // true means no CRC follows
	BitrateIndex   int
	SampleRateIdx  int
	Padding        bool
	Mode           ChannelMode
	ModeExtension  int
	Copyright      bool
	Original       bool
	Emphasis       int
}

// ParseHeader parses a 4-byte MPEG Audio frame header, per ISO/IEC
// 11172-3 §2.4.1.3, validating the sync pattern and every reserved field.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < 4 {
		return nil, errors.New("mpa: short header")
	}
	word := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	if word&0xFFE00000 != 0xFFE00000 {
		return nil, errors.New("mpa: missing frame sync")
	}
	versionBits := (word >> 19) & 0x3
	layerBits := (word >> 17) & 0x3
	protection := (word >> 16) & 0x1
	bitrateIdx := int((word >> 12) & 0xF)
	sampleRateIdx := int((word >> 10) & 0x3)
	padding := (word >> 9) & 0x1
	mode := ChannelMode((word >> 6) & 0x3)
	modeExt := int((word >> 4) & 0x3)
	copyright := (word >> 3) & 0x1
	original := (word >> 2) & 0x1
	emphasis := int(word & 0x3)

	var version mpatables.Version
	switch versionBits {
	case 0:
		version = mpatables.Version2_5
	case 1:
		return nil, errors.New("mpa: reserved version bits")
	case 2:
		version = mpatables.Version2
	case 3:
		version = mpatables.Version1
	}

	var layer mpatables.Layer
	switch layerBits {
	case 0:
		return nil, errors.New("mpa: reserved layer bits")
	case 1:
		layer = mpatables.Layer3
	case 2:
		layer = mpatables.Layer2
	case 3:
		layer = mpatables.Layer1
	}

	if bitrateIdx == 15 {
		return nil, errors.New("mpa: reserved bitrate index")
	}
	if bitrateIdx == 0 {
		return nil, errors.New("mpa: free bitrate format is not supported")
	}
	if sampleRateIdx == 3 {
		return nil, errors.New("mpa: reserved sample rate index")
	}
	if emphasis == 2 {
		return nil, errors.New("mpa: reserved emphasis value")
	}

	return &Header{
		Version:       version,
		Layer:         layer,
		ProtectionBit: protection == 1,
		BitrateIndex:  bitrateIdx,
		SampleRateIdx: sampleRateIdx,
		Padding:       padding == 1,
		Mode:          mode,
		ModeExtension: modeExt,
		Copyright:     copyright == 1,
		Original:      original == 1,
		Emphasis:      emphasis,
	}, nil
}

// NumChannels returns 1 for single-channel mode, 2 otherwise.
func (h *Header) NumChannels() int {
	if h.Mode == ModeSingleChannel {
		return 1
	}
	return 2
}

// SampleRate returns the frame's sample rate in Hz.
func (h *Header) SampleRate() int {
	return mpatables.SampleRate(h.Version, h.SampleRateIdx)
}

// Bitrate returns the frame's bitrate in kbit/s.
func (h *Header) Bitrate() int {
	return mpatables.Bitrate(h.Version, h.Layer, h.BitrateIndex)
}

// FrameSize computes the total frame size in bytes, including the 4-byte
// header, per ISO/IEC 11172-3's standard formula.
func (h *Header) FrameSize() (int, error) {
	br := h.Bitrate()
	sr := h.SampleRate()
	if br <= 0 || sr <= 0 {
		return 0, errors.New("mpa: cannot compute frame size")
	}
	pad := 0
	if h.Padding {
		pad = 1
	}
	switch h.Layer {
	case mpatables.Layer1:
		return (12*br*1000/sr + pad) * 4, nil
	case mpatables.Layer2, mpatables.Layer3:
		if h.Version == mpatables.Version1 {
			return 144*br*1000/sr + pad, nil
		}
		return 72*br*1000/sr + pad, nil
	}
	return 0, errors.New("mpa: unsupported layer")
}

// Granules returns the number of Layer III granules per frame: 2 for
// MPEG-1, 1 for MPEG-2/2.5.
func (h *Header) Granules() int {
	if h.Version == mpatables.Version1 {
		return 2
	}
	return 1
}

// SideInfoSize returns the Layer III side information size in bytes.
func (h *Header) SideInfoSize() int {
	return mpatables.SideInfoSize(h.Version, h.Mode == ModeSingleChannel)
}
