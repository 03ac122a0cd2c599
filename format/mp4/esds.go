package mp4

import (
	"io"
)

// MPEG-4 descriptor tags (ISO/IEC 14496-1 §8.3), the subset this reader
// needs to recover a codec identifier from an `esds` box.
const (
	tagESDescriptor          = 0x03
	tagDecoderConfigDescr    = 0x04
	tagDecoderSpecificDescr  = 0x05
)

// objectTypeIndication values (ISO/IEC 14496-1 Table 5) this reader
// recognizes, grounded on shishobooks-shisho's pkg/mp4 audioObjectType
// table (other_examples/0173eb7e_..._reader_test.go.go).
const (
	otiMPEG4Audio = 0x40
	otiMP3A       = 0x6B
	otiMP3B       = 0x69
)

// readDescHeader reads one MPEG-4 descriptor's tag byte and its
// variable-length size (up to 4 continuation bytes, high bit = more
// follows), per ISO/IEC 14496-1 §8.3.3, grounded on joy4's isom.go
// readDesc (other_examples/4a1dd24b_...isom.go.go).
func readDescHeader(r io.Reader) (tag byte, size int, err error) {
	var tb [1]byte
	if _, err = io.ReadFull(r, tb[:]); err != nil {
		return 0, 0, err
	}
	tag = tb[0]
	for i := 0; i < 4; i++ {
		var b [1]byte
		if _, err = io.ReadFull(r, b[:]); err != nil {
			return 0, 0, err
		}
		size = size<<7 | int(b[0]&0x7F)
		if b[0]&0x80 == 0 {
			break
		}
	}
	return tag, size, nil
}

// parseEsds extracts a codec identifier and the raw AudioSpecificConfig
// (when present) from an `esds` box body: ES_Descriptor -> (optional
// decoder-config) -> (optional decoder-specific-info carrying
// AudioSpecificConfig for MPEG-4 audio).
func parseEsds(r io.Reader) (codec string, extra []byte, ok bool) {
	if _, _, err := readFullBoxVersion(r); err != nil {
		return "", nil, false
	}
	tag, size, err := readDescHeader(r)
	if err != nil || tag != tagESDescriptor {
		return "", nil, false
	}
	body := io.LimitReader(r, int64(size))

	// ES_ID(2) + flags(1); +2 more if stream-dependence/URL flags set,
	// which no audio-only MP4 track in practice carries, so only the
	// fixed 3-byte prefix is consumed here.
	var hdr [3]byte
	if _, err := io.ReadFull(body, hdr[:]); err != nil {
		return "", nil, false
	}

	tag, size, err = readDescHeader(body)
	if err != nil || tag != tagDecoderConfigDescr {
		return "", nil, false
	}
	cfg := io.LimitReader(body, int64(size))
	var oti [1]byte
	if _, err := io.ReadFull(cfg, oti[:]); err != nil {
		return "", nil, false
	}
	_, _ = io.CopyN(io.Discard, cfg, 12) // streamType/bufferSizeDB/max/avg bitrate

	switch oti[0] {
	case otiMP3A, otiMP3B:
		codec = "mp3"
	case otiMPEG4Audio:
		codec = "aac"
	default:
		codec = "mp4a"
	}

	tag, size, err = readDescHeader(cfg)
	if err == nil && tag == tagDecoderSpecificDescr {
		extra = make([]byte, size)
		if _, err := io.ReadFull(cfg, extra); err != nil {
			extra = nil
		}
	}
	return codec, extra, true
}
