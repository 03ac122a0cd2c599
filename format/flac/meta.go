// Package flac implements the native FLAC container demuxer (spec
// §4.1.1 "FLAC native" and §4.4.2): a four-byte stream marker, a sequence
// of metadata blocks with StreamInfo first, then a stream of frames.
//
// Metadata block parsing is grounded directly on the teacher's
// meta/meta.go: same block header bit layout (1 bit IsLast, 7 bits type,
// 24 bits length), same StreamInfo field packing and validation bounds
// (min block size >= 16, sample rate in 1..655350, bits-per-sample 4..32),
// same SeekTable/VorbisComment/Picture body layouts. Where the teacher
// returns a single flat metadata struct with a fixed handful of block
// types, this generalizes block dispatch into the Reader's accumulated
// core.MetadataLog and core.SeekIndex so it plugs into the streaming
// FormatReader contract instead of an eager batch-load API.
package flac

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	flaccodec "github.com/mewkiz/audiocore/codec/flac"
	"github.com/mewkiz/audiocore/core"
	"github.com/mewkiz/audiocore/meta"
)

// Marker is the four-byte FLAC stream marker.
var Marker = []byte("fLaC")

// blockType identifies a metadata block's body kind, per the FLAC format.
type blockType uint8

const (
	blockStreamInfo blockType = iota
	blockPadding
	blockApplication
	blockSeekTable
	blockVorbisComment
	blockCueSheet
	blockPicture
)

// blockHeader is a metadata block header: is-last flag, 7-bit type, 24-bit
// length, grounded on meta.NewBlockHeader.
type blockHeader struct {
	isLast    bool
	blockType blockType
	length    int
}

func readBlockHeader(r io.Reader) (blockHeader, error) {
	var bits uint32
	if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
		return blockHeader{}, err
	}
	h := blockHeader{}
	h.isLast = bits&0x80000000 != 0
	t := blockType(bits & 0x7F000000 >> 24)
	if t >= 7 && t <= 126 {
		return blockHeader{}, errors.New("flac: reserved metadata block type")
	}
	if t == 127 {
		return blockHeader{}, errors.New("flac: invalid metadata block type")
	}
	h.blockType = t
	h.length = int(bits & 0x00FFFFFF)
	return h, nil
}

// readSeekTable decodes a SEEKTABLE block body into a core.SeekIndex. A
// placeholder point (sample number 0xFFFFFFFFFFFFFFFF) is skipped, per the
// FLAC format's allowance for encoder-reserved entries.
func readSeekTable(r io.Reader, length int) (*core.SeekIndex, error) {
	const placeholderSampleNum = 0xFFFFFFFFFFFFFFFF
	const pointSize = 18
	n := length / pointSize
	idx := core.NewSeekIndex(nil)
	for i := 0; i < n; i++ {
		var sampleNum, offset uint64
		var sampleCount uint16
		if err := binary.Read(r, binary.BigEndian, &sampleNum); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &offset); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &sampleCount); err != nil {
			return nil, err
		}
		if sampleNum == placeholderSampleNum {
			continue
		}
		idx.Insert(core.SeekPoint{FrameTS: sampleNum, ByteOffset: offset, FramesInRegion: uint64(sampleCount)})
	}
	return idx, nil
}

// readPicture decodes a PICTURE block body into a core.Visual, grounded on
// meta.NewPicture.
func readPicture(r io.Reader) (*core.Visual, error) {
	var typ uint32
	if err := binary.Read(r, binary.BigEndian, &typ); err != nil {
		return nil, err
	}
	if typ > 20 {
		return nil, errors.Errorf("flac: reserved picture type %d", typ)
	}

	mime, err := readLenPrefixedASCII(r)
	if err != nil {
		return nil, err
	}
	desc, err := readLenPrefixedASCII(r)
	if err != nil {
		return nil, err
	}

	var width, height, depth, colorCount, dataLen uint32
	for _, p := range []*uint32{&width, &height, &depth, &colorCount, &dataLen} {
		if err := binary.Read(r, binary.BigEndian, p); err != nil {
			return nil, err
		}
	}
	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}

	return &core.Visual{MediaType: mime, Data: data, Description: desc}, nil
}

func readLenPrefixedASCII(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// readMetadataBlocks reads every metadata block following the fLaC marker,
// populating si, the seek index, and the metadata log. StreamInfo must be
// the first block, per spec §4.1.1. rawSI carries the STREAMINFO block's
// raw body, so a codec registry can hand it to flaccodec.NewDecoderFromInfo
// without this reader needing to construct a Decoder itself.
func readMetadataBlocks(r io.Reader) (si *flaccodec.StreamInfo, rawSI []byte, idx *core.SeekIndex, log *core.MetadataLog, err error) {
	log = &core.MetadataLog{}
	idx = core.NewSeekIndex(nil)

	first := true
	for {
		h, herr := readBlockHeader(r)
		if herr != nil {
			return nil, nil, nil, nil, herr
		}
		if first {
			if h.blockType != blockStreamInfo {
				return nil, nil, nil, nil, errors.New("flac: first metadata block is not StreamInfo")
			}
			first = false
		}

		body := io.LimitReader(r, int64(h.length))
		switch h.blockType {
		case blockStreamInfo:
			var buf bytes.Buffer
			si, err = flaccodec.ReadStreamInfo(io.TeeReader(body, &buf))
			if err != nil {
				return nil, nil, nil, nil, err
			}
			rawSI = buf.Bytes()
		case blockSeekTable:
			idx, err = readSeekTable(body, h.length)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		case blockVorbisComment:
			vc, _, verr := meta.ParseVorbisComment(body)
			if verr != nil {
				return nil, nil, nil, nil, verr
			}
			log.Tags = append(log.Tags, vc.Tags...)
		case blockPicture:
			vis, perr := readPicture(body)
			if perr != nil {
				return nil, nil, nil, nil, perr
			}
			log.Visuals = append(log.Visuals, *vis)
		case blockApplication, blockCueSheet, blockPadding:
			if _, cerr := io.Copy(io.Discard, body); cerr != nil {
				return nil, nil, nil, nil, cerr
			}
		default:
			if _, cerr := io.Copy(io.Discard, body); cerr != nil {
				return nil, nil, nil, nil, cerr
			}
		}

		if h.isLast {
			break
		}
	}
	if si == nil {
		return nil, nil, nil, nil, errors.New("flac: missing StreamInfo block")
	}
	return si, rawSI, idx, log, nil
}
