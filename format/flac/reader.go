package flac

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	flaccodec "github.com/mewkiz/audiocore/codec/flac"
	"github.com/mewkiz/audiocore/core"
	"github.com/mewkiz/audiocore/internal/bitio"
	"github.com/mewkiz/audiocore/internal/checksum"
)

// trackID is the single elementary stream a native FLAC file carries.
const trackID = 0

// countingReader wraps a core.MediaSource and counts every byte pulled
// from it, so Reader.NextPacket can recover the exact byte length of a
// self-delimiting FLAC frame (no length field; the frame's own CRC-16
// footer is the only reliable end marker, per spec §4.1.1) by comparing
// bytes pulled against bytes left unconsumed in the bitio.Reader's
// look-ahead buffer.
type countingReader struct {
	src core.MediaSource
	n   int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	c.n += int64(n)
	return n, err
}

// Reader implements core.FormatReader for native FLAC streams, per spec
// §4.1.1/§4.4.2: a four-byte marker, a metadata block chain seeded by
// format/flac/meta.go's readMetadataBlocks, then a headerless stream of
// frames delimited by resynchronizing on the next sync pattern.
type Reader struct {
	src core.MediaSource
	si  *flaccodec.StreamInfo
	idx *core.SeekIndex
	log *core.MetadataLog

	dataStart int64 // absolute byte offset of the first frame
	pos       int64 // absolute byte offset of the next frame to read

	track core.Track
}

// TryNew probes src for the fLaC marker and, on success, reads every
// metadata block and returns a Reader positioned at the first frame.
func TryNew(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error) {
	var marker [4]byte
	if _, err := io.ReadFull(src, marker[:]); err != nil {
		return nil, core.NewIOError(err)
	}
	if !bytes.Equal(marker[:], Marker) {
		return nil, errors.New("flac: missing stream marker")
	}

	si, rawSI, idx, log, err := readMetadataBlocks(src)
	if err != nil {
		return nil, core.NewDecodeErrorf("flac: metadata: %v", err)
	}
	if opts.ExternalMetadata != nil {
		log.Tags = append(opts.ExternalMetadata.Tags, log.Tags...)
		log.Visuals = append(opts.ExternalMetadata.Visuals, log.Visuals...)
	}

	dataStart, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, core.NewIOError(err)
	}

	tb := core.TimeBase{Num: 1, Den: si.SampleRate}
	track := core.Track{
		ID: trackID,
		Params: core.CodecParams{
			Codec:         "flac",
			SampleRate:    si.SampleRate,
			Channels:      int(si.ChannelCount),
			BitsPerSample: si.BitsPerSample,
			NumFrames:     si.SampleCount,
			TimeBase:      tb,
			ExtraData:     rawSI,
		},
	}

	return &Reader{
		src:       src,
		si:        si,
		idx:       idx,
		log:       log,
		dataStart: dataStart,
		pos:       dataStart,
		track:     track,
	}, nil
}

// Tracks returns the reader's single elementary stream.
func (r *Reader) Tracks() []core.Track { return []core.Track{r.track} }

// Metadata returns the accumulated metadata log.
func (r *Reader) Metadata() *core.MetadataLog { return r.log }

// IntoInner returns the underlying MediaSource, releasing the reader's
// ownership of it.
func (r *Reader) IntoInner() core.MediaSource { return r.src }

// maxFrameScan bounds how far NextPacket will scan looking for the next
// sync pattern before giving up, per the same one-mebibyte discipline
// probe uses for its own marker search (spec §4.2); a well-formed FLAC
// stream never needs more than StreamInfo.MaxFrameSize bytes of lookahead.
const maxFrameScan = 1 << 20

// NextPacket resynchronizes on the 14-bit frame sync pattern, parses the
// frame header and body (reusing codec/flac.DecodeFrameBody so the byte
// length of a frame is derived from actually decoding it rather than a
// second, independent parse), and returns the framed bytes as one Packet
// timestamped by the frame's sample number.
func (r *Reader) NextPacket() (*core.Packet, error) {
	if _, err := r.src.Seek(r.pos, io.SeekStart); err != nil {
		return nil, core.NewIOError(err)
	}

	cr := &countingReader{src: r.src}
	crc8 := checksum.NewCRC8()
	crc16 := checksum.NewCRC16()
	br := bitio.NewReader(cr)

	// Resynchronize: a conforming encoder always starts the next frame
	// immediately (frames are byte-aligned and contiguous), so the common
	// case is an immediate header parse; scanning only kicks in after a
	// decode error left the stream misaligned.
	scanned := 0
	for {
		br.ClearMonitors()
		br.AddMonitor(crc8)
		br.AddMonitor(crc16)
		hdr, err := flaccodec.ReadFrameHeader(br, r.si, crc8)
		if err == nil {
			channels := make([][]int32, hdr.ChannelOrder.ChannelCount())
			for i := range channels {
				channels[i] = make([]int32, hdr.SampleCount)
			}
			if berr := flaccodec.DecodeFrameBody(br, hdr, crc16, channels); berr != nil {
				// Misaligned or corrupt frame: drop one byte and resync,
				// per spec §7 "Demuxers resynchronize on the next sync
				// pattern".
				scanned++
				if scanned >= maxFrameScan {
					return nil, core.NewDecodeError("flac: no frame sync found within scan limit")
				}
				r.pos++
				if _, serr := r.src.Seek(r.pos, io.SeekStart); serr != nil {
					return nil, core.NewIOError(serr)
				}
				cr.n = 0
				br = bitio.NewReader(cr)
				continue
			}

			consumed := cr.n - int64(br.Available())
			frameStart := r.pos
			data := make([]byte, consumed)
			if _, serr := r.src.Seek(frameStart, io.SeekStart); serr != nil {
				return nil, core.NewIOError(serr)
			}
			if _, rerr := io.ReadFull(r.src, data); rerr != nil {
				return nil, core.NewIOError(rerr)
			}
			r.pos = frameStart + consumed

			ts := hdr.SampleNum
			if !hdr.HasVariableSampleCount {
				ts = uint64(hdr.FrameNum) * uint64(r.si.MaxBlockSize)
			}
			return &core.Packet{
				TrackID: trackID,
				TS:      ts,
				Dur:     uint64(hdr.SampleCount),
				Data:    data,
			}, nil
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, core.ErrEof
		}

		scanned++
		if scanned >= maxFrameScan {
			return nil, core.NewDecodeError("flac: no frame sync found within scan limit")
		}
		r.pos++
		if _, serr := r.src.Seek(r.pos, io.SeekStart); serr != nil {
			return nil, core.NewIOError(serr)
		}
		cr.n = 0
		br = bitio.NewReader(cr)
	}
}

// Seek implements binary search over the SeekTable when present, falling
// back to a linear scan from the window's lower bound once the search
// window narrows to twice the maximum frame size, per spec §4.1.1.
func (r *Reader) Seek(mode core.SeekMode, targetTS uint64, trackID uint32) (core.SeekedTo, error) {
	if trackID != 0 && trackID != r.track.ID {
		return core.SeekedTo{}, core.NewSeekError(core.SeekInvalidTrack, "flac: only track 0 exists")
	}

	lo, hi := r.dataStart, int64(0)
	if n, ok := r.src.Len(); ok {
		hi = n
	}

	maxFrame := int64(r.si.MaxFrameSize)
	if maxFrame == 0 {
		maxFrame = 1 << 16
	}

	if r.idx.Len() > 0 {
		res := r.idx.Search(targetTS)
		switch res.Kind {
		case core.SearchUpper:
			lo = r.dataStart
			hi = r.dataStart + int64(res.Point.ByteOffset)
		case core.SearchLower:
			lo = r.dataStart + int64(res.Point.ByteOffset)
		case core.SearchRange:
			lo = r.dataStart + int64(res.Lo.ByteOffset)
			hi = r.dataStart + int64(res.Hi.ByteOffset)
		}
	}

	if hi == 0 {
		hi = lo + maxFrame*4
	}

	for hi-lo > 2*maxFrame {
		mid := lo + (hi-lo)/2
		r.pos = mid
		pkt, err := r.NextPacket()
		if err != nil {
			hi = mid
			continue
		}
		if pkt.TS <= targetTS {
			lo = r.pos - int64(len(pkt.Data))
		} else {
			hi = mid
		}
	}

	r.pos = lo
	var prevPos int64
	var prevTS uint64
	havePrev := false
	for {
		pkt, err := r.NextPacket()
		if err != nil {
			return core.SeekedTo{}, err
		}
		start := r.pos - int64(len(pkt.Data))
		if pkt.TS <= targetTS && targetTS < pkt.TS+pkt.Dur {
			r.pos = start
			return core.SeekedTo{RequiredTS: targetTS, ActualTS: pkt.TS, TrackID: r.track.ID}, nil
		}
		if pkt.TS > targetTS {
			// Boundary case: target fell between two packets; the spec's
			// tie-break returns the earlier one, which is the packet just
			// walked past.
			if havePrev {
				r.pos = prevPos
				return core.SeekedTo{RequiredTS: targetTS, ActualTS: prevTS, TrackID: r.track.ID}, nil
			}
			r.pos = start
			return core.SeekedTo{RequiredTS: targetTS, ActualTS: pkt.TS, TrackID: r.track.ID}, nil
		}
		prevPos, prevTS, havePrev = start, pkt.TS, true
	}
}
