package ogg

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/core"
	"github.com/mewkiz/audiocore/internal/xlog"
	"github.com/mewkiz/audiocore/meta"
)

// Reader implements core.FormatReader for Ogg-encapsulated Vorbis and
// Opus streams, per spec §4.1.3.
type Reader struct {
	src     core.MediaSource
	streams map[uint32]*logicalStream
	order   []uint32 // discovery order, for "natural byte order" emission
	tracks  []core.Track
	log     *core.MetadataLog

	pending []uint32 // round-robin queue of streams with ready packets
	eof     bool

	lastTS map[uint32]uint64
}

// TryNew probes src for the "OggS" capture pattern and discovers every
// logical stream's identification packet before returning. Discovery reads
// first pages (BOS-flagged) until a non-first page is seen, per spec
// §4.1.3.
func TryNew(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error) {
	r := &Reader{
		src:     src,
		streams: make(map[uint32]*logicalStream),
		lastTS:  make(map[uint32]uint64),
	}

	for {
		p, err := readPage(r.src)
		if err != nil {
			if errors.Is(err, errCRCMismatch) {
				// A CRC failure during discovery just means this page's
				// identification packet is unreadable, so discovery stops
				// here with a decode error.
				return nil, core.NewDecodeError("ogg: crc failure during stream discovery")
			}
			if err == io.EOF {
				return nil, errors.New("ogg: truncated before any logical stream was discovered")
			}
			return nil, core.NewIOError(err)
		}
		if !p.firstPage {
			// First non-BOS page: discovery is over. This page belongs to
			// an already-discovered stream and must be processed, not
			// dropped.
			if err := r.ingestPage(p); err != nil {
				return nil, err
			}
			break
		}
		ls := newLogicalStream(p.serial)
		ls.sawBOS = true
		r.streams[p.serial] = ls
		r.order = append(r.order, p.serial)
		ls.appendPage(p)
		if !ls.hasPacket() {
			return nil, errors.Errorf("ogg: stream %d: identification packet spans multiple pages", p.serial)
		}
		idPkt, _ := ls.popPacket()
		if err := identifyCodec(ls, idPkt); err != nil {
			return nil, err
		}
	}

	for _, serial := range r.order {
		ls := r.streams[serial]
		if ls.codecName == "" {
			return nil, errors.Errorf("ogg: stream %d: no identification packet recognized", serial)
		}
		tb := core.TimeBase{Num: 1, Den: ls.sampleRate}
		r.tracks = append(r.tracks, core.Track{
			ID: serial,
			Params: core.CodecParams{
				Codec:      ls.codecName,
				SampleRate: ls.sampleRate,
				Channels:   ls.channels,
				TimeBase:   tb,
				ExtraData:  ls.codecExtra,
			},
		})
	}

	r.log = &core.MetadataLog{}
	if opts.ExternalMetadata != nil {
		r.log.Tags = opts.ExternalMetadata.Tags
		r.log.Visuals = opts.ExternalMetadata.Visuals
	}
	// Vorbis comment / OpusTags packets (the second packet of each logical
	// stream's header) are folded into the uniform tag model as they are
	// encountered during normal NextPacket iteration, since discovery only
	// reads the identification packet.
	return r, nil
}

func (r *Reader) ingestPage(p *page) error {
	ls, ok := r.streams[p.serial]
	if !ok {
		xlog.Printf("ogg: page for unknown stream %d; ignoring", p.serial)
		return nil
	}
	ls.appendPage(p)
	return nil
}

// Tracks returns one Track per discovered logical stream.
func (r *Reader) Tracks() []core.Track { return r.tracks }

// Metadata returns the accumulated tag/visual log.
func (r *Reader) Metadata() *core.MetadataLog { return r.log }

// IntoInner returns the underlying MediaSource.
func (r *Reader) IntoInner() core.MediaSource { return r.src }

// NextPacket drains any already-assembled packet first (round-robin
// across logical streams in discovery order), reading further pages only
// when every stream's queue is empty, per spec §5's "eventually fair"
// cross-track ordering.
func (r *Reader) NextPacket() (*core.Packet, error) {
	for {
		if pkt := r.drainOne(); pkt != nil {
			return pkt, nil
		}
		if r.eof {
			return nil, core.ErrEof
		}
		p, err := readPage(r.src)
		if err != nil {
			if errors.Is(err, errCRCMismatch) {
				if ls, ok := r.streams[p.serial]; ok {
					ls.resetOnCRCFailure()
				}
				return nil, core.NewDecodeError("ogg: crc failure")
			}
			if err == io.EOF {
				r.eof = true
				continue
			}
			return nil, core.NewIOError(err)
		}
		if err := r.ingestPage(p); err != nil {
			return nil, err
		}
	}
}

// drainOne returns one ready packet from the first stream (in discovery
// order) that has one queued, skipping a logical stream's second header
// packet (Vorbis comment / OpusTags) into the metadata log instead of
// emitting it as audio, or nil if nothing is ready.
func (r *Reader) drainOne() *core.Packet {
	for _, serial := range r.order {
		ls := r.streams[serial]
		if !ls.hasPacket() {
			continue
		}
		data, granule := ls.popPacket()
		ls.headerPacketsSeen++
		if ls.headerPacketsSeen == 1 {
			r.ingestCommentPacket(ls, data)
			continue
		}
		ts := r.lastTS[serial]
		if granule != 0 {
			ts = granule
		}
		r.lastTS[serial] = ts
		return &core.Packet{TrackID: serial, TS: ts, Dur: 0, Data: data}
	}
	return nil
}

// ingestCommentPacket folds a Vorbis-comment-formatted second header
// packet (used verbatim by both Vorbis and Opus, the latter behind an
// "OpusTags" prefix) into the reader's metadata log.
func (r *Reader) ingestCommentPacket(ls *logicalStream, data []byte) {
	var body []byte
	switch ls.codecName {
	case "vorbis":
		if len(data) > 7 && data[0] == 3 {
			body = data[7:]
		}
	case "opus":
		if len(data) > 8 && string(data[:8]) == "OpusTags" {
			body = data[8:]
		}
	}
	if body == nil {
		return
	}
	vc, _, err := meta.ParseVorbisComment(byteReaderOf(body))
	if err != nil {
		xlog.Printf("ogg: stream %d: comment packet: %v", ls.serial, err)
		return
	}
	r.log.Tags = append(r.log.Tags, vc.Tags...)
}

func byteReaderOf(b []byte) io.Reader { return &sliceReader{b: b} }

type sliceReader struct{ b []byte }

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(s.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b)
	s.b = s.b[n:]
	return n, nil
}

// Seek scans forward from the start of the stream re-reading pages until
// a page whose granule position covers targetTS is found; Ogg carries no
// generic seek index of its own in this implementation (spec leaves
// per-codec seek tables, e.g. Vorbis's optional skeleton, out of the core
// Ogg layer), so this satisfies spec §4.3's contract at coarse,
// page-granularity accuracy.
func (r *Reader) Seek(mode core.SeekMode, targetTS uint64, trackID uint32) (core.SeekedTo, error) {
	if _, ok := r.streams[trackID]; !ok {
		return core.SeekedTo{}, core.NewSeekError(core.SeekInvalidTrack, "ogg: unknown track id")
	}
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return core.SeekedTo{}, core.NewSeekError(core.SeekUnseekable, err.Error())
	}
	fresh, err := TryNew(r.src, core.FormatOptions{})
	if err != nil {
		return core.SeekedTo{}, core.NewIOError(err)
	}
	*r = *fresh.(*Reader)

	for {
		pkt, err := r.NextPacket()
		if err != nil {
			return core.SeekedTo{}, err
		}
		if pkt.TrackID == trackID && pkt.TS >= targetTS {
			return core.SeekedTo{RequiredTS: targetTS, ActualTS: pkt.TS, TrackID: trackID}, nil
		}
	}
}
