package mp4

import (
	"io"
	"sort"

	"github.com/mewkiz/audiocore/core"
)

// Reader implements core.FormatReader for ISO-BMFF (MP4/M4A), per spec
// §4.3.5. The progressive `moov` sample table and any fragmented `moof`
// runs are both resolved into one flat, byte-offset-ordered packet list
// during TryNew (mirroring format/mkv and format/ogg's "parse the
// structural boxes once, then hand back packets" shape); NextPacket walks
// that list and Seek binary-searches a per-track timestamp index into it.
type Reader struct {
	src      core.MediaSource
	tracks   []core.Track
	packets  []*core.Packet
	offsets  []int64
	sizes    []uint32
	perTrack map[uint32][]*core.Packet
	indexOf  map[*core.Packet]int
	pos      int
	log      *core.MetadataLog
}

// Marker is the four-byte box type probe.Registry matches to identify an
// ISO-BMFF stream: "ftyp", the file-type box essentially every MP4/M4A
// file begins its box tree with.
var Marker = []byte("ftyp")

// fragSample is one sample contributed by a `moof` `trun` run, tagged with
// its track, before conversion to a core.Packet.
type fragSample struct {
	trackID uint32
	sample  sample
}

// TryNew scans every top-level box: `moov` seeds the track list and any
// progressively-stored sample table, `moof` boxes each contribute one
// segment of samples per track they describe, per spec §4.3.5.
func TryNew(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error) {
	var traks []trakInfo
	extends := make(map[uint32]trackExtends)
	var frags []fragSample
	trackTS := make(map[uint32]uint64)

	for {
		boxStart, err := src.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, core.NewIOError(err)
		}
		hdr, err := readBoxHeader(src)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.NewIOError(err)
		}
		bodySize := hdr.BodySize
		if bodySize < 0 {
			n, ok := src.Len()
			if !ok {
				return nil, core.NewUnsupportedError("mp4: box extends to unknown stream end")
			}
			pos, _ := src.Seek(0, io.SeekCurrent)
			bodySize = n - pos
		}
		body := io.LimitReader(src, bodySize)

		switch hdr.TypeString() {
		case "moov":
			ts, ex, err := parseMoov(body, bodySize)
			if err != nil {
				return nil, core.NewDecodeErrorf("mp4: moov: %v", err)
			}
			traks = ts
			for id, x := range ex {
				extends[id] = x
			}
		case "moof":
			fs, err := parseMoof(body, bodySize, boxStart, extends, trackTS)
			if err != nil {
				return nil, core.NewDecodeErrorf("mp4: moof: %v", err)
			}
			frags = append(frags, fs...)
		default:
			if err := skipBox(body, bodySize); err != nil && err != io.EOF {
				return nil, core.NewIOError(err)
			}
		}

		next := boxStart + hdr.HeaderSize + bodySize
		if _, err := src.Seek(next, io.SeekStart); err != nil {
			return nil, core.NewIOError(err)
		}
	}

	if len(traks) == 0 {
		return nil, core.NewUnsupportedError("mp4: no audio track found")
	}

	r := &Reader{
		src:      src,
		perTrack: make(map[uint32][]*core.Packet),
		indexOf:  make(map[*core.Packet]int),
		log:      &core.MetadataLog{},
	}
	if opts.ExternalMetadata != nil {
		r.log.Tags = append(r.log.Tags, opts.ExternalMetadata.Tags...)
	}

	byTrack := make(map[uint32][]sample)
	for _, t := range traks {
		r.tracks = append(r.tracks, trackCodecParams(t))
		byTrack[t.id] = append(byTrack[t.id], t.samples...)
	}
	for _, fs := range frags {
		byTrack[fs.trackID] = append(byTrack[fs.trackID], fs.sample)
	}

	// Every sample (progressive or fragmented) carries its own absolute
	// byte offset; sorting the combined per-track lists by offset recovers
	// the file's natural interleaved byte order across tracks, per spec
	// §4.3.5 / §5's "natural byte order, not per-track" ordering rule.
	type withOffset struct {
		trackID uint32
		s       sample
	}
	var all []withOffset
	for _, t := range r.tracks {
		for _, s := range byTrack[t.ID] {
			all = append(all, withOffset{trackID: t.ID, s: s})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].s.Offset < all[j].s.Offset })

	r.offsets = make([]int64, len(all))
	r.sizes = make([]uint32, len(all))
	r.packets = make([]*core.Packet, len(all))
	for i, w := range all {
		pkt := &core.Packet{TrackID: w.trackID, TS: w.s.TS, Dur: w.s.Dur}
		r.packets[i] = pkt
		r.offsets[i] = w.s.Offset
		r.sizes[i] = w.s.Size
		r.indexOf[pkt] = i
		r.perTrack[w.trackID] = append(r.perTrack[w.trackID], pkt)
	}

	return r, nil
}

// Tracks returns the reader's audio tracks.
func (r *Reader) Tracks() []core.Track { return r.tracks }

// Metadata returns the accumulated metadata log.
func (r *Reader) Metadata() *core.MetadataLog { return r.log }

// IntoInner returns the underlying MediaSource.
func (r *Reader) IntoInner() core.MediaSource { return r.src }

// NextPacket seeks to the next sample's byte offset, reads its declared
// size, and returns it as a Packet.
func (r *Reader) NextPacket() (*core.Packet, error) {
	if r.pos >= len(r.packets) {
		return nil, core.ErrEof
	}
	pkt := r.packets[r.pos]
	off := r.offsets[r.pos]
	size := r.sizes[r.pos]
	r.pos++

	if _, err := r.src.Seek(off, io.SeekStart); err != nil {
		return nil, core.NewIOError(err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r.src, data); err != nil {
		return nil, core.NewIOError(err)
	}
	out := *pkt
	out.Data = data
	return &out, nil
}

// Seek binary-searches the target track's timestamp-ordered packet list
// and repositions the shared read cursor to that packet's position in
// the combined, byte-offset-ordered list.
func (r *Reader) Seek(mode core.SeekMode, targetTS uint64, trackID uint32) (core.SeekedTo, error) {
	if trackID == 0 && len(r.tracks) == 1 {
		trackID = r.tracks[0].ID
	}
	list, ok := r.perTrack[trackID]
	if !ok {
		return core.SeekedTo{}, core.NewSeekError(core.SeekInvalidTrack, "mp4: unknown track id")
	}
	if len(list) == 0 {
		return core.SeekedTo{}, core.NewSeekError(core.SeekOutOfRange, "mp4: track has no samples")
	}
	i := sort.Search(len(list), func(i int) bool { return list[i].TS+list[i].Dur > targetTS })
	if i >= len(list) {
		i = len(list) - 1
	}
	target := list[i]
	r.pos = r.indexOf[target]
	return core.SeekedTo{RequiredTS: targetTS, ActualTS: target.TS, TrackID: trackID}, nil
}
