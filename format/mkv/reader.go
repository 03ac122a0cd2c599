package mkv

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/codec/pcm"
	"github.com/mewkiz/audiocore/core"
)

// Marker is the four-byte EBML magic every Matroska/WebM file begins with,
// registered with the probe per spec §4.2.
var Marker = []byte{0x1A, 0x45, 0xDF, 0xA3}

// trackState wraps the parsed Tracks entry for one audio track.
type trackState struct {
	track core.Track
}

// Reader implements core.FormatReader for Matroska/WebM, per spec §4.3.4.
// Info/Tracks/Cues are parsed once during TryNew; Clusters are parsed one
// at a time, each fully buffered into a queue of Packets since a Cluster's
// declared size bounds it.
type Reader struct {
	src core.MediaSource

	timestampScale uint64 // nanoseconds per Cluster/Block timestamp tick
	tb             core.TimeBase

	tracks   []core.Track
	byNumber map[uint64]uint32 // Matroska TrackNumber -> core.Track.ID

	segmentDataStart int64 // absolute offset of the first byte of Segment's body
	segmentEnd       int64 // absolute offset one past Segment's body, or 0 if unknown

	firstClusterOff int64 // absolute offset of the first Cluster element

	idx map[uint32]*core.SeekIndex // per-track Cue-derived seek index

	log *core.MetadataLog

	pos   int64 // absolute offset of the next Cluster to read
	queue []*core.Packet
	eof   bool
}

// TryNew parses the EBML header, locates the Segment master, and scans its
// top-level children until Info, Tracks, and (if present) Cues have been
// read and the first Cluster has been located, per spec §4.3.4.
func TryNew(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error) {
	hdr, err := readElemHeader(src)
	if err != nil {
		return nil, core.NewIOError(err)
	}
	if hdr.ID != idEBML {
		return nil, errors.New("mkv: missing EBML header element")
	}
	if hdr.Size != unknownSize {
		if err := skip(src, int64(hdr.Size)); err != nil {
			return nil, core.NewIOError(err)
		}
	}

	seg, err := readElemHeader(src)
	if err != nil {
		return nil, core.NewIOError(err)
	}
	if seg.ID != idSegment {
		return nil, errors.New("mkv: missing Segment element")
	}

	segStart, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, core.NewIOError(err)
	}

	r := &Reader{
		src:              src,
		timestampScale:   1_000_000, // default per Matroska spec, §11.4 Info
		byNumber:         make(map[uint64]uint32),
		segmentDataStart: segStart,
		idx:              make(map[uint32]*core.SeekIndex),
		log:              &core.MetadataLog{},
	}
	if seg.Size != unknownSize {
		r.segmentEnd = segStart + int64(seg.Size)
	}
	if opts.ExternalMetadata != nil {
		r.log.Tags = append(r.log.Tags, opts.ExternalMetadata.Tags...)
		r.log.Visuals = append(r.log.Visuals, opts.ExternalMetadata.Visuals...)
	}

	if err := r.scanTopLevel(); err != nil {
		return nil, err
	}
	if len(r.tracks) == 0 {
		return nil, core.NewUnsupportedError("mkv: no audio tracks found")
	}
	r.tb = core.TimeBase{Num: uint32(r.timestampScale), Den: 1_000_000_000}
	for i := range r.tracks {
		r.tracks[i].Params.TimeBase = r.tb
	}
	r.pos = r.firstClusterOff
	return r, nil
}

// scanTopLevel walks Segment's direct children, parsing Info/Tracks/Cues
// and stopping as soon as the first Cluster is located (position
// remembered, not consumed), per spec §4.3.4.
func (r *Reader) scanTopLevel() error {
	for {
		off, err := r.src.Seek(0, io.SeekCurrent)
		if err != nil {
			return core.NewIOError(err)
		}
		if r.segmentEnd != 0 && off >= r.segmentEnd {
			break
		}
		hdr, err := readElemHeader(r.src)
		if err != nil {
			if err == io.EOF {
				break
			}
			return core.NewIOError(err)
		}
		switch hdr.ID {
		case idCluster:
			r.firstClusterOff = off
			return nil
		case idInfo:
			if err := r.readInfo(hdr.Size); err != nil {
				return err
			}
		case idTracks:
			if err := r.readTracks(hdr.Size); err != nil {
				return err
			}
		case idCues:
			if err := r.readCues(hdr.Size); err != nil {
				return err
			}
		default:
			if hdr.Size == unknownSize {
				return errors.New("mkv: unknown-size element above Cluster level is unsupported")
			}
			if err := skip(r.src, int64(hdr.Size)); err != nil {
				return core.NewIOError(err)
			}
		}
	}
	return errors.New("mkv: no Cluster found in Segment")
}

func (r *Reader) readInfo(size uint64) error {
	lr := io.LimitReader(r.src, int64(size))
	for {
		hdr, err := readElemHeader(lr)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return core.NewIOError(err)
		}
		switch hdr.ID {
		case idTimestampScale:
			v, err := readUint(lr, int64(hdr.Size))
			if err != nil {
				return core.NewIOError(err)
			}
			r.timestampScale = v
		case idTitle:
			b, err := readBytes(lr, int64(hdr.Size))
			if err != nil {
				return core.NewIOError(err)
			}
			r.log.Tags = append(r.log.Tags, core.Tag{Key: "Title", Value: string(b)})
		default:
			if err := skip(lr, int64(hdr.Size)); err != nil {
				return core.NewIOError(err)
			}
		}
	}
}

func (r *Reader) readTracks(size uint64) error {
	lr := io.LimitReader(r.src, int64(size))
	for {
		hdr, err := readElemHeader(lr)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return core.NewIOError(err)
		}
		if hdr.ID != idTrackEntry {
			if err := skip(lr, int64(hdr.Size)); err != nil {
				return core.NewIOError(err)
			}
			continue
		}
		if err := r.readTrackEntry(int64(hdr.Size), lr); err != nil {
			return err
		}
	}
}

func (r *Reader) readTrackEntry(size int64, parent io.Reader) error {
	elr := io.LimitReader(parent, size)

	var (
		number     uint64
		trackType  uint64
		codecID    string
		codecPriv  []byte
		language   string
		sampleRate = 8000.0
		channels   uint64 = 1
		bitDepth   uint64
	)

	for {
		hdr, err := readElemHeader(elr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.NewIOError(err)
		}
		switch hdr.ID {
		case idTrackNumber:
			number, err = readUint(elr, int64(hdr.Size))
		case idTrackType:
			trackType, err = readUint(elr, int64(hdr.Size))
		case idCodecID:
			var b []byte
			b, err = readBytes(elr, int64(hdr.Size))
			codecID = string(b)
		case idCodecPrivate:
			codecPriv, err = readBytes(elr, int64(hdr.Size))
		case idLanguage:
			var b []byte
			b, err = readBytes(elr, int64(hdr.Size))
			language = string(b)
		case idAudio:
			err = r.readAudioSettings(int64(hdr.Size), elr, &sampleRate, &channels, &bitDepth)
		default:
			err = skip(elr, int64(hdr.Size))
		}
		if err != nil {
			return core.NewIOError(err)
		}
	}

	if trackType != trackTypeAudio {
		return nil
	}

	codec := resolveCodec(codecID, uint8(bitDepth))

	// Track IDs start at 1: Seek's trackID==0 sentinel means "any track",
	// per core.FormatReader.Seek's contract, and a Matroska file commonly
	// carries more than one track.
	id := uint32(len(r.tracks)) + 1
	t := core.Track{
		ID:       id,
		Language: language,
		Params: core.CodecParams{
			Codec:         codec,
			SampleRate:    uint32(sampleRate),
			Channels:      int(channels),
			BitsPerSample: uint8(bitDepth),
			ExtraData:     codecPriv,
		},
	}
	r.tracks = append(r.tracks, t)
	r.byNumber[number] = id
	return nil
}

func (r *Reader) readAudioSettings(size int64, parent io.Reader, sampleRate *float64, channels, bitDepth *uint64) error {
	alr := io.LimitReader(parent, size)
	for {
		hdr, err := readElemHeader(alr)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch hdr.ID {
		case idSamplingFreq:
			*sampleRate, err = readFloat(alr, int64(hdr.Size))
		case idChannels:
			*channels, err = readUint(alr, int64(hdr.Size))
		case idBitDepth:
			*bitDepth, err = readUint(alr, int64(hdr.Size))
		default:
			err = skip(alr, int64(hdr.Size))
		}
		if err != nil {
			return err
		}
	}
}

// codecIDToCodec maps Matroska CodecID strings to this module's short
// codec identifiers, for every codec the core natively decodes (spec §1)
// whose identifier doesn't depend on the track's bit depth.
var codecIDToCodec = map[string]string{
	"A_VORBIS":  "vorbis",
	"A_OPUS":    "opus",
	"A_FLAC":    "flac",
	"A_MPEG/L3": "mp3",
	"A_MPEG/L2": "mp2",
	"A_MPEG/L1": "mp1",
}

// resolveCodec maps a Matroska CodecID, plus the track's bit depth for the
// PCM families (whose CodecID alone doesn't say how many bits a sample
// occupies), to this module's codec identifier: a pcm.Codec* name for the
// PCM families, the codecIDToCodec entry otherwise. An unknown
// CodecID is passed through unchanged: the track still demuxes, it just
// has no decoder in this module claiming it.
func resolveCodec(codecID string, bits uint8) string {
	switch codecID {
	case "A_PCM/INT/LIT":
		switch {
		case bits <= 8:
			return pcm.CodecU8
		case bits <= 16:
			return pcm.CodecS16LE
		case bits <= 24:
			return pcm.CodecS24LE
		default:
			return pcm.CodecS32LE
		}
	case "A_PCM/INT/BIG":
		switch {
		case bits <= 8:
			return pcm.CodecS8
		case bits <= 16:
			return pcm.CodecS16BE
		case bits <= 24:
			return pcm.CodecS24BE
		default:
			return pcm.CodecS32BE
		}
	case "A_PCM/FLOAT/IEEE":
		if bits <= 32 {
			return pcm.CodecF32LE
		}
		return pcm.CodecF64LE
	}
	if codec, ok := codecIDToCodec[codecID]; ok {
		return codec
	}
	return codecID
}

func (r *Reader) readCues(size uint64) error {
	lr := io.LimitReader(r.src, int64(size))
	for {
		hdr, err := readElemHeader(lr)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return core.NewIOError(err)
		}
		if hdr.ID != idCuePoint {
			if err := skip(lr, int64(hdr.Size)); err != nil {
				return core.NewIOError(err)
			}
			continue
		}
		if err := r.readCuePoint(int64(hdr.Size), lr); err != nil {
			return err
		}
	}
}

func (r *Reader) readCuePoint(size int64, parent io.Reader) error {
	clr := io.LimitReader(parent, size)
	var cueTime uint64
	var positions []struct {
		track uint64
		pos   uint64
	}
	for {
		hdr, err := readElemHeader(clr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.NewIOError(err)
		}
		switch hdr.ID {
		case idCueTime:
			cueTime, err = readUint(clr, int64(hdr.Size))
		case idCueTrackPositions:
			var trackNum, clusterPos uint64
			if err = r.readCueTrackPositions(int64(hdr.Size), clr, &trackNum, &clusterPos); err == nil {
				positions = append(positions, struct {
					track uint64
					pos   uint64
				}{trackNum, clusterPos})
			}
		default:
			err = skip(clr, int64(hdr.Size))
		}
		if err != nil {
			return core.NewIOError(err)
		}
	}
	for _, p := range positions {
		id, ok := r.byNumber[p.track]
		if !ok {
			continue
		}
		idx, ok := r.idx[id]
		if !ok {
			idx = core.NewSeekIndex(nil)
			r.idx[id] = idx
		}
		idx.Insert(core.SeekPoint{
			FrameTS:    cueTime,
			ByteOffset: p.pos,
		})
	}
	return nil
}

func (r *Reader) readCueTrackPositions(size int64, parent io.Reader, track, pos *uint64) error {
	plr := io.LimitReader(parent, size)
	for {
		hdr, err := readElemHeader(plr)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch hdr.ID {
		case idCueTrack:
			*track, err = readUint(plr, int64(hdr.Size))
		case idCueClusterPosition:
			*pos, err = readUint(plr, int64(hdr.Size))
		default:
			err = skip(plr, int64(hdr.Size))
		}
		if err != nil {
			return err
		}
	}
}

// Tracks returns the reader's audio tracks.
func (r *Reader) Tracks() []core.Track { return r.tracks }

// Metadata returns the accumulated metadata log.
func (r *Reader) Metadata() *core.MetadataLog { return r.log }

// IntoInner returns the underlying MediaSource.
func (r *Reader) IntoInner() core.MediaSource { return r.src }

// NextPacket returns the next queued Block frame, parsing one Cluster at a
// time into the queue when it runs dry, per spec §4.3.4.
func (r *Reader) NextPacket() (*core.Packet, error) {
	for len(r.queue) == 0 {
		if r.eof {
			return nil, core.ErrEof
		}
		if err := r.fillQueue(); err != nil {
			return nil, err
		}
	}
	pkt := r.queue[0]
	r.queue = r.queue[1:]
	return pkt, nil
}

func (r *Reader) fillQueue() error {
	if r.segmentEnd != 0 && r.pos >= r.segmentEnd {
		r.eof = true
		return nil
	}
	if _, err := r.src.Seek(r.pos, io.SeekStart); err != nil {
		return core.NewIOError(err)
	}
	hdr, err := readElemHeader(r.src)
	if err != nil {
		if err == io.EOF {
			r.eof = true
			return nil
		}
		return core.NewIOError(err)
	}
	if hdr.ID != idCluster {
		return core.NewDecodeErrorf("mkv: expected Cluster element, found ID %#x", hdr.ID)
	}
	bodyStart, err := r.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return core.NewIOError(err)
	}
	clusterSize := int64(hdr.Size)
	r.pos = bodyStart + clusterSize

	clr := io.LimitReader(r.src, clusterSize)
	var clusterTS uint64
	for {
		ehdr, err := readElemHeader(clr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.NewIOError(err)
		}
		switch ehdr.ID {
		case idTimestamp:
			clusterTS, err = readUint(clr, int64(ehdr.Size))
			if err != nil {
				return core.NewIOError(err)
			}
		case idSimpleBlock:
			if err := r.readBlock(clr, int64(ehdr.Size), clusterTS, 0); err != nil {
				return err
			}
		case idBlockGroup:
			if err := r.readBlockGroup(clr, int64(ehdr.Size), clusterTS); err != nil {
				return err
			}
		default:
			if err := skip(clr, int64(ehdr.Size)); err != nil {
				return core.NewIOError(err)
			}
		}
	}
	return nil
}

func (r *Reader) readBlockGroup(parent io.Reader, size int64, clusterTS uint64) error {
	blr := io.LimitReader(parent, size)
	var dur uint64
	var blockSize int64 = -1
	var blockBuf []byte
	for {
		hdr, err := readElemHeader(blr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.NewIOError(err)
		}
		switch hdr.ID {
		case idBlockDuration:
			dur, err = readUint(blr, int64(hdr.Size))
		case idBlock:
			blockSize = int64(hdr.Size)
			blockBuf, err = readBytes(blr, blockSize)
		default:
			err = skip(blr, int64(hdr.Size))
		}
		if err != nil {
			return core.NewIOError(err)
		}
	}
	if blockSize < 0 {
		return nil
	}
	return r.parseBlockBytes(blockBuf, clusterTS, dur)
}

func (r *Reader) readBlock(parent io.Reader, size int64, clusterTS uint64, dur uint64) error {
	buf, err := readBytes(parent, size)
	if err != nil {
		return core.NewIOError(err)
	}
	return r.parseBlockBytes(buf, clusterTS, dur)
}

// parseBlockBytes decodes one SimpleBlock/Block payload: a vint track
// number, a signed 16-bit relative timestamp, a flags byte, and one or
// more laced frames, per spec §4.3.4.
func (r *Reader) parseBlockBytes(buf []byte, clusterTS, dur uint64) error {
	br := newByteCursor(buf)
	trackNum, err := br.vint()
	if err != nil {
		return core.NewDecodeError("mkv: malformed block track number")
	}
	rel, err := br.int16()
	if err != nil {
		return core.NewDecodeError("mkv: truncated block timestamp")
	}
	flags, err := br.byte()
	if err != nil {
		return core.NewDecodeError("mkv: truncated block flags")
	}

	id, ok := r.byNumber[trackNum]
	if !ok {
		return nil // frame for a non-audio (or unknown) track; drop it
	}

	lacing := (flags >> 1) & 0x3
	var frames [][]byte
	switch lacing {
	case 0:
		frames = [][]byte{br.rest()}
	case 1:
		frames, err = br.xiphLaced()
	case 3:
		frames, err = br.fixedLaced()
	case 2:
		frames, err = br.ebmlLaced()
	}
	if err != nil {
		return core.NewDecodeError("mkv: malformed lacing: " + err.Error())
	}

	ts := clusterTS + uint64(int64(rel))
	for _, f := range frames {
		r.queue = append(r.queue, &core.Packet{
			TrackID: id,
			TS:      ts,
			Dur:     dur,
			Data:    f,
		})
	}
	return nil
}

// Seek uses Cues when present (binary search, then byte-seek to the
// indicated Cluster and linear scan forward within it), otherwise scans
// forward from the first Cluster, per spec §4.3.4.
func (r *Reader) Seek(mode core.SeekMode, targetTS uint64, trackID uint32) (core.SeekedTo, error) {
	found := false
	for _, t := range r.tracks {
		if t.ID == trackID {
			found = true
			break
		}
	}
	if trackID != 0 && !found {
		return core.SeekedTo{}, core.NewSeekError(core.SeekInvalidTrack, "mkv: unknown track id")
	}

	startOff := r.firstClusterOff
	if idx, ok := r.idx[trackID]; ok && idx.Len() > 0 {
		res := idx.Search(targetTS)
		switch res.Kind {
		case core.SearchRange:
			startOff = r.segmentDataStart + int64(res.Lo.ByteOffset)
		case core.SearchLower:
			startOff = r.segmentDataStart + int64(res.Point.ByteOffset)
		case core.SearchUpper:
			startOff = r.firstClusterOff
		}
	}

	r.pos = startOff
	r.queue = nil
	r.eof = false

	for {
		pkt, err := r.NextPacket()
		if err != nil {
			return core.SeekedTo{}, err
		}
		if trackID != 0 && pkt.TrackID != trackID {
			continue
		}
		if pkt.TS >= targetTS {
			return core.SeekedTo{RequiredTS: targetTS, ActualTS: pkt.TS, TrackID: pkt.TrackID}, nil
		}
	}
}

// byteCursor is a tiny forward-only cursor over an in-memory Block payload,
// used to decode the vint track number, relative timestamp, flags, and
// lacing header without pulling in a full bit reader for what is always a
// small (already fully buffered) byte slice.
type byteCursor struct {
	b   []byte
	pos int
}

func newByteCursor(b []byte) *byteCursor { return &byteCursor{b: b} }

func (c *byteCursor) byte() (byte, error) {
	if c.pos >= len(c.b) {
		return 0, io.ErrUnexpectedEOF
	}
	v := c.b[c.pos]
	c.pos++
	return v, nil
}

func (c *byteCursor) int16() (int16, error) {
	if c.pos+2 > len(c.b) {
		return 0, io.ErrUnexpectedEOF
	}
	v := int16(uint16(c.b[c.pos])<<8 | uint16(c.b[c.pos+1]))
	c.pos += 2
	return v, nil
}

func (c *byteCursor) vint() (uint64, error) {
	if c.pos >= len(c.b) {
		return 0, io.ErrUnexpectedEOF
	}
	first := c.b[c.pos]
	if first == 0 {
		return 0, errors.New("invalid vint")
	}
	width := 1
	mask := byte(0x80)
	for mask != 0 && first&mask == 0 {
		mask >>= 1
		width++
	}
	if c.pos+width > len(c.b) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint64(first &^ mask)
	for i := 1; i < width; i++ {
		v = v<<8 | uint64(c.b[c.pos+i])
	}
	c.pos += width
	return v, nil
}

func (c *byteCursor) rest() []byte {
	b := c.b[c.pos:]
	c.pos = len(c.b)
	return b
}

// xiphLaced reads a Xiph-laced frame set: a frame count byte (minus one),
// then that many frame sizes each encoded as a run of 255-valued bytes
// terminated by a byte < 255, then the frames themselves with the final
// frame's size implied by what remains.
func (c *byteCursor) xiphLaced() ([][]byte, error) {
	n, err := c.byte()
	if err != nil {
		return nil, err
	}
	count := int(n) + 1
	sizes := make([]int, count-1)
	for i := range sizes {
		size := 0
		for {
			b, err := c.byte()
			if err != nil {
				return nil, err
			}
			size += int(b)
			if b != 255 {
				break
			}
		}
		sizes[i] = size
	}
	return c.sliceBySizes(sizes, count)
}

// fixedLaced reads a fixed-size-laced frame set: a frame count byte (minus
// one); every frame shares the same size, derived from the bytes
// remaining.
func (c *byteCursor) fixedLaced() ([][]byte, error) {
	n, err := c.byte()
	if err != nil {
		return nil, err
	}
	count := int(n) + 1
	remaining := len(c.b) - c.pos
	if count == 0 || remaining%count != 0 {
		return nil, errors.New("fixed lacing: frame count does not evenly divide remaining bytes")
	}
	size := remaining / count
	frames := make([][]byte, count)
	for i := 0; i < count; i++ {
		frames[i] = c.b[c.pos : c.pos+size]
		c.pos += size
	}
	return frames, nil
}

// ebmlLaced reads an EBML-laced frame set: a frame count byte (minus one),
// the first frame's size as a plain vint, then each subsequent size as a
// signed delta vint from the previous, the final frame's size implied.
func (c *byteCursor) ebmlLaced() ([][]byte, error) {
	n, err := c.byte()
	if err != nil {
		return nil, err
	}
	count := int(n) + 1
	sizes := make([]int, count-1)
	if count > 1 {
		first, err := c.vint()
		if err != nil {
			return nil, err
		}
		sizes[0] = int(first)
		for i := 1; i < count-1; i++ {
			raw, width, err := c.signedVint()
			if err != nil {
				return nil, err
			}
			_ = width
			sizes[i] = sizes[i-1] + raw
		}
	}
	return c.sliceBySizes(sizes, count)
}

// signedVint reads an EBML-laced size delta: a vint whose value is biased
// by 2^(7*width-1) - 1 to represent a signed quantity, per the Matroska
// EBML-lacing specification.
func (c *byteCursor) signedVint() (int, int, error) {
	if c.pos >= len(c.b) {
		return 0, 0, io.ErrUnexpectedEOF
	}
	first := c.b[c.pos]
	if first == 0 {
		return 0, 0, errors.New("invalid vint")
	}
	width := 1
	mask := byte(0x80)
	for mask != 0 && first&mask == 0 {
		mask >>= 1
		width++
	}
	if c.pos+width > len(c.b) {
		return 0, 0, io.ErrUnexpectedEOF
	}
	v := uint64(first &^ mask)
	for i := 1; i < width; i++ {
		v = v<<8 | uint64(c.b[c.pos+i])
	}
	c.pos += width
	bias := int64(1)<<(7*uint(width)-1) - 1
	return int(int64(v) - bias), width, nil
}

func (c *byteCursor) sliceBySizes(sizes []int, count int) ([][]byte, error) {
	frames := make([][]byte, count)
	for i, sz := range sizes {
		if c.pos+sz > len(c.b) {
			return nil, errors.New("lacing: frame size overruns block")
		}
		frames[i] = c.b[c.pos : c.pos+sz]
		c.pos += sz
	}
	frames[count-1] = c.b[c.pos:]
	return frames, nil
}
