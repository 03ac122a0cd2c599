package mp4

import (
	"io"

	"github.com/mewkiz/audiocore/core"
)

// sttsRun is one (sample_count, sample_delta) run of the `stts`
// (decoding-time-to-sample) box.
type sttsRun struct {
	count, delta uint32
}

// stscRun is one (first_chunk, samples_per_chunk, sample_description_index)
// run of the `stsc` (sample-to-chunk) box, per spec §4.3.5: stored as runs
// keyed by first chunk so per-sample chunk lookup is a binary search.
type stscRun struct {
	firstChunk, samplesPerChunk uint32
}

// sample is one flattened entry of a track's derived sample table:
// absolute byte offset, size, and decoding timestamp/duration. Spec
// §4.3.5 describes computing this information algorithmically (O(log N)
// against stsc, O(1) against stco/co64, linear against stts); this reader
// performs exactly that computation once per track at parse time and
// materializes the result, since a track's sample count is already known
// and bounded at that point.
type sample struct {
	Offset int64
	Size   uint32
	TS     uint64
	Dur    uint64
}

// trakInfo is everything moov.go gathers from one `trak` box.
type trakInfo struct {
	id        uint32
	timescale uint32
	entry     sampleEntryInfo
	samples   []sample
	isAudio   bool
	language  string
}

// parseMoov walks a `moov` box's children, returning one trakInfo per
// audio `trak` plus, if an `mvex` box is present, the per-track fragment
// defaults needed to interpret later `moof` boxes.
func parseMoov(r io.Reader, size int64) ([]trakInfo, map[uint32]trackExtends, error) {
	lr := io.LimitReader(r, size)
	var traks []trakInfo
	extends := make(map[uint32]trackExtends)
	for {
		hdr, err := readBoxHeader(lr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		body := io.LimitReader(lr, hdr.BodySize)
		switch hdr.TypeString() {
		case "trak":
			ti, err := parseTrak(body)
			if err != nil {
				return nil, nil, err
			}
			if ti.isAudio {
				traks = append(traks, ti)
			}
		case "mvex":
			if err := parseMvex(body, extends); err != nil {
				return nil, nil, err
			}
		default:
			if err := skipBox(body, hdr.BodySize); err != nil {
				return nil, nil, err
			}
		}
	}
	return traks, extends, nil
}

func parseMvex(r io.Reader, extends map[uint32]trackExtends) error {
	for {
		hdr, err := readBoxHeader(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		body := io.LimitReader(r, hdr.BodySize)
		if hdr.TypeString() != "trex" {
			if err := skipBox(body, hdr.BodySize); err != nil {
				return err
			}
			continue
		}
		if _, _, err := readFullBoxVersion(body); err != nil {
			return err
		}
		trackID, err := readU32(body)
		if err != nil {
			return err
		}
		descIdx, err := readU32(body)
		if err != nil {
			return err
		}
		dur, err := readU32(body)
		if err != nil {
			return err
		}
		sz, err := readU32(body)
		if err != nil {
			return err
		}
		flags, err := readU32(body)
		if err != nil {
			return err
		}
		_ = descIdx
		extends[trackID] = trackExtends{
			DefaultSampleDuration: dur,
			DefaultSampleSize:     sz,
			DefaultSampleFlags:    flags,
		}
	}
}

// trackExtends carries `mvex/trex` per-track defaults that a `moof`'s
// `tfhd` may omit and inherit, per spec §4.3.5.
type trackExtends struct {
	DefaultSampleDuration uint32
	DefaultSampleSize     uint32
	DefaultSampleFlags    uint32
}

func parseTrak(r io.Reader) (trakInfo, error) {
	var ti trakInfo
	var stts []sttsRun
	var stsc []stscRun
	var stszDefault uint32
	var stsz []uint32
	var chunkOffsets []int64

	for {
		hdr, err := readBoxHeader(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return trakInfo{}, err
		}
		body := io.LimitReader(r, hdr.BodySize)
		switch hdr.TypeString() {
		case "tkhd":
			if _, _, err := readFullBoxVersion(body); err != nil {
				return trakInfo{}, err
			}
			// version==0 is assumed (creation/mod times 32-bit); tracks
			// using version 1 (64-bit times) are rare for audio and this
			// reader only needs the track ID, read at a fixed offset for
			// version 0.
			if _, err := io.CopyN(io.Discard, body, 8); err != nil {
				return trakInfo{}, err
			}
			id, err := readU32(body)
			if err != nil {
				return trakInfo{}, err
			}
			ti.id = id
			if err := skipBox(body, hdr.BodySize-16); err != nil && err != io.EOF {
				return trakInfo{}, err
			}
		case "mdia":
			if err := parseMdia(body, &ti, &stts, &stsc, &stszDefault, &stsz, &chunkOffsets); err != nil {
				return trakInfo{}, err
			}
		default:
			if err := skipBox(body, hdr.BodySize); err != nil {
				return trakInfo{}, err
			}
		}
	}

	if !ti.isAudio {
		return ti, nil
	}
	ti.samples = buildSampleTable(stts, stsc, stszDefault, stsz, chunkOffsets)
	return ti, nil
}

func parseMdia(r io.Reader, ti *trakInfo, stts *[]sttsRun, stsc *[]stscRun, stszDefault *uint32, stsz *[]uint32, chunkOffsets *[]int64) error {
	for {
		hdr, err := readBoxHeader(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		body := io.LimitReader(r, hdr.BodySize)
		switch hdr.TypeString() {
		case "mdhd":
			if _, _, err := readFullBoxVersion(body); err != nil {
				return err
			}
			if _, err := io.CopyN(io.Discard, body, 8); err != nil {
				return err
			}
			ts, err := readU32(body)
			if err != nil {
				return err
			}
			ti.timescale = ts
			if err := skipBox(body, hdr.BodySize-16); err != nil && err != io.EOF {
				return err
			}
		case "hdlr":
			if _, _, err := readFullBoxVersion(body); err != nil {
				return err
			}
			if _, err := io.CopyN(io.Discard, body, 4); err != nil {
				return err
			}
			var handlerType [4]byte
			if _, err := io.ReadFull(body, handlerType[:]); err != nil {
				return err
			}
			ti.isAudio = string(handlerType[:]) == "soun"
			if err := skipBox(body, hdr.BodySize-12); err != nil && err != io.EOF {
				return err
			}
		case "minf":
			if err := parseMinf(body, ti, stts, stsc, stszDefault, stsz, chunkOffsets); err != nil {
				return err
			}
		default:
			if err := skipBox(body, hdr.BodySize); err != nil {
				return err
			}
		}
	}
}

func parseMinf(r io.Reader, ti *trakInfo, stts *[]sttsRun, stsc *[]stscRun, stszDefault *uint32, stsz *[]uint32, chunkOffsets *[]int64) error {
	for {
		hdr, err := readBoxHeader(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		body := io.LimitReader(r, hdr.BodySize)
		if hdr.TypeString() != "stbl" {
			if err := skipBox(body, hdr.BodySize); err != nil {
				return err
			}
			continue
		}
		if err := parseStbl(body, ti, stts, stsc, stszDefault, stsz, chunkOffsets); err != nil {
			return err
		}
	}
}

func parseStbl(r io.Reader, ti *trakInfo, stts *[]sttsRun, stsc *[]stscRun, stszDefault *uint32, stsz *[]uint32, chunkOffsets *[]int64) error {
	for {
		hdr, err := readBoxHeader(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		body := io.LimitReader(r, hdr.BodySize)
		switch hdr.TypeString() {
		case "stsd":
			entry, err := readStsd(body)
			if err != nil {
				return err
			}
			ti.entry = entry
		case "stts":
			runs, err := readStts(body)
			if err != nil {
				return err
			}
			*stts = runs
		case "stsc":
			runs, err := readStsc(body)
			if err != nil {
				return err
			}
			*stsc = runs
		case "stsz":
			def, sizes, err := readStsz(body)
			if err != nil {
				return err
			}
			*stszDefault = def
			*stsz = sizes
		case "stco":
			offs, err := readStco(body, false)
			if err != nil {
				return err
			}
			*chunkOffsets = offs
		case "co64":
			offs, err := readStco(body, true)
			if err != nil {
				return err
			}
			*chunkOffsets = offs
		default:
			if err := skipBox(body, hdr.BodySize); err != nil {
				return err
			}
		}
	}
}

func readStts(r io.Reader) ([]sttsRun, error) {
	if _, _, err := readFullBoxVersion(r); err != nil {
		return nil, err
	}
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	runs := make([]sttsRun, n)
	for i := range runs {
		c, err := readU32(r)
		if err != nil {
			return nil, err
		}
		d, err := readU32(r)
		if err != nil {
			return nil, err
		}
		runs[i] = sttsRun{count: c, delta: d}
	}
	return runs, nil
}

func readStsc(r io.Reader) ([]stscRun, error) {
	if _, _, err := readFullBoxVersion(r); err != nil {
		return nil, err
	}
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	runs := make([]stscRun, n)
	for i := range runs {
		first, err := readU32(r)
		if err != nil {
			return nil, err
		}
		perChunk, err := readU32(r)
		if err != nil {
			return nil, err
		}
		if _, err := readU32(r); err != nil { // sample_description_index, unused (single entry assumed)
			return nil, err
		}
		runs[i] = stscRun{firstChunk: first, samplesPerChunk: perChunk}
	}
	return runs, nil
}

func readStsz(r io.Reader) (uint32, []uint32, error) {
	if _, _, err := readFullBoxVersion(r); err != nil {
		return 0, nil, err
	}
	def, err := readU32(r)
	if err != nil {
		return 0, nil, err
	}
	n, err := readU32(r)
	if err != nil {
		return 0, nil, err
	}
	if def != 0 {
		return def, nil, nil
	}
	sizes := make([]uint32, n)
	for i := range sizes {
		sizes[i], err = readU32(r)
		if err != nil {
			return 0, nil, err
		}
	}
	return 0, sizes, nil
}

func readStco(r io.Reader, wide bool) ([]int64, error) {
	if _, _, err := readFullBoxVersion(r); err != nil {
		return nil, err
	}
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	offs := make([]int64, n)
	for i := range offs {
		if wide {
			v, err := readU64(r)
			if err != nil {
				return nil, err
			}
			offs[i] = int64(v)
		} else {
			v, err := readU32(r)
			if err != nil {
				return nil, err
			}
			offs[i] = int64(v)
		}
	}
	return offs, nil
}

// buildSampleTable derives the flat per-sample (offset, size, ts, dur)
// table from stts/stsc/stsz/stco, per spec §4.3.5: stsc runs give the
// chunk->samples-per-chunk mapping, stco/co64 give each chunk's base byte
// offset, and cumulative per-chunk sample sizes give each sample's offset
// within its chunk.
func buildSampleTable(stts []sttsRun, stsc []stscRun, stszDefault uint32, stsz []uint32, chunkOffsets []int64) []sample {
	total := 0
	if stszDefault == 0 {
		total = len(stsz)
	} else {
		for _, r := range stts {
			total += int(r.count)
		}
	}
	samples := make([]sample, 0, total)

	sizeAt := func(i int) uint32 {
		if stszDefault != 0 {
			return stszDefault
		}
		if i < len(stsz) {
			return stsz[i]
		}
		return 0
	}

	sampleIdx := 0
	var ts uint64
	sttsRunIdx, sttsLeft := 0, 0
	if len(stts) > 0 {
		sttsLeft = int(stts[0].count)
	}
	nextDelta := func() uint64 {
		for sttsRunIdx < len(stts) && sttsLeft == 0 {
			sttsRunIdx++
			if sttsRunIdx < len(stts) {
				sttsLeft = int(stts[sttsRunIdx].count)
			}
		}
		if sttsRunIdx >= len(stts) {
			return 0
		}
		sttsLeft--
		return uint64(stts[sttsRunIdx].delta)
	}

	for chunkIdx := 0; chunkIdx < len(chunkOffsets); chunkIdx++ {
		chunkNum := uint32(chunkIdx + 1)
		perChunk := samplesPerChunkFor(stsc, chunkNum)
		offset := chunkOffsets[chunkIdx]
		for i := uint32(0); i < perChunk; i++ {
			if sampleIdx >= total && total > 0 {
				break
			}
			sz := sizeAt(sampleIdx)
			dur := nextDelta()
			samples = append(samples, sample{Offset: offset, Size: sz, TS: ts, Dur: dur})
			offset += int64(sz)
			ts += dur
			sampleIdx++
		}
	}
	return samples
}

// samplesPerChunkFor resolves the samples-per-chunk count for chunkNum
// (1-based) by binary-searching stsc's runs, keyed by first_chunk, per
// spec §4.3.5's O(log N) requirement.
func samplesPerChunkFor(stsc []stscRun, chunkNum uint32) uint32 {
	if len(stsc) == 0 {
		return 0
	}
	lo, hi := 0, len(stsc)-1
	best := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if stsc[mid].firstChunk <= chunkNum {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return stsc[best].samplesPerChunk
}

// trackCodecParams builds a core.Track from a trakInfo.
func trackCodecParams(ti trakInfo) core.Track {
	var numFrames uint64
	for _, s := range ti.samples {
		numFrames += s.Dur
	}
	return core.Track{
		ID:       ti.id,
		Language: ti.language,
		Params: core.CodecParams{
			Codec:         ti.entry.Codec,
			SampleRate:    ti.entry.SampleRate,
			Channels:      ti.entry.Channels,
			BitsPerSample: ti.entry.BitsPerSample,
			NumFrames:     numFrames,
			TimeBase:      core.TimeBase{Num: 1, Den: ti.timescale},
			ExtraData:     ti.entry.ExtraData,
		},
	}
}
