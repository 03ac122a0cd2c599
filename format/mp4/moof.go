package mp4

import "io"

// tfhd flag bits, ISO/IEC 14496-12 §8.8.7.
const (
	tfhdBaseDataOffsetPresent    = 0x000001
	tfhdSampleDescIndexPresent   = 0x000002
	tfhdDefaultDurationPresent   = 0x000008
	tfhdDefaultSizePresent       = 0x000010
	tfhdDefaultFlagsPresent      = 0x000020
)

// trun flag bits, ISO/IEC 14496-12 §8.8.8.
const (
	trunDataOffsetPresent        = 0x000001
	trunFirstSampleFlagsPresent  = 0x000004
	trunSampleDurationPresent    = 0x000100
	trunSampleSizePresent        = 0x000200
	trunSampleFlagsPresent       = 0x000400
	trunSampleCompositionPresent = 0x000800
)

// parseMoof parses one `moof` box's `traf` children into fragSamples, per
// spec §4.3.5: each `trun`'s samples are anchored against a base data
// offset resolved from `tfhd` (explicit field, else the enclosing moof's
// first byte) and chained from the previous run's end when a later `trun`
// in the same `traf` omits its own data offset.
func parseMoof(r io.Reader, size, moofStart int64, extends map[uint32]trackExtends, trackTS map[uint32]uint64) ([]fragSample, error) {
	lr := io.LimitReader(r, size)
	var out []fragSample
	for {
		hdr, err := readBoxHeader(lr)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		body := io.LimitReader(lr, hdr.BodySize)
		if hdr.TypeString() != "traf" {
			if err := skipBox(body, hdr.BodySize); err != nil {
				return nil, err
			}
			continue
		}
		fs, err := parseTraf(body, moofStart, extends, trackTS)
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
}

func parseTraf(r io.Reader, moofStart int64, extends map[uint32]trackExtends, trackTS map[uint32]uint64) ([]fragSample, error) {
	var trackID uint32
	var baseOffset int64
	var baseSet bool
	var defaultDuration, defaultSize uint32
	var sawTfhd bool
	var out []fragSample
	var runningOffset int64
	var haveRunningOffset bool

	for {
		hdr, err := readBoxHeader(r)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		body := io.LimitReader(r, hdr.BodySize)
		switch hdr.TypeString() {
		case "tfhd":
			_, flags, err := readFullBoxVersion(body)
			if err != nil {
				return nil, err
			}
			trackID, err = readU32(body)
			if err != nil {
				return nil, err
			}
			if flags&tfhdBaseDataOffsetPresent != 0 {
				v, err := readU64(body)
				if err != nil {
					return nil, err
				}
				baseOffset = int64(v)
				baseSet = true
			}
			if flags&tfhdSampleDescIndexPresent != 0 {
				if _, err := readU32(body); err != nil {
					return nil, err
				}
			}
			if flags&tfhdDefaultDurationPresent != 0 {
				defaultDuration, err = readU32(body)
				if err != nil {
					return nil, err
				}
			}
			if flags&tfhdDefaultSizePresent != 0 {
				defaultSize, err = readU32(body)
				if err != nil {
					return nil, err
				}
			}
			// default-sample-flags, if present, carries no information
			// this demuxer needs (keyframe/sync semantics beyond audio).
			sawTfhd = true
			if ex, ok := extends[trackID]; ok {
				if defaultDuration == 0 {
					defaultDuration = ex.DefaultSampleDuration
				}
				if defaultSize == 0 {
					defaultSize = ex.DefaultSampleSize
				}
			}
			if !baseSet {
				baseOffset = moofStart
				baseSet = true
			}
		case "tfdt":
			version, _, err := readFullBoxVersion(body)
			if err != nil {
				return nil, err
			}
			var t uint64
			if version == 1 {
				t, err = readU64(body)
			} else {
				var v uint32
				v, err = readU32(body)
				t = uint64(v)
			}
			if err != nil {
				return nil, err
			}
			trackTS[trackID] = t
		case "trun":
			if !sawTfhd {
				if err := skipBox(body, hdr.BodySize); err != nil {
					return nil, err
				}
				continue
			}
			fs, newOffset, err := parseTrun(body, trackID, baseOffset, runningOffset, haveRunningOffset, defaultDuration, defaultSize, trackTS)
			if err != nil {
				return nil, err
			}
			out = append(out, fs...)
			runningOffset = newOffset
			haveRunningOffset = true
		default:
			if err := skipBox(body, hdr.BodySize); err != nil {
				return nil, err
			}
		}
	}
}

func parseTrun(r io.Reader, trackID uint32, baseOffset, runningOffset int64, haveRunningOffset bool, defaultDuration, defaultSize uint32, trackTS map[uint32]uint64) ([]fragSample, int64, error) {
	_, flags, err := readFullBoxVersion(r)
	if err != nil {
		return nil, 0, err
	}
	count, err := readU32(r)
	if err != nil {
		return nil, 0, err
	}

	offset := baseOffset
	if flags&trunDataOffsetPresent != 0 {
		v, err := readU32(r)
		if err != nil {
			return nil, 0, err
		}
		offset = baseOffset + int64(int32(v))
	} else if haveRunningOffset {
		offset = runningOffset
	}

	if flags&trunFirstSampleFlagsPresent != 0 {
		if _, err := readU32(r); err != nil {
			return nil, 0, err
		}
	}

	ts := trackTS[trackID]
	out := make([]fragSample, 0, count)
	for i := uint32(0); i < count; i++ {
		dur := defaultDuration
		if flags&trunSampleDurationPresent != 0 {
			dur, err = readU32(r)
			if err != nil {
				return nil, 0, err
			}
		}
		size := defaultSize
		if flags&trunSampleSizePresent != 0 {
			size, err = readU32(r)
			if err != nil {
				return nil, 0, err
			}
		}
		if flags&trunSampleFlagsPresent != 0 {
			if _, err := readU32(r); err != nil {
				return nil, 0, err
			}
		}
		if flags&trunSampleCompositionPresent != 0 {
			if _, err := readU32(r); err != nil {
				return nil, 0, err
			}
		}
		out = append(out, fragSample{trackID: trackID, sample: sample{
			Offset: offset,
			Size:   size,
			TS:     ts,
			Dur:    uint64(dur),
		}})
		offset += int64(size)
		ts += uint64(dur)
	}
	trackTS[trackID] = ts
	return out, offset, nil
}
