package mp4

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildTrun assembles a minimal version-0 trun box body (post FullBox
// version/flags handled by caller via flags argument) with the given
// per-sample durations and sizes, and an optional data offset.
func buildTrun(flags uint32, dataOffset int32, durs, sizes []uint32) []byte {
	var buf bytes.Buffer
	var hdr [4]byte
	hdr[0] = 0
	hdr[1] = byte(flags >> 16)
	hdr[2] = byte(flags >> 8)
	hdr[3] = byte(flags)
	buf.Write(hdr[:])
	binary.Write(&buf, binary.BigEndian, uint32(len(durs)))
	if flags&trunDataOffsetPresent != 0 {
		binary.Write(&buf, binary.BigEndian, uint32(dataOffset))
	}
	for i := range durs {
		if flags&trunSampleDurationPresent != 0 {
			binary.Write(&buf, binary.BigEndian, durs[i])
		}
		if flags&trunSampleSizePresent != 0 {
			binary.Write(&buf, binary.BigEndian, sizes[i])
		}
	}
	return buf.Bytes()
}

func TestParseTrunWithDataOffset(t *testing.T) {
	flags := uint32(trunDataOffsetPresent | trunSampleDurationPresent | trunSampleSizePresent)
	body := buildTrun(flags, 200, []uint32{1024, 1024}, []uint32{10, 20})
	trackTS := map[uint32]uint64{1: 500}

	fs, nextOffset, err := parseTrun(bytes.NewReader(body), 1, 1000, 0, false, 0, 0, trackTS)
	if err != nil {
		t.Fatalf("parseTrun: %v", err)
	}
	if len(fs) != 2 {
		t.Fatalf("got %d samples, want 2", len(fs))
	}
	if fs[0].sample.Offset != 1200 {
		t.Errorf("sample[0].Offset = %d, want 1200", fs[0].sample.Offset)
	}
	if fs[1].sample.Offset != 1210 {
		t.Errorf("sample[1].Offset = %d, want 1210", fs[1].sample.Offset)
	}
	if fs[0].sample.TS != 500 || fs[1].sample.TS != 1524 {
		t.Errorf("unexpected timestamps: %+v, %+v", fs[0].sample, fs[1].sample)
	}
	if nextOffset != 1230 {
		t.Errorf("nextOffset = %d, want 1230", nextOffset)
	}
	if trackTS[1] != 2548 {
		t.Errorf("trackTS[1] = %d, want 2548", trackTS[1])
	}
}

func TestParseTrunChainsFromPreviousRun(t *testing.T) {
	// No data-offset flag: the run's samples continue from the byte
	// offset the previous trun in the same traf left off at.
	flags := uint32(trunSampleDurationPresent | trunSampleSizePresent)
	body := buildTrun(flags, 0, []uint32{1024}, []uint32{5})
	trackTS := map[uint32]uint64{2: 0}

	fs, _, err := parseTrun(bytes.NewReader(body), 2, 1000, 9000, true, 0, 0, trackTS)
	if err != nil {
		t.Fatalf("parseTrun: %v", err)
	}
	if fs[0].sample.Offset != 9000 {
		t.Errorf("Offset = %d, want 9000 (chained from running offset)", fs[0].sample.Offset)
	}
}

func TestParseTrunUsesDefaults(t *testing.T) {
	// Neither per-sample duration nor size present: both samples fall
	// back to the tfhd/trex-derived defaults passed in.
	flags := uint32(0)
	body := buildTrun(flags, 0, []uint32{0, 0}, []uint32{0, 0})
	trackTS := map[uint32]uint64{3: 0}

	fs, _, err := parseTrun(bytes.NewReader(body), 3, 0, 0, false, 2048, 7, trackTS)
	if err != nil {
		t.Fatalf("parseTrun: %v", err)
	}
	if fs[0].sample.Dur != 2048 || fs[0].sample.Size != 7 {
		t.Errorf("sample[0] = %+v, want Dur=2048 Size=7", fs[0].sample)
	}
	if fs[1].sample.Offset != 7 {
		t.Errorf("sample[1].Offset = %d, want 7", fs[1].sample.Offset)
	}
}
