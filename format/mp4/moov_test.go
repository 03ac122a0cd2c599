package mp4

import "testing"

func TestSamplesPerChunkFor(t *testing.T) {
	runs := []stscRun{
		{firstChunk: 1, samplesPerChunk: 5},
		{firstChunk: 3, samplesPerChunk: 10},
		{firstChunk: 8, samplesPerChunk: 2},
	}
	tests := []struct {
		chunk uint32
		want  uint32
	}{
		{1, 5},
		{2, 5},
		{3, 10},
		{7, 10},
		{8, 2},
		{100, 2},
	}
	for _, tc := range tests {
		got := samplesPerChunkFor(runs, tc.chunk)
		if got != tc.want {
			t.Errorf("samplesPerChunkFor(%d) = %d, want %d", tc.chunk, got, tc.want)
		}
	}
}

func TestBuildSampleTable(t *testing.T) {
	// Two chunks of 2 samples each, constant sample size 4, constant
	// duration 1024.
	stts := []sttsRun{{count: 4, delta: 1024}}
	stsc := []stscRun{{firstChunk: 1, samplesPerChunk: 2}}
	chunkOffsets := []int64{100, 200}

	samples := buildSampleTable(stts, stsc, 4, nil, chunkOffsets)
	if len(samples) != 4 {
		t.Fatalf("got %d samples, want 4", len(samples))
	}

	want := []sample{
		{Offset: 100, Size: 4, TS: 0, Dur: 1024},
		{Offset: 104, Size: 4, TS: 1024, Dur: 1024},
		{Offset: 200, Size: 4, TS: 2048, Dur: 1024},
		{Offset: 204, Size: 4, TS: 3072, Dur: 1024},
	}
	for i, w := range want {
		if samples[i] != w {
			t.Errorf("sample[%d] = %+v, want %+v", i, samples[i], w)
		}
	}
}

func TestBuildSampleTableVariableSizes(t *testing.T) {
	stts := []sttsRun{{count: 3, delta: 512}}
	stsc := []stscRun{{firstChunk: 1, samplesPerChunk: 3}}
	chunkOffsets := []int64{1000}
	sizes := []uint32{10, 20, 30}

	samples := buildSampleTable(stts, stsc, 0, sizes, chunkOffsets)
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	if samples[0].Offset != 1000 || samples[1].Offset != 1010 || samples[2].Offset != 1030 {
		t.Errorf("unexpected offsets: %+v", samples)
	}
}
