package mpatables

import "testing"

func TestBitrateV1Layer3(t *testing.T) {
	if got := Bitrate(Version1, Layer3, 9); got != 128 {
		t.Fatalf("Bitrate(V1, L3, 9) = %d, want 128", got)
	}
	if got := Bitrate(Version1, Layer3, 15); got != -1 {
		t.Fatalf("Bitrate(V1, L3, 15) = %d, want -1 (reserved)", got)
	}
}

func TestSampleRate(t *testing.T) {
	if got := SampleRate(Version1, 0); got != 44100 {
		t.Fatalf("SampleRate(V1, 0) = %d, want 44100", got)
	}
	if got := SampleRate(Version2_5, 0); got != 11025 {
		t.Fatalf("SampleRate(V2.5, 0) = %d, want 11025", got)
	}
}

func TestPow43Basics(t *testing.T) {
	if Pow43[0] != 0 {
		t.Fatalf("Pow43[0] = %v, want 0", Pow43[0])
	}
	if Pow43[1] != 1 {
		t.Fatalf("Pow43[1] = %v, want 1", Pow43[1])
	}
	// 8^(4/3) = 16
	if got := Pow43[8]; got < 15.999 || got > 16.001 {
		t.Fatalf("Pow43[8] = %v, want ~16", got)
	}
}

func TestScaleFactorBandsLongLength(t *testing.T) {
	for rate, bands := range ScaleFactorBandsLong {
		if len(bands) != 23 {
			t.Fatalf("rate %d: len(bands) = %d, want 23", rate, len(bands))
		}
		if bands[len(bands)-1] != 576 {
			t.Fatalf("rate %d: last boundary = %d, want 576", rate, bands[len(bands)-1])
		}
	}
}
