package vorbis

import "testing"

func TestIMDCTOutputLength(t *testing.T) {
	coeffs := make([]float32, 8)
	out := imdct(coeffs)
	if len(out) != 16 {
		t.Fatalf("imdct output length = %d, want 16", len(out))
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("imdct of all-zero input should be all-zero, out[%d] = %v", i, v)
		}
	}
}

func TestVorbisWindowEndpoints(t *testing.T) {
	w := vorbisWindow(16)
	if len(w) != 16 {
		t.Fatalf("window length = %d, want 16", len(w))
	}
	if w[0] <= 0 || w[0] >= 1 {
		t.Fatalf("window[0] = %v, want in (0,1)", w[0])
	}
}

func TestOverlapperFirstBlockNoTail(t *testing.T) {
	o := NewOverlapper()
	win := vorbisWindow(8)
	block := make([]float32, 8)
	for i := range block {
		block[i] = 1
	}
	out := o.Process(block, win)
	if len(out) != 4 {
		t.Fatalf("output length = %d, want 4", len(out))
	}
	if o.prevTail == nil || len(o.prevTail) != 4 {
		t.Fatalf("prevTail not set correctly after first block")
	}
}
