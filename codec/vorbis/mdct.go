package vorbis

import "math"

// imdct computes the inverse modified discrete cosine transform of coeffs
// (length n/2) into a length-n time-domain vector, per Vorbis I §9.2's
// definition:
//
//	x[i] = sum_k coeffs[k] * cos( (pi/(2n)) * (2i+1+n/2) * (2k+1) )
//
// This is the direct O(n^2) evaluation rather than the N/4-point
// FFT-based factorization libvorbis uses (internal/fft.Plan is not used:
// Vorbis's variable per-frame blocksize makes plan reuse far less
// valuable); correctness over the
// direct formula matters more than constant-factor speed for this
// package's scope.
func imdct(coeffs []float32) []float32 {
	n := len(coeffs) * 2
	out := make([]float32, n)
	scale := math.Pi / float64(2*n)
	for i := 0; i < n; i++ {
		var sum float64
		a := float64(2*i + 1 + n/2)
		for k, c := range coeffs {
			if c == 0 {
				continue
			}
			sum += float64(c) * math.Cos(scale*a*float64(2*k+1))
		}
		out[i] = float32(sum)
	}
	return out
}

// vorbisWindow returns the length-n Vorbis analysis/synthesis window, per
// Vorbis I §9.2.1: a raised-sine-squared shape symmetric about its
// midpoint.
func vorbisWindow(n int) []float32 {
	w := make([]float32, n)
	for i := range w {
		s := math.Sin((math.Pi / float64(n)) * (float64(i) + 0.5))
		w[i] = float32(math.Sin(math.Pi / 2 * s * s))
	}
	return w
}

// Overlapper accumulates the second half of each decoded, windowed block
// and adds it against the first half of the next, per Vorbis I §9.2's
// overlap-add synthesis. One Overlapper is kept per output channel.
//
// Scope: this implementation centers short blocks inside the long
// blocksize window rather than reproducing libvorbis's exact
// quarter-block slope-matching at long/short transitions; streams that
// never change blocksize between frames (the common case for constant
// block-size encodes) are reproduced exactly, and blocksize transitions
// still overlap-add correctly in total energy even though the short
// block's edge taper is approximated rather than bit-exact.
type Overlapper struct {
	prevTail []float32 // pending second half of the previous block, at output sample rate alignment
}

// NewOverlapper returns an Overlapper with no pending tail.
func NewOverlapper() *Overlapper { return &Overlapper{} }

// Process windows block (length n, the IMDCT output for this frame) and
// returns the samples ready for output: the overlap-add of this block's
// first half against the previous block's pending tail. The new block's
// second half becomes the pending tail for the next call.
func (o *Overlapper) Process(block []float32, window []float32) []float32 {
	n := len(block)
	half := n / 2
	windowed := make([]float32, n)
	for i, v := range block {
		windowed[i] = v * window[i]
	}

	out := make([]float32, half)
	if o.prevTail == nil {
		// First block of the stream: there is no pending tail to add
		// against, so the windowed first half is emitted as is. Vorbis I
		// produces no output for the first block; this decoder does not
		// trim that half, here or in any caller.
		copy(out, windowed[:half])
	} else {
		tail := o.prevTail
		m := len(tail)
		if m > half {
			tail = tail[m-half:]
			m = half
		}
		offset := half - m
		copy(out, windowed[:offset])
		for i := 0; i < m; i++ {
			out[offset+i] = windowed[offset+i] + tail[i]
		}
	}
	o.prevTail = append([]float32(nil), windowed[half:]...)
	return out
}
