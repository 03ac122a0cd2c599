// Package analysis provides optional offline spectral analysis helpers
// built on gonum.org/v1/gonum/dsp/fourier, separate from the module's
// hand-rolled internal/fft package. Grounded on
// farcloser-haustorium's use of gonum for spectral feature extraction
// (the only repo in the retrieval pack with a gonum dependency) and on
// mewkiz/flac's own analysis_fixed.go, which performs an offline
// fixed-predictor-order heuristic over a decoded block; this package
// generalizes that idea into a reusable spectral-centroid helper any
// caller can run over a decoded AudioBuffer without touching the decode
// path itself.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/mewkiz/audiocore/buffer"
)

// SpectralCentroid computes the spectral centroid, in Hz, of one channel of
// a decoded AudioBuffer: the amplitude-weighted mean frequency. Useful for
// callers building loudness/brightness metadata on top of decoded audio;
// it is not part of any codec's decode path.
func SpectralCentroid(buf *buffer.AudioBuffer, channel int) float64 {
	n := buf.Frames
	if n == 0 {
		return 0
	}
	samples := make([]float64, n)
	if buf.SampleFmt == buffer.FormatF32 {
		plane := buf.PlaneF32(channel)
		for i := 0; i < n; i++ {
			samples[i] = float64(plane[i])
		}
	} else {
		plane := buf.PlaneI32(channel)
		scale := float64(int64(1) << 31)
		for i := 0; i < n; i++ {
			samples[i] = float64(plane[i]) / scale
		}
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, samples)

	var weighted, total float64
	sampleRate := float64(buf.SampleRate())
	for k, c := range coeffs {
		mag := math.Hypot(real(c), imag(c))
		freq := float64(k) * sampleRate / float64(n)
		weighted += freq * mag
		total += mag
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}
