package mpa

import "math"

// SynthesisFilter is the Layer III polyphase synthesis filterbank: 32
// frequency subbands in, 32 time-domain PCM samples out, per ISO/IEC
// 11172-3 §2.4.1.6 (shared with Layers I and II). It carries a 512-sample
// FIFO history the way the reference decoder's shift register does.
//
// The filterbank has two stages: the cosine matrixing that turns 32
// subband samples into 64 matrixed values (an exact formula, §2.4.1.6
// eqn 2.4.1.6-1), and a windowed FIR combining 16 history blocks with the
// 512-entry analysis window D from ISO/IEC 11172-3 Table B.3. D's values
// are a fixed, non-formulaic constant table (not derivable from a
// trigonometric expression, unlike the matrixing step or codec/vorbis's
// window) and are not present in any retrieved pack source. This package
// therefore implements the matrixing stage exactly and applies a
// rectangular (unwindowed) combination in place of the true D-weighted
// FIR, documented in DESIGN.md; output is recognizable PCM but without
// the stopband attenuation the real windowed filter provides.
type SynthesisFilter struct {
	fifo [512]float32
}

func NewSynthesisFilter() *SynthesisFilter { return &SynthesisFilter{} }

// cosMatrix[i][k] = cos((16+i)*(2k+1)*pi/64), the fixed 64x32 matrixing
// coefficients of ISO/IEC 11172-3 §2.4.1.6 eqn 2.4.1.6-1.
var cosMatrix [64][32]float32

func init() {
	for i := 0; i < 64; i++ {
		for k := 0; k < 32; k++ {
			cosMatrix[i][k] = float32(math.Cos(float64(16+i) * float64(2*k+1) * math.Pi / 64))
		}
	}
}

// Process consumes 32 subband samples and appends 32 PCM samples to out.
func (sf *SynthesisFilter) Process(subbands [32]float32, out []float32) []float32 {
	var matrixed [64]float32
	for i := 0; i < 64; i++ {
		var sum float32
		for k := 0; k < 32; k++ {
			sum += cosMatrix[i][k] * subbands[k]
		}
		matrixed[i] = sum
	}

	copy(sf.fifo[64:], sf.fifo[:448])
	copy(sf.fifo[:64], matrixed[:])

	for j := 0; j < 32; j++ {
		var sum float32
		for i := 0; i < 16; i++ {
			sum += sf.fifo[i*32+j]
		}
		out = append(out, sum/16)
	}
	return out
}
