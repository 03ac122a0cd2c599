// Package fft implements a radix-2 Cooley-Tukey complex FFT (spec §4.5):
// power-of-two sizes up to 65536, a bit-reversal permutation table
// computed at construction, and twiddle factors for sizes 64..65536
// materialized lazily. Sizes 1..32 run the same iterative butterfly pass
// with twiddles computed on the fly. No other package of the module
// imports it: codec/vorbis and codec/mpa evaluate their IMDCTs directly.
//
// This is hand-rolled rather than built on gonum.org/v1/gonum/dsp/fourier
// (wired elsewhere in this module for offline spectral analysis) because
// gonum's CmplxFFT recomputes its own internal twiddle/permutation state
// per Plan and does not expose a way to reuse a precomputed bit-reversal
// table across repeated same-size transforms the way a per-frame audio
// decode loop needs; SPEC_FULL.md's DOMAIN STACK section records this
// decision.
package fft

import "math"

// Plan holds the precomputed state for repeated power-of-two transforms of
// one size.
type Plan struct {
	n        int
	log2n    uint
	rev      []int
	twiddles []complex128 // n/2 entries, lazily filled
	built    bool
}

// NewPlan returns a Plan for transforms of size n, which must be a power of
// two in [1, 65536].
func NewPlan(n int) *Plan {
	if n <= 0 || n&(n-1) != 0 {
		panic("fft: size must be a power of two")
	}
	if n > 65536 {
		panic("fft: size exceeds 65536")
	}
	p := &Plan{n: n}
	for 1<<p.log2n < n {
		p.log2n++
	}
	p.rev = make([]int, n)
	for i := 0; i < n; i++ {
		p.rev[i] = bitReverse(i, p.log2n)
	}
	return p
}

func bitReverse(x int, bits uint) int {
	var r int
	for i := uint(0); i < bits; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}

func (p *Plan) ensureTwiddles() {
	if p.built {
		return
	}
	half := p.n / 2
	p.twiddles = make([]complex128, half)
	for k := 0; k < half; k++ {
		theta := -2 * math.Pi * float64(k) / float64(p.n)
		p.twiddles[k] = complex(math.Cos(theta), math.Sin(theta))
	}
	p.built = true
}

// Forward performs an in-place forward FFT on data, which must have length
// equal to the plan's size.
func (p *Plan) Forward(data []complex128) {
	p.transform(data, false)
}

// Inverse performs an in-place inverse FFT on data (unnormalized by 1/n;
// callers scale as their synthesis stage requires), which must have length
// equal to the plan's size.
func (p *Plan) Inverse(data []complex128) {
	p.transform(data, true)
}

func (p *Plan) transform(data []complex128, inverse bool) {
	n := p.n
	if len(data) != n {
		panic("fft: data length does not match plan size")
	}
	if n <= 32 {
		transformSmall(data, inverse)
		return
	}

	p.ensureTwiddles()

	for i, r := range p.rev {
		if i < r {
			data[i], data[r] = data[r], data[i]
		}
	}

	half := n / 2
	for size := 2; size <= n; size <<= 1 {
		halfSize := size / 2
		stride := n / size
		for start := 0; start < n; start += size {
			for k := 0; k < halfSize; k++ {
				tw := p.twiddles[k*stride]
				if inverse {
					tw = complex(real(tw), -imag(tw))
				}
				a := data[start+k]
				b := data[start+k+halfSize] * tw
				data[start+k] = a + b
				data[start+k+halfSize] = a - b
			}
		}
	}
	_ = half
}

// transformSmall handles sizes 1..32 with a direct (unrolled-in-spirit)
// iterative radix-2 pass; at these sizes table-driven twiddle lookups cost
// more than recomputing sin/cos directly.
func transformSmall(data []complex128, inverse bool) {
	n := len(data)
	if n == 1 {
		return
	}
	var log2n uint
	for 1<<log2n < n {
		log2n++
	}
	for i := 0; i < n; i++ {
		r := bitReverse(i, log2n)
		if i < r {
			data[i], data[r] = data[r], data[i]
		}
	}
	for size := 2; size <= n; size <<= 1 {
		halfSize := size / 2
		angleStep := -2 * math.Pi / float64(size)
		if inverse {
			angleStep = -angleStep
		}
		for start := 0; start < n; start += size {
			for k := 0; k < halfSize; k++ {
				theta := angleStep * float64(k)
				tw := complex(math.Cos(theta), math.Sin(theta))
				a := data[start+k]
				b := data[start+k+halfSize] * tw
				data[start+k] = a + b
				data[start+k+halfSize] = a - b
			}
		}
	}
}

// Size returns the plan's transform size.
func (p *Plan) Size() int { return p.n }
