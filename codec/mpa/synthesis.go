package mpa

import (
	"math"

	"github.com/mewkiz/audiocore/internal/mpatables"
)

// requantize converts one granule/channel's 576 Huffman-decoded magnitudes
// (already signed) into the dequantized frequency-line spectrum, per
// ISO/IEC 11172-3 §2.4.3.4.3: is[i] * 2^(0.25*(globalgain-210)) *
// 2^-(0.25*scalefac_multiplier*(scalefac+preflag*pretab)). Grounded on the
// pack's retrieved go-musicfox/farcloser requantization shape described in
// maindata.go's scale-factor grounding; the x^(4/3) magnitude step is
// applied here too, through the mpatables.Pow43 table for integer
// magnitudes it covers and math.Pow otherwise.
func requantize(is []float32, h *Header, si *SideInfo, md *MainData, gr, ch int) []float32 {
	out := make([]float32, 576)
	sr := h.SampleRate()
	scale := 1.0
	if si.ScalefacScale[gr][ch] == 1 {
		scale = 2.0
	}
	globalGain := float64(si.GlobalGain[gr][ch])

	applyBand := func(lo, hi, sfIdx int, sf int) {
		gain := math.Pow(2, 0.25*(globalGain-210)) * math.Pow(2, -scale*0.5*float64(sf))
		for i := lo; i < hi && i < 576; i++ {
			v := float64(is[i])
			sign := 1.0
			if v < 0 {
				sign, v = -1, -v
			}
			mag := v
			if idx := int(v); idx >= 0 && idx < len(mpatables.Pow43) && v == math.Trunc(v) {
				mag = mpatables.Pow43[idx]
			} else {
				mag = math.Pow(v, 4.0/3.0)
			}
			out[i] = float32(sign * mag * gain)
		}
		_ = sfIdx
	}

	if si.WinSwitchFlag[gr][ch] == 1 && si.BlockType[gr][ch] == 2 {
		bands := mpatables.ScaleFactorBandsShort[sr]
		for sfb := 0; sfb < 12 && sfb+1 < len(bands); sfb++ {
			for win := 0; win < 3; win++ {
				lo := bands[sfb]*3 + win*(bands[sfb+1]-bands[sfb])
				hi := lo + (bands[sfb+1] - bands[sfb])
				applyBand(lo, hi, sfb, md.ScalefacS[gr][ch][sfb][win])
			}
		}
		return out
	}

	bands := mpatables.ScaleFactorBandsLong[sr]
	for sfb := 0; sfb+1 < len(bands); sfb++ {
		sf := md.ScalefacL[gr][ch][sfb]
		if si.Preflag[gr][ch] == 1 {
			sf += pretab[sfb]
		}
		applyBand(bands[sfb], bands[sfb+1], sfb, sf)
	}
	return out
}

// pretab is the fixed Layer III preemphasis table added to scale factors
// when preflag is set, per ISO/IEC 11172-3 Table B.9.
var pretab = [21]int{0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 3, 3, 3, 2, 0, 0, 0, 0}

// stereoProcess applies MS stereo (mode extension bit 1) to two channels'
// dequantized spectra in place, per ISO/IEC 11172-3 §2.4.3.4.9.3: mid/side
// reconstruction is L = (m+s)/sqrt(2), R = (m-s)/sqrt(2). Intensity stereo
// (mode extension bit 0, reusing one channel's scale factors to reconstruct
// the other) is not implemented; see DESIGN.md's deferred Vorbis-coupling
// Open Question, reassigned here as the more directly applicable question.
func stereoProcess(h *Header, si *SideInfo, left, right []float32, gr int) {
	if h.Mode != ModeJointStereo {
		return
	}
	msOn := si.ModeExtGet(h) & 0x2
	if msOn == 0 {
		return
	}
	const invSqrt2 = 0.70710678118654752440
	for i := range left {
		m, s := left[i], right[i]
		left[i] = float32(float64(m+s) * invSqrt2)
		right[i] = float32(float64(m-s) * invSqrt2)
	}
}

// ModeExtGet exposes the header's raw mode_extension field for
// stereoProcess; defined as a SideInfo method taking the Header rather
// than as a Header method so SideInfo-driven logic stays in this file.
func (si *SideInfo) ModeExtGet(h *Header) int { return h.ModeExtension }

// reorderShort reorders a short-block granule's 576 post-requantization
// values (three windows of 192) from scalefactor-band/window order into the frequency order the
// hybrid filterbank expects, per ISO/IEC 11172-3 §2.4.3.4.8.
func reorderShort(in []float32, sr int) []float32 {
	bands := mpatables.ScaleFactorBandsShort[sr]
	out := make([]float32, len(in))
	pos := 0
	for sfb := 0; sfb+1 < len(bands); sfb++ {
		width := bands[sfb+1] - bands[sfb]
		base := bands[sfb] * 3
		for i := 0; i < width; i++ {
			for win := 0; win < 3; win++ {
				idx := base + win*width + i
				if idx < len(in) && pos < len(out) {
					out[pos] = in[idx]
				}
				pos++
			}
		}
	}
	return out
}

// antialias applies the Layer III alias-reduction butterflies (8 per
// boundary) across the 31 boundaries between adjacent 18-sample
// hybrid-filterbank subbands, per
// ISO/IEC 11172-3 §2.4.3.4.9.4. Skipped entirely for blocks with
// BlockType == 2 (all-short blocks), which never receive alias reduction.
var aliasCs = [8]float32{
	0.857493, 0.881742, 0.949629, 0.983315,
	0.995518, 0.999161, 0.999899, 0.999993,
}
var aliasCa = [8]float32{
	0.514496, 0.471732, 0.313377, 0.181913,
	0.094574, 0.040966, 0.014199, 0.003700,
}

func antialias(x []float32) {
	for sb := 0; sb < 31; sb++ {
		base := sb * 18
		for i := 0; i < 8; i++ {
			lo := base + 17 - i
			hi := base + 18 + i
			if hi >= len(x) {
				break
			}
			a, b := x[lo], x[hi]
			x[lo] = a*aliasCs[i] - b*aliasCa[i]
			x[hi] = b*aliasCs[i] + a*aliasCa[i]
		}
	}
}

// HybridState holds the per-subband overlap carried between granules; its
// Process method applies the per-subband IMDCT (18-point for long blocks,
// three interleaved 6-point transforms for short blocks) and overlap-add
// with the previous granule's tail, per ISO/IEC 11172-3 §2.4.3.4.10. Uses
// the direct formula rather than internal/fft.Plan: Layer III's hybrid
// transform alternates between 18-point and 6-point sizes per granule
// depending on block type, the same variable-size situation codec/vorbis
// documents for choosing a direct IMDCT over a reusable FFT plan.
type HybridState struct {
	Overlap [32][18]float32
}

func NewHybridState() *HybridState { return &HybridState{} }

func (hs *HybridState) Process(spectrum []float32, blockType int, sbOut [][]float32) {
	for sb := 0; sb < 32; sb++ {
		base := sb * 18
		var block []float32
		if base+18 > len(spectrum) {
			block = make([]float32, 18)
		} else {
			block = spectrum[base : base+18]
		}
		var windowed []float32
		n := 18
		if blockType == 2 {
			windowed = imdctShortTriple(block)
		} else {
			windowed = imdctBlock(block, n, blockType)
		}
		out := sbOut[sb]
		for i := 0; i < 18; i++ {
			out[i] = windowed[i] + hs.Overlap[sb][i]
			hs.Overlap[sb][i] = windowed[18+i]
		}
	}
}

// imdctBlock computes a direct 2N-point IMDCT of an N-point input (N=18)
// and applies the Layer III block-type window (normal, start, or stop),
// per ISO/IEC 11172-3 §2.4.3.4.10.2.
func imdctBlock(in []float32, n int, blockType int) []float32 {
	raw := rawIMDCT(in, n)
	for i := range raw {
		raw[i] *= windowCoef(blockType, i, 2*n)
	}
	return raw
}

// rawIMDCT computes the direct 2N-point IMDCT of an N-point input with no
// window applied.
func rawIMDCT(in []float32, n int) []float32 {
	out := make([]float32, 2*n)
	for i := 0; i < 2*n; i++ {
		var sum float64
		for k := 0; k < n; k++ {
			sum += float64(in[k]) * math.Cos(math.Pi/float64(4*n)*(2*float64(i)+1+float64(n))*(2*float64(k)+1))
		}
		out[i] = float32(sum)
	}
	return out
}

func windowCoef(blockType, i, size int) float32 {
	switch blockType {
	case 1: // start block
		switch {
		case i < 18:
			return float32(math.Sin(math.Pi / 36 * (float64(i) + 0.5)))
		case i < 24:
			return 1
		case i < 30:
			return float32(math.Sin(math.Pi / 12 * (float64(i) - 18 + 0.5)))
		default:
			return 0
		}
	case 3: // stop block
		switch {
		case i < 6:
			return 0
		case i < 12:
			return float32(math.Sin(math.Pi / 12 * (float64(i) - 6 + 0.5)))
		case i < 18:
			return 1
		default:
			return float32(math.Sin(math.Pi / float64(size) * (float64(i) + 0.5)))
		}
	default: // normal long block
		return float32(math.Sin(math.Pi / float64(size) * (float64(i) + 0.5)))
	}
}

// imdctShortTriple computes three independent 6-point IMDCTs (one per short
// window) and interleaves them per ISO/IEC 11172-3 §2.4.3.4.10.3, returning
// a 36-sample block to match the long-block output length.
func imdctShortTriple(in []float32) []float32 {
	out := make([]float32, 36)
	for win := 0; win < 3; win++ {
		sub := make([]float32, 6)
		for k := 0; k < 6; k++ {
			idx := win + 3*k
			if idx < len(in) {
				sub[k] = in[idx]
			}
		}
		block := rawIMDCT(sub, 6)
		for i := 0; i < 12; i++ {
			w := float32(math.Sin(math.Pi / 12 * (float64(i) + 0.5)))
			out[6+win*6+i] += block[i] * w
		}
	}
	return out
}
