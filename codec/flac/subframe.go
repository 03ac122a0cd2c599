package flac

import (
	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/internal/bitio"
)

// PredMethod identifies a subframe's prediction method, grounded on the
// teacher's frame.PredMethod.
type PredMethod int8

// Subframe prediction methods.
const (
	PredConstant PredMethod = iota
	PredFixed
	PredLPC
	PredVerbatim
)

// SubHeader is a parsed subframe header, grounded on the teacher's
// frame.SubHeader.
type SubHeader struct {
	PredMethod     PredMethod
	WastedBitCount uint8
	PredOrder      int8
}

// readSubHeader parses a subframe header: a zero padding bit, a 6-bit
// prediction method field, and the wasted-bits-per-sample unary flag. The
// teacher panics once it has decoded the wasted-bit count ("not yet
// implemented; wasted bits"); this returns it instead, since a conforming
// encoder may legally set the flag.
func readSubHeader(br *bitio.Reader) (*SubHeader, error) {
	pad, err := br.Read(1)
	if err != nil {
		return nil, err
	}
	if pad != 0 {
		return nil, errors.New("flac: invalid subframe header padding; must be 0")
	}

	n, err := br.Read(6)
	if err != nil {
		return nil, err
	}

	sh := &SubHeader{}
	switch {
	case n == 0:
		sh.PredMethod = PredConstant
	case n == 1:
		sh.PredMethod = PredVerbatim
	case n < 8:
		return nil, errors.Errorf("flac: reserved subframe prediction method 0b%06b", n)
	case n < 16:
		const predOrderMask = 0x07
		sh.PredOrder = int8(n) & predOrderMask
		if sh.PredOrder > 4 {
			return nil, errors.Errorf("flac: reserved subframe prediction method 0b%06b", n)
		}
		sh.PredMethod = PredFixed
	case n < 32:
		return nil, errors.Errorf("flac: reserved subframe prediction method 0b%06b", n)
	default:
		const predOrderMask = 0x1F
		sh.PredOrder = int8(n)&predOrderMask + 1
		sh.PredMethod = PredLPC
	}

	hasWasted, err := br.Read(1)
	if err != nil {
		return nil, err
	}
	if hasWasted != 0 {
		k, err := br.ReadUnary()
		if err != nil {
			return nil, err
		}
		sh.WastedBitCount = uint8(k) + 1
	}

	return sh, nil
}

// decodeSubframe decodes one channel's worth of samples into dst, which
// must have length sampleCount, per the teacher's Header.NewSubFrame.
func decodeSubframe(br *bitio.Reader, bps uint, sampleCount int, dst []int32) error {
	sh, err := readSubHeader(br)
	if err != nil {
		return err
	}

	effBps := bps - uint(sh.WastedBitCount)

	switch sh.PredMethod {
	case PredConstant:
		err = decodeConstant(br, effBps, dst)
	case PredFixed:
		err = decodeFixed(br, int(sh.PredOrder), effBps, dst)
	case PredLPC:
		err = decodeLPC(br, int(sh.PredOrder), effBps, dst)
	case PredVerbatim:
		err = decodeVerbatim(br, effBps, dst)
	default:
		return errors.Errorf("flac: unknown subframe prediction method %d", sh.PredMethod)
	}
	if err != nil {
		return err
	}

	if sh.WastedBitCount > 0 {
		shift := uint(sh.WastedBitCount)
		for i, s := range dst {
			dst[i] = s << shift
		}
	}
	return nil
}

// signExtend interprets x as a signed n-bit integer and sign extends it to
// 32 bits, grounded on the teacher's frame.signExtend.
func signExtend(x uint64, n uint) int32 {
	if n == 0 {
		return 0
	}
	shift := 64 - n
	return int32(int64(x<<shift) >> shift)
}

// decodeConstant decodes a CONSTANT subframe: a single sample repeated
// sampleCount times, per the teacher's Header.DecodeConstant.
func decodeConstant(br *bitio.Reader, bps uint, dst []int32) error {
	x, err := br.Read(bps)
	if err != nil {
		return err
	}
	sample := signExtend(x, bps)
	for i := range dst {
		dst[i] = sample
	}
	return nil
}

// decodeVerbatim decodes a VERBATIM subframe: every sample stored
// unencoded, per the teacher's Header.DecodeVerbatim.
func decodeVerbatim(br *bitio.Reader, bps uint, dst []int32) error {
	for i := range dst {
		x, err := br.Read(bps)
		if err != nil {
			return err
		}
		dst[i] = signExtend(x, bps)
	}
	return nil
}

// fixedCoeffs maps fixed-predictor order to its FIR coefficients, per the
// teacher's frame.fixedCoeffs.
//
//	x_0[n] = 0
//	x_1[n] = x[n-1]
//	x_2[n] = 2*x[n-1] - x[n-2]
//	x_3[n] = 3*x[n-1] - 3*x[n-2] + x[n-3]
//	x_4[n] = 4*x[n-1] - 6*x[n-2] + 4*x[n-3] - x[n-4]
var fixedCoeffs = [5][]int32{
	0: {},
	1: {1},
	2: {2, -1},
	3: {3, -3, 1},
	4: {4, -6, 4, -1},
}

// decodeFixed decodes a FIXED subframe: predOrder unencoded warm-up
// samples followed by a Rice-coded residual, reconstructed through a fixed
// FIR predictor, per the teacher's Header.DecodeFixed.
func decodeFixed(br *bitio.Reader, predOrder int, bps uint, dst []int32) error {
	if predOrder > 4 {
		return errors.Errorf("flac: invalid fixed predictor order %d", predOrder)
	}
	for i := 0; i < predOrder; i++ {
		x, err := br.Read(bps)
		if err != nil {
			return err
		}
		dst[i] = signExtend(x, bps)
	}

	residuals := dst[predOrder:]
	if err := decodeResidual(br, predOrder, residuals); err != nil {
		return err
	}
	lpcReconstruct(fixedCoeffs[predOrder], 0, dst, predOrder)
	return nil
}

// decodeLPC decodes an LPC subframe: lpcOrder unencoded warm-up samples,
// quantized coefficient precision and shift, lpcOrder quantized
// coefficients, and a Rice-coded residual, reconstructed through the
// quantized FIR predictor, per the teacher's Header.DecodeLPC.
func decodeLPC(br *bitio.Reader, lpcOrder int, bps uint, dst []int32) error {
	for i := 0; i < lpcOrder; i++ {
		x, err := br.Read(bps)
		if err != nil {
			return err
		}
		dst[i] = signExtend(x, bps)
	}

	x, err := br.Read(4)
	if err != nil {
		return err
	}
	if x == 0xF {
		return errors.New("flac: invalid quantized LPC precision; reserved bit pattern 1111")
	}
	qlpcPrec := uint(x) + 1

	x, err = br.Read(5)
	if err != nil {
		return err
	}
	qlpcShift := signExtend(x, 5)
	if qlpcShift < 0 {
		return errors.New("flac: negative quantized LPC shift is not supported")
	}

	coeffs := make([]int32, lpcOrder)
	for i := range coeffs {
		x, err := br.Read(qlpcPrec)
		if err != nil {
			return err
		}
		coeffs[i] = signExtend(x, qlpcPrec)
	}

	residuals := dst[lpcOrder:]
	if err := decodeResidual(br, lpcOrder, residuals); err != nil {
		return err
	}
	lpcReconstruct(coeffs, uint(qlpcShift), dst, lpcOrder)
	return nil
}

// lpcReconstruct reconstructs samples in place from warm-up samples and
// residuals already stored in dst[:nWarm] and dst[nWarm:], applying the FIR
// predictor defined by coeffs and shift, per the teacher's lpcDecode
// (itself borrowed from github.com/eaburns/flac/blob/master/decode.go).
func lpcReconstruct(coeffs []int32, shift uint, dst []int32, nWarm int) {
	for i := nWarm; i < len(dst); i++ {
		var sum int64
		for j, coeff := range coeffs {
			sum += int64(coeff) * int64(dst[i-j-1])
		}
		dst[i] += int32(sum >> shift)
	}
}

// decodeResidual decodes the residual coding method field and dispatches to
// the corresponding partitioned Rice decoder, per the teacher's
// Header.DecodeResidual. predOrder is the subframe's prediction order,
// which accounts for the first partition's shorter sample count.
func decodeResidual(br *bitio.Reader, predOrder int, dst []int32) error {
	method, err := br.Read(2)
	if err != nil {
		return err
	}
	switch method {
	case 0:
		return decodeRicePartitions(br, predOrder, len(dst)+predOrder, 4, dst)
	case 1:
		return decodeRicePartitions(br, predOrder, len(dst)+predOrder, 5, dst)
	default:
		return errors.Errorf("flac: reserved residual coding method 0b%02b", method)
	}
}

// decodeRicePartitions decodes a partitioned Rice residual: a 4-bit
// partition order, then 2^order partitions each carrying their own Rice
// parameter, grounded on the teacher's Header.DecodeRice and
// Header.DecodeRice2. paramBits is 4 for method 0 and 5 for method 1; the
// all-ones parameter value denotes an escape partition of raw nBits-wide
// signed residuals (the teacher's DecodeRice2 leaves this path as a bare
// panic; it is implemented fully here via bitio.ReadRiceEscape).
func decodeRicePartitions(br *bitio.Reader, predOrder, blockSize int, paramBits uint, dst []int32) error {
	partOrderBits, err := br.Read(4)
	if err != nil {
		return err
	}
	partOrder := int(partOrderBits)
	partCount := 1 << uint(partOrder)
	if blockSize%partCount != 0 {
		return errors.Errorf("flac: block size %d not divisible by partition count %d", blockSize, partCount)
	}
	samplesPerPart := blockSize / partCount

	escape := uint64(1)<<paramBits - 1

	pos := 0
	for i := 0; i < partCount; i++ {
		n := samplesPerPart
		if i == 0 {
			n -= predOrder
		}

		param, err := br.Read(paramBits)
		if err != nil {
			return err
		}

		if param == escape {
			nBitsRaw, err := br.Read(5)
			if err != nil {
				return err
			}
			for j := 0; j < n; j++ {
				v, err := br.ReadRiceEscape(uint(nBitsRaw))
				if err != nil {
					return err
				}
				dst[pos] = v
				pos++
			}
			continue
		}

		for j := 0; j < n; j++ {
			v, err := br.ReadRice(uint(param))
			if err != nil {
				return err
			}
			dst[pos] = v
			pos++
		}
	}
	return nil
}
