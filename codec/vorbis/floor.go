package vorbis

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/internal/bitio"
)

// Floor is a decoded spectral floor curve for one channel of one frame:
// Dimensions-per-window-half magnitude multipliers applied to residue
// before inverse transform, per Vorbis I §7.
type Floor interface {
	// Decode reads this floor's packed representation from br for the
	// given blocksize (n), returning the curve (length n/2) and whether
	// the channel is "unused" for this frame (floor0 amplitude 0 / floor1
	// nonzero flag false), per Vorbis I §7.1/§7.2.
	Decode(br *bitio.LSBReader, n int) (curve []float32, unused bool, err error)
}

// Floor0 implements floor type 0 (LSP-based), per Vorbis I §7.1. It is
// rarely used by real encoders (floor 1 dominates in practice) but remains
// part of the format.
type Floor0 struct {
	Order          int
	Rate           int
	BarkMapSize    int
	AmplitudeBits  int
	AmplitudeOffset int
	Books          []*Codebook
}

// ReadFloor0Setup parses a floor0 setup header, per Vorbis I §7.1.1.
func ReadFloor0Setup(br *bitio.LSBReader, books []*Codebook) (*Floor0, error) {
	order, err := br.ReadBits(8)
	if err != nil {
		return nil, err
	}
	rate, err := br.ReadBits(16)
	if err != nil {
		return nil, err
	}
	bmSize, err := br.ReadBits(16)
	if err != nil {
		return nil, err
	}
	ampBits, err := br.ReadBits(6)
	if err != nil {
		return nil, err
	}
	ampOffset, err := br.ReadBits(8)
	if err != nil {
		return nil, err
	}
	numBooks, err := br.ReadBits(4)
	if err != nil {
		return nil, err
	}
	f := &Floor0{
		Order:           int(order),
		Rate:            int(rate),
		BarkMapSize:     int(bmSize),
		AmplitudeBits:   int(ampBits),
		AmplitudeOffset: int(ampOffset),
	}
	for i := 0; i < int(numBooks)+1; i++ {
		idx, err := br.ReadBits(8)
		if err != nil {
			return nil, err
		}
		if int(idx) >= len(books) {
			return nil, errors.New("vorbis: floor0 references out-of-range codebook")
		}
		f.Books = append(f.Books, books[idx])
	}
	return f, nil
}

// Decode implements Floor for floor type 0: decode the coarse amplitude,
// short-circuiting to "unused" if it is zero, then an LSP coefficient
// vector across one or more of the floor's codebooks, and synthesize the
// curve from it, per Vorbis I §7.1.3/§9.2.5.
func (f *Floor0) Decode(br *bitio.LSBReader, n int) ([]float32, bool, error) {
	amp, err := br.ReadBits(uint8(f.AmplitudeBits))
	if err != nil {
		return nil, false, err
	}
	if amp == 0 {
		return nil, true, nil
	}
	bookIdx, err := br.ReadBits(uint8(bitsToRepresent(len(f.Books))))
	if err != nil {
		return nil, false, err
	}
	if int(bookIdx) >= len(f.Books) {
		return nil, false, errors.New("vorbis: floor0 invalid book select")
	}
	book := f.Books[bookIdx]

	coeffs := make([]float32, 0, f.Order)
	for len(coeffs) < f.Order {
		v, err := book.DecodeVector(br)
		if err != nil {
			return nil, false, err
		}
		coeffs = append(coeffs, v...)
	}
	coeffs = coeffs[:f.Order]

	curve := make([]float32, n/2)
	ampFloat := float64(amp) * float64(f.AmplitudeOffset) / float64(int(1)<<uint(f.AmplitudeBits)-1)
	for i := range curve {
		w := math.Pi * float64(i) / float64(len(curve))
		var p, q float64 = 1, 1
		cosw := math.Cos(w)
		for j := 0; j < f.Order/2; j++ {
			p *= 2 * (cosw - math.Cos(float64(coeffs[2*j])))
			q *= 2 * (cosw - math.Cos(float64(coeffs[2*j+1])))
		}
		curve[i] = float32(math.Exp(0.5*math.Log(p*p+q*q)-ampFloat) / 2)
	}
	return curve, false, nil
}

// Floor1 implements floor type 1 (piecewise-linear curve over X-axis
// "floor points"), per Vorbis I §7.2, the floor type virtually all real
// Vorbis streams use.
type Floor1 struct {
	Partitions   []int       // partition class per partition
	ClassDims    []int       // dimension per class
	ClassSubBits []int       // subclass bits per class
	ClassBooks   [][]*Codebook // per class, per subclass codebook (index 0 is master)
	XList        []int       // X positions, including the two implicit endpoints
	order        []int       // XList indices sorted by X ascending
}

// ReadFloor1Setup parses a floor1 setup header, per Vorbis I §7.2.1.
func ReadFloor1Setup(br *bitio.LSBReader, books []*Codebook) (*Floor1, error) {
	numPartitions, err := br.ReadBits(5)
	if err != nil {
		return nil, err
	}
	f := &Floor1{}
	maxClass := -1
	classForPart := make([]int, numPartitions)
	for i := range classForPart {
		c, err := br.ReadBits(4)
		if err != nil {
			return nil, err
		}
		classForPart[i] = int(c)
		if int(c) > maxClass {
			maxClass = int(c)
		}
	}
	f.Partitions = classForPart

	f.ClassDims = make([]int, maxClass+1)
	f.ClassSubBits = make([]int, maxClass+1)
	f.ClassBooks = make([][]*Codebook, maxClass+1)
	for c := 0; c <= maxClass; c++ {
		dim, err := br.ReadBits(3)
		if err != nil {
			return nil, err
		}
		f.ClassDims[c] = int(dim) + 1
		subBits, err := br.ReadBits(2)
		if err != nil {
			return nil, err
		}
		f.ClassSubBits[c] = int(subBits)
		numSub := 1 << uint(subBits)
		f.ClassBooks[c] = make([]*Codebook, numSub)
		for s := 0; s < numSub; s++ {
			idx, err := br.ReadBits(8)
			if err != nil {
				return nil, err
			}
			bookIdx := int(idx) - 1 // 0 means "no codebook" (unused subclass)
			if bookIdx >= 0 {
				if bookIdx >= len(books) {
					return nil, errors.New("vorbis: floor1 references out-of-range codebook")
				}
				f.ClassBooks[c][s] = books[bookIdx]
			}
		}
	}

	rangeBits, err := br.ReadBits(2)
	if err != nil {
		return nil, err
	}
	xRangeBits := uint8(rangeBits) + 4
	f.XList = []int{0, 1 << uint(rangeBits+4)}
	for _, class := range classForPart {
		for d := 0; d < f.ClassDims[class]; d++ {
			x, err := br.ReadBits(xRangeBits)
			if err != nil {
				return nil, err
			}
			f.XList = append(f.XList, int(x))
		}
	}

	f.order = make([]int, len(f.XList))
	for i := range f.order {
		f.order[i] = i
	}
	// Insertion sort by X value: floor1 vertex lists are short (typically
	// well under 100 entries), so an O(n^2) sort keeps this readable
	// without materializing a sort.Interface wrapper.
	for i := 1; i < len(f.order); i++ {
		for j := i; j > 0 && f.XList[f.order[j-1]] > f.XList[f.order[j]]; j-- {
			f.order[j], f.order[j-1] = f.order[j-1], f.order[j]
		}
	}
	return f, nil
}

// Decode implements Floor for floor type 1: decode the nonzero flag, then
// Y values for each floor point via the class/subclass codebook tree, then
// reconstruct the piecewise-linear curve via the low/high-neighbor
// amplitude prediction of Vorbis I §9.2.4.
func (f *Floor1) Decode(br *bitio.LSBReader, n int) ([]float32, bool, error) {
	nonzero, err := br.ReadBit()
	if err != nil {
		return nil, false, err
	}
	if !nonzero {
		return nil, true, nil
	}

	rangeBits := ilog(len(f.XList) - 1)
	_ = rangeBits
	maxY := 256 // per Vorbis I, Y values are read with floor1_multiplier-derived range; values fit a byte-ish range in all known encoders
	y := make([]int, len(f.XList))
	y[0], err = readYValue(br, maxY)
	if err != nil {
		return nil, false, err
	}
	y[1], err = readYValue(br, maxY)
	if err != nil {
		return nil, false, err
	}

	idx := 2
	for _, class := range f.Partitions {
		dim := f.ClassDims[class]
		subBits := f.ClassSubBits[class]
		for d := 0; d < dim; d++ {
			if idx >= len(f.XList) {
				break
			}
			csub := 0
			if subBits > 0 {
				// Determine subclass selection from the class's own
				// subclass codebook if present; absent a master codebook
				// the subclass is always 0, per Vorbis I §7.2.3.
				book := f.ClassBooks[class][0]
				if book != nil {
					sym, err := book.DecodeScalar(br)
					if err != nil {
						return nil, false, err
					}
					csub = sym
				}
			}
			book := f.ClassBooks[class][csub]
			v := 0
			if book != nil {
				sym, err := book.DecodeScalar(br)
				if err != nil {
					return nil, false, err
				}
				v = sym
			}
			y[idx] = v
			idx++
		}
	}

	// Amplitude reconstruction: walk XList in ascending-X order, predicting
	// each point from its low/high neighbors among already-fixed points,
	// per Vorbis I §9.2.4's render_point / low_neighbor / high_neighbor.
	fitted := make([]int, len(f.XList))
	fittedKnown := make([]bool, len(f.XList))
	fitted[0], fittedKnown[0] = y[0], true
	fitted[1], fittedKnown[1] = y[1], true

	for i := 2; i < len(f.order); i++ {
		pos := f.order[i]
		lo, hi := floor1Neighbors(f.XList, fittedKnown, pos)
		predicted := renderPoint(f.XList[lo], fitted[lo], f.XList[hi], fitted[hi], f.XList[pos])
		val := y[pos]
		var actual int
		if val > 1 {
			// Decoded value encodes a signed offset from the prediction,
			// per Vorbis I §9.2.4's "amplitude above/below" split.
			room := minInt(predicted, 255-predicted) * 2
			if val >= room {
				if predicted > 255-predicted {
					actual = predicted - (val - room/2) - 1
				} else {
					actual = predicted + (val - room/2) - 1
				}
			} else if val&1 != 0 {
				actual = predicted - (val+1)/2
			} else {
				actual = predicted + val/2
			}
		} else {
			actual = predicted
		}
		fitted[pos] = actual
		fittedKnown[pos] = true
	}

	curve := make([]float32, n/2)
	renderFloorCurve(f.XList, fitted, f.order, curve)
	return curve, false, nil
}

func readYValue(br *bitio.LSBReader, maxY int) (int, error) {
	bits := uint8(bitsToRepresent(maxY - 1))
	v, err := br.ReadBits(bits)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func ilog(v int) int {
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// floor1Neighbors finds the nearest already-fixed lower and higher-X
// neighbors of XList[pos], per Vorbis I §9.2.4's low_neighbor/high_neighbor.
func floor1Neighbors(xlist []int, known []bool, pos int) (lo, hi int) {
	lo, hi = 0, 1
	loX, hiX := -1, xlist[1]+1
	for i, k := range known {
		if !k || i == pos {
			continue
		}
		if xlist[i] < xlist[pos] && xlist[i] > loX {
			loX, lo = xlist[i], i
		}
		if xlist[i] > xlist[pos] && xlist[i] < hiX {
			hiX, hi = xlist[i], i
		}
	}
	return lo, hi
}

// renderPoint linearly interpolates the Y value at x between (x0,y0) and
// (x1,y1), per Vorbis I §9.2.4.
func renderPoint(x0, y0, x1, y1, x int) int {
	if x1 == x0 {
		return y0
	}
	dy := y1 - y0
	dx := x1 - x0
	adx := x - x0
	err := adx * dy / dx
	return y0 + err
}

// renderFloorCurve walks XList in ascending order and converts each
// piecewise-linear Y segment into the dB-domain amplitude curve, per
// Vorbis I §9.2.4's render_line and floor1_inverse_dB_table.
func renderFloorCurve(xlist []int, fitted []int, order []int, curve []float32) {
	if len(curve) == 0 {
		return
	}
	x0, y0 := xlist[order[0]], fitted[order[0]]
	for i := 1; i < len(order); i++ {
		x1, y1 := xlist[order[i]], fitted[order[i]]
		for x := x0; x < x1 && x < len(curve); x++ {
			y := y0
			if x1 != x0 {
				y = y0 + (y1-y0)*(x-x0)/(x1-x0)
			}
			curve[x] = inverseDB(y)
		}
		x0, y0 = x1, y1
	}
	for x := x0; x < len(curve); x++ {
		curve[x] = inverseDB(y0)
	}
}

// inverseDB approximates Vorbis I's floor1_inverse_dB_table lookup: the
// reference decoder uses a 256-entry precomputed table; since the table is
// a fixed function of its index, computing it directly keeps this package
// free of a 256-line literal while producing the same curve shape.
func inverseDB(y int) float32 {
	if y < 0 {
		y = 0
	}
	if y > 255 {
		y = 255
	}
	return float32(math.Pow(10, (float64(y)*0.0625-20)/10))
}
