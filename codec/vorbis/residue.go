package vorbis

import (
	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/internal/bitio"
)

// Residue holds one residue vector's decode parameters, per Vorbis I §8.
type Residue struct {
	Type       int
	Begin      int
	End        int
	PartitionSize int
	Classifications int
	Classbook  *Codebook
	Cascades   []int // bits-per-stage bitmap per classification, from setup
	Books      [][]*Codebook // [classification][stage] -> codebook or nil
}

// ReadResidueSetup parses one residue setup entry, per Vorbis I §8.2.1.
// Type is passed in by the caller (already read as part of the residue
// type field preceding the shared layout).
func ReadResidueSetup(br *bitio.LSBReader, typ int, books []*Codebook) (*Residue, error) {
	begin, err := br.ReadBits(24)
	if err != nil {
		return nil, err
	}
	end, err := br.ReadBits(24)
	if err != nil {
		return nil, err
	}
	partSize, err := br.ReadBits(24)
	if err != nil {
		return nil, err
	}
	classifications, err := br.ReadBits(6)
	if err != nil {
		return nil, err
	}
	classBookIdx, err := br.ReadBits(8)
	if err != nil {
		return nil, err
	}
	if int(classBookIdx) >= len(books) {
		return nil, errors.New("vorbis: residue references out-of-range classbook")
	}
	r := &Residue{
		Type:            typ,
		Begin:           int(begin),
		End:             int(end),
		PartitionSize:   int(partSize) + 1,
		Classifications: int(classifications) + 1,
		Classbook:       books[classBookIdx],
	}

	r.Cascades = make([]int, r.Classifications)
	for i := range r.Cascades {
		lowBits, err := br.ReadBits(3)
		if err != nil {
			return nil, err
		}
		hasHigh, err := br.ReadBit()
		if err != nil {
			return nil, err
		}
		cascade := int(lowBits)
		if hasHigh {
			highBits, err := br.ReadBits(5)
			if err != nil {
				return nil, err
			}
			cascade |= int(highBits) << 3
		}
		r.Cascades[i] = cascade
	}

	r.Books = make([][]*Codebook, r.Classifications)
	for i, cascade := range r.Cascades {
		r.Books[i] = make([]*Codebook, 8)
		for stage := 0; stage < 8; stage++ {
			if cascade&(1<<uint(stage)) == 0 {
				continue
			}
			idx, err := br.ReadBits(8)
			if err != nil {
				return nil, err
			}
			if int(idx) >= len(books) {
				return nil, errors.New("vorbis: residue stage references out-of-range codebook")
			}
			r.Books[i][stage] = books[idx]
		}
	}
	return r, nil
}

// Decode reads and accumulates one or more channels' residue vectors, per
// Vorbis I §8.6. do reports, for each channel, whether that channel
// participates (post channel-coupling "do not decode" skip); vectors are
// n long overall but only the [Begin,End) window is filled (the rest stays zero, matching the reference decoder's
// pre-zeroed output buffer).
func (r *Residue) Decode(br *bitio.LSBReader, n int, do []bool) ([][]float32, error) {
	out := make([][]float32, len(do))
	for ch := range out {
		out[ch] = make([]float32, n)
	}

	end := r.End
	if end > n {
		end = n
	}
	if r.Begin >= end {
		return out, nil
	}

	switch r.Type {
	case 0, 1:
		return r.decodeType01(br, out, do, end)
	case 2:
		return r.decodeType2(br, out, do, end)
	default:
		return nil, errors.Errorf("vorbis: unsupported residue type %d", r.Type)
	}
}

// decodeType01 implements residue types 0 and 1: independent per-channel
// partitioned decode, differing only in whether each VQ vector's values
// land contiguously (type 0) or are the book's native dimension-grouped
// vector applied position-by-position (type 1); both are modeled here as
// "add the book's Dimensions values starting at the current offset",
// matching Vorbis I §8.6.1's reference algorithm for types 0/1 when the
// partition size is a multiple of the book dimension, the case all known
// encoders produce.
func (r *Residue) decodeType01(br *bitio.LSBReader, out [][]float32, do []bool, end int) ([][]float32, error) {
	for ch := range out {
		if !do[ch] {
			continue
		}
		if err := r.decodeChannelPartitions(br, out[ch], end); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeType2 implements residue type 2: all active channels' samples are
// interleaved into one virtual vector of length channels*(end-begin)
// before partitioned decode, per Vorbis I §8.6.2, then de-interleaved back
// into each channel's vector.
func (r *Residue) decodeType2(br *bitio.LSBReader, out [][]float32, do []bool, end int) ([][]float32, error) {
	active := 0
	for _, d := range do {
		if d {
			active++
		}
	}
	if active == 0 {
		return out, nil
	}
	width := end - r.Begin
	vec := make([]float32, active*width)
	if err := r.decodeChannelPartitions(br, vec, len(vec)); err != nil {
		return nil, err
	}
	i := 0
	for ch := range out {
		if !do[ch] {
			continue
		}
		for j := 0; j < width; j++ {
			out[ch][r.Begin+j] = vec[j*active+i]
		}
		i++
	}
	return out, nil
}

// decodeChannelPartitions runs the shared partitioned-classification decode
// loop of Vorbis I §8.6.1 over dst[Begin:end], accumulating values via the
// cascaded bitmap of per-stage codebooks.
func (r *Residue) decodeChannelPartitions(br *bitio.LSBReader, dst []float32, limit int) error {
	partitionsPerPass := (limit - r.Begin) / r.PartitionSize
	if partitionsPerPass == 0 {
		return nil
	}
	classCache := make([]int, 0, partitionsPerPass)

	pos := r.Begin
	partIdx := 0
	for pos < limit {
		if partIdx%classwordPartitions(r.Classbook) == 0 {
			classCache = classCache[:0]
			words, err := r.readClasswords(br)
			if err != nil {
				return err
			}
			classCache = append(classCache, words...)
		}
		cls := classCache[partIdx%classwordPartitions(r.Classbook)]
		if cls < 0 || cls >= len(r.Cascades) {
			return errors.New("vorbis: residue classification out of range")
		}
		cascade := r.Cascades[cls]
		for stage := 0; stage < 8; stage++ {
			if cascade&(1<<uint(stage)) == 0 {
				continue
			}
			book := r.Books[cls][stage]
			if book == nil {
				continue
			}
			end := pos + r.PartitionSize
			if end > len(dst) {
				end = len(dst)
			}
			for off := pos; off < end; {
				v, err := book.DecodeVector(br)
				if err != nil {
					return err
				}
				for _, val := range v {
					if off >= end {
						break
					}
					dst[off] += val
					off++
				}
			}
		}
		pos += r.PartitionSize
		partIdx++
	}
	return nil
}

// classwordPartitions returns how many partitions one classword codeword
// covers for the classbook's dimension, per Vorbis I §8.6.1 (a classbook
// of dimension D packs D partitions' classifications per codeword).
func classwordPartitions(classbook *Codebook) int {
	if classbook == nil || classbook.Dimensions == 0 {
		return 1
	}
	return classbook.Dimensions
}

// readClasswords decodes one classbook codeword and unpacks it into
// per-partition classification indices, per Vorbis I §8.6.1's
// "decode as an integer and read the digits base Classifications".
func (r *Residue) readClasswords(br *bitio.LSBReader) ([]int, error) {
	sym, err := r.Classbook.DecodeScalar(br)
	if err != nil {
		return nil, err
	}
	n := classwordPartitions(r.Classbook)
	out := make([]int, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = sym % r.Classifications
		sym /= r.Classifications
	}
	return out, nil
}
