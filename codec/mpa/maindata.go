package mpa

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/internal/bitio"
	"github.com/mewkiz/audiocore/internal/mpatables"
)

// scalefacSizesMpeg1 maps scalefac_compress (0..15) to {slen1, slen2} bit
// widths, per ISO/IEC 11172-3 Table B.6, grounded on the pack's retrieved
// go-mp3 maindata.go (scalefacSizesMpeg1).
var scalefacSizesMpeg1 = [16][2]int{
	{0, 0}, {0, 1}, {0, 2}, {0, 3}, {3, 0}, {1, 1}, {1, 2}, {1, 3},
	{2, 1}, {2, 2}, {2, 3}, {3, 1}, {3, 2}, {3, 3}, {4, 2}, {4, 3},
}

// MainData is one frame's decoded Layer III main data, per ISO/IEC
// 11172-3 §2.4.1.7: per-granule, per-channel scale factors and the 576
// frequency lines those scale factors and Huffman-decoded magnitudes
// combine to dequantize.
type MainData struct {
	ScalefacL [2][2][21]int
	ScalefacS [2][2][12][3]int
	Is        [2][2][576]float32
	Count1    [2][2]int
}

// reservoir is the Layer III bit reservoir: bytes held across frames so a
// granule needing more bits than its own frame provides can borrow from
// previous frames' unused capacity, per spec §4.5's "bit reservoir" and
// grounded on go-mp3 maindata.go's read()/Tail() bit-reservoir assembly.
type reservoir struct {
	buf []byte
}

// feed appends frameBytes to the reservoir and returns a bit-level view
// positioned mainDataBegin bytes before the newly appended data, i.e. the
// window [len(prior)-mainDataBegin : len(prior)+len(frameBytes)).
func (res *reservoir) feed(frameBytes []byte, mainDataBegin int) (*bitio.Reader, error) {
	if mainDataBegin > len(res.buf) {
		// Not enough reservoir from previous frames: this frame's main
		// data cannot be decoded yet. Still append it so later frames
		// that reach back further have it available, per the grounding
		// source's "skip decoding but keep the bytes" handling.
		res.buf = append(res.buf, frameBytes...)
		res.trim()
		return nil, errNotEnoughReservoir
	}
	start := len(res.buf) - mainDataBegin
	window := append(append([]byte(nil), res.buf[start:]...), frameBytes...)
	res.buf = append(res.buf, frameBytes...)
	res.trim()
	return bitio.NewReader(&byteSliceReader{b: window}), nil
}

// trim bounds the reservoir to the largest main_data_begin value Layer
// III allows (2^9-1 bytes for MPEG-1), preventing unbounded growth.
func (res *reservoir) trim() {
	const maxBegin = 511
	if len(res.buf) > maxBegin {
		res.buf = res.buf[len(res.buf)-maxBegin:]
	}
}

var errNotEnoughReservoir = errors.New("mpa: insufficient bit reservoir data")

type byteSliceReader struct {
	b   []byte
	pos int
}

func (r *byteSliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

// readScaleFactors decodes one granule/channel's scale factors (MPEG-1
// only; MPEG-2/2.5's separate low-sample-rate scalefactor coding is not
// implemented, see DESIGN.md), per go-mp3 maindata.go's
// getScaleFactorsMpeg1, including the scfsi-based "reuse granule 0's
// bands in granule 1" shortcut.
func readScaleFactors(br *bitio.Reader, h *Header, si *SideInfo, md *MainData, gr, ch int) (bitsRead int, err error) {
	if h.Version != mpatables.Version1 {
		return 0, errors.New("mpa: MPEG-2/2.5 scale factor coding is not implemented")
	}
	slen1 := scalefacSizesMpeg1[si.ScalefacCompress[gr][ch]][0]
	slen2 := scalefacSizesMpeg1[si.ScalefacCompress[gr][ch]][1]
	start := 0

	readL := func(sfb int, nbits int) error {
		if nbits == 0 {
			md.ScalefacL[gr][ch][sfb] = 0
			return nil
		}
		v, err := br.Read(uint(nbits))
		if err != nil {
			return err
		}
		md.ScalefacL[gr][ch][sfb] = int(v)
		start += nbits
		return nil
	}
	readS := func(sfb, win int, nbits int) error {
		if nbits == 0 {
			md.ScalefacS[gr][ch][sfb][win] = 0
			return nil
		}
		v, err := br.Read(uint(nbits))
		if err != nil {
			return err
		}
		md.ScalefacS[gr][ch][sfb][win] = int(v)
		start += nbits
		return nil
	}

	if si.WinSwitchFlag[gr][ch] == 1 && si.BlockType[gr][ch] == 2 {
		if si.MixedBlockFlag[gr][ch] != 0 {
			for sfb := 0; sfb < 8; sfb++ {
				if err := readL(sfb, slen1); err != nil {
					return start, err
				}
			}
			for sfb := 3; sfb < 12; sfb++ {
				nbits := slen2
				if sfb < 6 {
					nbits = slen1
				}
				for win := 0; win < 3; win++ {
					if err := readS(sfb, win, nbits); err != nil {
						return start, err
					}
				}
			}
		} else {
			for sfb := 0; sfb < 12; sfb++ {
				nbits := slen2
				if sfb < 6 {
					nbits = slen1
				}
				for win := 0; win < 3; win++ {
					if err := readS(sfb, win, nbits); err != nil {
						return start, err
					}
				}
			}
		}
		return start, nil
	}

	bands := [][2]int{{0, 6}, {6, 11}, {11, 16}, {16, 21}}
	nbitsFor := []int{slen1, slen1, slen2, slen2}
	for i, band := range bands {
		reuse := gr == 1 && si.Scfsi[ch][i] == 1
		if reuse {
			for sfb := band[0]; sfb < band[1]; sfb++ {
				md.ScalefacL[1][ch][sfb] = md.ScalefacL[0][ch][sfb]
			}
			continue
		}
		for sfb := band[0]; sfb < band[1]; sfb++ {
			if err := readL(sfb, nbitsFor[i]); err != nil {
				return start, err
			}
		}
	}
	return start, nil
}
