package mpa

import (
	"bytes"

	"github.com/mewkiz/audiocore/internal/bitio"
	"github.com/mewkiz/audiocore/internal/mpatables"
)

// SideInfo is Layer III side information for every granule/channel of one
// frame, per ISO/IEC 11172-3 §2.4.1.7, grounded on the pack's retrieved
// go-mp3 sideinfo.Read (other_examples/..._sideinfo.go): same field order
// and the same MPEG-1/MPEG-2 bit-width table (sideInfoBitsToRead there,
// bitsToRead here).
type SideInfo struct {
	MainDataBegin int
	Scfsi         [2][4]int // [channel][band], MPEG-1 only

	Part2And3Length  [2][2]int
	BigValues        [2][2]int
	GlobalGain       [2][2]int
	ScalefacCompress [2][2]int
	WinSwitchFlag    [2][2]int
	BlockType        [2][2]int
	MixedBlockFlag   [2][2]int
	TableSelect      [2][2][3]int
	SubblockGain     [2][2][3]int
	Region0Count     [2][2]int
	Region1Count     [2][2]int
	Preflag          [2][2]int
	ScalefacScale    [2][2]int
	Count1TableSelect [2][2]int
}

// bitsToRead holds, per [mpeg1|mpeg2], the bit widths of
// {mainDataBegin, privateBitsMono, privateBitsStereo, scalefacCompress}.
var bitsToRead = [2][4]int{
	{9, 5, 3, 4}, // MPEG-1
	{8, 1, 2, 9}, // MPEG-2/2.5
}

// ReadSideInfo parses Layer III side information from the bytes
// immediately following the frame header (and CRC, if present).
func ReadSideInfo(data []byte, h *Header) (*SideInfo, error) {
	br := bitio.NewReader(bytes.NewReader(data))
	mpeg1 := h.Version == mpatables.Version1
	bits := bitsToRead[1]
	if mpeg1 {
		bits = bitsToRead[0]
	}

	si := &SideInfo{}
	v, err := br.Read(uint(bits[0]))
	if err != nil {
		return nil, err
	}
	si.MainDataBegin = int(v)

	if h.Mode == ModeSingleChannel {
		if _, err := br.Read(uint(bits[1])); err != nil {
			return nil, err
		}
	} else {
		if _, err := br.Read(uint(bits[2])); err != nil {
			return nil, err
		}
	}

	nch := h.NumChannels()
	if mpeg1 {
		for ch := 0; ch < nch; ch++ {
			for band := 0; band < 4; band++ {
				v, err := br.Read(1)
				if err != nil {
					return nil, err
				}
				si.Scfsi[ch][band] = int(v)
			}
		}
	}

	for gr := 0; gr < h.Granules(); gr++ {
		for ch := 0; ch < nch; ch++ {
			v, err := br.Read(12)
			if err != nil {
				return nil, err
			}
			si.Part2And3Length[gr][ch] = int(v)

			v, err = br.Read(9)
			if err != nil {
				return nil, err
			}
			si.BigValues[gr][ch] = int(v)

			v, err = br.Read(8)
			if err != nil {
				return nil, err
			}
			si.GlobalGain[gr][ch] = int(v)

			v, err = br.Read(uint(bits[3]))
			if err != nil {
				return nil, err
			}
			si.ScalefacCompress[gr][ch] = int(v)

			v, err = br.Read(1)
			if err != nil {
				return nil, err
			}
			si.WinSwitchFlag[gr][ch] = int(v)

			if si.WinSwitchFlag[gr][ch] == 1 {
				v, err = br.Read(2)
				if err != nil {
					return nil, err
				}
				si.BlockType[gr][ch] = int(v)

				v, err = br.Read(1)
				if err != nil {
					return nil, err
				}
				si.MixedBlockFlag[gr][ch] = int(v)

				for r := 0; r < 2; r++ {
					v, err = br.Read(5)
					if err != nil {
						return nil, err
					}
					si.TableSelect[gr][ch][r] = int(v)
				}
				for w := 0; w < 3; w++ {
					v, err = br.Read(3)
					if err != nil {
						return nil, err
					}
					si.SubblockGain[gr][ch][w] = int(v)
				}

				if si.BlockType[gr][ch] == 2 && si.MixedBlockFlag[gr][ch] == 0 {
					si.Region0Count[gr][ch] = 8
				} else {
					si.Region0Count[gr][ch] = 7
				}
				si.Region1Count[gr][ch] = 20 - si.Region0Count[gr][ch]
			} else {
				for r := 0; r < 3; r++ {
					v, err = br.Read(5)
					if err != nil {
						return nil, err
					}
					si.TableSelect[gr][ch][r] = int(v)
				}
				v, err = br.Read(4)
				if err != nil {
					return nil, err
				}
				si.Region0Count[gr][ch] = int(v)

				v, err = br.Read(3)
				if err != nil {
					return nil, err
				}
				si.Region1Count[gr][ch] = int(v)
				si.BlockType[gr][ch] = 0
			}

			if mpeg1 {
				v, err = br.Read(1)
				if err != nil {
					return nil, err
				}
				si.Preflag[gr][ch] = int(v)
			}

			v, err = br.Read(1)
			if err != nil {
				return nil, err
			}
			si.ScalefacScale[gr][ch] = int(v)

			v, err = br.Read(1)
			if err != nil {
				return nil, err
			}
			si.Count1TableSelect[gr][ch] = int(v)
		}
	}
	return si, nil
}
