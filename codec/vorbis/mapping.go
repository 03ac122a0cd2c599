package vorbis

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/internal/bitio"
)

// Coupling is one magnitude/angle channel-coupling step, per Vorbis I
// §8.4's "square polar" mapping.
type Coupling struct {
	Magnitude int
	Angle     int
}

// Mapping binds channels to submaps (each with its own floor and residue)
// and optional channel couplings, per Vorbis I §8.4.
type Mapping struct {
	Submaps   int
	Couplings []Coupling
	Mux       []int // per channel, submap index
	FloorNum  []int // per submap
	ResidueNum []int // per submap
}

// Mode selects a mapping and block size (long/short) for a frame, per
// Vorbis I §8.5.
type Mode struct {
	BlockFlag  bool
	MappingNum int
}

// Setup is a fully parsed Vorbis setup header: every codebook, floor,
// residue, mapping, and mode the stream's audio packets reference, per
// Vorbis I §8.
type Setup struct {
	Codebooks []*Codebook
	Floors    []Floor
	Residues  []*Residue
	Mappings  []*Mapping
	Modes     []*Mode
}

// ReadSetupHeader parses a Vorbis setup header packet (the third header
// packet), per Vorbis I §8. body must include the leading packet-type
// byte and "vorbis" sync; channels is needed to size coupling angle
// fields.
func ReadSetupHeader(body []byte, channels int) (*Setup, error) {
	if len(body) < 7 || body[0] != 5 || string(body[1:7]) != "vorbis" {
		return nil, errors.New("vorbis: invalid setup header")
	}
	br := bitio.NewLSBReader(bytes.NewReader(body[7:]))
	s := &Setup{}

	numBooks, err := br.ReadBits(8)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(numBooks)+1; i++ {
		cb, err := ReadCodebook(br)
		if err != nil {
			return nil, errors.Wrapf(err, "vorbis: codebook %d", i)
		}
		s.Codebooks = append(s.Codebooks, cb)
	}

	numTimeDomain, err := br.ReadBits(6)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(numTimeDomain)+1; i++ {
		v, err := br.ReadBits(16)
		if err != nil {
			return nil, err
		}
		if v != 0 {
			return nil, errors.New("vorbis: nonzero reserved time-domain transform")
		}
	}

	numFloors, err := br.ReadBits(6)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(numFloors)+1; i++ {
		typ, err := br.ReadBits(16)
		if err != nil {
			return nil, err
		}
		switch typ {
		case 0:
			f, err := ReadFloor0Setup(br, s.Codebooks)
			if err != nil {
				return nil, errors.Wrapf(err, "vorbis: floor %d", i)
			}
			s.Floors = append(s.Floors, f)
		case 1:
			f, err := ReadFloor1Setup(br, s.Codebooks)
			if err != nil {
				return nil, errors.Wrapf(err, "vorbis: floor %d", i)
			}
			s.Floors = append(s.Floors, f)
		default:
			return nil, errors.Errorf("vorbis: unsupported floor type %d", typ)
		}
	}

	numResidues, err := br.ReadBits(6)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(numResidues)+1; i++ {
		typ, err := br.ReadBits(16)
		if err != nil {
			return nil, err
		}
		if typ > 2 {
			return nil, errors.Errorf("vorbis: unsupported residue type %d", typ)
		}
		r, err := ReadResidueSetup(br, int(typ), s.Codebooks)
		if err != nil {
			return nil, errors.Wrapf(err, "vorbis: residue %d", i)
		}
		s.Residues = append(s.Residues, r)
	}

	numMappings, err := br.ReadBits(6)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(numMappings)+1; i++ {
		m, err := readMapping(br, channels)
		if err != nil {
			return nil, errors.Wrapf(err, "vorbis: mapping %d", i)
		}
		s.Mappings = append(s.Mappings, m)
	}

	numModes, err := br.ReadBits(6)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(numModes)+1; i++ {
		blockFlag, err := br.ReadBit()
		if err != nil {
			return nil, err
		}
		windowType, err := br.ReadBits(16)
		if err != nil {
			return nil, err
		}
		if windowType != 0 {
			return nil, errors.New("vorbis: unsupported mode window type")
		}
		transformType, err := br.ReadBits(16)
		if err != nil {
			return nil, err
		}
		if transformType != 0 {
			return nil, errors.New("vorbis: unsupported mode transform type")
		}
		mapNum, err := br.ReadBits(8)
		if err != nil {
			return nil, err
		}
		s.Modes = append(s.Modes, &Mode{BlockFlag: blockFlag, MappingNum: int(mapNum)})
	}

	return s, nil
}

func readMapping(br *bitio.LSBReader, channels int) (*Mapping, error) {
	typ, err := br.ReadBits(16)
	if err != nil {
		return nil, err
	}
	if typ != 0 {
		return nil, errors.Errorf("vorbis: unsupported mapping type %d", typ)
	}
	m := &Mapping{Submaps: 1}

	hasSubmaps, err := br.ReadBit()
	if err != nil {
		return nil, err
	}
	if hasSubmaps {
		n, err := br.ReadBits(4)
		if err != nil {
			return nil, err
		}
		m.Submaps = int(n) + 1
	}

	hasCoupling, err := br.ReadBit()
	if err != nil {
		return nil, err
	}
	if hasCoupling {
		steps, err := br.ReadBits(8)
		if err != nil {
			return nil, err
		}
		bits := uint8(bitsToRepresent(channels - 1))
		for i := 0; i < int(steps)+1; i++ {
			mag, err := br.ReadBits(bits)
			if err != nil {
				return nil, err
			}
			ang, err := br.ReadBits(bits)
			if err != nil {
				return nil, err
			}
			m.Couplings = append(m.Couplings, Coupling{Magnitude: int(mag), Angle: int(ang)})
		}
	}

	reserved, err := br.ReadBits(2)
	if err != nil {
		return nil, err
	}
	if reserved != 0 {
		return nil, errors.New("vorbis: nonzero reserved mapping bits")
	}

	m.Mux = make([]int, channels)
	if m.Submaps > 1 {
		for ch := range m.Mux {
			v, err := br.ReadBits(4)
			if err != nil {
				return nil, err
			}
			m.Mux[ch] = int(v)
		}
	}

	m.FloorNum = make([]int, m.Submaps)
	m.ResidueNum = make([]int, m.Submaps)
	for i := 0; i < m.Submaps; i++ {
		f, err := br.ReadBits(8)
		if err != nil {
			return nil, err
		}
		m.FloorNum[i] = int(f)
		r, err := br.ReadBits(8)
		if err != nil {
			return nil, err
		}
		m.ResidueNum[i] = int(r)
	}
	return m, nil
}
