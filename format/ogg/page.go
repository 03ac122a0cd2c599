// Package ogg implements the Ogg container demuxer, per spec §4.1.3: pages
// self-delimited by the "OggS" marker with a CRC-32 (checksum field
// zeroed during verification), assembled per logical stream into packets
// by the <255-terminates/255-continues segment table convention, with
// stream discovery reading first pages until a non-first page appears and
// handing each stream's identification packet to a codec mapper (Vorbis,
// Opus).
//
// Page parsing and the CRC-32-with-field-zeroed verification are grounded
// on the pack's other_examples Ogg/Vorbis tag reader
// (zeozeozeo-tag/ogg.go): same header layout, same table-driven CRC
// construction, generalized here from a one-shot metadata scan into a
// stateful per-logical-stream packet assembler feeding the core.Packet
// pipeline instead of a tag reader.
package ogg

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/internal/checksum"
)

// Marker is the four-byte page capture pattern.
var Marker = []byte("OggS")

// Page flag bits, per spec §4.1.3.
const (
	flagContinuation = 1 << 0
	flagFirstPage    = 1 << 1
	flagLastPage     = 1 << 2
)

// page is one parsed Ogg page.
type page struct {
	version        uint8
	continuation   bool
	firstPage      bool
	lastPage       bool
	granulePos     uint64
	serial         uint32
	sequence       uint32
	segmentTable   []byte
	payload        []byte
}

// readPage reads and CRC-verifies one page from r. On a CRC mismatch it
// still returns the parsed page alongside ErrCRCMismatch so the caller can
// apply spec §7's "reset the offending logical stream and continue"
// recovery without re-parsing.
func readPage(r io.Reader) (*page, error) {
	var hdr [27]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != "OggS" {
		return nil, errors.New("ogg: missing OggS capture pattern")
	}
	version := hdr[4]
	if version != 0 {
		return nil, errors.Errorf("ogg: unsupported page version %d", version)
	}
	flags := hdr[5]
	if flags&^(flagContinuation|flagFirstPage|flagLastPage) != 0 {
		return nil, errors.New("ogg: reserved page flag bits set")
	}
	granule := binary.LittleEndian.Uint64(hdr[6:14])
	serial := binary.LittleEndian.Uint32(hdr[14:18])
	sequence := binary.LittleEndian.Uint32(hdr[18:22])
	crcField := binary.LittleEndian.Uint32(hdr[22:26])
	nSegments := int(hdr[26])

	segTable := make([]byte, nSegments)
	if _, err := io.ReadFull(r, segTable); err != nil {
		return nil, err
	}
	var payloadLen int
	for _, s := range segTable {
		payloadLen += int(s)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	crc := checksum.NewCRC32()
	zeroed := make([]byte, 27)
	copy(zeroed, hdr[:])
	zeroed[22], zeroed[23], zeroed[24], zeroed[25] = 0, 0, 0, 0
	crc.Write(zeroed)
	crc.Write(segTable)
	crc.Write(payload)

	p := &page{
		version:      version,
		continuation: flags&flagContinuation != 0,
		firstPage:    flags&flagFirstPage != 0,
		lastPage:     flags&flagLastPage != 0,
		granulePos:   granule,
		serial:       serial,
		sequence:     sequence,
		segmentTable: segTable,
		payload:      payload,
	}
	if crc.Sum() != crcField {
		return p, errCRCMismatch
	}
	return p, nil
}

// errCRCMismatch is returned alongside a still-usable page when its CRC-32
// does not match, per spec §7: the caller resets the logical stream's
// packet buffer and reports one DecodeError, then continues.
var errCRCMismatch = errors.New("ogg: crc failure")
