package ogg

import "github.com/mewkiz/audiocore/internal/xlog"

// maxLogicalBuffer is the 256 MiB hard cap on a logical stream's
// accumulated packet buffer, per spec §4.1.3/§5 Memory discipline.
const maxLogicalBuffer = 256 << 20

// growIncrement is the buffer growth step spec §4.1.3 names.
const growIncrement = 8 << 10

// logicalStream owns one Ogg logical bitstream's growing packet-assembly
// buffer and the queue of completed packet boundaries within it, per spec
// §4.1.3.
type logicalStream struct {
	serial uint32

	buf         []byte   // growing assembly buffer
	bounds      []int    // completed packet end offsets into buf
	boundGranule []uint64 // page granule position each bound completed within
	granule     uint64   // last page's granule position
	sawBOS     bool
	sawEOS     bool
	codecName  string
	codecExtra []byte
	sampleRate uint32
	channels   int

	headerPacketsSeen int
}

// newLogicalStream starts tracking a new logical stream, identified by a
// first page.
func newLogicalStream(serial uint32) *logicalStream {
	return &logicalStream{serial: serial, buf: make([]byte, 0, growIncrement)}
}

// appendPage feeds one page's payload into the assembly buffer, splitting
// it into packets according to the segment table's <255-terminates,
// 255-continues convention. If the page is a continuation but the stream
// holds no partial packet (or vice versa), the partial data is discarded
// and a diagnostic logged, per spec §4.1.3.
func (ls *logicalStream) appendPage(p *page) {
	havePartial := len(ls.buf) > 0 && (len(ls.bounds) == 0 || ls.bounds[len(ls.bounds)-1] < len(ls.buf))
	dropLead := false
	if p.continuation != havePartial {
		xlog.Printf("ogg: stream %d: continuation flag %v does not match partial-packet state %v; discarding", ls.serial, p.continuation, havePartial)
		if p.continuation && !havePartial {
			// Nothing to continue: drop this page's first segment run.
			dropLead = true
		} else if !p.continuation && havePartial {
			// Orphaned partial packet from a prior page: discard it.
			ls.buf = ls.buf[:ls.lastBound()]
		}
	}

	if len(ls.buf)+len(p.payload) > maxLogicalBuffer {
		xlog.Printf("ogg: stream %d: packet buffer would exceed %d byte cap; dropping page", ls.serial, maxLogicalBuffer)
		return
	}

	off := 0
	for _, seg := range p.segmentTable {
		if dropLead {
			off += int(seg)
			if seg < 255 {
				dropLead = false
			}
			continue
		}
		ls.buf = append(ls.buf, p.payload[off:off+int(seg)]...)
		off += int(seg)
		if seg < 255 {
			ls.bounds = append(ls.bounds, len(ls.buf))
			ls.boundGranule = append(ls.boundGranule, p.granulePos)
		}
	}
	ls.granule = p.granulePos
	if p.lastPage {
		ls.sawEOS = true
	}
}

func (ls *logicalStream) lastBound() int {
	if len(ls.bounds) == 0 {
		return 0
	}
	return ls.bounds[len(ls.bounds)-1]
}

// hasPacket reports whether a complete packet is queued.
func (ls *logicalStream) hasPacket() bool { return len(ls.bounds) > 0 }

// popPacket dequeues the oldest complete packet and compacts the assembly
// buffer, per spec §4.1.3 ("the packet buffer is compacted when reads
// drain its head").
func (ls *logicalStream) popPacket() ([]byte, uint64) {
	end := ls.bounds[0]
	granule := ls.boundGranule[0]
	pkt := make([]byte, end)
	copy(pkt, ls.buf[:end])

	remaining := len(ls.buf) - end
	copy(ls.buf, ls.buf[end:])
	ls.buf = ls.buf[:remaining]

	ls.bounds = ls.bounds[1:]
	ls.boundGranule = ls.boundGranule[1:]
	for i := range ls.bounds {
		ls.bounds[i] -= end
	}
	return pkt, granule
}

// resetOnCRCFailure discards all buffered, not-yet-delivered data, per
// spec §7's Ogg checksum-mismatch recovery.
func (ls *logicalStream) resetOnCRCFailure() {
	ls.buf = ls.buf[:0]
	ls.bounds = ls.bounds[:0]
	ls.boundGranule = ls.boundGranule[:0]
}
