package mkv

import (
	"bytes"
	"testing"
)

func TestReadVintSize(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint64
	}{
		{"1-byte", []byte{0x82}, 2},
		{"2-byte", []byte{0x40, 0x02}, 2},
		{"4-byte", []byte{0x10, 0x00, 0x00, 0x02}, 2},
		{"unknown size (1 byte all-ones)", []byte{0xFF}, unknownSize},
		{"unknown size (8 byte all-ones)", []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, unknownSize},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, width, err := readVint(bytes.NewReader(tc.in), false)
			if err != nil {
				t.Fatalf("readVint: %v", err)
			}
			if width != len(tc.in) {
				t.Errorf("width = %d, want %d", width, len(tc.in))
			}
			if got != tc.want {
				t.Errorf("value = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestReadVintID(t *testing.T) {
	// The Segment element ID, 0x18538067, is a 4-byte ID; the marker bit
	// must be preserved in the returned value since IDs compare
	// byte-for-byte including their width marker.
	in := []byte{0x18, 0x53, 0x80, 0x67}
	got, width, err := readVint(bytes.NewReader(in), true)
	if err != nil {
		t.Fatalf("readVint: %v", err)
	}
	if width != 4 {
		t.Fatalf("width = %d, want 4", width)
	}
	if got != idSegment {
		t.Fatalf("value = %#x, want %#x", got, idSegment)
	}
}

func TestElemHeaderRoundTrip(t *testing.T) {
	// TrackNumber element (ID 0xD7, 1-byte size vint encoding 1) followed
	// by its single payload byte.
	in := []byte{0xD7, 0x81, 0x01}
	hdr, err := readElemHeader(bytes.NewReader(in))
	if err != nil {
		t.Fatalf("readElemHeader: %v", err)
	}
	if hdr.ID != idTrackNumber {
		t.Errorf("ID = %#x, want %#x", hdr.ID, idTrackNumber)
	}
	if hdr.Size != 1 {
		t.Errorf("Size = %d, want 1", hdr.Size)
	}
	if hdr.HeaderSize != 2 {
		t.Errorf("HeaderSize = %d, want 2", hdr.HeaderSize)
	}
}

func TestByteCursorFixedLacing(t *testing.T) {
	// Two equal-size frames packed back to back after a frame-count byte
	// of 1 (meaning 2 frames).
	buf := []byte{0x01, 0xAA, 0xBB, 0xCC, 0xDD}
	c := newByteCursor(buf)
	frames, err := c.fixedLaced()
	if err != nil {
		t.Fatalf("fixedLaced: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{0xAA, 0xBB}) || !bytes.Equal(frames[1], []byte{0xCC, 0xDD}) {
		t.Errorf("unexpected frame contents: %v", frames)
	}
}

func TestByteCursorXiphLacing(t *testing.T) {
	// 2 frames (count byte = 1): first frame size 255+10=265 encoded as
	// 0xFF 0x0A, frame data follows (265 + remainder bytes for frame 2).
	first := bytes.Repeat([]byte{0x01}, 265)
	second := bytes.Repeat([]byte{0x02}, 10)
	var buf bytes.Buffer
	buf.WriteByte(0x01)
	buf.WriteByte(0xFF)
	buf.WriteByte(0x0A)
	buf.Write(first)
	buf.Write(second)

	c := newByteCursor(buf.Bytes())
	frames, err := c.xiphLaced()
	if err != nil {
		t.Fatalf("xiphLaced: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if len(frames[0]) != 265 || len(frames[1]) != 10 {
		t.Errorf("frame sizes = %d, %d; want 265, 10", len(frames[0]), len(frames[1]))
	}
}
