package mp4

import (
	"bytes"
	"io"
	"testing"
)

func TestReadBoxHeaderCompact(t *testing.T) {
	// A 16-byte "ftyp" box: size(4)=16, type(4)="ftyp", 8 bytes of body.
	buf := []byte{0x00, 0x00, 0x00, 0x10, 'f', 't', 'y', 'p', 1, 2, 3, 4, 5, 6, 7, 8}
	hdr, err := readBoxHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("readBoxHeader: %v", err)
	}
	if hdr.TypeString() != "ftyp" {
		t.Errorf("type = %q, want ftyp", hdr.TypeString())
	}
	if hdr.BodySize != 8 {
		t.Errorf("BodySize = %d, want 8", hdr.BodySize)
	}
	if hdr.HeaderSize != 8 {
		t.Errorf("HeaderSize = %d, want 8", hdr.HeaderSize)
	}
}

func TestReadBoxHeaderExtendedSize(t *testing.T) {
	// size==1 signals a 64-bit extended size field follows the type.
	buf := []byte{0x00, 0x00, 0x00, 0x01, 'm', 'd', 'a', 't',
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x18}
	hdr, err := readBoxHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("readBoxHeader: %v", err)
	}
	if hdr.HeaderSize != 16 {
		t.Errorf("HeaderSize = %d, want 16", hdr.HeaderSize)
	}
	if hdr.BodySize != 8 {
		t.Errorf("BodySize = %d, want 8", hdr.BodySize)
	}
}

func TestReadBoxHeaderToEndOfStream(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x00, 0x00, 'm', 'd', 'a', 't'}
	hdr, err := readBoxHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("readBoxHeader: %v", err)
	}
	if hdr.BodySize != -1 {
		t.Errorf("BodySize = %d, want -1", hdr.BodySize)
	}
}

func TestReadFullBoxVersion(t *testing.T) {
	buf := []byte{0x01, 0x00, 0x00, 0x2A}
	version, flags, err := readFullBoxVersion(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("readFullBoxVersion: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	if flags != 0x2A {
		t.Errorf("flags = %#x, want 0x2A", flags)
	}
}

func TestSkipBox(t *testing.T) {
	r := bytes.NewReader([]byte{1, 2, 3, 4, 5})
	if err := skipBox(r, 3); err != nil {
		t.Fatalf("skipBox: %v", err)
	}
	rest, _ := io.ReadAll(r)
	if !bytes.Equal(rest, []byte{4, 5}) {
		t.Errorf("remaining = %v, want [4 5]", rest)
	}
}
