package dsdiff

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func putChunkHeader(buf *bytes.Buffer, id string, size uint64) {
	buf.WriteString(id)
	var sz [8]byte
	binary.BigEndian.PutUint64(sz[:], size)
	buf.Write(sz[:])
}

func TestReadChunkHeader(t *testing.T) {
	var buf bytes.Buffer
	putChunkHeader(&buf, "FVER", 4)
	buf.Write([]byte{1, 5, 1, 2})

	h, err := readChunkHeader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("readChunkHeader: %v", err)
	}
	if string(h.ID[:]) != "FVER" {
		t.Errorf("ID = %q, want FVER", h.ID)
	}
	if h.Size != 4 {
		t.Errorf("Size = %d, want 4", h.Size)
	}
}

// buildProp assembles a minimal PROP/SND chunk body: propType "SND ",
// an FS chunk (sample rate), and a CHNL chunk (2 channels, two channel
// IDs), matching the nesting readProp expects.
func buildProp(sampleRate uint32, channels uint16) []byte {
	var body bytes.Buffer
	body.WriteString("SND ")

	var fs bytes.Buffer
	putChunkHeader(&fs, "FS  ", 4)
	var rateBuf [4]byte
	binary.BigEndian.PutUint32(rateBuf[:], sampleRate)
	fs.Write(rateBuf[:])
	body.Write(fs.Bytes())

	var chnl bytes.Buffer
	chnlBody := make([]byte, 2+int(channels)*4)
	binary.BigEndian.PutUint16(chnlBody[:2], channels)
	copy(chnlBody[2:6], []byte("SLFT"))
	if channels > 1 {
		copy(chnlBody[6:10], []byte("SRGT"))
	}
	putChunkHeader(&chnl, "CHNL", uint64(len(chnlBody)))
	chnl.Write(chnlBody)
	body.Write(chnl.Bytes())

	return body.Bytes()
}

func TestReadProp(t *testing.T) {
	propBody := buildProp(2822400, 2)
	sampleRate, channels, err := readProp(bytes.NewReader(propBody), int64(len(propBody)))
	if err != nil {
		t.Fatalf("readProp: %v", err)
	}
	if sampleRate != 2822400 {
		t.Errorf("sampleRate = %d, want 2822400", sampleRate)
	}
	if channels != 2 {
		t.Errorf("channels = %d, want 2", channels)
	}
}

func TestReadPropRejectsCompressed(t *testing.T) {
	var body bytes.Buffer
	body.WriteString("SND ")
	var cmpr bytes.Buffer
	cmprBody := append([]byte("DST "), byte(3), 'D', 'S', 'T')
	putChunkHeader(&cmpr, "CMPR", uint64(len(cmprBody)))
	cmpr.Write(cmprBody)
	body.Write(cmpr.Bytes())

	_, _, err := readProp(bytes.NewReader(body.Bytes()), int64(body.Len()))
	if err == nil {
		t.Fatal("expected an unsupported error for a compressed CMPR type")
	}
}
