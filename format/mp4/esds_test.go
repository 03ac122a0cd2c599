package mp4

import (
	"bytes"
	"testing"
)

// buildEsds assembles a minimal AAC-LC esds body: ES_Descriptor ->
// DecoderConfigDescriptor(objectTypeIndication=0x40) -> DecoderSpecificInfo
// carrying a 2-byte AudioSpecificConfig, grounded on the raw esds byte
// examples in shishobooks-shisho's mp4 reader tests.
func buildEsds(oti byte, asc []byte) []byte {
	var dsi bytes.Buffer
	dsi.WriteByte(tagDecoderSpecificDescr)
	dsi.WriteByte(byte(len(asc)))
	dsi.Write(asc)

	var dcd bytes.Buffer
	dcd.WriteByte(oti)
	dcd.Write(make([]byte, 12)) // streamType/bufferSizeDB/bitrates
	dcd.Write(dsi.Bytes())

	var dcdDescr bytes.Buffer
	dcdDescr.WriteByte(tagDecoderConfigDescr)
	dcdDescr.WriteByte(byte(dcd.Len()))
	dcdDescr.Write(dcd.Bytes())

	var es bytes.Buffer
	es.Write(make([]byte, 3)) // ES_ID + flags
	es.Write(dcdDescr.Bytes())

	var full bytes.Buffer
	full.Write(make([]byte, 4)) // FullBox version/flags
	full.WriteByte(tagESDescriptor)
	full.WriteByte(byte(es.Len()))
	full.Write(es.Bytes())
	return full.Bytes()
}

func TestParseEsdsAAC(t *testing.T) {
	asc := []byte{0x12, 0x10}
	body := buildEsds(otiMPEG4Audio, asc)
	codec, extra, ok := parseEsds(bytes.NewReader(body))
	if !ok {
		t.Fatal("parseEsds: ok = false")
	}
	if codec != "aac" {
		t.Errorf("codec = %q, want aac", codec)
	}
	if !bytes.Equal(extra, asc) {
		t.Errorf("extra = %v, want %v", extra, asc)
	}
}

func TestParseEsdsMP3(t *testing.T) {
	body := buildEsds(otiMP3A, nil)
	codec, _, ok := parseEsds(bytes.NewReader(body))
	if !ok {
		t.Fatal("parseEsds: ok = false")
	}
	if codec != "mp3" {
		t.Errorf("codec = %q, want mp3", codec)
	}
}

func TestReadDescHeaderMultiByteSize(t *testing.T) {
	// size 200 encoded across 2 continuation bytes: 0x81 0x48 (0x01<<7 | 0x48 = 200).
	buf := []byte{tagESDescriptor, 0x81, 0x48}
	tag, size, err := readDescHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("readDescHeader: %v", err)
	}
	if tag != tagESDescriptor {
		t.Errorf("tag = %#x, want %#x", tag, tagESDescriptor)
	}
	if size != 200 {
		t.Errorf("size = %d, want 200", size)
	}
}
