package mpa

import "testing"

func TestParseHeaderMPEG1Layer3Stereo128(t *testing.T) {
	// 0xFF 0xFB 0x90 0x64: MPEG-1, Layer III, no CRC, bitrate idx 9 (128
	// kbit/s), 44100 Hz, no padding, joint stereo.
	h, err := ParseHeader([]byte{0xFF, 0xFB, 0x90, 0x64})
	if err != nil {
		t.Fatal(err)
	}
	if h.SampleRate() != 44100 {
		t.Fatalf("SampleRate = %d, want 44100", h.SampleRate())
	}
	if h.Bitrate() != 128 {
		t.Fatalf("Bitrate = %d, want 128", h.Bitrate())
	}
	if h.NumChannels() != 2 {
		t.Fatalf("NumChannels = %d, want 2", h.NumChannels())
	}
	if h.Granules() != 2 {
		t.Fatalf("Granules = %d, want 2", h.Granules())
	}
	size, err := h.FrameSize()
	if err != nil {
		t.Fatal(err)
	}
	if size != 417 {
		t.Fatalf("FrameSize = %d, want 417", size)
	}
}

func TestParseHeaderRejectsMissingSync(t *testing.T) {
	if _, err := ParseHeader([]byte{0x00, 0xFB, 0x90, 0x64}); err == nil {
		t.Fatal("expected error for missing sync pattern")
	}
}

func TestParseHeaderRejectsReservedBitrate(t *testing.T) {
	if _, err := ParseHeader([]byte{0xFF, 0xFB, 0xF0, 0x64}); err == nil {
		t.Fatal("expected error for reserved bitrate index")
	}
}

func TestSideInfoSizeStereo(t *testing.T) {
	h, err := ParseHeader([]byte{0xFF, 0xFB, 0x90, 0x64})
	if err != nil {
		t.Fatal(err)
	}
	if got := h.SideInfoSize(); got != 32 {
		t.Fatalf("SideInfoSize (stereo) = %d, want 32", got)
	}
}
