package wavpack

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildBlock assembles one minimal WavPack block: a 32-byte fixed header
// followed by payload bytes, per the WavPack block format.
func buildBlock(blockSamples uint32, flags uint32, totalSamples uint32, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("wvpk")
	binary.Write(&buf, binary.LittleEndian, uint32(blockHeaderSize+len(payload))) // ckSize
	binary.Write(&buf, binary.LittleEndian, uint16(0x0410))                        // version
	buf.WriteByte(0) // track number
	buf.WriteByte(0) // index number
	binary.Write(&buf, binary.LittleEndian, totalSamples)
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // block_index
	binary.Write(&buf, binary.LittleEndian, blockSamples)
	binary.Write(&buf, binary.LittleEndian, flags)
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // crc
	buf.Write(payload)
	return buf.Bytes()
}

func TestReadBlockHeader(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	block := buildBlock(2, flagMono, 1000, payload)
	h, err := readBlockHeader(bytes.NewReader(block))
	if err != nil {
		t.Fatalf("readBlockHeader: %v", err)
	}
	if h.BlockSamples != 2 {
		t.Errorf("BlockSamples = %d, want 2", h.BlockSamples)
	}
	if h.TotalSamples != 1000 {
		t.Errorf("TotalSamples = %d, want 1000", h.TotalSamples)
	}
	if int64(h.BlockSize)-blockHeaderSize != int64(len(payload)) {
		t.Errorf("payload size = %d, want %d", int64(h.BlockSize)-blockHeaderSize, len(payload))
	}
}

func TestReadBlockHeaderRejectsBadMarker(t *testing.T) {
	_, err := readBlockHeader(bytes.NewReader([]byte("wvXX0000000000000000000000000000")))
	if err == nil {
		t.Fatal("expected an error for a non-wvpk marker")
	}
}

func TestBytesPerSampleAndChannels(t *testing.T) {
	if got := bytesPerSample(0x1); got != 2 {
		t.Errorf("bytesPerSample(0x1) = %d, want 2", got)
	}
	if got := channelsFor(flagMono); got != 1 {
		t.Errorf("channelsFor(mono) = %d, want 1", got)
	}
	if got := channelsFor(0); got != 2 {
		t.Errorf("channelsFor(stereo) = %d, want 2", got)
	}
}

func TestScanSampleRateKnownIndex(t *testing.T) {
	// index 9 -> 44100 Hz, per the WavPack sample-rate table.
	h := blockHeader{Flags: 9 << flagSampleRateShift}
	rate, err := scanSampleRate(nil, 0, h)
	if err != nil {
		t.Fatalf("scanSampleRate: %v", err)
	}
	if rate != 44100 {
		t.Errorf("rate = %d, want 44100", rate)
	}
}
