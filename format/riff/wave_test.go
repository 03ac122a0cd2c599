package riff

import (
	"bytes"
	"encoding/binary"
	"testing"

	waveaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/mewkiz/audiocore/core"
)

type fakeSource struct {
	*bytes.Reader
}

func (f fakeSource) Len() (int64, bool) { return f.Reader.Size(), true }

func newFakeSource(data []byte) core.MediaSource {
	return fakeSource{bytes.NewReader(data)}
}

// buildPCMWave assembles a minimal mono 16-bit-PCM "RIFF....WAVE" file
// around samples, for cross-checking this package's own chunk walker
// against go-audio/wav's independent decode of the same bytes.
func buildPCMWave(sampleRate uint32, samples []int16) []byte {
	var data bytes.Buffer
	for _, s := range samples {
		binary.Write(&data, binary.LittleEndian, s)
	}

	const bitsPerSample = 16
	channels := uint16(1)
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * uint32(blockAlign)

	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(1)) // PCM tag
	binary.Write(&fmtChunk, binary.LittleEndian, channels)
	binary.Write(&fmtChunk, binary.LittleEndian, sampleRate)
	binary.Write(&fmtChunk, binary.LittleEndian, byteRate)
	binary.Write(&fmtChunk, binary.LittleEndian, blockAlign)
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(bitsPerSample))

	var body bytes.Buffer
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(fmtChunk.Len()))
	body.Write(fmtChunk.Bytes())
	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(data.Len()))
	body.Write(data.Bytes())

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

// TestWaveMatchesGoAudioWavDecode cross-checks TryNewWAVE's own chunk walk
// against go-audio/wav's independent decoder on the same bytes: both must
// agree on the format parameters and the raw sample payload.
func TestWaveMatchesGoAudioWavDecode(t *testing.T) {
	samples := []int16{100, -100, 32000, -32000, 0, 1}
	raw := buildPCMWave(8000, samples)

	dec := wav.NewDecoder(bytes.NewReader(raw))
	if !dec.IsValidFile() {
		t.Fatal("go-audio/wav: not a valid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		t.Fatalf("go-audio/wav: FwdToPCM: %v", err)
	}
	buf := &waveaudio.IntBuffer{
		Format:         &waveaudio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)},
		Data:           make([]int, len(samples)),
		SourceBitDepth: int(dec.BitDepth),
	}
	n, err := dec.PCMBuffer(buf)
	if err != nil {
		t.Fatalf("go-audio/wav: PCMBuffer: %v", err)
	}
	if n != len(samples) {
		t.Fatalf("go-audio/wav decoded %d samples, want %d", n, len(samples))
	}
	for i, s := range samples {
		if buf.Data[i] != int(s) {
			t.Errorf("go-audio/wav sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}
	if dec.SampleRate != 8000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Fatalf("go-audio/wav header = %d Hz/%d ch/%d bit, want 8000/1/16",
			dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	fr, err := TryNewWAVE(newFakeSource(raw), core.FormatOptions{})
	if err != nil {
		t.Fatalf("TryNewWAVE: %v", err)
	}
	tracks := fr.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(tracks))
	}
	params := tracks[0].Params
	if params.SampleRate != dec.SampleRate || params.Channels != int(dec.NumChans) ||
		params.BitsPerSample != uint8(dec.BitDepth) {
		t.Fatalf("TryNewWAVE params = %+v, disagree with go-audio/wav header", params)
	}

	var got bytes.Buffer
	for {
		pkt, err := fr.NextPacket()
		if err == core.ErrEof {
			break
		}
		if err != nil {
			t.Fatalf("NextPacket: %v", err)
		}
		got.Write(pkt.Data)
	}
	want := raw[len(raw)-len(samples)*2:]
	if !bytes.Equal(got.Bytes(), want) {
		t.Errorf("demuxed PCM payload disagrees with the data chunk's raw bytes")
	}
}
