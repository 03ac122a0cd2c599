package codec

import (
	"errors"
	"testing"

	"github.com/mewkiz/audiocore/core"
)

func TestRegistryDispatchesByCodec(t *testing.T) {
	r := NewRegistry()
	var got core.CodecParams
	r.Register("widget", func(params core.CodecParams, opts core.DecoderOptions) (core.AudioDecoder, error) {
		got = params
		return nil, nil
	})

	params := core.CodecParams{Codec: "widget", SampleRate: 48000}
	if _, err := r.NewDecoder(params, core.DecoderOptions{}); err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if got.SampleRate != 48000 {
		t.Errorf("constructor saw SampleRate = %d, want 48000", got.SampleRate)
	}
}

func TestRegistryUnknownCodecIsUnsupported(t *testing.T) {
	r := NewRegistry()
	_, err := r.NewDecoder(core.CodecParams{Codec: "made-up"}, core.DecoderOptions{})
	if err == nil {
		t.Fatal("expected an error for an unregistered codec")
	}
	var ce *core.Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected a *core.Error, got %T", err)
	}
	if ce.Kind() != core.KindUnsupported {
		t.Errorf("Kind() = %v, want KindUnsupported", ce.Kind())
	}
}

func TestDefaultRegistryKnowsEveryNativeCodec(t *testing.T) {
	r := NewDefaultRegistry()
	for _, id := range []string{"flac", "mp3", "mp2", "mp1", "vorbis", "pcm_s16le", "pcm_alaw", "pcm_mulaw"} {
		if _, ok := r.byCodec[id]; !ok {
			t.Errorf("default registry missing codec %q", id)
		}
	}
	for _, id := range []string{"opus", "wavpack", "dsd", "aac"} {
		if _, ok := r.byCodec[id]; ok {
			t.Errorf("default registry unexpectedly claims %q", id)
		}
	}
}
