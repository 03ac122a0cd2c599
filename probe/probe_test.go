package probe

import (
	"bytes"
	"io"
	"testing"

	"github.com/mewkiz/audiocore/core"
	"github.com/mewkiz/audiocore/internal/bitio"
)

type fakeSource struct {
	*bytes.Reader
}

func (f fakeSource) Len() (int64, bool) { return f.Reader.Size(), true }

func newFakeSource(data []byte) core.MediaSource {
	return fakeSource{bytes.NewReader(data)}
}

func TestProbeMatchesFLACMarker(t *testing.T) {
	r := NewRegistry()
	matched := false
	r.RegisterFormat(Descriptor{
		ShortName: "flac",
		Markers:   [][]byte{[]byte("fLaC")},
		New: func(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error) {
			matched = true
			return nil, nil
		},
	})

	data := append([]byte{0, 0, 0}, []byte("fLaC")...)
	src := newFakeSource(data)
	_, _, err := r.Probe(src, core.FormatOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Fatal("expected fLaC marker to match")
	}
	pos, _ := src.Seek(0, io.SeekCurrent)
	if pos != 3 {
		t.Fatalf("source not rewound to marker start: pos = %d, want 3", pos)
	}
}

// forwardOnlyReader is an io.Reader with no Seek method of its own, standing
// in for a network stream or pipe: probe.Probe only works over it when the
// caller wraps it in a bitio.BufferedSource.
type forwardOnlyReader struct {
	io.Reader
}

func TestProbeOverBufferedSource(t *testing.T) {
	r := NewRegistry()
	matched := false
	r.RegisterFormat(Descriptor{
		ShortName: "flac",
		Markers:   [][]byte{[]byte("fLaC")},
		New: func(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error) {
			matched = true
			return nil, nil
		},
	})

	data := append([]byte{0, 0, 0}, []byte("fLaC")...)
	src := bitio.NewBufferedSource(forwardOnlyReader{bytes.NewReader(data)}, 32)
	if _, _, err := r.Probe(src, core.FormatOptions{}); err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Fatal("expected fLaC marker to match over a forward-only reader")
	}
}

func TestProbeNoMatchIsUnsupported(t *testing.T) {
	r := NewRegistry()
	r.RegisterFormat(Descriptor{
		ShortName: "flac",
		Markers:   [][]byte{[]byte("fLaC")},
		New: func(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error) {
			return nil, nil
		},
	})
	src := newFakeSource(bytes.Repeat([]byte{0x00}, 64))
	_, _, err := r.Probe(src, core.FormatOptions{})
	if err == nil {
		t.Fatal("expected unsupported-format error")
	}
}
