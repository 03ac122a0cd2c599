// Package audiocore wires together the format readers in this module into
// one process-wide probe.Registry, per spec §4.2/§9: "default codec and
// format registries are process-wide only as a convenience" — a caller
// that wants a narrower or differently-ordered registry builds its own
// probe.Registry directly and registers only the formats it needs.
package audiocore

import (
	"sync"

	"github.com/mewkiz/audiocore/codec"
	"github.com/mewkiz/audiocore/core"
	"github.com/mewkiz/audiocore/format/dsdiff"
	"github.com/mewkiz/audiocore/format/flac"
	"github.com/mewkiz/audiocore/format/mkv"
	"github.com/mewkiz/audiocore/format/mp4"
	"github.com/mewkiz/audiocore/format/ogg"
	"github.com/mewkiz/audiocore/format/riff"
	"github.com/mewkiz/audiocore/format/wavpack"
	"github.com/mewkiz/audiocore/meta"
	"github.com/mewkiz/audiocore/probe"
)

var (
	defaultRegistry     *probe.Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide probe.Registry carrying every format
// reader this module implements, built once on first use.
func Default() *probe.Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewDefaultRegistry()
	})
	return defaultRegistry
}

// NewDefaultRegistry builds a fresh probe.Registry with every format
// reader this module implements registered under its native marker(s),
// per spec §4.2's format table.
func NewDefaultRegistry() *probe.Registry {
	r := probe.NewRegistry()

	// ID3v2 tags prepended to WAV/MP3/etc. streams are chained ahead of
	// container detection, per spec §4.2: a match here is consumed and
	// its tags accumulated before probing resumes for the container.
	r.RegisterMetadata(probe.MetadataDescriptor{
		ShortName: "id3v2",
		Markers:   meta.ID3v2Markers,
		Read: func(src core.MediaSource) (int64, *core.MetadataLog, error) {
			return meta.ReadID3v2(src)
		},
	})

	r.RegisterFormat(probe.Descriptor{
		ShortName:  "flac",
		LongName:   "Free Lossless Audio Codec",
		Extensions: []string{".flac"},
		MimeTypes:  []string{"audio/flac", "audio/x-flac"},
		Markers:    [][]byte{flac.Marker},
		New:        flac.TryNew,
	})
	r.RegisterFormat(probe.Descriptor{
		ShortName:  "wave",
		LongName:   "Waveform Audio File Format",
		Extensions: []string{".wav", ".wave"},
		MimeTypes:  []string{"audio/wav", "audio/x-wav", "audio/vnd.wave"},
		Markers:    [][]byte{riff.WaveMarker},
		New:        riff.TryNewWAVE,
	})
	r.RegisterFormat(probe.Descriptor{
		ShortName:  "aiff",
		LongName:   "Audio Interchange File Format",
		Extensions: []string{".aiff", ".aif", ".aifc"},
		MimeTypes:  []string{"audio/aiff", "audio/x-aiff"},
		Markers:    [][]byte{riff.AiffMarker},
		New:        riff.TryNewAIFF,
	})
	r.RegisterFormat(probe.Descriptor{
		ShortName:  "ogg",
		LongName:   "Ogg",
		Extensions: []string{".ogg", ".oga", ".opus"},
		MimeTypes:  []string{"audio/ogg", "audio/opus"},
		Markers:    [][]byte{ogg.Marker},
		New:        ogg.TryNew,
	})
	r.RegisterFormat(probe.Descriptor{
		ShortName:  "matroska",
		LongName:   "Matroska / WebM",
		Extensions: []string{".mka", ".mkv", ".webm"},
		MimeTypes:  []string{"audio/x-matroska", "audio/webm"},
		Markers:    [][]byte{mkv.Marker},
		New:        mkv.TryNew,
	})
	r.RegisterFormat(probe.Descriptor{
		ShortName:  "mp4",
		LongName:   "ISO Base Media File Format (MP4/M4A)",
		Extensions: []string{".mp4", ".m4a", ".m4b"},
		MimeTypes:  []string{"audio/mp4", "audio/x-m4a"},
		Markers:    [][]byte{mp4.Marker},
		New:        mp4.TryNew,
	})
	r.RegisterFormat(probe.Descriptor{
		ShortName:  "dsdiff",
		LongName:   "Philips DSDIFF",
		Extensions: []string{".dff"},
		MimeTypes:  []string{"audio/x-dff"},
		Markers:    [][]byte{dsdiff.Marker},
		New:        dsdiff.TryNew,
	})
	r.RegisterFormat(probe.Descriptor{
		ShortName:  "wavpack",
		LongName:   "WavPack",
		Extensions: []string{".wv"},
		MimeTypes:  []string{"audio/x-wavpack"},
		Markers:    [][]byte{wavpack.Marker},
		New:        wavpack.TryNew,
	})

	return r
}

// Probe identifies and opens src against the Default registry, per spec
// §4.2: the convenience entry point most callers reach for first.
func Probe(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, *core.MetadataLog, error) {
	return Default().Probe(src, opts)
}

// NewDecoder constructs the AudioDecoder claiming params.Codec against the
// process-wide codec.Default registry, the decode-side counterpart to
// Probe.
func NewDecoder(params core.CodecParams, opts core.DecoderOptions) (core.AudioDecoder, error) {
	return codec.Default().NewDecoder(params, opts)
}
