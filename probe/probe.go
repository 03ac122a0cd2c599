// Package probe implements container identification: a registry of byte
// markers backed by a two-byte-prefix Bloom filter, scanned over the first
// mebibyte of a source to find the one format reader that can handle it
// (spec §4.2). Metadata readers (ID3v2, APE) register markers too and are
// chained ahead of container detection: a metadata match is consumed and
// accumulated before probing resumes for the container proper.
//
// The registry/dispatch shape is grounded on the RegisterFormat pattern in
// the pack's other_examples WAV decoder
// (codec.RegisterFormat("wav", magic, NewDecoder)), generalized here to
// hold Bloom-filtered multi-byte markers instead of a single fixed magic,
// per spec §4.2's up-to-16-byte disambiguating markers.
package probe

import (
	"io"

	"github.com/mewkiz/audiocore/core"
)

const searchLimit = 1 << 20 // one mebibyte, per spec §4.2

// NewReaderFunc instantiates a FormatReader once a Descriptor's marker has
// matched and the source has been rewound to the marker's start.
type NewReaderFunc func(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, error)

// Descriptor is the static metadata a probeable format publishes, per
// spec §4.2/§6: `(short_name, long_name, extensions, mime_types,
// markers[])`.
type Descriptor struct {
	ShortName  string
	LongName   string
	Extensions []string
	MimeTypes  []string
	// Markers are 2..16 byte sequences; any one matching at the probe
	// cursor identifies the format.
	Markers [][]byte
	New     NewReaderFunc
}

// MetadataReaderFunc consumes a metadata block (ID3v2, APE) starting at the
// probe cursor and returns how many bytes it consumed plus the parsed tags,
// so probing can resume immediately after.
type MetadataReaderFunc func(src core.MediaSource) (consumed int64, log *core.MetadataLog, err error)

// MetadataDescriptor registers a chained metadata format.
type MetadataDescriptor struct {
	ShortName string
	Markers   [][]byte
	Read      MetadataReaderFunc
}

// Registry holds every registered container and metadata format.
type Registry struct {
	formats  []Descriptor
	metadata []MetadataDescriptor
	bloom    bloomFilter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterFormat adds a container format descriptor, folding its markers'
// two-byte prefixes into the Bloom filter.
func (r *Registry) RegisterFormat(d Descriptor) {
	r.formats = append(r.formats, d)
	for _, m := range d.Markers {
		if len(m) >= 2 {
			r.bloom.add(m[0], m[1])
		}
	}
}

// RegisterMetadata adds a chained metadata format descriptor.
func (r *Registry) RegisterMetadata(d MetadataDescriptor) {
	r.metadata = append(r.metadata, d)
	for _, m := range d.Markers {
		if len(m) >= 2 {
			r.bloom.add(m[0], m[1])
		}
	}
}

// Probe scans src for a recognized format, chaining through any metadata
// matches first, and returns the instantiated reader plus the accumulated
// metadata log from the chain.
func (r *Registry) Probe(src core.MediaSource, opts core.FormatOptions) (core.FormatReader, *core.MetadataLog, error) {
	accumulated := &core.MetadataLog{}
	if opts.ExternalMetadata != nil {
		accumulated.Tags = append(accumulated.Tags, opts.ExternalMetadata.Tags...)
		accumulated.Visuals = append(accumulated.Visuals, opts.ExternalMetadata.Visuals...)
	}

	var scanned int64
	for {
		d, consumed, mismatch := r.scan(src, &scanned)
		if mismatch != nil {
			return nil, nil, mismatch
		}
		if d == nil {
			return nil, nil, core.NewUnsupportedError("probe: no registered format matched within the search limit")
		}

		if md, ok := d.(*MetadataDescriptor); ok {
			n, log, err := md.Read(src)
			if err != nil {
				return nil, nil, err
			}
			scanned += n
			if log != nil {
				accumulated.Tags = append(accumulated.Tags, log.Tags...)
				accumulated.Visuals = append(accumulated.Visuals, log.Visuals...)
			}
			_ = consumed
			continue
		}

		fd := d.(*Descriptor)
		opts.ExternalMetadata = accumulated
		rd, err := fd.New(src, opts)
		if err != nil {
			return nil, nil, err
		}
		return rd, accumulated, nil
	}
}

// scan performs the byte-at-a-time Bloom-filtered marker search described
// in spec §4.2, returning either a *Descriptor or *MetadataDescriptor match
// (as interface{} to share one scan loop for both registries), or a nil
// match once the mebibyte search limit is exceeded.
func (r *Registry) scan(src core.MediaSource, scanned *int64) (match interface{}, consumed int64, err error) {
	ctx := make([]byte, 16)
	var window [2]byte
	haveFirst := false

	readByte := func() (byte, error) {
		var b [1]byte
		_, err := io.ReadFull(src, b[:])
		return b[0], err
	}

	for *scanned < searchLimit {
		b, rerr := readByte()
		if rerr != nil {
			if rerr == io.EOF {
				return nil, 0, nil
			}
			return nil, 0, core.NewIOError(rerr)
		}
		*scanned++

		if !haveFirst {
			window[0] = b
			haveFirst = true
			continue
		}
		window[1] = b

		if r.bloom.test(window[0], window[1]) {
			// Read up to 16 bytes of context starting at window[0]: rewind
			// two bytes (the window already consumed), read 16, then
			// compare against every registered marker.
			if _, serr := src.Seek(-2, io.SeekCurrent); serr != nil {
				return nil, 0, core.NewIOError(serr)
			}
			n, rerr2 := io.ReadFull(src, ctx)
			if rerr2 != nil && rerr2 != io.ErrUnexpectedEOF {
				return nil, 0, core.NewIOError(rerr2)
			}
			got := ctx[:n]

			if d := matchFormat(r.formats, got); d != nil {
				if _, serr := src.Seek(-int64(n), io.SeekCurrent); serr != nil {
					return nil, 0, core.NewIOError(serr)
				}
				return d, 0, nil
			}
			if md := matchMetadata(r.metadata, got); md != nil {
				if _, serr := src.Seek(-int64(n), io.SeekCurrent); serr != nil {
					return nil, 0, core.NewIOError(serr)
				}
				return md, 0, nil
			}

			// False positive: rewind to just after window[1] so the next
			// iteration re-slides by one byte.
			if _, serr := src.Seek(-int64(n)+2, io.SeekCurrent); serr != nil {
				return nil, 0, core.NewIOError(serr)
			}
			window[0] = window[1]
			continue
		}

		window[0] = window[1]
	}
	return nil, 0, nil
}

func matchFormat(formats []Descriptor, ctx []byte) *Descriptor {
	for i := range formats {
		for _, m := range formats[i].Markers {
			if len(ctx) >= len(m) && bytesEqual(ctx[:len(m)], m) {
				return &formats[i]
			}
		}
	}
	return nil
}

func matchMetadata(mds []MetadataDescriptor, ctx []byte) *MetadataDescriptor {
	for i := range mds {
		for _, m := range mds[i].Markers {
			if len(ctx) >= len(m) && bytesEqual(ctx[:len(m)], m) {
				return &mds[i]
			}
		}
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
