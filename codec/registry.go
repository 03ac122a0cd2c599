// Package codec holds a process-wide registry mapping a Track's
// CodecParams.Codec identifier to the constructor for the AudioDecoder
// that claims it, per spec §9's "the default codec and format registries
// are process-wide only as a convenience" (format/probe's analogous
// Registry is the other half of that sentence).
//
// The registry/dispatch shape is grounded on the pack's retrieved resona
// codec package's RegisterFormat pattern
// (codec.RegisterFormat("wav", magic, NewDecoder), in
// other_examples/..._codec-wav-decoder.go.go), generalized from a
// magic-prefixed container registry to a codec-string-keyed one, since
// decoder construction dispatches on CodecParams.Codec rather than a byte
// marker.
package codec

import (
	"github.com/pkg/errors"

	"github.com/mewkiz/audiocore/core"
)

// NewDecoderFunc constructs the AudioDecoder for one Track, given its
// CodecParams and the caller's DecoderOptions.
type NewDecoderFunc func(params core.CodecParams, opts core.DecoderOptions) (core.AudioDecoder, error)

// Registry maps codec identifiers to their decoder constructor.
type Registry struct {
	byCodec map[string]NewDecoderFunc
}

// NewRegistry returns an empty Registry; most callers want Default instead.
func NewRegistry() *Registry {
	return &Registry{byCodec: make(map[string]NewDecoderFunc)}
}

// Register associates a codec identifier with its decoder constructor.
// A later call for the same identifier replaces the earlier one.
func (r *Registry) Register(codecID string, fn NewDecoderFunc) {
	r.byCodec[codecID] = fn
}

// NewDecoder constructs the decoder claiming params.Codec, or an
// Unsupported core.Error if no decoder in the registry claims it.
func (r *Registry) NewDecoder(params core.CodecParams, opts core.DecoderOptions) (core.AudioDecoder, error) {
	fn, ok := r.byCodec[params.Codec]
	if !ok {
		return nil, core.NewUnsupportedError("codec: no decoder registered for " + params.Codec)
	}
	dec, err := fn(params, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "codec: %s", params.Codec)
	}
	return dec, nil
}
