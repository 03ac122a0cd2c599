package core

import "github.com/mewkiz/audiocore/buffer"

// DecoderOptions configures Decoder construction, per spec §6.
type DecoderOptions struct {
	// Verify enables MD5 verification in FLAC. Default false.
	Verify bool
}

// AudioDecoder decodes Packets belonging to a single Track into AudioBuffers,
// per spec §4.4. The returned buffer is owned by the decoder and reused
// across calls to Decode; its contents are valid only until the next call.
type AudioDecoder interface {
	// Decode decodes one packet and returns the decoder's reused sample
	// buffer.
	Decode(pkt *Packet) (*buffer.AudioBuffer, error)
	// Reset clears any carry state (bit reservoir, IMDCT overlap, Vorbis
	// window memory). Required after a seek, per spec §5 Cancellation.
	Reset()
	// CodecParams returns the parameters the decoder was constructed with.
	CodecParams() CodecParams
	// LastDecoded returns the buffer produced by the most recent Decode
	// call, or nil if Decode has not yet been called.
	LastDecoded() *buffer.AudioBuffer
}
