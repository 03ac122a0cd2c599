package core

// Packet is one demuxed, undecoded unit belonging to exactly one Track, per
// spec §3. Per the note in spec §9, payloads are copied into an owned buffer
// sized to the packet rather than borrowed from the reader's internal
// window, since a typical audio packet is small (≤ 64 KiB) and this avoids
// self-referential reader/packet lifetimes entirely.
type Packet struct {
	// TrackID identifies the Track this packet belongs to.
	TrackID uint32
	// TS is the timestamp, in the track's TimeBase, of the first sample in
	// the packet.
	TS uint64
	// Dur is the packet's length in timebase units; 0 is permitted only
	// when duration is not derivable at the format layer.
	Dur uint64
	// Data is the packet's opaque encoded payload, owned by the caller once
	// returned from NextPacket.
	Data []byte
}

// CodecParams describes the parameters a Decoder needs to interpret a
// Track's packets. Not every field applies to every codec; zero values mean
// "unset".
type CodecParams struct {
	// Codec is the short codec identifier, e.g. "flac", "mp3", "vorbis",
	// "pcm_s16le".
	Codec string
	// SampleRate in Hz.
	SampleRate uint32
	// Channels is the channel count.
	Channels int
	// ChannelLayout optionally names the speaker layout; empty if unknown.
	ChannelLayout string
	// BitsPerSample is the nominal sample bit depth.
	BitsPerSample uint8
	// BitsPerCodedSample is the bit depth as coded on the wire, when it
	// differs from BitsPerSample (e.g. WavPack hybrid modes).
	BitsPerCodedSample uint8
	// NumFrames is the total number of decoded audio frames the track is
	// expected to produce, if known.
	NumFrames uint64
	// TimeBase is the track's timestamp timebase.
	TimeBase TimeBase
	// ExtraData carries codec-specific out-of-band configuration, e.g. a
	// Vorbis/Opus identification header or an MP4 "esds" box payload.
	ExtraData []byte
}

// Track is one logical elementary stream inside a container, per spec §3.
// ID is unique within a FormatReader for its lifetime.
type Track struct {
	ID       uint32
	Language string
	Params   CodecParams
}
