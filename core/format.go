package core

// Visual is a picture associated with the media, e.g. cover art.
type Visual struct {
	MediaType   string
	Data        []byte
	Description string
}

// Tag is one uniform name/value metadata entry, populated by ID3v2 and
// Vorbis comment parsers alike (spec §2 Metadata, §4.2).
type Tag struct {
	Key   string
	Value string
}

// MetadataLog is the uniform tag model emitted by format readers.
type MetadataLog struct {
	Tags    []Tag
	Visuals []Visual
}

// Chapter marks a named point in the media timeline.
type Chapter struct {
	StartTS uint64
	Title   string
}

// FormatOptions configures FormatReader construction, per spec §6.
type FormatOptions struct {
	// EnableGapless elides encoder delay and padding for codecs that report
	// it (MPA, Vorbis); requires decoder cooperation. Default false.
	EnableGapless bool
	// ExternalChapters, when non-nil, seeds the reader's chapter list
	// instead of (or in addition to) any chapters found in-band.
	ExternalChapters []Chapter
	// ExternalMetadata, when non-nil, seeds the reader's metadata log with
	// a pre-parsed block, e.g. metadata the probe accumulated while
	// chaining through an ID3v2 header before the container itself.
	ExternalMetadata *MetadataLog
}

// SeekMode selects how a seek target is interpreted.
type SeekMode int

const (
	// SeekAccurate seeks to the packet containing the target timestamp.
	SeekAccurate SeekMode = iota
	// SeekCoarse permits landing on the nearest convenient seek point at
	// or before the target, trading accuracy for speed.
	SeekCoarse
)

// SeekedTo reports the outcome of a successful seek, per spec §4.3.
type SeekedTo struct {
	RequiredTS uint64
	ActualTS   uint64
	TrackID    uint32
}

// FormatReader demultiplexes packets out of a container, per spec §4.3. All
// implementations are single-threaded and synchronous (spec §5).
type FormatReader interface {
	// NextPacket returns the next packet in natural demux order, or
	// ErrEof at graceful end of stream (safe to call again).
	NextPacket() (*Packet, error)
	// Tracks returns the reader's logical tracks.
	Tracks() []Track
	// Metadata returns the accumulated metadata log.
	Metadata() *MetadataLog
	// Seek repositions the reader so the next NextPacket call for trackID
	// (or any track, if trackID is 0 and the container has one track)
	// returns a packet spanning targetTS. It invalidates any previously
	// returned but undecoded packet of the seeked track.
	Seek(mode SeekMode, targetTS uint64, trackID uint32) (SeekedTo, error)
	// IntoInner releases the reader's ownership of its MediaSource and
	// returns it to the caller.
	IntoInner() MediaSource
}
