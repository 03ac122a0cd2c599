// Package mpatables holds the fixed tables MPEG Audio Layer I/II/III
// decoding reads from: bitrate and sample-rate tables keyed by MPEG
// version and layer, scale-factor band boundaries for Layer III, and the
// x^(4/3) requantization table. Grounded on hajimehoshi/go-mp3's table
// package shape (header/tables and Layer III scalefactor band tables),
// read from the pack's other_examples retrieval for the MP3 source
// decoder reference, and cross-checked against the well-known ISO/IEC
// 11172-3 constants the format embeds.
package mpatables

import "math"

// Version identifies the MPEG Audio version a header declares.
type Version int

const (
	Version2_5 Version = iota
	VersionReserved
	Version2
	Version1
)

// Layer identifies the MPEG Audio layer a header declares.
type Layer int

const (
	LayerReserved Layer = iota
	Layer3
	Layer2
	Layer1
)

// bitrateTable maps [version][layer][index] to a bitrate in kbit/s; index 0
// is "free format" (caller must derive it from frame size) and index 15 is
// reserved (invalid). Layout mirrors ISO/IEC 11172-3 Table B.1/B.2.
var bitrateTableV1 = [3][16]int{
	// Layer I
	{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, -1},
	// Layer II
	{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, -1},
	// Layer III
	{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, -1},
}

var bitrateTableV2 = [3][16]int{
	// Layer I
	{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, -1},
	// Layer II and III share the same table in MPEG-2/2.5
	{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1},
	{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1},
}

// Bitrate returns the bitrate in kbit/s for the given version, layer, and
// 4-bit header index, or -1 if the index is reserved.
func Bitrate(v Version, l Layer, index int) int {
	if l == LayerReserved || index < 0 || index > 15 {
		return -1
	}
	li := int(Layer1 - l) // Layer1=0, Layer2=1, Layer3=2 in table order
	if v == Version1 {
		return bitrateTableV1[li][index]
	}
	return bitrateTableV2[li][index]
}

// sampleRateTable maps [version][index] to a sample rate in Hz.
var sampleRateTable = [4][4]int{
	{11025, 12000, 8000, -1},  // MPEG 2.5
	{-1, -1, -1, -1},          // reserved
	{22050, 24000, 16000, -1}, // MPEG 2
	{44100, 48000, 32000, -1}, // MPEG 1
}

// SampleRate returns the sample rate in Hz for the given version and 2-bit
// header index, or -1 if reserved.
func SampleRate(v Version, index int) int {
	if index < 0 || index > 3 {
		return -1
	}
	return sampleRateTable[v][index]
}

// SamplesPerFrame returns the number of PCM samples per channel encoded by
// one frame of the given version and layer.
func SamplesPerFrame(v Version, l Layer) int {
	switch l {
	case Layer1:
		return 384
	case Layer2:
		return 1152
	case Layer3:
		if v == Version1 {
			return 1152
		}
		return 576
	}
	return 0
}

// SideInfoSize returns the side information size in bytes for Layer III,
// depending on version and channel mode (mono vs. any multi-channel mode).
func SideInfoSize(v Version, mono bool) int {
	if v == Version1 {
		if mono {
			return 17
		}
		return 32
	}
	if mono {
		return 9
	}
	return 17
}

// Pow43 is the precomputed requantization table: Pow43[i] = i^(4/3) for
// i in [0, 8206], used by Layer III requantization of Huffman-decoded
// magnitudes. Built at init with math.Pow rather than embedded as a
// literal table: the values are exactly reproducible from the formula and
// an 8207-entry literal would add bulk without changing behavior.
var Pow43 [8207]float64

func init() {
	for i := range Pow43 {
		Pow43[i] = math.Pow(float64(i), 4.0/3.0)
	}
}

// ScaleFactorBandsLong gives the long-block scalefactor band start indices
// (22 bands, 23 boundaries) for Layer III, indexed by sample rate in Hz.
// Values are the standard ISO/IEC 11172-3 Table B.8 long-window bands.
var ScaleFactorBandsLong = map[int][]int{
	44100: {0, 4, 8, 12, 16, 20, 24, 30, 36, 44, 52, 62, 74, 90, 110, 134, 162, 196, 238, 288, 342, 418, 576},
	48000: {0, 4, 8, 12, 16, 20, 24, 30, 36, 42, 50, 60, 72, 88, 106, 128, 156, 190, 230, 276, 330, 384, 576},
	32000: {0, 4, 8, 12, 16, 20, 24, 30, 36, 44, 54, 66, 82, 102, 126, 156, 194, 240, 296, 364, 448, 550, 576},
	22050: {0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 116, 140, 168, 200, 238, 284, 336, 396, 464, 522, 576},
	24000: {0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 114, 136, 162, 194, 232, 278, 332, 394, 464, 540, 576},
	16000: {0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 116, 140, 168, 200, 238, 284, 336, 396, 464, 522, 576},
	11025: {0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 116, 140, 168, 200, 238, 284, 336, 396, 464, 522, 576},
	12000: {0, 6, 12, 18, 24, 30, 36, 44, 54, 66, 80, 96, 116, 140, 168, 200, 238, 284, 336, 396, 464, 522, 576},
	8000:  {0, 12, 24, 36, 48, 60, 72, 88, 108, 132, 160, 192, 232, 280, 336, 400, 476, 566, 568, 570, 572, 574, 576},
}

// ScaleFactorBandsShort gives the short-block scalefactor band start
// indices (13 bands, 14 boundaries, per 192-sample window) for Layer III,
// indexed by sample rate in Hz, per ISO/IEC 11172-3 Table B.8 short-window
// bands.
var ScaleFactorBandsShort = map[int][]int{
	44100: {0, 4, 8, 12, 16, 22, 30, 40, 52, 66, 84, 106, 136, 192},
	48000: {0, 4, 8, 12, 16, 22, 28, 38, 50, 64, 80, 100, 126, 192},
	32000: {0, 4, 8, 12, 16, 22, 30, 42, 58, 78, 104, 138, 180, 192},
	22050: {0, 4, 8, 12, 18, 24, 32, 42, 56, 74, 100, 132, 174, 192},
	24000: {0, 4, 8, 12, 18, 26, 36, 48, 62, 80, 104, 136, 180, 192},
	16000: {0, 4, 8, 12, 18, 26, 36, 48, 62, 80, 104, 134, 174, 192},
	11025: {0, 4, 8, 12, 18, 26, 36, 48, 62, 80, 104, 134, 174, 192},
	12000: {0, 4, 8, 12, 18, 26, 36, 48, 62, 80, 104, 134, 174, 192},
	8000:  {0, 8, 16, 24, 36, 52, 72, 96, 124, 160, 162, 164, 166, 192},
}
