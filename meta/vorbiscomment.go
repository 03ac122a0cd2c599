package meta

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/mewkiz/audiocore/core"
)

// ParseVorbisComment decodes a Vorbis comment block (FLAC's
// VORBIS_COMMENT metadata block body, or Ogg Vorbis/Opus's comment
// header payload) into the uniform tag model. Layout, grounded on
// mewkiz/flac/meta.go's VorbisComment parsing: a length-prefixed vendor
// string, a 32-bit comment count, then each comment as a length-prefixed
// "KEY=value" string, all integers little-endian.
func ParseVorbisComment(r io.Reader) (*core.MetadataLog, string, error) {
	vendor, err := readLPString(r)
	if err != nil {
		return nil, "", core.NewDecodeErrorf("meta: vorbis comment vendor string: %v", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, "", core.NewDecodeErrorf("meta: vorbis comment count: %v", err)
	}

	log := &core.MetadataLog{}
	for i := uint32(0); i < count; i++ {
		s, err := readLPString(r)
		if err != nil {
			return nil, "", core.NewDecodeErrorf("meta: vorbis comment %d: %v", i, err)
		}
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			continue
		}
		log.Tags = append(log.Tags, core.Tag{Key: strings.ToLower(key), Value: value})
	}
	return log, vendor, nil
}

func readLPString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
