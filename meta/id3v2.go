// Package meta implements the uniform tag model populated from ID3v2 and
// Vorbis comment blocks (spec §2 Metadata, §4.2). ID3v2 parsing wraps
// github.com/bogem/id3v2/v2, the dependency go-musicfox vendors for the
// same purpose, rather than hand-parsing frames: ID3v2's frame set (text
// information frames, COMM, APIC, UFID, chapters) is large enough that
// reimplementing it would just reproduce that library with a narrower
// feature set.
package meta

import (
	"io"

	id3v2 "github.com/bogem/id3v2/v2"

	"github.com/mewkiz/audiocore/core"
)

// ID3v2Markers are the byte sequences that identify an ID3v2 header,
// registered with the probe registry as a chained metadata format
// (spec §4.2).
var ID3v2Markers = [][]byte{[]byte("ID3")}

// ReadID3v2 parses one ID3v2 tag starting at the current position of r and
// returns the uniform tag log plus the number of bytes consumed.
// audiocore.NewDefaultRegistry wraps it as the chained ID3v2 metadata
// reader; no format reader calls it.
func ReadID3v2(r io.Reader) (consumed int64, log *core.MetadataLog, err error) {
	cr := &countingReader{r: r}
	tag, err := id3v2.ParseReader(cr, id3v2.Options{Parse: true})
	if err != nil {
		return 0, nil, core.NewDecodeErrorf("meta: ID3v2 parse failed: %v", err)
	}

	out := &core.MetadataLog{}
	for id, frames := range tag.AllFrames() {
		for _, f := range frames {
			switch fr := f.(type) {
			case id3v2.TextFrame:
				out.Tags = append(out.Tags, core.Tag{Key: textFrameKey(id), Value: fr.Text})
			case id3v2.CommentFrame:
				out.Tags = append(out.Tags, core.Tag{Key: "comment", Value: fr.Text})
			case id3v2.PictureFrame:
				out.Visuals = append(out.Visuals, core.Visual{
					MediaType:   fr.MimeType,
					Data:        fr.Picture,
					Description: fr.Description,
				})
			}
		}
	}
	return cr.n, out, nil
}

// textFrameKey maps common ID3v2 frame IDs to lowercase tag keys matching
// the names Vorbis comments use for the same concept, so the uniform tag
// model reads the same regardless of which container supplied it.
func textFrameKey(id string) string {
	switch id {
	case "TIT2":
		return "title"
	case "TPE1":
		return "artist"
	case "TALB":
		return "album"
	case "TYER", "TDRC":
		return "date"
	case "TCON":
		return "genre"
	case "TRCK":
		return "tracknumber"
	default:
		return id
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
