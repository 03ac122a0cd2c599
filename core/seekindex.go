package core

import "sort"

// SeekPoint is one entry of a SeekIndex, per spec §3.
type SeekPoint struct {
	// FrameTS is the timestamp, in track units, of the first frame in the
	// region this point describes.
	FrameTS uint64
	// ByteOffset is the byte offset, relative to the start of the track's
	// data region, of FrameTS.
	ByteOffset uint64
	// FramesInRegion is the number of frames spanned until the next point.
	FramesInRegion uint64
}

// SeekIndex is an ordered, strictly increasing (by FrameTS and ByteOffset)
// sequence of SeekPoints, per spec §3.
type SeekIndex struct {
	points []SeekPoint
}

// NewSeekIndex builds a SeekIndex from already-sorted points. Callers that
// build incrementally should use Insert instead.
func NewSeekIndex(points []SeekPoint) *SeekIndex {
	return &SeekIndex{points: points}
}

// Insert appends a point, maintaining ascending order. Callers are expected
// to insert in non-decreasing FrameTS order (the natural demux order); out
// of order inserts fall back to a binary search for the insertion point.
func (idx *SeekIndex) Insert(p SeekPoint) {
	n := len(idx.points)
	if n == 0 || idx.points[n-1].FrameTS <= p.FrameTS {
		idx.points = append(idx.points, p)
		return
	}
	i := sort.Search(n, func(i int) bool { return idx.points[i].FrameTS > p.FrameTS })
	idx.points = append(idx.points, SeekPoint{})
	copy(idx.points[i+1:], idx.points[i:])
	idx.points[i] = p
}

// Len reports the number of indexed points.
func (idx *SeekIndex) Len() int { return len(idx.points) }

// SearchResult is the outcome of a SeekIndex binary search, per spec §3.
type SearchResult struct {
	// Kind distinguishes which case applied.
	Kind SearchKind
	// Lo and Hi are populated for SearchRange; Point is populated for
	// SearchUpper/SearchLower.
	Lo, Hi SeekPoint
	Point  SeekPoint
}

// SearchKind enumerates the four binary-search outcomes from spec §3.
type SearchKind int

const (
	// SearchStream means the index is empty; the caller should scan the
	// whole stream.
	SearchStream SearchKind = iota
	// SearchUpper means the target precedes the first point.
	SearchUpper
	// SearchLower means the target is at or after the last point.
	SearchLower
	// SearchRange means the target lies in [Lo, Hi).
	SearchRange
)

// Search finds the seek point range containing ts.
func (idx *SeekIndex) Search(ts uint64) SearchResult {
	n := len(idx.points)
	if n == 0 {
		return SearchResult{Kind: SearchStream}
	}
	if ts < idx.points[0].FrameTS {
		return SearchResult{Kind: SearchUpper, Point: idx.points[0]}
	}
	if ts >= idx.points[n-1].FrameTS {
		return SearchResult{Kind: SearchLower, Point: idx.points[n-1]}
	}
	// Binary search for the largest i such that points[i].FrameTS <= ts.
	i := sort.Search(n, func(i int) bool { return idx.points[i].FrameTS > ts }) - 1
	return SearchResult{Kind: SearchRange, Lo: idx.points[i], Hi: idx.points[i+1]}
}
