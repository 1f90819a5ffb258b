// Package citations handles the inline source citations carried by Amal
// evaluation narratives: parsing [n] tags out of narrative text, and
// upgrading homepage-level source URLs to deep links found in the
// evaluation's nested result objects.
package citations

import (
	"regexp"
	"strconv"
)

var tagPattern = regexp.MustCompile(`\[(\d+)\]`)

// SegmentKind distinguishes narrative text from citation references.
type SegmentKind string

// Segment kinds.
const (
	SegmentText     SegmentKind = "text"
	SegmentCitation SegmentKind = "citation"
)

// Segment is one piece of a parsed narrative. For citation segments, Index is
// the 1-based position in the evaluation's source list and Text is the
// original tag (e.g. "[3]"). Concatenating the Text of all segments yields
// the input narrative unchanged.
type Segment struct {
	Kind  SegmentKind `json:"kind"`
	Text  string      `json:"text"`
	Index int         `json:"index,omitempty"`
}

// ParseTags splits a narrative into text and citation segments. numSources is
// the length of the evaluation's source list: tags referencing zero or an
// index beyond it are not citations and stay literal text. Adjacent tags like
// "[1][2]" produce adjacent citation segments.
func ParseTags(narrative string, numSources int) []Segment {
	if narrative == "" {
		return nil
	}

	matches := tagPattern.FindAllStringSubmatchIndex(narrative, -1)
	if len(matches) == 0 {
		return []Segment{{Kind: SegmentText, Text: narrative}}
	}

	var segments []Segment
	appendText := func(s string) {
		if s == "" {
			return
		}
		// Literal runs merge with a preceding text segment so that rejected
		// tags don't fragment the narrative.
		if n := len(segments); n > 0 && segments[n-1].Kind == SegmentText {
			segments[n-1].Text += s
			return
		}
		segments = append(segments, Segment{Kind: SegmentText, Text: s})
	}

	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		index, err := strconv.Atoi(narrative[m[2]:m[3]])
		if err != nil || index < 1 || index > numSources {
			appendText(narrative[last:end])
			last = end
			continue
		}
		appendText(narrative[last:start])
		segments = append(segments, Segment{
			Kind:  SegmentCitation,
			Text:  narrative[start:end],
			Index: index,
		})
		last = end
	}
	appendText(narrative[last:])

	return segments
}
