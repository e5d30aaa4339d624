// Package citation resolves inline [n] markers in answer text against the
// source list delivered for that answer. Resolution is a pure function of
// (text, sources), so it can be re-run on every partial update while an
// answer is still streaming.
package citation

import (
	"regexp"
	"strconv"

	"github.com/daniss/Raggy-sub000/internal/model"
)

var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// Segment is one run of answer text. Either plain text (Source == nil) or a
// resolved citation marker carrying the referenced source. Unresolvable
// markers stay as plain text segments; surrounding text is never dropped.
type Segment struct {
	Text   string
	Index  int // 1-based marker index, 0 for plain text
	Source *model.Source
}

// Reference is one resolved marker, in order of appearance. The same source
// may be referenced more than once.
type Reference struct {
	Index     int
	Source    model.Source
	Excerpt   string
	Relevance float64
}

// Split cuts text into plain segments and resolved citation markers. A marker
// [k] resolves to sources[k-1] when 1 <= k <= len(sources); any other k,
// including 0, leaves the marker as literal text.
func Split(text string, sources []model.Source) []Segment {
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		if text == "" {
			return nil
		}
		return []Segment{{Text: text}}
	}

	var segments []Segment
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > last {
			segments = append(segments, Segment{Text: text[last:start]})
		}

		idx, src := resolve(text[m[2]:m[3]], sources)
		if src != nil {
			segments = append(segments, Segment{Text: text[start:end], Index: idx, Source: src})
		} else {
			segments = append(segments, Segment{Text: text[start:end]})
		}
		last = end
	}
	if last < len(text) {
		segments = append(segments, Segment{Text: text[last:]})
	}

	return segments
}

// References returns the resolved markers of text, in order of appearance.
func References(text string, sources []model.Source) []Reference {
	var refs []Reference
	for _, seg := range Split(text, sources) {
		if seg.Source == nil {
			continue
		}
		refs = append(refs, Reference{
			Index:     seg.Index,
			Source:    *seg.Source,
			Excerpt:   seg.Source.Excerpt,
			Relevance: seg.Source.Relevance,
		})
	}
	return refs
}

func resolve(digits string, sources []model.Source) (int, *model.Source) {
	idx, err := strconv.Atoi(digits)
	if err != nil || idx < 1 || idx > len(sources) {
		// Out-of-range markers are "not found", not an error.
		return 0, nil
	}
	src := sources[idx-1]
	return idx, &src
}
