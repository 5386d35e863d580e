package search

import (
	"strings"
	"unicode"
)

// Segment is a run of text that either matched the query or did not.
type Segment struct {
	Text  string
	Match bool
}

// Highlight splits text into segments, marking every case-insensitive
// occurrence of query. The query is matched literally. Matches are found
// left to right and never overlap. An empty query yields the whole text as
// a single unmatched segment.
func Highlight(text, query string) []Segment {
	if text == "" {
		return nil
	}
	if query == "" {
		return []Segment{{Text: text}}
	}

	t := []rune(text)
	q := []rune(query)

	var segments []Segment
	start := 0 // first rune of the pending unmatched run
	for i := 0; i+len(q) <= len(t); {
		if !matchAt(t, q, i) {
			i++
			continue
		}
		if start < i {
			segments = append(segments, Segment{Text: string(t[start:i])})
		}
		segments = append(segments, Segment{Text: string(t[i : i+len(q)]), Match: true})
		i += len(q)
		start = i
	}
	if start < len(t) {
		segments = append(segments, Segment{Text: string(t[start:])})
	}
	return segments
}

// Mark wraps every match of query in text with open and close.
func Mark(text, query, open, close string) string {
	if query == "" {
		return text
	}
	var b strings.Builder
	for _, s := range Highlight(text, query) {
		if s.Match {
			b.WriteString(open)
			b.WriteString(s.Text)
			b.WriteString(close)
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

func matchAt(t, q []rune, i int) bool {
	for j, r := range q {
		if !equalFold(t[i+j], r) {
			return false
		}
	}
	return true
}

// equalFold reports whether a and b are equal under simple Unicode case
// folding.
func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
