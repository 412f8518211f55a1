// ABOUTME: Chunk represents a contiguous span of a document's normalized text
// ABOUTME: Chunks are the unit of embedding, retrieval, and citation
package models

import (
	"sort"
	"strings"
)

// Span is a half-open [Start, End) byte range into a document's normalized text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span length in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlap returns the number of bytes shared by two spans
func (s Span) Overlap(other Span) int {
	lo := max(s.Start, other.Start)
	hi := min(s.End, other.End)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Chunk is a bounded passage of a document
type Chunk struct {
	ID       string `json:"id"`
	Document string `json:"source_document"`
	Sequence int    `json:"sequence_index"`
	Text     string `json:"text"`
	// Span holds UTF-8 byte offsets into the normalized text, not character offsets
	Span Span `json:"char_span"`
}

// Reassemble rebuilds a document's normalized text from its chunks, dropping the
// overlapping prefix of every chunk after the first. Chunks may be in any order but
// must all come from the same document.
func Reassemble(chunks []Chunk) string {
	ordered := make([]Chunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	var b strings.Builder
	end := 0
	for i, c := range ordered {
		if i == 0 {
			b.WriteString(c.Text)
			end = c.Span.End
			continue
		}
		skip := end - c.Span.Start
		if skip < 0 {
			skip = 0
		}
		if skip < len(c.Text) {
			b.WriteString(c.Text[skip:])
		}
		end = c.Span.End
	}
	return b.String()
}
