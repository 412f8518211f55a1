// ABOUTME: Chunker splits normalized document text into overlapping passages
// ABOUTME: Implements paragraph → line → sentence → word hierarchy with hard cuts as a last resort
package core

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/harper/study-standalone/internal/models"
)

// separatorLevels are tried in order; a separator stays attached to the text before it
var separatorLevels = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "? ", "! ", "; "},
	{" "},
}

// Chunker handles hierarchical text chunking
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker; size and overlap are measured in characters
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.New("chunk overlap must be at least 0 and less than chunk size")
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Normalize converts line endings, collapses whitespace within lines, and
// squeezes runs of blank lines into one
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
				blank = true
			}
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Chunk splits a document into ordered chunks whose spans index its normalized text
func (c *Chunker) Chunk(doc models.Document) ([]models.Chunk, error) {
	text := Normalize(doc.Text)
	if text == "" {
		return nil, &models.EmptyDocumentError{Document: doc.Name}
	}

	var units []unit
	c.split(text, 0, 0, &units)

	var chunks []models.Chunk
	for _, r := range c.pack(units) {
		span := models.Span{Start: units[r.first].start, End: units[r.last].end}
		chunks = append(chunks, models.Chunk{
			ID:       generateChunkID(),
			Document: doc.Name,
			Sequence: len(chunks),
			Text:     text[span.Start:span.End],
			Span:     span,
		})
	}
	return chunks, nil
}

// unit is an indivisible piece of text no longer than the chunk size
type unit struct {
	start, end int // byte offsets
	runes      int
}

type unitRange struct {
	first, last int // inclusive
}

func (c *Chunker) split(text string, offset, level int, out *[]unit) {
	n := utf8.RuneCountInString(text)
	if n <= c.size {
		*out = append(*out, unit{start: offset, end: offset + len(text), runes: n})
		return
	}
	if level >= len(separatorLevels) {
		c.hardCut(text, offset, out)
		return
	}

	pos := offset
	for _, piece := range splitAfter(text, separatorLevels[level]) {
		c.split(piece, pos, level+1, out)
		pos += len(piece)
	}
}

func (c *Chunker) hardCut(text string, offset int, out *[]unit) {
	start, runes := 0, 0
	for i := range text {
		if runes == c.size {
			*out = append(*out, unit{start: offset + start, end: offset + i, runes: runes})
			start, runes = i, 0
		}
		runes++
	}
	*out = append(*out, unit{start: offset + start, end: offset + len(text), runes: runes})
}

// pack groups units greedily into chunks. Each chunk after the first restarts at a
// trailing unit of the previous one so that the shared text stays within the overlap
// budget, never repeats the previous chunk's first unit, and leaves room for new text.
func (c *Chunker) pack(units []unit) []unitRange {
	var ranges []unitRange
	first := 0
	for first < len(units) {
		total, next := 0, first
		for next < len(units) && total+units[next].runes <= c.size {
			total += units[next].runes
			next++
		}
		ranges = append(ranges, unitRange{first: first, last: next - 1})
		if next >= len(units) {
			break
		}

		start, shared := next, 0
		for j := next - 1; j > first; j-- {
			if shared+units[j].runes > c.overlap {
				break
			}
			shared += units[j].runes
			start = j
		}
		for start < next && shared+units[next].runes > c.size {
			shared -= units[start].runes
			start++
		}
		first = start
	}
	return ranges
}

// splitAfter cuts text after every occurrence of any separator
func splitAfter(text string, seps []string) []string {
	var pieces []string
	start := 0
	for i := 0; i < len(text); {
		matched := 0
		for _, sep := range seps {
			if strings.HasPrefix(text[i:], sep) {
				matched = len(sep)
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		i += matched
		pieces = append(pieces, text[start:i])
		start = i
	}
	if start < len(text) {
		pieces = append(pieces, text[start:])
	}
	return pieces
}

// generateChunkID generates a unique chunk ID
func generateChunkID() string {
	return "chunk_" + uuid.New().String()
}
