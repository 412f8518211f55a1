// ABOUTME: Tests for chunk spans and reassembly
// ABOUTME: Verifies overlap arithmetic and that overlapping chunks rebuild the source text
package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpan_Overlap(t *testing.T) {
	tests := []struct {
		name string
		a, b Span
		want int
	}{
		{"disjoint", Span{0, 10}, Span{10, 20}, 0},
		{"partial", Span{0, 10}, Span{6, 20}, 4},
		{"contained", Span{0, 30}, Span{5, 15}, 10},
		{"reversed order", Span{6, 20}, Span{0, 10}, 4},
		{"empty", Span{5, 5}, Span{0, 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlap(tt.b))
		})
	}
}

func TestReassemble(t *testing.T) {
	text := "alpha beta. gamma delta. epsilon"
	chunks := []Chunk{
		{ID: "c2", Sequence: 2, Span: Span{18, 32}, Text: text[18:32]},
		{ID: "c0", Sequence: 0, Span: Span{0, 11}, Text: text[0:11]},
		{ID: "c1", Sequence: 1, Span: Span{6, 24}, Text: text[6:24]},
	}

	assert.Equal(t, text, Reassemble(chunks))
}

func TestReassemble_SpansAreByteOffsets(t *testing.T) {
	text := "café au lait. crème brûlée"
	split := strings.Index(text, "lait")
	first := strings.Index(text, "crème")

	// "é" is two bytes, so byte and character offsets differ
	assert.NotEqual(t, len([]rune(text[:split])), split)

	chunks := []Chunk{
		{ID: "c0", Sequence: 0, Span: Span{0, first}, Text: text[:first]},
		{ID: "c1", Sequence: 1, Span: Span{split, len(text)}, Text: text[split:]},
	}
	assert.Equal(t, text, Reassemble(chunks))
}

func TestReassemble_Empty(t *testing.T) {
	assert.Equal(t, "", Reassemble(nil))
}
