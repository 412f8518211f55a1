// ABOUTME: Unit tests for the Grader
// ABOUTME: Verifies exact matching, the similarity threshold, and the model judgement fallback
package core

import (
	"context"
	"errors"
	"testing"

	"github.com/harper/study-standalone/internal/llm/llmtest"
	"github.com/harper/study-standalone/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcQuestion() models.Question {
	return models.Question{
		ID:             "q1",
		Prompt:         "Which organelle produces ATP?",
		SourceChunkIDs: []string{"c1"},
		Key:            models.MultipleChoice{Options: []string{"Nucleus", "Mitochondria", "Ribosome"}, Answer: "Mitochondria"},
	}
}

func shortQuestion(answer string) models.Question {
	return models.Question{
		ID:             "q3",
		Prompt:         "What molecule stores energy in cells?",
		SourceChunkIDs: []string{"c1"},
		Key:            models.ShortAnswer{Answer: answer},
	}
}

func TestGrader_ClosedTypes(t *testing.T) {
	tf := models.Question{ID: "q2", Prompt: "DNA lives in the nucleus.", SourceChunkIDs: []string{"c2"}, Key: models.TrueFalse{Answer: true}}

	tests := []struct {
		name   string
		q      models.Question
		answer string
		want   bool
	}{
		{"mc exact", mcQuestion(), "Mitochondria", true},
		{"mc case and spacing", mcQuestion(), "  mitochondria ", true},
		{"mc wrong", mcQuestion(), "Nucleus", false},
		{"mc letter is not the option", mcQuestion(), "B", false},
		{"tf match", tf, "TRUE", true},
		{"tf mismatch", tf, "false", false},
		{"blank", mcQuestion(), "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &llmtest.HashEmbedder{}
			gen := &llmtest.ScriptedGenerator{}
			g := NewGrader(embedder, gen, 0.85, nil)

			got, err := g.Check(context.Background(), tt.q, tt.answer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, embedder.Calls())
			assert.Zero(t, gen.Calls())
		})
	}
}

func TestGrader_ShortAnswerExactSkipsServices(t *testing.T) {
	embedder := &llmtest.HashEmbedder{}
	gen := &llmtest.ScriptedGenerator{}
	g := NewGrader(embedder, gen, 0.85, nil)

	ok, err := g.Check(context.Background(), shortQuestion("ATP"), "atp")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, embedder.Calls())
}

func TestGrader_ShortAnswerSimilarityAccepts(t *testing.T) {
	embedder := &llmtest.HashEmbedder{}
	gen := &llmtest.ScriptedGenerator{}
	g := NewGrader(embedder, gen, 0.85, nil)

	// stopwords drop out, leaving identical content words
	ok, err := g.Check(context.Background(), shortQuestion("adenosine triphosphate"), "the adenosine triphosphate")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, embedder.Calls())
	assert.Zero(t, gen.Calls())
}

func TestGrader_ShortAnswerFallsBackToJudge(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{"judge accepts", `{"equivalent": true}`, true},
		{"judge rejects", `{"equivalent": false}`, false},
		{"unreadable verdict", "I think so", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := (&llmtest.ScriptedGenerator{}).QueueText(tt.reply)
			g := NewGrader(&llmtest.HashEmbedder{}, gen, 0.85, nil)

			ok, err := g.Check(context.Background(), shortQuestion("ATP"), "adenosine triphosphate")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			require.Equal(t, 1, gen.Calls())
			assert.Contains(t, gen.LastPrompt(), "Reference answer: ATP")
			assert.True(t, gen.Requests()[0].JSON)
		})
	}
}

func TestGrader_ServiceErrorsPropagate(t *testing.T) {
	embedErr := &models.EmbeddingServiceError{Provider: "fake", Reason: models.ReasonUnavailable, Err: errors.New("down")}
	embedder := &llmtest.HashEmbedder{Fail: func(int, []string) error { return embedErr }}
	g := NewGrader(embedder, &llmtest.ScriptedGenerator{}, 0.85, nil)

	_, err := g.Check(context.Background(), shortQuestion("ATP"), "energy")
	assert.ErrorIs(t, err, embedErr)

	genErr := &models.GenerationServiceError{Provider: "fake", Reason: models.ReasonRateLimited, Err: errors.New("slow down")}
	gen := (&llmtest.ScriptedGenerator{}).Queue(llmtest.Reply{Err: genErr})
	g = NewGrader(&llmtest.HashEmbedder{}, gen, 0.85, nil)

	_, err = g.Check(context.Background(), shortQuestion("ATP"), "energy")
	assert.ErrorIs(t, err, genErr)
}
