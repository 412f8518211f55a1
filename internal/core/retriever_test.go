// ABOUTME: Unit tests for the Retriever
// ABOUTME: Covers ordering, dedup of overlapping passages, empty inputs, and batched query embedding
package core

import (
	"context"
	"errors"
	"testing"

	"github.com/harper/study-standalone/internal/llm/llmtest"
	"github.com/harper/study-standalone/internal/models"
	"github.com/harper/study-standalone/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(id, doc string, seq int, text string, start int) models.Chunk {
	return models.Chunk{
		ID:       id,
		Document: doc,
		Sequence: seq,
		Text:     text,
		Span:     models.Span{Start: start, End: start + len(text)},
	}
}

func buildRetriever(t *testing.T, chunks []models.Chunk) (*Retriever, *llmtest.HashEmbedder) {
	t.Helper()
	embedder := &llmtest.HashEmbedder{}
	ix := storage.NewIndex(embedder, storage.IndexOptions{BatchSize: 8, Concurrency: 2})
	if len(chunks) > 0 {
		require.NoError(t, ix.Build(context.Background(), chunks))
	}
	return NewRetriever(ix, embedder, 0.5, nil), embedder
}

func biologyChunks() []models.Chunk {
	return []models.Chunk{
		chunk("c1", "cells.txt", 0, "Mitochondria produce ATP through cellular respiration.", 0),
		chunk("c2", "cells.txt", 1, "The nucleus stores genetic material as DNA.", 200),
		chunk("c3", "plants.txt", 0, "Chloroplasts capture light energy for photosynthesis.", 0),
		chunk("c4", "plants.txt", 1, "Stomata regulate gas exchange in leaves.", 200),
		chunk("c5", "proteins.txt", 0, "Ribosomes translate messenger RNA into proteins.", 0),
	}
}

func TestRetriever_Retrieve(t *testing.T) {
	r, _ := buildRetriever(t, biologyChunks())

	results, err := r.Retrieve(context.Background(), "What produces ATP?", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "c1", results[0].Chunk.ID)

	seen := map[string]bool{}
	for i, sc := range results {
		assert.False(t, seen[sc.Chunk.ID], "duplicate chunk %s", sc.Chunk.ID)
		seen[sc.Chunk.ID] = true
		if i > 0 {
			assert.LessOrEqual(t, sc.Score, results[i-1].Score)
		}
	}
}

func TestRetriever_KLargerThanIndex(t *testing.T) {
	r, _ := buildRetriever(t, biologyChunks())

	results, err := r.Retrieve(context.Background(), "photosynthesis", 20)
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Equal(t, "c3", results[0].Chunk.ID)
}

func TestRetriever_EmptyInputs(t *testing.T) {
	tests := []struct {
		name   string
		chunks []models.Chunk
		query  string
		k      int
	}{
		{"empty index", nil, "anything", 4},
		{"blank query", biologyChunks(), "   ", 4},
		{"zero k", biologyChunks(), "DNA", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, embedder := buildRetriever(t, tt.chunks)
			calls := embedder.Calls()

			results, err := r.Retrieve(context.Background(), tt.query, tt.k)
			require.NoError(t, err)
			assert.NotNil(t, results)
			assert.Empty(t, results)
			assert.Equal(t, calls, embedder.Calls(), "no query embedding expected")
		})
	}
}

func TestRetriever_DedupsOverlappingPassagesFromSameDocument(t *testing.T) {
	text := "Mitochondria produce ATP through cellular respiration in the cell."
	chunks := []models.Chunk{
		chunk("a", "notes.txt", 0, text, 0),
		chunk("b", "notes.txt", 1, text, 10),
		chunk("c", "copy.txt", 0, text, 0),
		chunk("d", "other.txt", 0, "The nucleus stores DNA.", 0),
	}
	r, _ := buildRetriever(t, chunks)

	results, err := r.Retrieve(context.Background(), "mitochondria ATP", 3)
	require.NoError(t, err)

	ids := results.IDs()
	assert.Contains(t, ids, "a")
	assert.NotContains(t, ids, "b", "overlapping passage from the same document is redundant")
	assert.Contains(t, ids, "c", "identical text from another document is kept")
	assert.Contains(t, ids, "d", "dedup leaves room for the next best passage")
}

func TestRetriever_TiesBreakByID(t *testing.T) {
	text := "Enzymes lower activation energy."
	chunks := []models.Chunk{
		chunk("z", "one.txt", 0, text, 0),
		chunk("m", "two.txt", 0, text, 0),
		chunk("a", "three.txt", 0, text, 0),
	}
	r, _ := buildRetriever(t, chunks)

	results, err := r.Retrieve(context.Background(), "enzymes", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, results.IDs())
}

func TestRetriever_RetrieveManyUsesOneEmbeddingCall(t *testing.T) {
	r, embedder := buildRetriever(t, biologyChunks())
	before := embedder.Calls()

	results, err := r.RetrieveMany(context.Background(), []string{"ATP", "", "photosynthesis", "ribosomes"}, 1)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, before+1, embedder.Calls())
	assert.Equal(t, "c1", results[0][0].Chunk.ID)
	assert.Empty(t, results[1])
	assert.Equal(t, "c3", results[2][0].Chunk.ID)
	assert.Equal(t, "c5", results[3][0].Chunk.ID)
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	r, embedder := buildRetriever(t, biologyChunks())
	serviceErr := &models.EmbeddingServiceError{Provider: "fake", Reason: models.ReasonUnavailable, Err: errors.New("down")}
	embedder.Fail = func(int, []string) error { return serviceErr }

	_, err := r.Retrieve(context.Background(), "DNA", 2)
	var target *models.EmbeddingServiceError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, models.ReasonUnavailable, target.Reason)
}
