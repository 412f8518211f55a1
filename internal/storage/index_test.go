// ABOUTME: Unit tests for the chunk index
// ABOUTME: Tests batched embedding, similarity search, atomic rebuilds, and cosine similarity
package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/harper/study-standalone/internal/llm/llmtest"
	"github.com/harper/study-standalone/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks() []models.Chunk {
	texts := []string{
		"Mitochondria produce ATP through cellular respiration.",
		"The nucleus stores genetic material as DNA.",
		"Chloroplasts capture light energy for photosynthesis.",
		"Ribosomes translate messenger RNA into proteins.",
		"The cell membrane controls what enters and leaves the cell.",
	}
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{
			ID:       fmt.Sprintf("chunk_%d", i),
			Document: "biology.txt",
			Sequence: i,
			Text:     text,
			Span:     models.Span{Start: i * 100, End: i*100 + len(text)},
		}
	}
	return chunks
}

func TestIndex_BuildAndSearch(t *testing.T) {
	embedder := &llmtest.HashEmbedder{}
	ix := NewIndex(embedder, IndexOptions{BatchSize: 2, Concurrency: 2})

	require.NoError(t, ix.Build(context.Background(), testChunks()))
	assert.Equal(t, 5, ix.Len())
	assert.Equal(t, 3, embedder.Calls(), "5 chunks in batches of 2")

	results, err := ix.Search(context.Background(), llmtest.Vector("which organelle produces ATP"), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "chunk_0", results[0].Chunk.ID)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestIndex_SearchClampsToSize(t *testing.T) {
	ix := NewIndex(&llmtest.HashEmbedder{}, IndexOptions{})
	require.NoError(t, ix.Build(context.Background(), testChunks()[:2]))

	results, err := ix.Search(context.Background(), llmtest.Vector("DNA"), 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestIndex_EmptySearchReturnsEmpty(t *testing.T) {
	ix := NewIndex(&llmtest.HashEmbedder{}, IndexOptions{})

	results, err := ix.Search(context.Background(), llmtest.Vector("anything"), 4)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, ix.Build(context.Background(), nil))
	results, err = ix.Search(context.Background(), llmtest.Vector("anything"), 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_FailedRebuildKeepsPreviousIndex(t *testing.T) {
	embedder := &llmtest.HashEmbedder{}
	ix := NewIndex(embedder, IndexOptions{BatchSize: 10})
	require.NoError(t, ix.Build(context.Background(), testChunks()))

	embedder.Fail = func(call int, texts []string) error {
		return &models.EmbeddingServiceError{Provider: "fake", Reason: models.ReasonUnauthenticated, Err: errors.New("401")}
	}
	more := append(testChunks(), models.Chunk{ID: "chunk_new", Document: "extra.txt", Text: "Enzymes speed up reactions."})
	err := ix.Build(context.Background(), more)

	var svcErr *models.EmbeddingServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, models.ReasonUnauthenticated, svcErr.Reason)

	assert.Equal(t, 5, ix.Len())
	_, ok := ix.Chunk("chunk_new")
	assert.False(t, ok)
}

func TestIndex_RebuildIsIdempotent(t *testing.T) {
	ix := NewIndex(&llmtest.HashEmbedder{}, IndexOptions{})
	query := llmtest.Vector("proteins are made by ribosomes")

	require.NoError(t, ix.Build(context.Background(), testChunks()))
	first, err := ix.Search(context.Background(), query, 3)
	require.NoError(t, err)

	require.NoError(t, ix.Build(context.Background(), testChunks()))
	second, err := ix.Search(context.Background(), query, 3)
	require.NoError(t, err)

	assert.Equal(t, first.IDs(), second.IDs())
}

func TestIndex_RejectsDuplicateIDs(t *testing.T) {
	ix := NewIndex(&llmtest.HashEmbedder{}, IndexOptions{})
	chunks := testChunks()
	chunks[1].ID = chunks[0].ID

	assert.Error(t, ix.Build(context.Background(), chunks))
	assert.Equal(t, 0, ix.Len())
}

func TestIndex_ChunksAndReset(t *testing.T) {
	ix := NewIndex(&llmtest.HashEmbedder{}, IndexOptions{})
	require.NoError(t, ix.Build(context.Background(), testChunks()))

	chunks := ix.Chunks()
	require.Len(t, chunks, 5)
	assert.Equal(t, "chunk_0", chunks[0].ID)

	ix.Reset()
	assert.Equal(t, 0, ix.Len())
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
		delta    float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0, 1e-6},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0, 1e-6},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0, 1e-6},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1.0, 1e-6},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), tt.delta+1e-12)
		})
	}
}

func TestIndex_SearchDuringRebuildSeesOneSnapshot(t *testing.T) {
	ctx := context.Background()
	cells := testChunks()
	plants := []models.Chunk{
		{ID: "plant_0", Document: "plants.txt", Sequence: 0, Text: "Stomata regulate gas exchange.", Span: models.Span{Start: 0, End: 30}},
		{ID: "plant_1", Document: "plants.txt", Sequence: 1, Text: "Xylem carries water upward.", Span: models.Span{Start: 31, End: 58}},
		{ID: "plant_2", Document: "plants.txt", Sequence: 2, Text: "Phloem moves sugars.", Span: models.Span{Start: 59, End: 79}},
	}

	ix := NewIndex(&llmtest.HashEmbedder{}, IndexOptions{BatchSize: 2, Concurrency: 2})
	require.NoError(t, ix.Build(ctx, cells))

	done := make(chan error, 1)
	go func() {
		defer close(done)
		for i := 0; i < 30; i++ {
			set := cells
			if i%2 == 0 {
				set = plants
			}
			if err := ix.Build(ctx, set); err != nil {
				done <- err
				return
			}
		}
	}()

	query := llmtest.Vector("cell energy water")
	searches := 0
	for running := true; running || searches < 300; searches++ {
		select {
		case err, ok := <-done:
			require.NoError(t, err)
			if !ok {
				running = false
				done = nil
			}
		default:
		}

		results, err := ix.Search(ctx, query, 10)
		require.NoError(t, err)
		require.True(t, len(results) == len(cells) || len(results) == len(plants),
			"partial snapshot with %d results", len(results))

		doc := results[0].Chunk.Document
		for _, r := range results {
			require.Equal(t, doc, r.Chunk.Document, "results mix two snapshots")
		}
		if doc == "plants.txt" {
			require.Len(t, results, len(plants))
		} else {
			require.Len(t, results, len(cells))
		}
	}
}
