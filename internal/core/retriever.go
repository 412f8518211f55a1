// ABOUTME: Retriever ranks indexed chunks against a query and removes near-duplicates
// ABOUTME: Over-fetches from the index so dedup still leaves k results when it can
package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/harper/study-standalone/internal/llm"
	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/models"
	"github.com/harper/study-standalone/internal/storage"
	"go.uber.org/zap"
)

// overFetch is how many candidates per requested result are pulled before dedup
const overFetch = 3

// Retriever retrieves passages using vector similarity search
type Retriever struct {
	index        *storage.Index
	embedder     llm.Embedder
	dedupOverlap float64
	logger       *zap.Logger
}

// NewRetriever creates a Retriever. Two passages from the same document are treated as
// duplicates when their spans share at least dedupOverlap of the shorter span.
func NewRetriever(index *storage.Index, embedder llm.Embedder, dedupOverlap float64, logger *zap.Logger) *Retriever {
	return &Retriever{
		index:        index,
		embedder:     embedder,
		dedupOverlap: dedupOverlap,
		logger:       logging.OrNop(logger),
	}
}

// Retrieve returns at most k passages for query, best first. An empty index or blank
// query yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (models.RetrievalResult, error) {
	results, err := r.RetrieveMany(ctx, []string{query}, k)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// RetrieveMany runs several queries with a single embedding call
func (r *Retriever) RetrieveMany(ctx context.Context, queries []string, k int) ([]models.RetrievalResult, error) {
	out := make([]models.RetrievalResult, len(queries))
	for i := range out {
		out[i] = models.RetrievalResult{}
	}
	if k <= 0 || r.index.Len() == 0 {
		return out, nil
	}

	var (
		texts []string
		slots []int
	)
	for i, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		texts = append(texts, q)
		slots = append(slots, i)
	}
	if len(texts) == 0 {
		return out, nil
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, &models.EmbeddingServiceError{
			Reason: models.ReasonBadResponse,
			Err:    fmt.Errorf("requested %d query embeddings, got %d", len(texts), len(vectors)),
		}
	}

	for i, vec := range vectors {
		ranked, err := r.rank(ctx, vec, k)
		if err != nil {
			return nil, err
		}
		out[slots[i]] = ranked
	}
	return out, nil
}

func (r *Retriever) rank(ctx context.Context, vec []float32, k int) (models.RetrievalResult, error) {
	candidates, err := r.index.Search(ctx, vec, overFetch*k)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})

	kept := make(models.RetrievalResult, 0, k)
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if len(kept) == k {
			break
		}
		if seen[c.Chunk.ID] || r.redundant(c.Chunk, kept) {
			continue
		}
		seen[c.Chunk.ID] = true
		kept = append(kept, c)
	}

	r.logger.Debug("retrieved passages",
		zap.Int("k", k),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(kept)))
	return kept, nil
}

// redundant reports whether c substantially repeats a passage already kept
func (r *Retriever) redundant(c models.Chunk, kept models.RetrievalResult) bool {
	for _, other := range kept {
		if other.Chunk.Document != c.Document {
			continue
		}
		shorter := min(c.Span.Len(), other.Chunk.Span.Len())
		overlap := c.Span.Overlap(other.Chunk.Span)
		if shorter > 0 && overlap > 0 && float64(overlap) >= r.dedupOverlap*float64(shorter) {
			return true
		}
	}
	return false
}
