// ABOUTME: Vector index over session chunks backed by an in-memory chromem collection
// ABOUTME: Rebuilds embed every chunk into a fresh collection that is swapped in whole
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/harper/study-standalone/internal/llm"
	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/models"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	collectionName = "chunks"
	metaDocument   = "document"
)

var errPrecomputed = errors.New("chunk embeddings are computed before insertion")

// IndexOptions tunes how a rebuild talks to the embedding service
type IndexOptions struct {
	BatchSize   int
	Concurrency int
	// Provider names the embedding service in errors
	Provider string
	Logger   *zap.Logger
}

// Index maps chunk ids to embeddings and answers similarity queries
type Index struct {
	embedder    llm.Embedder
	batchSize   int
	concurrency int
	provider    string
	logger      *zap.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// snapshot is never mutated once published
type snapshot struct {
	collection *chromem.Collection
	chunks     map[string]models.Chunk
	ordered    []models.Chunk
}

// NewIndex creates an empty index
func NewIndex(embedder llm.Embedder, opts IndexOptions) *Index {
	if opts.BatchSize < 1 {
		opts.BatchSize = 64
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Index{
		embedder:    embedder,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		provider:    opts.Provider,
		logger:      logging.OrNop(opts.Logger),
		snap:        &snapshot{chunks: map[string]models.Chunk{}},
	}
}

// Build replaces the index with embeddings for exactly these chunks. On error the
// previous index stays in place.
func (ix *Index) Build(ctx context.Context, chunks []models.Chunk) error {
	next, err := ix.buildSnapshot(ctx, chunks)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.snap = next
	ix.mu.Unlock()

	ix.logger.Info("index rebuilt", zap.Int("chunks", len(chunks)))
	return nil
}

func (ix *Index) buildSnapshot(ctx context.Context, chunks []models.Chunk) (*snapshot, error) {
	snap := &snapshot{
		chunks:  make(map[string]models.Chunk, len(chunks)),
		ordered: make([]models.Chunk, 0, len(chunks)),
	}
	for _, c := range chunks {
		if _, dup := snap.chunks[c.ID]; dup {
			return nil, fmt.Errorf("duplicate chunk id %s", c.ID)
		}
		snap.chunks[c.ID] = c
		snap.ordered = append(snap.ordered, c)
	}
	if len(chunks) == 0 {
		return snap, nil
	}

	vectors, err := ix.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, func(ctx context.Context, text string) ([]float32, error) {
		return nil, errPrecomputed
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ID,
			Metadata:  map[string]string{metaDocument: c.Document},
			Embedding: vectors[i],
			Content:   c.Text,
		}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to populate collection: %w", err)
	}

	snap.collection = collection
	return snap, nil
}

// embedAll embeds chunk texts in batches with bounded concurrency, preserving order
func (ix *Index) embedAll(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Text)
			}
			batch, err := ix.embedder.Embed(gctx, texts)
			if err != nil {
				return err
			}
			if len(batch) != len(texts) {
				return &models.EmbeddingServiceError{
					Provider: ix.provider,
					Reason:   models.ReasonBadResponse,
					Err:      fmt.Errorf("requested %d embeddings, got %d", len(texts), len(batch)),
				}
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim || isZero(v) {
			return nil, &models.EmbeddingServiceError{
				Provider: ix.provider,
				Reason:   models.ReasonBadResponse,
				Err:      fmt.Errorf("unusable embedding for chunk %s", chunks[i].ID),
			}
		}
	}
	return vectors, nil
}

func (ix *Index) current() *snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.snap
}

// Len returns the number of indexed chunks
func (ix *Index) Len() int {
	return len(ix.current().ordered)
}

// Chunks returns the indexed chunks in build order
func (ix *Index) Chunks() []models.Chunk {
	snap := ix.current()
	out := make([]models.Chunk, len(snap.ordered))
	copy(out, snap.ordered)
	return out
}

// Chunk looks up an indexed chunk by id
func (ix *Index) Chunk(id string) (models.Chunk, bool) {
	c, ok := ix.current().chunks[id]
	return c, ok
}

// Search returns up to n chunks most similar to vector, ordered by chromem's ranking.
// An empty index yields an empty result.
func (ix *Index) Search(ctx context.Context, vector []float32, n int) (models.RetrievalResult, error) {
	snap := ix.current()
	if snap.collection == nil || n <= 0 {
		return models.RetrievalResult{}, nil
	}
	if isZero(vector) {
		return nil, &models.EmbeddingServiceError{Provider: ix.provider, Reason: models.ReasonBadResponse, Err: errors.New("query embedding is all zeros")}
	}
	n = min(n, snap.collection.Count())

	results, err := snap.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	out := make(models.RetrievalResult, 0, len(results))
	for _, r := range results {
		c, ok := snap.chunks[r.ID]
		if !ok {
			continue
		}
		out = append(out, models.ScoredChunk{Chunk: c, Score: float64(r.Similarity)})
	}
	return out, nil
}

// Reset drops every indexed chunk
func (ix *Index) Reset() {
	ix.mu.Lock()
	ix.snap = &snapshot{chunks: map[string]models.Chunk{}}
	ix.mu.Unlock()
}

// CosineSimilarity calculates cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
