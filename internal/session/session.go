// ABOUTME: Session owns one study session's documents, index, current quiz, and ledger
// ABOUTME: Every pipeline component is reached through an explicit Session value
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harper/study-standalone/internal/config"
	"github.com/harper/study-standalone/internal/core"
	"github.com/harper/study-standalone/internal/llm"
	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/metrics"
	"github.com/harper/study-standalone/internal/models"
	"github.com/harper/study-standalone/internal/storage"
	"go.uber.org/zap"
)

// Options wires a Session. Embedder, Generator, and Ledger are required.
type Options struct {
	Config    *config.Config
	Provider  string
	Embedder  llm.Embedder
	Generator llm.Generator
	Ledger    *storage.Ledger
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	// Rand shuffles multiple-choice options; nil seeds a fresh source
	Rand *rand.Rand
}

// IngestReport describes the outcome of AddDocuments
type IngestReport struct {
	Added   []string
	Skipped []*models.IngestionError
	Chunks  int
}

// SkippedNames lists the documents that were not added
func (r IngestReport) SkippedNames() []string {
	names := make([]string, len(r.Skipped))
	for i, s := range r.Skipped {
		names[i] = s.Document
	}
	return names
}

// Session is a single-user study session
type Session struct {
	cfg         *config.Config
	chunker     *core.Chunker
	index       *storage.Index
	retriever   *core.Retriever
	synthesizer *core.QuizSynthesizer
	grader      *core.Grader
	answerer    *core.Answerer
	ledger      *storage.Ledger
	metrics     *metrics.Metrics
	logger      *zap.Logger

	mu        sync.Mutex
	id        string
	createdAt time.Time
	documents []models.Document
	chunks    map[string][]models.Chunk // by document name
	quiz      *models.Quiz
}

// New creates an empty session
func New(opts Options) (*Session, error) {
	if opts.Embedder == nil || opts.Generator == nil {
		return nil, errors.New("session needs an embedder and a generator")
	}
	if opts.Ledger == nil {
		return nil, errors.New("session needs a ledger")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	logger := logging.OrNop(opts.Logger)

	chunker, err := core.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	index := storage.NewIndex(opts.Embedder, storage.IndexOptions{
		BatchSize:   cfg.EmbedBatchSize,
		Concurrency: cfg.EmbedConcurrency,
		Provider:    opts.Provider,
		Logger:      logger,
	})
	retriever := core.NewRetriever(index, opts.Embedder, cfg.DedupOverlap, logger)

	s := &Session{
		cfg:       cfg,
		chunker:   chunker,
		index:     index,
		retriever: retriever,
		synthesizer: core.NewQuizSynthesizer(retriever, index, opts.Generator, core.QuizOptions{
			RetrievalK: cfg.RetrievalK,
			Rand:       opts.Rand,
			Logger:     logger,
		}),
		grader: core.NewGrader(opts.Embedder, opts.Generator, cfg.ShortAnswerThreshold, logger),
		answerer: core.NewAnswerer(retriever, opts.Generator, core.AnswererOptions{
			RetrievalK:     cfg.RetrievalK,
			RelevanceFloor: cfg.RelevanceFloor,
			Logger:         logger,
		}),
		ledger:  opts.Ledger,
		metrics: opts.Metrics,
		logger:  logger,
	}
	s.start()
	return s, nil
}

// Open builds a session from configuration: provider, ledger backend, and metrics
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	m := metrics.New(nil)

	provider, err := llm.New(cfg, logger, m.ObserveRetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up %s provider: %w", cfg.Provider, err)
	}

	backend, err := storage.OpenLedgerBackend(cfg)
	if err != nil {
		return nil, err
	}
	ledger, err := storage.NewLedger(ctx, backend, logger)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	return New(Options{
		Config:    cfg,
		Provider:  provider.Name,
		Embedder:  provider.Embedder,
		Generator: provider.Generator,
		Ledger:    ledger,
		Metrics:   m,
		Logger:    logger,
	})
}

func (s *Session) start() {
	s.id = "session_" + uuid.New().String()
	s.createdAt = time.Now()
	s.documents = nil
	s.chunks = map[string][]models.Chunk{}
	s.quiz = nil
}

// ID identifies the current session; it changes on Reset
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Metrics exposes the session's collectors
func (s *Session) Metrics() *metrics.Metrics {
	return s.metrics
}

// AddDocuments chunks each document and rebuilds the index over every document in
// the session. A document that fails to chunk is skipped and reported; a document
// whose name is already present replaces the earlier version. If the rebuild fails
// the session keeps its previous documents and index.
func (s *Session) AddDocuments(ctx context.Context, docs []models.Document) (IngestReport, error) {
	defer s.metrics.Time("add_documents")()

	s.mu.Lock()
	defer s.mu.Unlock()

	report := IngestReport{Added: []string{}}
	staged := map[string][]models.Chunk{}
	var added []models.Document
	for _, doc := range docs {
		chunks, err := s.chunker.Chunk(doc)
		if err != nil {
			failure := &models.IngestionError{Document: doc.Name, Err: err}
			report.Skipped = append(report.Skipped, failure)
			s.logger.Warn("skipping document", zap.String("document", doc.Name), zap.Error(err))
			continue
		}
		if _, dup := staged[doc.Name]; !dup {
			report.Added = append(report.Added, doc.Name)
		}
		staged[doc.Name] = chunks
		added = append(added, doc)
	}
	s.metrics.ObserveDocuments(len(report.Added), len(report.Skipped))

	if len(staged) == 0 {
		report.Chunks = s.index.Len()
		return report, nil
	}

	documents := mergeDocuments(s.documents, added)
	all := make([]models.Chunk, 0)
	for _, doc := range documents {
		chunks, ok := staged[doc.Name]
		if !ok {
			chunks = s.chunks[doc.Name]
		}
		all = append(all, chunks...)
	}

	err := s.index.Build(ctx, all)
	s.metrics.ObserveIndexBuild(err, len(all))
	if err != nil {
		report.Added = []string{}
		report.Chunks = s.index.Len()
		return report, fmt.Errorf("failed to index documents: %w", err)
	}

	for name, chunks := range staged {
		s.chunks[name] = chunks
	}
	s.documents = documents
	report.Chunks = len(all)

	s.logger.Info("documents indexed",
		zap.Int("added", len(report.Added)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("documents", len(s.documents)),
		zap.Int("chunks", len(all)))
	return report, nil
}

// mergeDocuments appends added to existing, replacing same-named documents in place
func mergeDocuments(existing, added []models.Document) []models.Document {
	out := make([]models.Document, len(existing))
	copy(out, existing)
	position := make(map[string]int, len(out))
	for i, d := range out {
		position[d.Name] = i
	}
	for _, d := range added {
		if i, ok := position[d.Name]; ok {
			out[i] = d
			continue
		}
		position[d.Name] = len(out)
		out = append(out, d)
	}
	return out
}

// GenerateQuiz builds a quiz from the session's materials and makes it the current quiz
func (s *Session) GenerateQuiz(ctx context.Context, req models.QuizRequest) (*models.Quiz, error) {
	defer s.metrics.Time("generate_quiz")()

	quiz, err := s.synthesizer.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveQuiz(quiz)
	if quiz.UnderDelivery != nil {
		s.logger.Warn("quiz under-delivered", zap.String("reason", quiz.UnderDelivery.String()))
	}

	s.mu.Lock()
	s.quiz = quiz
	s.mu.Unlock()
	return quiz, nil
}

// Ask answers a question from the session's materials. history is supplied by the
// caller; the session does not remember previous questions.
func (s *Session) Ask(ctx context.Context, question string, history []models.Turn) (models.CitedAnswer, error) {
	defer s.metrics.Time("ask")()

	answer, err := s.answerer.Answer(ctx, question, history)
	if err != nil {
		return models.CitedAnswer{}, err
	}
	s.metrics.ObserveAnswer(answer)
	return answer, nil
}

// Submit grades answers for the current quiz and records every miss in the ledger
func (s *Session) Submit(ctx context.Context, quizID string, answers map[string]string) (models.QuizResult, error) {
	defer s.metrics.Time("submit")()

	s.mu.Lock()
	quiz := s.quiz
	s.mu.Unlock()
	if quiz == nil || quiz.ID != quizID {
		return models.QuizResult{}, &models.QuizNotFoundError{QuizID: quizID}
	}

	result, err := s.ledger.Record(ctx, quiz, answers, s.grader)
	if err != nil {
		return models.QuizResult{}, err
	}
	s.metrics.WrongAnswersTotal.Add(float64(len(result.Wrong)))
	return result, nil
}

// WrongAnswers lists the ledger, newest first
func (s *Session) WrongAnswers() []models.WrongAnswerRecord {
	return s.ledger.List()
}

// ClearWrongAnswers empties the ledger
func (s *Session) ClearWrongAnswers(ctx context.Context) error {
	return s.ledger.Clear(ctx)
}

// Documents returns the session's documents in upload order
func (s *Session) Documents() []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Document(nil), s.documents...)
}

// Chunks returns the indexed chunks of one document
func (s *Session) Chunks(document string) []models.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Chunk(nil), s.chunks[document]...)
}

// CurrentQuiz returns the most recently generated quiz, or nil
func (s *Session) CurrentQuiz() *models.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz
}

// Reset starts a new session: documents, index, and quiz are dropped, the ledger is kept
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.id
	s.index.Reset()
	s.start()
	s.metrics.ChunksIndexed.Set(0)
	s.logger.Info("session reset", zap.String("previous", previous), zap.String("session_id", s.id))
}

// Close releases the ledger backend
func (s *Session) Close() error {
	return s.ledger.Close()
}
