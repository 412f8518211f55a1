// ABOUTME: Ledger is the append-only record of incorrectly answered quiz questions
// ABOUTME: Grading runs outside the lock; append and clear are mutually exclusive and persisted
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/models"
	"go.uber.org/zap"
)

// AnswerChecker decides whether a submitted answer is correct
type AnswerChecker interface {
	Check(ctx context.Context, q models.Question, answer string) (bool, error)
}

// LedgerBackend persists the ledger as an ordered list, oldest first
type LedgerBackend interface {
	Load(ctx context.Context) ([]models.WrongAnswerRecord, error)
	Save(ctx context.Context, records []models.WrongAnswerRecord) error
	Close() error
}

// Ledger tracks missed questions across quizzes
type Ledger struct {
	mu      sync.Mutex
	records []models.WrongAnswerRecord // oldest first
	backend LedgerBackend
	now     func() time.Time
	logger  *zap.Logger
}

// NewLedger loads existing records from backend
func NewLedger(ctx context.Context, backend LedgerBackend, logger *zap.Logger) (*Ledger, error) {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	records, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return &Ledger{
		records: records,
		backend: backend,
		now:     time.Now,
		logger:  logging.OrNop(logger),
	}, nil
}

// SetClock overrides the timestamp source
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Record grades answers against quiz and appends one record per miss. Unanswered
// questions count as wrong with an empty user answer. Answers naming questions the
// quiz does not have are rejected and nothing is recorded.
func (l *Ledger) Record(ctx context.Context, quiz *models.Quiz, answers map[string]string, checker AnswerChecker) (models.QuizResult, error) {
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := quiz.Question(id); !ok {
			return models.QuizResult{}, &models.UnknownQuestionError{QuizID: quiz.ID, QuestionID: id}
		}
	}

	result := models.QuizResult{
		QuizID: quiz.ID,
		Total:  len(quiz.Questions),
		Wrong:  []models.WrongAnswerRecord{},
	}
	for _, q := range quiz.Questions {
		answer := answers[q.ID]
		ok, err := checker.Check(ctx, q, answer)
		if err != nil {
			return models.QuizResult{}, fmt.Errorf("failed to grade question %s: %w", q.ID, err)
		}
		if ok {
			result.Correct++
			continue
		}
		result.Wrong = append(result.Wrong, models.WrongAnswerRecord{
			QuizID:        quiz.ID,
			Question:      q,
			UserAnswer:    answer,
			CorrectAnswer: q.CorrectAnswer(),
			Explanation:   q.Explanation,
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	submitted := l.now().UTC()
	for i := range result.Wrong {
		result.Wrong[i].SubmittedAt = submitted
	}
	if len(result.Wrong) > 0 {
		next := make([]models.WrongAnswerRecord, 0, len(l.records)+len(result.Wrong))
		next = append(next, l.records...)
		next = append(next, result.Wrong...)
		if err := l.backend.Save(ctx, next); err != nil {
			return models.QuizResult{}, fmt.Errorf("failed to save ledger: %w", err)
		}
		l.records = next
	}

	l.logger.Info("quiz recorded",
		zap.String("quiz_id", quiz.ID),
		zap.Int("total", result.Total),
		zap.Int("correct", result.Correct),
		zap.Int("ledger_size", len(l.records)))
	return result, nil
}

// List returns every record, most recent first
func (l *Ledger) List() []models.WrongAnswerRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.WrongAnswerRecord, len(l.records))
	for i, r := range l.records {
		out[len(l.records)-1-i] = r
	}
	return out
}

// Len returns the number of records
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Clear removes every record. It cannot be undone.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.backend.Save(ctx, nil); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	cleared := len(l.records)
	l.records = nil
	l.logger.Info("ledger cleared", zap.Int("records", cleared))
	return nil
}

// Close releases the backend
func (l *Ledger) Close() error {
	return l.backend.Close()
}

// MemoryBackend keeps the ledger for the life of the process
type MemoryBackend struct {
	mu      sync.Mutex
	records []models.WrongAnswerRecord
}

// NewMemoryBackend creates an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(ctx context.Context) ([]models.WrongAnswerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.WrongAnswerRecord(nil), m.records...), nil
}

func (m *MemoryBackend) Save(ctx context.Context, records []models.WrongAnswerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]models.WrongAnswerRecord(nil), records...)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
