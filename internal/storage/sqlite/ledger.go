// ABOUTME: Ledger persistence operations for SQLite
// ABOUTME: Stores each record's question as JSON so the typed answer key survives a restart
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/study-standalone/internal/models"
)

// LedgerStore handles wrong-answer persistence
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new LedgerStore
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// OpenLedgerStore opens the database at path and wraps it
func OpenLedgerStore(path string) (*LedgerStore, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewLedgerStore(db), nil
}

// Load returns every record in the order it was saved
func (s *LedgerStore) Load(ctx context.Context) ([]models.WrongAnswerRecord, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT quiz_id, question, user_answer, correct_answer, explanation, submitted_at
		FROM wrong_answers
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query wrong answers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.WrongAnswerRecord
	for rows.Next() {
		var (
			r           models.WrongAnswerRecord
			question    string
			explanation sql.NullString
			submitted   int64
		)
		if err := rows.Scan(&r.QuizID, &question, &r.UserAnswer, &r.CorrectAnswer, &explanation, &submitted); err != nil {
			return nil, fmt.Errorf("failed to scan wrong answer: %w", err)
		}
		if err := json.Unmarshal([]byte(question), &r.Question); err != nil {
			return nil, fmt.Errorf("failed to decode question for quiz %s: %w", r.QuizID, err)
		}
		if explanation.Valid {
			r.Explanation = explanation.String
		}
		r.SubmittedAt = time.Unix(0, submitted).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

// Save replaces the stored ledger with records in a single transaction
func (s *LedgerStore) Save(ctx context.Context, records []models.WrongAnswerRecord) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM wrong_answers`); err != nil {
		return fmt.Errorf("failed to clear wrong answers: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wrong_answers (quiz_id, question_id, question, user_answer, correct_answer, explanation, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		question, err := json.Marshal(r.Question)
		if err != nil {
			return fmt.Errorf("failed to encode question %s: %w", r.Question.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.QuizID, r.Question.ID, string(question),
			r.UserAnswer, r.CorrectAnswer, nullString(r.Explanation), r.SubmittedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert wrong answer: %w", err)
		}
	}

	return tx.Commit()
}

// Close closes the underlying database
func (s *LedgerStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
