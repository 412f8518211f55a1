// ABOUTME: SQLite database schema for the wrong-answer ledger
// ABOUTME: Rows keep submission order through an autoincrement sequence
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- One row per missed question; seq preserves ledger order
CREATE TABLE IF NOT EXISTS wrong_answers (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    quiz_id TEXT NOT NULL,
    question_id TEXT NOT NULL,
    question TEXT NOT NULL,
    user_answer TEXT NOT NULL,
    correct_answer TEXT NOT NULL,
    explanation TEXT,
    submitted_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_wrong_answers_quiz ON wrong_answers(quiz_id);
`
