// ABOUTME: Wrong-answer ledger records and quiz grading results
// ABOUTME: A record is one incorrectly answered question at one point in time
package models

import "time"

// WrongAnswerRecord captures a missed question for later review
type WrongAnswerRecord struct {
	QuizID        string    `json:"quiz_id"`
	Question      Question  `json:"question"`
	UserAnswer    string    `json:"user_answer"`
	CorrectAnswer string    `json:"correct_answer"`
	Explanation   string    `json:"explanation,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// QuizResult summarizes one graded submission
type QuizResult struct {
	QuizID  string              `json:"quiz_id"`
	Total   int                 `json:"total"`
	Correct int                 `json:"correct"`
	Wrong   []WrongAnswerRecord `json:"wrong"`
}

// Score returns the fraction answered correctly
func (r QuizResult) Score() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}
