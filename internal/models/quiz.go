// ABOUTME: Quiz and QuizRequest describe one generation request and its output
// ABOUTME: UnderDelivery reports when fewer questions were produced than requested
package models

import (
	"fmt"
	"time"
)

// Question count bounds for a single quiz
const (
	MinQuestions = 1
	MaxQuestions = 50
)

// QuizRequest is what the presentation layer asks for
type QuizRequest struct {
	Count      int            `json:"count"`
	Difficulty Difficulty     `json:"difficulty"`
	Types      []QuestionType `json:"types"`
	Topic      string         `json:"topic,omitempty"`
}

// Validate checks count bounds, difficulty, and type mix
func (r QuizRequest) Validate() error {
	if r.Count < MinQuestions || r.Count > MaxQuestions {
		return &InvalidRequestError{Field: "count", Reason: fmt.Sprintf("must be %d-%d, got %d", MinQuestions, MaxQuestions, r.Count)}
	}
	if _, err := ParseDifficulty(string(r.Difficulty)); err != nil {
		return &InvalidRequestError{Field: "difficulty", Reason: err.Error()}
	}
	if len(r.Types) == 0 {
		return &InvalidRequestError{Field: "types", Reason: "select at least one question type"}
	}
	for _, t := range r.Types {
		if _, err := ParseQuestionType(string(t)); err != nil {
			return &InvalidRequestError{Field: "types", Reason: err.Error()}
		}
	}
	return nil
}

// UnderDelivery explains why a quiz has fewer questions than requested
type UnderDelivery struct {
	Requested int    `json:"requested"`
	Delivered int    `json:"delivered"`
	Reason    string `json:"reason"`
}

func (u UnderDelivery) String() string {
	return fmt.Sprintf("generated %d of %d requested questions: %s", u.Delivered, u.Requested, u.Reason)
}

// Quiz is an ordered set of questions produced for one request
type Quiz struct {
	ID                string         `json:"id"`
	Request           QuizRequest    `json:"request"`
	Questions         []Question     `json:"questions"`
	RetrievedChunkIDs []string       `json:"retrieved_chunk_ids"`
	UnderDelivery     *UnderDelivery `json:"under_delivery,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Question looks up a question by id
func (q *Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}
