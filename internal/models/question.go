// ABOUTME: Question is a quiz item with a closed, per-type answer key
// ABOUTME: multiple_choice, true_false, and short_answer each carry only their own fields
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// QuestionType names the kind of a question
type QuestionType string

const (
	MultipleChoiceType QuestionType = "multiple_choice"
	TrueFalseType      QuestionType = "true_false"
	ShortAnswerType    QuestionType = "short_answer"
)

// AllQuestionTypes lists every supported question type
var AllQuestionTypes = []QuestionType{MultipleChoiceType, TrueFalseType, ShortAnswerType}

// ParseQuestionType accepts the canonical names plus the labels a front end tends to send
// ("Multiple Choice", "true/false", "short-answer", ...)
func ParseQuestionType(s string) (QuestionType, error) {
	norm := strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "multiple_choice", "mc", "mcq":
		return MultipleChoiceType, nil
	case "true_false", "tf", "truefalse", "boolean":
		return TrueFalseType, nil
	case "short_answer", "short", "sa", "open":
		return ShortAnswerType, nil
	}
	return "", fmt.Errorf("unknown question type %q", s)
}

// Difficulty is the requested difficulty of a quiz or question
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty parses a difficulty case-insensitively
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// Multiple-choice option bounds, correct answer included
const (
	MinOptions = 3
	MaxOptions = 5
)

// AnswerKey is implemented only by the three answer shapes in this package
type AnswerKey interface {
	Type() QuestionType
	Correct() string
	validate() error
}

// MultipleChoice holds the options shown to the user and the correct one
type MultipleChoice struct {
	Options []string
	Answer  string
}

func (MultipleChoice) Type() QuestionType { return MultipleChoiceType }
func (k MultipleChoice) Correct() string  { return k.Answer }

func (k MultipleChoice) validate() error {
	if len(k.Options) < MinOptions || len(k.Options) > MaxOptions {
		return fmt.Errorf("multiple choice needs %d-%d options, got %d", MinOptions, MaxOptions, len(k.Options))
	}
	seen := make(map[string]bool, len(k.Options))
	found := false
	for _, opt := range k.Options {
		n := NormalizeAnswer(opt)
		if n == "" {
			return errors.New("multiple choice option cannot be empty")
		}
		if seen[n] {
			return fmt.Errorf("duplicate option %q", opt)
		}
		seen[n] = true
		if n == NormalizeAnswer(k.Answer) {
			found = true
		}
	}
	if !found {
		return errors.New("correct answer is not among the options")
	}
	return nil
}

// TrueFalse holds a boolean answer
type TrueFalse struct {
	Answer bool
}

func (TrueFalse) Type() QuestionType { return TrueFalseType }
func (k TrueFalse) Correct() string  { return strconv.FormatBool(k.Answer) }
func (TrueFalse) validate() error    { return nil }

// ShortAnswer holds a free-text reference answer
type ShortAnswer struct {
	Answer string
}

func (ShortAnswer) Type() QuestionType { return ShortAnswerType }
func (k ShortAnswer) Correct() string  { return k.Answer }

func (k ShortAnswer) validate() error {
	if strings.TrimSpace(k.Answer) == "" {
		return errors.New("short answer cannot be empty")
	}
	return nil
}

// Question is a single quiz item traceable to the chunks it was derived from
type Question struct {
	ID             string
	Prompt         string
	Difficulty     Difficulty
	SourceChunkIDs []string
	Explanation    string
	Key            AnswerKey
}

// Type returns the question's kind
func (q Question) Type() QuestionType {
	if q.Key == nil {
		return ""
	}
	return q.Key.Type()
}

// CorrectAnswer returns the canonical correct answer as text
func (q Question) CorrectAnswer() string {
	if q.Key == nil {
		return ""
	}
	return q.Key.Correct()
}

// Options returns the multiple-choice options, or nil for other kinds
func (q Question) Options() []string {
	if mc, ok := q.Key.(MultipleChoice); ok {
		return mc.Options
	}
	return nil
}

// Validate checks that the question is complete and traceable
func (q Question) Validate() error {
	if q.ID == "" {
		return errors.New("question id cannot be empty")
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return errors.New("question prompt cannot be empty")
	}
	if len(q.SourceChunkIDs) == 0 {
		return errors.New("question must reference at least one source chunk")
	}
	if q.Key == nil {
		return errors.New("question has no answer key")
	}
	return q.Key.validate()
}

// NormalizeAnswer lower-cases, trims, and collapses internal whitespace
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ParseTrueFalse reads a generated or submitted true/false value
func ParseTrueFalse(s string) (bool, error) {
	switch NormalizeAnswer(s) {
	case "true", "t", "yes":
		return true, nil
	case "false", "f", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a true/false value: %q", s)
}

type questionJSON struct {
	ID             string       `json:"id"`
	Type           QuestionType `json:"type"`
	Prompt         string       `json:"prompt"`
	CorrectAnswer  string       `json:"correct_answer"`
	Options        []string     `json:"options,omitempty"`
	Difficulty     Difficulty   `json:"difficulty"`
	SourceChunkIDs []string     `json:"source_chunk_ids"`
	Explanation    string       `json:"explanation,omitempty"`
}

// MarshalJSON flattens the answer key into the question object
func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(questionJSON{
		ID:             q.ID,
		Type:           q.Type(),
		Prompt:         q.Prompt,
		CorrectAnswer:  q.CorrectAnswer(),
		Options:        q.Options(),
		Difficulty:     q.Difficulty,
		SourceChunkIDs: q.SourceChunkIDs,
		Explanation:    q.Explanation,
	})
}

// UnmarshalJSON rebuilds the typed answer key from the flat form
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	key, err := NewAnswerKey(raw.Type, raw.CorrectAnswer, raw.Options)
	if err != nil {
		return fmt.Errorf("question %s: %w", raw.ID, err)
	}
	*q = Question{
		ID:             raw.ID,
		Prompt:         raw.Prompt,
		Difficulty:     raw.Difficulty,
		SourceChunkIDs: raw.SourceChunkIDs,
		Explanation:    raw.Explanation,
		Key:            key,
	}
	return nil
}

// NewAnswerKey builds the answer key for a question type from its flat fields
func NewAnswerKey(t QuestionType, correct string, options []string) (AnswerKey, error) {
	switch t {
	case MultipleChoiceType:
		return MultipleChoice{Options: options, Answer: correct}, nil
	case TrueFalseType:
		b, err := ParseTrueFalse(correct)
		if err != nil {
			return nil, err
		}
		return TrueFalse{Answer: b}, nil
	case ShortAnswerType:
		return ShortAnswer{Answer: correct}, nil
	}
	return nil, fmt.Errorf("unknown question type %q", t)
}
