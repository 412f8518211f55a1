// ABOUTME: Grader applies the answer comparison rule to a submitted answer
// ABOUTME: Exact match for closed types; short answers escalate to similarity, then a model judgement
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/study-standalone/internal/llm"
	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/models"
	"github.com/harper/study-standalone/internal/storage"
	"go.uber.org/zap"
)

const judgeSystemPrompt = `You grade a student's short answer against a reference answer.
Decide whether the student's answer means the same thing as the reference. Ignore spelling, wording, and extra detail that does not contradict the reference. An answer that is vague, partial, or wrong is not equivalent.

Return ONLY a JSON object: {"equivalent": true} or {"equivalent": false}`

// Grader decides whether answers are correct
type Grader struct {
	embedder  llm.Embedder
	generator llm.Generator
	threshold float64
	logger    *zap.Logger
}

// NewGrader creates a Grader. Short answers whose embedding similarity to the
// reference reaches threshold are accepted without asking the generation model.
func NewGrader(embedder llm.Embedder, generator llm.Generator, threshold float64, logger *zap.Logger) *Grader {
	return &Grader{
		embedder:  embedder,
		generator: generator,
		threshold: threshold,
		logger:    logging.OrNop(logger),
	}
}

// Check reports whether answer is correct for q
func (g *Grader) Check(ctx context.Context, q models.Question, answer string) (bool, error) {
	given := models.NormalizeAnswer(answer)
	if given == "" {
		return false, nil
	}
	want := models.NormalizeAnswer(q.CorrectAnswer())

	switch q.Type() {
	case models.MultipleChoiceType, models.TrueFalseType:
		return given == want, nil
	case models.ShortAnswerType:
		if given == want {
			return true, nil
		}
		return g.checkShortAnswer(ctx, q, given, want)
	}
	return false, fmt.Errorf("question %s has no answer key", q.ID)
}

func (g *Grader) checkShortAnswer(ctx context.Context, q models.Question, given, want string) (bool, error) {
	vectors, err := g.embedder.Embed(ctx, []string{given, want})
	if err != nil {
		return false, err
	}
	if len(vectors) == 2 {
		similarity := storage.CosineSimilarity(vectors[0], vectors[1])
		g.logger.Debug("short answer similarity",
			zap.String("question_id", q.ID),
			zap.Float64("similarity", similarity),
			zap.Float64("threshold", g.threshold))
		if similarity >= g.threshold {
			return true, nil
		}
	}

	reply, err := g.generator.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			llm.System(judgeSystemPrompt),
			llm.User(fmt.Sprintf("Question: %s\nReference answer: %s\nStudent answer: %s",
				q.Prompt, q.CorrectAnswer(), strings.TrimSpace(given))),
		},
		JSON: true,
	})
	if err != nil {
		return false, err
	}

	var verdict struct {
		Equivalent bool `json:"equivalent"`
	}
	if err := decodeJSONReply(reply, &verdict); err != nil {
		g.logger.Warn("unreadable equivalence judgement, marking answer wrong",
			zap.String("question_id", q.ID),
			zap.Error(err))
		return false, nil
	}
	return verdict.Equivalent, nil
}
