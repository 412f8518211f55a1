// ABOUTME: Answerer produces grounded answers with citations from retrieved passages
// ABOUTME: Returns the insufficient-context marker when nothing relevant clears the floor
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/study-standalone/internal/llm"
	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/models"
	"go.uber.org/zap"
)

const answerSystemPrompt = `You are a study assistant. Answer the student's question using ONLY the numbered passages from their study materials.

Rules:
- Every statement in your answer must be supported by at least one passage you cite.
- Do not use outside knowledge, even if you are confident.
- If the passages do not contain the answer, set "insufficient" to true and leave "answer" empty.
- Keep the answer concise and in plain language.

Return ONLY a JSON object of this form:
{"answer": "...", "citations": ["P1", "P3"], "insufficient": false}`

// AnswererOptions configures an Answerer
type AnswererOptions struct {
	RetrievalK     int
	RelevanceFloor float64
	// MaxHistoryTokens bounds the prior turns included in the prompt (4 chars ≈ 1 token)
	MaxHistoryTokens int
	Logger           *zap.Logger
}

// Answerer answers questions from the session's materials
type Answerer struct {
	retriever *Retriever
	generator llm.Generator
	opts      AnswererOptions
	logger    *zap.Logger
}

// NewAnswerer creates an Answerer
func NewAnswerer(retriever *Retriever, generator llm.Generator, opts AnswererOptions) *Answerer {
	if opts.RetrievalK < 1 {
		opts.RetrievalK = 4
	}
	if opts.MaxHistoryTokens <= 0 {
		opts.MaxHistoryTokens = 1000
	}
	return &Answerer{
		retriever: retriever,
		generator: generator,
		opts:      opts,
		logger:    logging.OrNop(opts.Logger),
	}
}

type answerReply struct {
	Answer       string   `json:"answer"`
	Citations    []string `json:"citations"`
	Insufficient bool     `json:"insufficient"`
}

// Answer responds to question. history holds earlier turns, oldest first; the
// Answerer keeps none of its own.
func (a *Answerer) Answer(ctx context.Context, question string, history []models.Turn) (models.CitedAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.CitedAnswer{}, &models.InvalidRequestError{Field: "question", Reason: "cannot be empty"}
	}

	retrieved, err := a.retriever.Retrieve(ctx, question, a.opts.RetrievalK)
	if err != nil {
		return models.CitedAnswer{}, err
	}
	passages := retrieved.AboveFloor(a.opts.RelevanceFloor)
	if len(passages) == 0 {
		a.logger.Info("no passage cleared the relevance floor",
			zap.Int("retrieved", len(retrieved)),
			zap.Float64("floor", a.opts.RelevanceFloor))
		return models.InsufficientAnswer(), nil
	}

	messages := []llm.Message{llm.System(answerSystemPrompt)}
	messages = append(messages, a.historyMessages(history)...)
	messages = append(messages, llm.User(formatPassages(passages)+"\nQUESTION:\n"+question))

	reply, err := a.generator.Complete(ctx, llm.CompletionRequest{Messages: messages, JSON: true})
	if err != nil {
		return models.CitedAnswer{}, err
	}

	var parsed answerReply
	if err := decodeJSONReply(reply, &parsed); err != nil {
		a.logger.Warn("unreadable answer reply", zap.Error(err))
		return models.InsufficientAnswer(), nil
	}

	text := strings.TrimSpace(parsed.Answer)
	citations := resolveCitations(parsed.Citations, passages)
	if parsed.Insufficient || text == "" || len(citations) == 0 {
		a.logger.Info("answer not grounded in passages",
			zap.Bool("model_insufficient", parsed.Insufficient),
			zap.Int("valid_citations", len(citations)))
		return models.InsufficientAnswer(), nil
	}

	answer := models.CitedAnswer{
		Text:          text,
		CitedChunkIDs: make([]string, len(citations)),
		Citations:     citations,
	}
	for i, c := range citations {
		answer.CitedChunkIDs[i] = c.ChunkID
	}
	return answer, nil
}

// historyMessages replays the most recent turns that fit the history budget
func (a *Answerer) historyMessages(history []models.Turn) []llm.Message {
	budget := a.opts.MaxHistoryTokens * 4
	start := len(history)
	for start > 0 {
		turn := history[start-1]
		cost := len(turn.Question) + len(turn.Answer)
		if cost > budget {
			break
		}
		budget -= cost
		start--
	}

	var messages []llm.Message
	for _, turn := range history[start:] {
		messages = append(messages, llm.User(turn.Question), llm.Assistant(turn.Answer))
	}
	return messages
}

func formatPassages(passages models.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString("PASSAGES:\n")
	for i, p := range passages {
		sb.WriteString(fmt.Sprintf("\n[P%d] (source: %s, relevance: %.2f)\n%s\n", i+1, p.Chunk.Document, p.Score, p.Chunk.Text))
	}
	return sb.String()
}

// resolveCitations maps passage labels back to chunks, dropping unknown labels and repeats
func resolveCitations(labels []string, passages models.RetrievalResult) []models.Citation {
	var out []models.Citation
	seen := map[int]bool{}
	for _, label := range labels {
		var n int
		if _, err := fmt.Sscanf(strings.ToUpper(strings.Trim(strings.TrimSpace(label), "[]")), "P%d", &n); err != nil {
			continue
		}
		if n < 1 || n > len(passages) || seen[n] {
			continue
		}
		seen[n] = true
		p := passages[n-1]
		out = append(out, models.Citation{
			ChunkID:  p.Chunk.ID,
			Document: p.Chunk.Document,
			Span:     p.Chunk.Span,
			Score:    p.Score,
		})
	}
	return out
}
