// ABOUTME: Helpers that turn provider failures into typed service errors
// ABOUTME: Reasons drive retry decisions, so classification stays conservative
package llm

import (
	"context"
	"errors"

	"github.com/harper/study-standalone/internal/models"
	"github.com/tmc/langchaingo/llms/ollama"
)

func embeddingError(provider string, reason models.ServiceReason, err error) error {
	return &models.EmbeddingServiceError{Provider: provider, Reason: reason, Err: err}
}

func generationError(provider string, reason models.ServiceReason, err error) error {
	return &models.GenerationServiceError{Provider: provider, Reason: reason, Err: err}
}

func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// Ollama's client keeps its HTTP status type internal, so only the
// response-shape sentinels are distinguishable from transport failures.
func classifyOllama(ctx context.Context, err error) models.ServiceReason {
	switch {
	case isDeadline(ctx, err):
		return models.ReasonTimeout
	case errors.Is(err, ollama.ErrEmptyResponse), errors.Is(err, ollama.ErrIncompleteEmbedding):
		return models.ReasonBadResponse
	default:
		return models.ReasonUnavailable
	}
}
