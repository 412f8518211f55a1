// ABOUTME: Wrappers that apply a RetryPolicy and per-call timeout to any provider
// ABOUTME: Deadlines become typed timeout errors; only rate limiting is retried
package llm

import (
	"context"
	"errors"

	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/models"
	"github.com/harper/study-standalone/internal/util"
	"go.uber.org/zap"
)

// RetryingEmbedder bounds every embedding call by a policy
type RetryingEmbedder struct {
	inner    Embedder
	provider string
	policy   util.RetryPolicy
}

// NewRetryingEmbedder wraps inner; a nil Retryable in policy defaults to models.IsRetryable
func NewRetryingEmbedder(inner Embedder, provider string, policy util.RetryPolicy, logger *zap.Logger) *RetryingEmbedder {
	return &RetryingEmbedder{
		inner:    inner,
		provider: provider,
		policy:   withDefaults(policy, logging.OrNop(logger).With(zap.String("service", "embedding"), zap.String("provider", provider))),
	}
}

// Embed calls the wrapped embedder under the policy
func (r *RetryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		v, err := r.inner.Embed(ctx, texts)
		if err != nil {
			return r.classify(ctx, err)
		}
		vectors = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (r *RetryingEmbedder) classify(ctx context.Context, err error) error {
	var svcErr *models.EmbeddingServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	if isDeadline(ctx, err) {
		return embeddingError(r.provider, models.ReasonTimeout, err)
	}
	return embeddingError(r.provider, models.ReasonUnavailable, err)
}

// RetryingGenerator bounds every generation call by a policy
type RetryingGenerator struct {
	inner    Generator
	provider string
	policy   util.RetryPolicy
}

// NewRetryingGenerator wraps inner; a nil Retryable in policy defaults to models.IsRetryable
func NewRetryingGenerator(inner Generator, provider string, policy util.RetryPolicy, logger *zap.Logger) *RetryingGenerator {
	return &RetryingGenerator{
		inner:    inner,
		provider: provider,
		policy:   withDefaults(policy, logging.OrNop(logger).With(zap.String("service", "generation"), zap.String("provider", provider))),
	}
}

// Complete calls the wrapped generator under the policy
func (r *RetryingGenerator) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var out string
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		text, err := r.inner.Complete(ctx, req)
		if err != nil {
			return r.classify(ctx, err)
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (r *RetryingGenerator) classify(ctx context.Context, err error) error {
	var timeoutErr *models.GenerationTimeoutError
	if errors.As(err, &timeoutErr) {
		return err
	}
	var svcErr *models.GenerationServiceError
	if errors.As(err, &svcErr) {
		if svcErr.Reason == models.ReasonTimeout {
			return &models.GenerationTimeoutError{Provider: r.provider, Timeout: r.policy.Timeout}
		}
		return err
	}
	if isDeadline(ctx, err) {
		return &models.GenerationTimeoutError{Provider: r.provider, Timeout: r.policy.Timeout}
	}
	return generationError(r.provider, models.ReasonUnavailable, err)
}

func withDefaults(policy util.RetryPolicy, logger *zap.Logger) util.RetryPolicy {
	if policy.Retryable == nil {
		policy.Retryable = models.IsRetryable
	}
	next := policy.OnRetry
	policy.OnRetry = func(attempt int, err error) {
		logger.Warn("retrying service call", zap.Int("attempt", attempt), zap.Error(err))
		if next != nil {
			next(attempt, err)
		}
	}
	return policy
}
