// ABOUTME: Builds the configured provider pair with retry policies applied
// ABOUTME: The session receives only the Embedder and Generator interfaces
package llm

import (
	"fmt"

	"github.com/harper/study-standalone/internal/config"
	"github.com/harper/study-standalone/internal/util"
	"go.uber.org/zap"
)

// Provider is a ready-to-use embedding and generation pair
type Provider struct {
	Name      string
	Embedder  Embedder
	Generator Generator
}

// RetryHook observes retries; service is "embedding" or "generation"
type RetryHook func(service string, attempt int, err error)

// New builds the provider selected by cfg.Provider
func New(cfg *config.Config, logger *zap.Logger, hook RetryHook) (*Provider, error) {
	var (
		embedder  Embedder
		generator Generator
	)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err := NewOpenAI(OpenAIConfig{
			APIKey:         cfg.OpenAIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
		})
		if err != nil {
			return nil, err
		}
		embedder, generator = client, client
	case config.ProviderOllama:
		client, err := NewOllama(OllamaConfig{
			ServerURL:      cfg.OllamaHost,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
		})
		if err != nil {
			return nil, err
		}
		embedder, generator = client, client
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	return Wrap(cfg.Provider, embedder, generator, cfg, logger, hook), nil
}

// Wrap applies the configured retry policy to an embedder and generator
func Wrap(name string, embedder Embedder, generator Generator, cfg *config.Config, logger *zap.Logger, hook RetryHook) *Provider {
	policyFor := func(service string) util.RetryPolicy {
		p := *util.NewRetryPolicy(cfg.MaxRetries, cfg.RetryDelay, cfg.Timeout, nil)
		if hook != nil {
			p.OnRetry = func(attempt int, err error) { hook(service, attempt, err) }
		}
		return p
	}

	return &Provider{
		Name:      name,
		Embedder:  NewRetryingEmbedder(embedder, name, policyFor("embedding"), logger),
		Generator: NewRetryingGenerator(generator, name, policyFor("generation"), logger),
	}
}
