// ABOUTME: Local Ollama provider for embeddings and generation via langchaingo
// ABOUTME: Uses separate model handles for the embedding and chat models
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/harper/study-standalone/internal/models"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const ollamaName = "ollama"

// OllamaConfig holds configuration for the Ollama provider
type OllamaConfig struct {
	ServerURL      string
	ChatModel      string
	EmbeddingModel string
}

// Ollama implements Embedder and Generator against a local Ollama server
type Ollama struct {
	chat     *ollama.LLM
	embedder *embeddings.EmbedderImpl
}

// NewOllama creates the chat and embedding handles
func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	if cfg.ChatModel == "" || cfg.EmbeddingModel == "" {
		return nil, errors.New("ollama chat and embedding models are required")
	}

	chat, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.ChatModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama chat model: %w", err)
	}

	embedLLM, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedding model: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(embedLLM, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama embedder: %w", err)
	}

	return &Ollama{chat: chat, embedder: embedder}, nil
}

// Name identifies the provider in errors and logs
func (o *Ollama) Name() string { return ollamaName }

// Embed generates one embedding per text
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := o.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, embeddingError(ollamaName, classifyOllama(ctx, err), err)
	}
	if len(vectors) != len(texts) {
		return nil, embeddingError(ollamaName, models.ReasonBadResponse, fmt.Errorf("requested %d embeddings, got %d", len(texts), len(vectors)))
	}
	return vectors, nil
}

// Complete runs one chat generation
func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]llms.MessageContent, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = llms.TextParts(chatMessageType(m.Role), m.Content)
	}

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := o.chat.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", generationError(ollamaName, classifyOllama(ctx, err), err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", generationError(ollamaName, models.ReasonBadResponse, errors.New("no completion choices returned"))
	}
	return resp.Choices[0].Content, nil
}

func chatMessageType(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
