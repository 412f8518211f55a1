// ABOUTME: OpenAI provider for embeddings and chat completions
// ABOUTME: Classifies SDK failures into the service error taxonomy without retrying
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"

	"github.com/harper/study-standalone/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)

	openAIName = "openai"
)

// OpenAIConfig holds configuration for the OpenAI provider
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	HTTPClient     *http.Client
}

// OpenAI implements Embedder and Generator against the OpenAI API
type OpenAI struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
}

// NewOpenAI creates an OpenAI provider; the API key is required
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	return &OpenAI{
		client:         openai.NewClientWithConfig(clientCfg),
		chatModel:      chatModel,
		embeddingModel: openai.EmbeddingModel(embeddingModel),
	}, nil
}

// Name identifies the provider in errors and logs
func (c *OpenAI) Name() string { return openAIName }

// Embed generates one embedding per text in a single request
func (c *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, embeddingError(openAIName, classifyOpenAI(ctx, err), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, embeddingError(openAIName, models.ReasonBadResponse, fmt.Errorf("requested %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Complete runs one chat completion
func (c *OpenAI) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	// temperature is omitempty in the SDK; a literal 0 would fall back to the server default of 1
	temperature := float32(req.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", generationError(openAIName, classifyOpenAI(ctx, err), err)
	}
	if len(resp.Choices) == 0 {
		return "", generationError(openAIName, models.ReasonBadResponse, errors.New("no completion choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAI(ctx context.Context, err error) models.ServiceReason {
	if isDeadline(ctx, err) {
		return models.ReasonTimeout
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return reasonForStatus(status)
}

func reasonForStatus(status int) models.ServiceReason {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.ReasonUnauthenticated
	case status == http.StatusTooManyRequests:
		return models.ReasonRateLimited
	case status == 0 || status >= http.StatusInternalServerError:
		return models.ReasonUnavailable
	default:
		return models.ReasonBadResponse
	}
}
