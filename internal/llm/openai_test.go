// ABOUTME: Tests for the OpenAI provider against a local HTTP server
// ABOUTME: Covers request shape, response ordering, and status-code classification
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harper/study-standalone/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return client
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{})
	assert.Error(t, err)
}

func TestOpenAI_EmbedOrdersByIndex(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultEmbeddingModel, body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[
			{"object":"embedding","embedding":[0,1],"index":1},
			{"object":"embedding","embedding":[1,0],"index":0}
		],"model":"text-embedding-3-small"}`))
	})

	vectors, err := client.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestOpenAI_EmbedCountMismatchIsBadResponse(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","embedding":[1],"index":0}]}`))
	})

	_, err := client.Embed(context.Background(), []string{"a", "b"})
	var svcErr *models.EmbeddingServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, models.ReasonBadResponse, svcErr.Reason)
}

func TestOpenAI_EmbedEmptyInput(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})

	vectors, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestOpenAI_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   models.ServiceReason
	}{
		{http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, models.ReasonUnauthenticated},
		{http.StatusForbidden, `{"error":{"message":"nope","type":"invalid_request_error"}}`, models.ReasonUnauthenticated},
		{http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, models.ReasonRateLimited},
		{http.StatusInternalServerError, `upstream exploded`, models.ReasonUnavailable},
		{http.StatusBadRequest, `{"error":{"message":"bad input","type":"invalid_request_error"}}`, models.ReasonBadResponse},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), CompletionRequest{Messages: []Message{User("hi")}})
			var svcErr *models.GenerationServiceError
			require.True(t, errors.As(err, &svcErr), "got %v", err)
			assert.Equal(t, tt.want, svcErr.Reason)
			assert.Equal(t, "openai", svcErr.Provider)
		})
	}
}

func TestOpenAI_CompleteRequestsJSONMode(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body struct {
			Model          string `json:"model"`
			Messages       []struct{ Role, Content string }
			ResponseFormat *struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultChatModel, body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		require.NotNil(t, body.ResponseFormat)
		assert.Equal(t, "json_object", body.ResponseFormat.Type)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[
			{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}
		]}`))
	})

	out, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{System("be terse"), User("hi")},
		JSON:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestOpenAI_CompleteSendsTemperature(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
		want        float64
	}{
		{"zero is sent, not omitted", 0, 0},
		{"non-zero passes through", 0.7, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				temperature, ok := body["temperature"]
				require.True(t, ok, "temperature missing from request body")
				assert.InDelta(t, tt.want, temperature, 1e-6)

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[
					{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}
				]}`))
			})

			_, err := client.Complete(context.Background(), CompletionRequest{
				Messages:    []Message{User("hi")},
				Temperature: tt.temperature,
			})
			require.NoError(t, err)
		})
	}
}

func TestOpenAI_NoChoicesIsBadResponse(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	})

	_, err := client.Complete(context.Background(), CompletionRequest{Messages: []Message{User("hi")}})
	var svcErr *models.GenerationServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, models.ReasonBadResponse, svcErr.Reason)
}
