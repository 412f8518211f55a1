// ABOUTME: Deterministic stand-ins for the embedding and generation services
// ABOUTME: Used by tests to assert ranking, grounding, and retry behaviour offline
package llmtest

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/harper/study-standalone/internal/llm"
)

// Dimensions is the length of every HashEmbedder vector
const Dimensions = 512

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "do": true, "does": true, "for": true, "from": true, "how": true, "in": true,
	"into": true, "is": true, "it": true, "its": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "this": true, "to": true, "was": true, "what": true,
	"which": true, "who": true, "with": true, "why": true,
}

// HashEmbedder maps text to a hashed bag-of-words vector. Texts sharing content
// words score higher; a constant bias component keeps every vector non-zero.
type HashEmbedder struct {
	// Fail, when set, is consulted before each call (1-based) and may return an error
	Fail func(call int, texts []string) error

	mu    sync.Mutex
	calls int
	texts int
}

// Embed implements llm.Embedder
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	h.calls++
	call := h.calls
	h.texts += len(texts)
	fail := h.Fail
	h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fail != nil {
		if err := fail(call, texts); err != nil {
			return nil, err
		}
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Vector(t)
	}
	return out, nil
}

// Calls returns how many Embed calls were made
func (h *HashEmbedder) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// TextsEmbedded returns how many texts were embedded across all calls
func (h *HashEmbedder) TextsEmbedded() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.texts
}

// Vector is the embedding HashEmbedder produces for text
func Vector(text string) []float32 {
	v := make([]float32, Dimensions)
	v[0] = 0.05
	for _, w := range Words(text) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		v[1+int(f.Sum32()%(Dimensions-1))] += 1
	}
	return v
}

// Words splits text into lower-case content words
func Words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

// Reply is one scripted generator response
type Reply struct {
	Text string
	Err  error
}

// ScriptedGenerator returns queued replies in order, or delegates to Respond
type ScriptedGenerator struct {
	// Respond, when set, answers any request the queue does not cover
	Respond func(req llm.CompletionRequest) (string, error)

	mu       sync.Mutex
	replies  []Reply
	requests []llm.CompletionRequest
}

// ErrNoReply is returned when the script runs out
var ErrNoReply = errors.New("scripted generator has no reply queued")

// Queue appends replies to the script
func (g *ScriptedGenerator) Queue(replies ...Reply) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, replies...)
	return g
}

// QueueText appends successful text replies
func (g *ScriptedGenerator) QueueText(texts ...string) *ScriptedGenerator {
	for _, t := range texts {
		g.Queue(Reply{Text: t})
	}
	return g
}

// Complete implements llm.Generator
func (g *ScriptedGenerator) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	if len(g.replies) > 0 {
		r := g.replies[0]
		g.replies = g.replies[1:]
		g.mu.Unlock()
		return r.Text, r.Err
	}
	respond := g.Respond
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if respond != nil {
		return respond(req)
	}
	return "", ErrNoReply
}

// Requests returns every request received so far
func (g *ScriptedGenerator) Requests() []llm.CompletionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]llm.CompletionRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

// Calls returns how many Complete calls were made
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// LastPrompt concatenates the message contents of the most recent request
func (g *ScriptedGenerator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range g.requests[len(g.requests)-1].Messages {
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
