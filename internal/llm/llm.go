// ABOUTME: Provider-neutral interfaces for the embedding and generation services
// ABOUTME: Core components depend on these, never on a concrete SDK
package llm

import "context"

// Role identifies the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a generation prompt
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a single generation call
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	// JSON asks the provider to constrain output to a JSON object
	JSON bool
}

// Embedder maps texts to fixed-length vectors, one per input, in input order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from a prompt
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// System builds a system message
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant builds an assistant message
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }
