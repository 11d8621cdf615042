// Package llm defines the language-model client interface used by every
// pipeline stage, plus the production Anthropic adapter and test fakes.
package llm

import "context"

// Message roles understood by all Client implementations.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation entry sent to the model.
type Message struct {
	Role    string
	Content string
}

// Client is the interface to the language-model inference backend.
// Implementations must be safe for concurrent use; call errors are
// retriable by the caller.
type Client interface {
	// Generate sends the system instruction and conversation to the model
	// and returns the assistant's text response.
	Generate(ctx context.Context, system string, conversation []Message) (string, error)
}

// GenerateFunc adapts a function to the Client interface.
type GenerateFunc func(ctx context.Context, system string, conversation []Message) (string, error)

// Generate implements Client.
func (f GenerateFunc) Generate(ctx context.Context, system string, conversation []Message) (string, error) {
	return f(ctx, system, conversation)
}
