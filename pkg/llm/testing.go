package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned by ScriptedClient when it runs out of
// scripted responses.
var ErrScriptExhausted = errors.New("scripted llm client: no responses left")

// ScriptedCall records one Generate invocation for assertions.
type ScriptedCall struct {
	System       string
	Conversation []Message
}

// ScriptedClient is a Client fake that replays a fixed sequence of responses.
// Safe for concurrent use.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []scriptedResponse
	calls     []ScriptedCall
}

type scriptedResponse struct {
	text string
	err  error
}

// NewScripted creates an empty scripted client.
func NewScripted() *ScriptedClient {
	return &ScriptedClient{}
}

// Enqueue appends a successful response to the script.
func (c *ScriptedClient) Enqueue(text string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, scriptedResponse{text: text})
	return c
}

// EnqueueError appends a failing response to the script.
func (c *ScriptedClient) EnqueueError(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, scriptedResponse{err: err})
	return c
}

// Generate implements Client by popping the next scripted response.
func (c *ScriptedClient) Generate(ctx context.Context, system string, conversation []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conv := make([]Message, len(conversation))
	copy(conv, conversation)
	c.calls = append(c.calls, ScriptedCall{System: system, Conversation: conv})

	if len(c.responses) == 0 {
		return "", ErrScriptExhausted
	}
	next := c.responses[0]
	c.responses = c.responses[1:]
	return next.text, next.err
}

// Calls returns a copy of the recorded invocations.
func (c *ScriptedClient) Calls() []ScriptedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ScriptedCall, len(c.calls))
	copy(out, c.calls)
	return out
}
