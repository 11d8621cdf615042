package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labforge/labforge/pkg/llm"
	"github.com/labforge/labforge/pkg/models"
)

// conversationToLLM converts a lab conversation into LLM client messages.
func conversationToLLM(messages []models.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// generateWithRetry calls the LLM, retrying transient failures up to
// maxRetries additional attempts. Cancellation stops the loop immediately.
func generateWithRetry(ctx context.Context, client llm.Client, system string, conversation []llm.Message, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := client.Generate(ctx, system, conversation)
		if err == nil {
			return text, nil
		}
		lastErr = err
		slog.Warn("LLM call failed", "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("llm call failed after %d attempts: %w", maxRetries+1, lastErr)
}
