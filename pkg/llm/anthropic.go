package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultMaxTokens caps completions; stage artifacts are JSON documents well
// under this size.
const defaultMaxTokens = 8192

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter. It is satisfied by *sdk.MessageService so callers can pass either
// a real client or a mock in tests.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements Client on top of the Anthropic Messages API.
type AnthropicClient struct {
	msg       MessagesClient
	model     string
	maxTokens int64
}

// NewAnthropic builds an Anthropic-backed client from an API key and model
// identifier.
func NewAnthropic(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	if model == "" {
		return nil, errors.New("model identifier is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		msg:       &ac.Messages,
		model:     model,
		maxTokens: defaultMaxTokens,
	}, nil
}

// NewAnthropicWithMessages builds a client around an existing MessagesClient.
// Used by tests to inject a mock.
func NewAnthropicWithMessages(msg MessagesClient, model string) *AnthropicClient {
	return &AnthropicClient{msg: msg, model: model, maxTokens: defaultMaxTokens}
}

// Generate implements Client. It issues a non-streaming Messages.New request
// and concatenates the text blocks of the response.
func (c *AnthropicClient) Generate(ctx context.Context, system string, conversation []Message) (string, error) {
	msgs := make([]sdk.MessageParam, 0, len(conversation))
	for _, m := range conversation {
		switch m.Role {
		case RoleAssistant:
			msgs = append(msgs, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		case RoleUser:
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		default:
			return "", fmt.Errorf("unsupported conversation role %q", m.Role)
		}
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	resp, err := c.msg.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic response contained no text content")
	}
	return sb.String(), nil
}
