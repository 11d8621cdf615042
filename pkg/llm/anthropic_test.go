package llm

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessages struct {
	gotParams sdk.MessageNewParams
	resp      *sdk.Message
	err       error
}

func (f *fakeMessages) New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	f.gotParams = body
	return f.resp, f.err
}

func textMessage(blocks ...sdk.ContentBlockUnion) *sdk.Message {
	return &sdk.Message{Content: blocks}
}

func TestGenerateBuildsRequest(t *testing.T) {
	fake := &fakeMessages{resp: textMessage(sdk.ContentBlockUnion{Type: "text", Text: "hello"})}
	client := NewAnthropicWithMessages(fake, "claude-sonnet-4-5")

	out, err := client.Generate(context.Background(), "be terse", []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "again"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	assert.Equal(t, sdk.Model("claude-sonnet-4-5"), fake.gotParams.Model)
	assert.Len(t, fake.gotParams.Messages, 3)
	require.Len(t, fake.gotParams.System, 1)
	assert.Equal(t, "be terse", fake.gotParams.System[0].Text)
}

func TestGenerateOmitsEmptySystem(t *testing.T) {
	fake := &fakeMessages{resp: textMessage(sdk.ContentBlockUnion{Type: "text", Text: "ok"})}
	client := NewAnthropicWithMessages(fake, "m")

	_, err := client.Generate(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Empty(t, fake.gotParams.System)
}

func TestGenerateConcatenatesTextBlocks(t *testing.T) {
	fake := &fakeMessages{resp: textMessage(
		sdk.ContentBlockUnion{Type: "text", Text: "part one "},
		sdk.ContentBlockUnion{Type: "tool_use"},
		sdk.ContentBlockUnion{Type: "text", Text: "part two"},
	)}
	client := NewAnthropicWithMessages(fake, "m")

	out, err := client.Generate(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", out)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("unsupported role", func(t *testing.T) {
		client := NewAnthropicWithMessages(&fakeMessages{}, "m")
		_, err := client.Generate(context.Background(), "", []Message{{Role: "system", Content: "x"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported conversation role")
	})

	t.Run("api error wrapped", func(t *testing.T) {
		apiErr := errors.New("overloaded")
		client := NewAnthropicWithMessages(&fakeMessages{err: apiErr}, "m")
		_, err := client.Generate(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
		require.ErrorIs(t, err, apiErr)
	})

	t.Run("no text content", func(t *testing.T) {
		client := NewAnthropicWithMessages(&fakeMessages{resp: textMessage()}, "m")
		_, err := client.Generate(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no text content")
	})
}

func TestNewAnthropicValidation(t *testing.T) {
	_, err := NewAnthropic("", "m")
	assert.Error(t, err)

	_, err = NewAnthropic("key", "")
	assert.Error(t, err)

	client, err := NewAnthropic("key", "m")
	require.NoError(t, err)
	assert.NotNil(t, client)
}
