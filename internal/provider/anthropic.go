package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/quillchat/quill/internal/models"
)

const anthropicDefaultMaxTokens = 1024

// AnthropicAdapter speaks the Anthropic Messages API.
type AnthropicAdapter struct {
	client anthropic.Client
}

func NewAnthropicAdapter(apiKey string) *AnthropicAdapter {
	return &AnthropicAdapter{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

func (a *AnthropicAdapter) Name() string { return ProviderAnthropic }

func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Turns))
	for _, turn := range req.Turns {
		block := anthropic.NewTextBlock(turn.Content)
		if turn.Role == models.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		// the Messages API requires an explicit cap
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion failed: %w", err)
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &Response{
		Content: content.String(),
		Usage: models.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}
