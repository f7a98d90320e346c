package provider

import (
	"context"
	"fmt"

	"github.com/quillchat/quill/internal/models"
	"github.com/sashabaranov/go-openai"
)

// OpenAIAdapter speaks the OpenAI chat-completions format. With a custom
// base URL it also serves any OpenAI-compatible vendor.
type OpenAIAdapter struct {
	client *openai.Client
}

func NewOpenAIAdapter(apiKey, baseURL string) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{client: openai.NewClientWithConfig(cfg)}
}

func (a *OpenAIAdapter) Name() string { return ProviderOpenAI }

func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, turn := range req.Turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       req.Model,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			Temperature: float32(req.Temperature),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai completion returned no choices")
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Usage: models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
