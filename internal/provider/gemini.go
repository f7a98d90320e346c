package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/quillchat/quill/internal/models"
	"google.golang.org/genai"
)

// GeminiAdapter speaks the Gemini API.
type GeminiAdapter struct {
	apiKey string

	once      sync.Once
	client    *genai.Client
	clientErr error
}

func NewGeminiAdapter(apiKey string) *GeminiAdapter {
	return &GeminiAdapter{apiKey: apiKey}
}

func (a *GeminiAdapter) Name() string { return ProviderGemini }

func (a *GeminiAdapter) init(ctx context.Context) (*genai.Client, error) {
	a.once.Do(func() {
		a.client, a.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  a.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return a.client, a.clientErr
}

func (a *GeminiAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	client, err := a.init(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini client init failed: %w", err)
	}

	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, turn := range req.Turns {
		var role genai.Role = genai.RoleUser
		if turn.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini completion failed: %w", err)
	}

	usage := models.Usage{}
	if resp.UsageMetadata != nil {
		usage = models.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return &Response{Content: resp.Text(), Usage: usage}, nil
}
