// Package provider adapts the chat core to the LLM vendor SDKs.
package provider

import (
	"context"

	"github.com/quillchat/quill/internal/models"
)

// Turn is one entry of the conversation history sent to a provider.
type Turn struct {
	Role    models.Role
	Content string
}

// Request is a single completion call.
type Request struct {
	Model       string
	System      string
	Turns       []Turn
	MaxTokens   int
	Temperature float64
}

// Response is the completed reply plus token accounting.
type Response struct {
	Content string
	Usage   models.Usage
}

// Adapter is implemented once per provider family.
type Adapter interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Config carries the credentials for all provider families.
type Config struct {
	OpenAIKey     string
	OpenAIBaseURL string
	AnthropicKey  string
	GeminiKey     string
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Resolve maps a provider identifier to its adapter. Unknown identifiers
// fall back to the OpenAI-compatible adapter, which covers the long tail of
// OpenAI-wire-format vendors via a custom base URL.
func Resolve(providerID string, cfg Config) Adapter {
	switch providerID {
	case ProviderAnthropic:
		return NewAnthropicAdapter(cfg.AnthropicKey)
	case ProviderGemini:
		return NewGeminiAdapter(cfg.GeminiKey)
	default:
		return NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	}
}
