// Package summarizer produces short topic titles from conversation history.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillchat/quill/internal/models"
	"github.com/quillchat/quill/internal/provider"
	"go.uber.org/zap"
)

// Summarizer condenses a message sequence into a topic title. An empty
// result (or an error) means the caller should keep the current name.
type Summarizer interface {
	Summarize(ctx context.Context, messages []models.Message, assistant *models.Assistant) (string, error)
}

const (
	maxTitleRunes      = 50
	maxTranscriptRunes = 4000
	summaryMaxTokens   = 30
)

// ProviderSummarizer asks an LLM adapter for the title.
type ProviderSummarizer struct {
	adapter provider.Adapter
	model   string
	logger  *zap.Logger
}

func NewProviderSummarizer(adapter provider.Adapter, model string, logger *zap.Logger) *ProviderSummarizer {
	return &ProviderSummarizer{
		adapter: adapter,
		model:   model,
		logger:  logger,
	}
}

func (s *ProviderSummarizer) Summarize(ctx context.Context, messages []models.Message, assistant *models.Assistant) (string, error) {
	transcript := buildTranscript(messages)
	if transcript == "" {
		return "", nil
	}

	prompt := fmt.Sprintf(`Summarize the following conversation as a short topic title.
Reply with the title only: no quotes, no punctuation at the end, at most six words,
in the conversation's own language.

Conversation:
%s`, transcript)

	resp, err := s.adapter.Complete(ctx, provider.Request{
		Model:       s.model,
		Turns:       []provider.Turn{{Role: models.RoleUser, Content: prompt}},
		MaxTokens:   summaryMaxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		s.logger.Error("Failed to summarize topic", zap.Error(err))
		return "", err
	}

	return cleanTitle(resp.Content), nil
}

// HeuristicSummarizer titles a topic from its first user message. Used when
// no provider is configured; also the cheap local default for tests.
type HeuristicSummarizer struct{}

func (HeuristicSummarizer) Summarize(ctx context.Context, messages []models.Message, assistant *models.Assistant) (string, error) {
	for _, msg := range messages {
		if msg.Role != models.RoleUser || msg.Type == models.TypeClear {
			continue
		}
		line := msg.Content
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		return cleanTitle(line), nil
	}
	return "", nil
}

func buildTranscript(messages []models.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Type == models.TypeClear || msg.Content == "" {
			continue
		}
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteByte('\n')
	}

	transcript := b.String()
	runes := []rune(transcript)
	if len(runes) > maxTranscriptRunes {
		transcript = string(runes[:maxTranscriptRunes])
	}
	return strings.TrimSpace(transcript)
}

func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes])
	}
	return title
}
