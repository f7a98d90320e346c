package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/quillchat/quill/internal/models"
	"github.com/quillchat/quill/internal/provider"
	"go.uber.org/zap"
)

type fakeAdapter struct {
	content string
	err     error
	lastReq provider.Request
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.content}, nil
}

func userMessage(content string) models.Message {
	return models.Message{Role: models.RoleUser, Type: models.TypeText, Content: content}
}

func TestProviderSummarizer(t *testing.T) {
	ctx := context.Background()
	messages := []models.Message{
		userMessage("Help me plan a weekend trip to the coast"),
		{Role: models.RoleAssistant, Type: models.TypeText, Content: "Sure, when are you leaving?"},
	}
	assistant := &models.Assistant{ID: "asst-1"}

	tests := []struct {
		name    string
		adapter *fakeAdapter
		want    string
		wantErr bool
	}{
		{name: "plain title", adapter: &fakeAdapter{content: "Weekend Trip Planning"}, want: "Weekend Trip Planning"},
		{name: "quoted title is trimmed", adapter: &fakeAdapter{content: `"Weekend Trip Planning"`}, want: "Weekend Trip Planning"},
		{name: "multi-line keeps first line", adapter: &fakeAdapter{content: "Trip Planning\nextra"}, want: "Trip Planning"},
		{name: "empty reply stays empty", adapter: &fakeAdapter{content: "  "}, want: ""},
		{name: "adapter error propagates", adapter: &fakeAdapter{err: errors.New("boom")}, want: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProviderSummarizer(tt.adapter, "gpt-4o-mini", zap.NewNop())
			got, err := s.Summarize(ctx, messages, assistant)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Summarize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProviderSummarizerTranscriptSkipsClearMarkers(t *testing.T) {
	adapter := &fakeAdapter{content: "Title"}
	s := NewProviderSummarizer(adapter, "gpt-4o-mini", zap.NewNop())

	messages := []models.Message{
		userMessage("real question"),
		{Role: models.RoleUser, Type: models.TypeClear},
	}
	if _, err := s.Summarize(context.Background(), messages, &models.Assistant{}); err != nil {
		t.Fatalf("Summarize() unexpected error: %v", err)
	}

	prompt := adapter.lastReq.Turns[0].Content
	if !strings.Contains(prompt, "real question") {
		t.Error("transcript missing user content")
	}
	if strings.Contains(prompt, "user: \n") {
		t.Error("transcript should not include the content-free clear marker")
	}
}

func TestHeuristicSummarizer(t *testing.T) {
	tests := []struct {
		name     string
		messages []models.Message
		want     string
	}{
		{
			name:     "first user line",
			messages: []models.Message{userMessage("Plan my trip\nwith details")},
			want:     "Plan my trip",
		},
		{
			name: "skips clear markers",
			messages: []models.Message{
				{Role: models.RoleUser, Type: models.TypeClear},
				userMessage("Actual question"),
			},
			want: "Actual question",
		},
		{
			name:     "no user message",
			messages: []models.Message{{Role: models.RoleAssistant, Type: models.TypeText, Content: "hi"}},
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HeuristicSummarizer{}.Summarize(context.Background(), tt.messages, &models.Assistant{})
			if err != nil {
				t.Fatalf("Summarize() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}
