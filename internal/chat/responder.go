package chat

import (
	"context"

	"github.com/quillchat/quill/internal/models"
	"github.com/quillchat/quill/internal/provider"
	"go.uber.org/zap"
)

// Completer produces the assistant reply for a context window. It is the
// collaborator that owns the success/error outcome of a placeholder; the
// orchestrator only records it.
type Completer interface {
	Respond(ctx context.Context, assistant *models.Assistant, turns []provider.Turn, model string) (*provider.Response, error)
}

// Responder completes placeholders through a provider adapter.
type Responder struct {
	adapter provider.Adapter
	logger  *zap.Logger
}

func NewResponder(adapter provider.Adapter, logger *zap.Logger) *Responder {
	return &Responder{adapter: adapter, logger: logger}
}

func (r *Responder) Respond(ctx context.Context, assistant *models.Assistant, turns []provider.Turn, model string) (*provider.Response, error) {
	if model == "" {
		model = assistant.Model
	}

	resp, err := r.adapter.Complete(ctx, provider.Request{
		Model:       model,
		System:      assistant.Prompt,
		Turns:       turns,
		MaxTokens:   assistant.Settings.MaxTokens,
		Temperature: assistant.Settings.Temperature,
	})
	if err != nil {
		r.logger.Error("Completion failed",
			zap.Error(err),
			zap.String("provider", r.adapter.Name()),
			zap.String("model", model))
		return nil, err
	}
	return resp, nil
}

// TurnsFromMessages maps a context window to provider turns, dropping
// entries with nothing to say.
func TurnsFromMessages(messages []models.Message) []provider.Turn {
	turns := make([]provider.Turn, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" || msg.Type == models.TypeClear {
			continue
		}
		turns = append(turns, provider.Turn{Role: msg.Role, Content: msg.Content})
	}
	return turns
}
