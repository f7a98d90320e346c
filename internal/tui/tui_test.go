package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/quillchat/quill/internal/chat"
	"github.com/quillchat/quill/internal/eventbus"
	"github.com/quillchat/quill/internal/models"
	"github.com/quillchat/quill/internal/storage"
	"github.com/quillchat/quill/internal/summarizer"
	"go.uber.org/zap"
)

func testModel(t *testing.T, seed []models.Message) (*Model, *eventbus.Bus) {
	t.Helper()

	bus := eventbus.New()
	store := storage.NewMemoryStore()
	assistant := &models.Assistant{
		ID:       "asst-1",
		Name:     "Helper",
		Model:    "gpt-4o-mini",
		Settings: models.AssistantSettings{ContextCount: 10},
	}
	topic := models.NewTopic(assistant)
	for i := range seed {
		seed[i].TopicID = topic.ID
		seed[i].AssistantID = assistant.ID
	}
	if err := store.CreateTopic(context.Background(), topic, seed); err != nil {
		t.Fatalf("seeding topic: %v", err)
	}

	orch := chat.New(bus, store, summarizer.HeuristicSummarizer{}, assistant, zap.NewNop(), chat.Options{})
	t.Cleanup(orch.Close)
	if err := orch.LoadTopic(context.Background(), topic); err != nil {
		t.Fatalf("loading topic: %v", err)
	}

	m := NewModel(bus, orch, assistant, zap.NewNop())
	return &m, bus
}

func TestRenderMessages(t *testing.T) {
	m, _ := testModel(t, []models.Message{
		{ID: "m1", Role: models.RoleUser, Type: models.TypeText, Content: "hello", Status: models.StatusSuccess},
		{ID: "m2", Role: models.RoleUser, Type: models.TypeClear, Status: models.StatusSuccess},
		{ID: "m3", Role: models.RoleAssistant, Type: models.TypeText, Content: "hi there", Status: models.StatusSuccess},
		{ID: "m4", Role: models.RoleAssistant, Type: models.TypeText, Status: models.StatusPending},
	})

	out := m.renderMessages()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "hi there") {
		t.Errorf("rendered output missing message contents:\n%s", out)
	}
	if !strings.Contains(out, "context cleared") {
		t.Error("rendered output missing the clear-marker divider")
	}
	if !strings.Contains(out, "thinking") {
		t.Error("rendered output missing the pending indicator")
	}
}

func TestRenderMessagesHidesPresets(t *testing.T) {
	m, _ := testModel(t, []models.Message{
		{ID: "m1", Role: models.RoleUser, Type: models.TypeText, Content: "preset prompt", Status: models.StatusSuccess, IsPreset: true},
		{ID: "m2", Role: models.RoleUser, Type: models.TypeText, Content: "real question", Status: models.StatusSuccess},
	})
	m.assistant.Settings.HidePresetMessages = true

	out := m.renderMessages()
	if strings.Contains(out, "preset prompt") {
		t.Error("preset message rendered despite hide-preset-messages")
	}
	if !strings.Contains(out, "real question") {
		t.Error("non-preset message missing from output")
	}
}

func TestSendInputPublishesMessage(t *testing.T) {
	m, _ := testModel(t, nil)

	m.input.SetValue("  plan a trip  ")
	m.sendInput()

	got := m.orch.Messages()
	if len(got) != 2 {
		t.Fatalf("sequence length after send = %d, want 2 (message plus placeholder)", len(got))
	}
	if got[0].Content != "plan a trip" {
		t.Errorf("sent content = %q, want trimmed input", got[0].Content)
	}
	if m.input.Value() != "" {
		t.Error("input not reset after send")
	}
	if !m.waiting {
		t.Error("waiting flag not set after send")
	}
}

func TestForwardEventsDoesNotBlockPublisher(t *testing.T) {
	bus := eventbus.New()

	// stand in for Program.Send: blocked until the event loop drains, the
	// way a mid-Update Send is
	release := make(chan struct{})
	delivered := make(chan tea.Msg, 1)
	subs := forwardEvents(bus, func(msg tea.Msg) {
		<-release
		delivered <- msg
	})
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	done := make(chan struct{})
	go func() {
		bus.Publish(eventbus.EstimatedTokenCountEvent{Tokens: 1, ContextCount: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on the program's message loop")
	}

	close(release)
	select {
	case msg := <-delivered:
		if _, ok := msg.(busMsg); !ok {
			t.Fatalf("forwarded message type = %T, want busMsg", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("event never forwarded to the program")
	}
}

func TestWaitingClearedWhenPlaceholderFails(t *testing.T) {
	m, _ := testModel(t, nil)

	m.input.SetValue("a question")
	m.sendInput()
	if !m.waiting {
		t.Fatal("waiting flag not set after send")
	}

	placeholder := m.orch.Messages()[1]
	m.orch.FailMessage(placeholder.ID, "rate limited")

	updated, _ := m.Update(busMsg{evt: eventbus.EstimatedTokenCountEvent{}})
	if got := updated.(Model); got.waiting {
		t.Error("waiting still set after the placeholder reached a terminal error")
	}
}

func TestWaitingKeptWhilePlaceholderPending(t *testing.T) {
	m, _ := testModel(t, nil)

	m.input.SetValue("a question")
	m.sendInput()

	updated, _ := m.Update(busMsg{evt: eventbus.EstimatedTokenCountEvent{}})
	if got := updated.(Model); !got.waiting {
		t.Error("waiting cleared while the placeholder is still pending")
	}
}

func TestSendInputIgnoresBlank(t *testing.T) {
	m, _ := testModel(t, nil)

	m.input.SetValue("   ")
	m.sendInput()

	if got := m.orch.Messages(); len(got) != 0 {
		t.Errorf("sequence length = %d, want 0 for blank input", len(got))
	}
}
