package models

import "testing"

func testAssistantAndTopic() (*Assistant, *Topic) {
	assistant := &Assistant{
		ID:       "asst-1",
		Name:     "Helper",
		Model:    "gpt-4o-mini",
		Provider: "openai",
	}
	topic := &Topic{ID: "topic-1", AssistantID: assistant.ID, Name: DefaultTopicName}
	return assistant, topic
}

func TestNewUserMessage(t *testing.T) {
	assistant, topic := testAssistantAndTopic()

	tests := []struct {
		name     string
		msgType  MessageType
		wantType MessageType
	}{
		{name: "default type", msgType: "", wantType: TypeText},
		{name: "explicit text", msgType: TypeText, wantType: TypeText},
		{name: "regenerate tag", msgType: TypeRegenerate, wantType: TypeRegenerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewUserMessage(assistant, topic, tt.msgType)
			if msg.Role != RoleUser {
				t.Errorf("role = %q, want %q", msg.Role, RoleUser)
			}
			if msg.Status != StatusSending {
				t.Errorf("status = %q, want %q", msg.Status, StatusSending)
			}
			if msg.Type != tt.wantType {
				t.Errorf("type = %q, want %q", msg.Type, tt.wantType)
			}
			if msg.AssistantID != assistant.ID || msg.TopicID != topic.ID {
				t.Errorf("ownership = (%q, %q), want (%q, %q)",
					msg.AssistantID, msg.TopicID, assistant.ID, topic.ID)
			}
			if msg.ID == "" || msg.CreatedAt.IsZero() {
				t.Error("expected generated id and timestamp")
			}
		})
	}
}

func TestNewAssistantMessage(t *testing.T) {
	assistant, topic := testAssistantAndTopic()

	msg := NewAssistantMessage(assistant, topic)
	if msg.Role != RoleAssistant {
		t.Errorf("role = %q, want %q", msg.Role, RoleAssistant)
	}
	if msg.Status != StatusPending {
		t.Errorf("status = %q, want %q", msg.Status, StatusPending)
	}
	if msg.ModelID != assistant.Model {
		t.Errorf("model = %q, want %q", msg.ModelID, assistant.Model)
	}
}

func TestNewAssistantMessageUniqueIDs(t *testing.T) {
	assistant, topic := testAssistantAndTopic()

	first := NewAssistantMessage(assistant, topic)
	second := NewAssistantMessage(assistant, topic)
	if first.ID == second.ID {
		t.Errorf("expected distinct ids, both were %q", first.ID)
	}
}

func TestNewClearMessage(t *testing.T) {
	assistant, topic := testAssistantAndTopic()

	msg := NewClearMessage(assistant, topic)
	if msg.Type != TypeClear {
		t.Errorf("type = %q, want %q", msg.Type, TypeClear)
	}
	if msg.Content != "" {
		t.Errorf("clear marker should carry no content, got %q", msg.Content)
	}
	if msg.Status != StatusSuccess {
		t.Errorf("status = %q, want %q", msg.Status, StatusSuccess)
	}
}
