package models

import (
	"time"

	"github.com/google/uuid"
)

// NewUserMessage builds an outgoing user message. The type tag defaults to
// text when empty.
func NewUserMessage(assistant *Assistant, topic *Topic, msgType MessageType) Message {
	if msgType == "" {
		msgType = TypeText
	}
	return Message{
		ID:          uuid.New().String(),
		AssistantID: assistant.ID,
		TopicID:     topic.ID,
		Role:        RoleUser,
		Status:      StatusSending,
		Type:        msgType,
		CreatedAt:   time.Now(),
	}
}

// NewAssistantMessage builds a reply placeholder in the pending state. The
// responder fills in content, usage and final status later.
func NewAssistantMessage(assistant *Assistant, topic *Topic) Message {
	return Message{
		ID:          uuid.New().String(),
		AssistantID: assistant.ID,
		TopicID:     topic.ID,
		Role:        RoleAssistant,
		Status:      StatusPending,
		Type:        TypeText,
		ModelID:     assistant.Model,
		CreatedAt:   time.Now(),
	}
}

// NewClearMessage builds a context-reset boundary marker. It has no content;
// only its position in the sequence matters.
func NewClearMessage(assistant *Assistant, topic *Topic) Message {
	msg := NewUserMessage(assistant, topic, TypeClear)
	msg.Status = StatusSuccess
	return msg
}

// NewTopic builds an empty topic with the placeholder name.
func NewTopic(assistant *Assistant) Topic {
	now := time.Now()
	return Topic{
		ID:          uuid.New().String(),
		AssistantID: assistant.ID,
		Name:        DefaultTopicName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
