package models

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the lifecycle state of a message. A message moves
// sending -> pending -> (success | paused | error); paused and error are
// terminal, a regenerate creates a new message instead of transitioning
// an existing one.
type Status string

const (
	StatusSending Status = "sending"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusPaused  Status = "paused"
	StatusError   Status = "error"
)

// MessageType distinguishes ordinary text from the two sentinel kinds:
// "@" marks a targeted regeneration for a specific model, "clear" marks a
// context-reset boundary and carries no meaningful content.
type MessageType string

const (
	TypeText       MessageType = "text"
	TypeRegenerate MessageType = "@"
	TypeClear      MessageType = "clear"
)

// DefaultTopicName is the placeholder a topic keeps until auto-rename
// produces a real title.
const DefaultTopicName = "New Topic"

// Usage is the token accounting reported by a provider for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message is one entry in a topic's ordered history.
type Message struct {
	ID          string      `json:"id"`
	AssistantID string      `json:"assistant_id"`
	TopicID     string      `json:"topic_id"`
	Role        Role        `json:"role"`
	Content     string      `json:"content"`
	Status      Status      `json:"status"`
	Type        MessageType `json:"type"`
	ModelID     string      `json:"model_id,omitempty"`
	FileIDs     []string    `json:"file_ids,omitempty"`
	Images      []string    `json:"images,omitempty"`
	Usage       *Usage      `json:"usage,omitempty"`
	IsPreset    bool        `json:"is_preset,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Topic is a named conversation thread owned by an assistant. Messages are
// persisted oldest first.
type Topic struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistant_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssistantSettings are the per-assistant behavior knobs.
type AssistantSettings struct {
	ContextCount       int     `json:"context_count"`
	Temperature        float64 `json:"temperature"`
	MaxTokens          int     `json:"max_tokens"`
	Stream             bool    `json:"stream"`
	HidePresetMessages bool    `json:"hide_preset_messages"`
	AutoResetModel     bool    `json:"auto_reset_model"`
}

// Assistant is a configured persona/model binding that owns topics.
type Assistant struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Prompt   string            `json:"prompt"`
	Model    string            `json:"model"`
	Provider string            `json:"provider"`
	Topics   []Topic           `json:"topics,omitempty"`
	Settings AssistantSettings `json:"settings"`
}

// FileMeta describes a stored attachment. Count is a reference count shared
// by every message, in any topic, that references the file.
type FileMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OrigName  string    `json:"orig_name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Ext       string    `json:"ext"`
	Category  string    `json:"category"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}
