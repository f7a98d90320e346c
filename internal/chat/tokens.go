package chat

import (
	"unicode/utf8"

	"github.com/quillchat/quill/internal/models"
)

// Rough chars-per-token ratio for the estimate shown in the UI. No pack
// tokenizer is exact across three providers anyway; the count only has to be
// stable and proportional.
const charsPerToken = 4

// messageOverheadTokens accounts for role/formatting tokens per message.
const messageOverheadTokens = 4

// EstimateTokens returns an estimated token total for the visible history.
// Clear markers carry no content and are skipped.
func EstimateTokens(messages []models.Message) int {
	total := 0
	for _, msg := range messages {
		if msg.Type == models.TypeClear {
			continue
		}
		total += utf8.RuneCountInString(msg.Content)/charsPerToken + messageOverheadTokens
	}
	return total
}

// ContextWindow returns the messages that would be sent as conversational
// context: everything after the last clear marker, minus markers and failed
// messages, capped to the most recent limit entries (no cap when limit <= 0).
func ContextWindow(messages []models.Message, limit int) []models.Message {
	start := 0
	for i, msg := range messages {
		if msg.Type == models.TypeClear {
			start = i + 1
		}
	}

	window := make([]models.Message, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		if msg.Type == models.TypeClear || msg.Status == models.StatusError {
			continue
		}
		window = append(window, msg)
	}

	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	return window
}

// ContextCount is the number of messages the next completion would include.
func ContextCount(messages []models.Message, limit int) int {
	return len(ContextWindow(messages, limit))
}
