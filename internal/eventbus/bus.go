// Package eventbus is the in-process channel between the UI layer and the
// chat orchestrator. The event vocabulary is a closed set of typed payloads;
// delivery is synchronous, in subscription order, best-effort (no persistence,
// no replay).
package eventbus

import (
	"sync"

	"github.com/quillchat/quill/internal/models"
)

// Name identifies one event kind on the bus.
type Name string

const (
	SendMessage         Name = "send-message"
	ReceiveMessage      Name = "receive-message"
	RegenerateMessage   Name = "regenerate-message"
	AutoRename          Name = "auto-rename"
	ClearMessages       Name = "clear-messages"
	NewContext          Name = "new-context"
	NewBranch           Name = "new-branch"
	ExportTopicImage    Name = "export-topic-image"
	EstimatedTokenCount Name = "estimated-token-count"
)

// Event is one published payload. Every payload type pins its Name, so the
// vocabulary is checked at compile time rather than stringly-typed.
type Event interface {
	EventName() Name
}

// SendMessageEvent carries a fully-formed outgoing user message.
type SendMessageEvent struct {
	Message models.Message
}

func (SendMessageEvent) EventName() Name { return SendMessage }

// ReceiveMessageEvent signals that an assistant reply completed.
type ReceiveMessageEvent struct {
	Message models.Message
}

func (ReceiveMessageEvent) EventName() Name { return ReceiveMessage }

// RegenerateMessageEvent asks for the latest user message to be re-sent
// against the given model.
type RegenerateMessageEvent struct {
	Model string
}

func (RegenerateMessageEvent) EventName() Name { return RegenerateMessage }

// AutoRenameEvent requests an immediate rename attempt on the active topic.
type AutoRenameEvent struct{}

func (AutoRenameEvent) EventName() Name { return AutoRename }

// ClearMessagesEvent wipes the active topic's history.
type ClearMessagesEvent struct{}

func (ClearMessagesEvent) EventName() Name { return ClearMessages }

// NewContextEvent appends (or collapses) a context-reset marker.
type NewContextEvent struct{}

func (NewContextEvent) EventName() Name { return NewContext }

// NewBranchEvent forks the active topic. Index counts from the most recent
// message; the oldest (len - index) messages are copied.
type NewBranchEvent struct {
	Index int
}

func (NewBranchEvent) EventName() Name { return NewBranch }

// ExportTopicImageEvent carries rendered image data for the export sink.
type ExportTopicImageEvent struct {
	Name string
	Data []byte
}

func (ExportTopicImageEvent) EventName() Name { return ExportTopicImage }

// EstimatedTokenCountEvent is the derived state republished after every
// sequence change.
type EstimatedTokenCountEvent struct {
	Tokens       int
	ContextCount int
}

func (EstimatedTokenCountEvent) EventName() Name { return EstimatedTokenCount }

// Handler receives published events for one name.
type Handler func(Event)

// Subscription is a scoped handle; Close releases it. Closing twice is safe.
type Subscription struct {
	bus  *Bus
	name Name
	id   uint64
	once sync.Once
}

// Close removes the subscription from the bus.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.bus.remove(s.name, s.id) })
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus dispatches events to subscribers.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Name][]subscriber
}

func New() *Bus {
	return &Bus{subs: make(map[Name][]subscriber)}
}

// Subscribe registers a handler for one event name and returns its handle.
func (b *Bus) Subscribe(name Name, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[name] = append(b.subs[name], subscriber{id: b.nextID, handler: h})
	return &Subscription{bus: b, name: name, id: b.nextID}
}

// Publish delivers evt to every subscriber of its name, synchronously and in
// subscription order. Handlers registered during delivery see later events
// only.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs[evt.EventName()]))
	copy(subs, b.subs[evt.EventName()])
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(evt)
	}
}

func (b *Bus) remove(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
