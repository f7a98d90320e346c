// Package chat owns the message lifecycle for the active topic.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quillchat/quill/internal/eventbus"
	"github.com/quillchat/quill/internal/models"
	"github.com/quillchat/quill/internal/storage"
	"github.com/quillchat/quill/internal/summarizer"
	"go.uber.org/zap"
)

// ImageSaver is the export sink boundary.
type ImageSaver interface {
	SaveImage(name string, data []byte) (string, error)
}

// Options tune orchestrator side behavior. Zero values get defaults.
type Options struct {
	// RenameDelay is how long after a completed reply the auto-rename
	// attempt fires.
	RenameDelay time.Duration
	// Completer produces assistant replies; nil leaves placeholders pending
	// (useful in tests).
	Completer Completer
	// Exporter serves export-topic-image events; nil drops them.
	Exporter ImageSaver
}

const defaultRenameDelay = time.Second

// Orchestrator maintains the authoritative in-memory message sequence for
// one active (assistant, topic) pair and keeps it consistent with the store
// and with UI-visible derived state. All sequence mutation happens under one
// mutex; asynchronous continuations (completions, the rename timer) re-enter
// through it.
type Orchestrator struct {
	bus        *eventbus.Bus
	store      storage.Store
	summarizer summarizer.Summarizer
	completer  Completer
	exporter   ImageSaver
	logger     *zap.Logger

	renameDelay time.Duration

	mu        sync.Mutex
	assistant *models.Assistant
	topic     *models.Topic
	messages  []models.Message
	closed    bool

	subs []*eventbus.Subscription
}

func New(bus *eventbus.Bus, store storage.Store, summ summarizer.Summarizer, assistant *models.Assistant, logger *zap.Logger, opts Options) *Orchestrator {
	if opts.RenameDelay <= 0 {
		opts.RenameDelay = defaultRenameDelay
	}

	o := &Orchestrator{
		bus:         bus,
		store:       store,
		summarizer:  summ,
		completer:   opts.Completer,
		exporter:    opts.Exporter,
		logger:      logger,
		renameDelay: opts.RenameDelay,
		assistant:   assistant,
	}

	o.subs = []*eventbus.Subscription{
		bus.Subscribe(eventbus.SendMessage, o.onSendMessage),
		bus.Subscribe(eventbus.ReceiveMessage, o.onReceiveMessage),
		bus.Subscribe(eventbus.RegenerateMessage, o.onRegenerateMessage),
		bus.Subscribe(eventbus.AutoRename, o.onAutoRename),
		bus.Subscribe(eventbus.ClearMessages, o.onClearMessages),
		bus.Subscribe(eventbus.NewContext, o.onNewContext),
		bus.Subscribe(eventbus.NewBranch, o.onNewBranch),
		bus.Subscribe(eventbus.ExportTopicImage, o.onExportTopicImage),
	}
	return o
}

// Close releases the bus subscriptions. In-flight timers notice the closed
// flag and drop their work.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	for _, sub := range o.subs {
		sub.Close()
	}
}

// Topic returns the active topic, or nil before the first LoadTopic.
func (o *Orchestrator) Topic() *models.Topic {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.topic == nil {
		return nil
	}
	t := *o.topic
	return &t
}

// Messages returns a copy of the in-memory sequence, oldest first.
func (o *Orchestrator) Messages() []models.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]models.Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// LoadTopic makes topic active, replacing the in-memory sequence with its
// persisted history (empty if none).
func (o *Orchestrator) LoadTopic(ctx context.Context, topic models.Topic) error {
	messages, err := o.store.GetMessages(ctx, topic.ID)
	if err != nil {
		o.logger.Error("Failed to load topic messages",
			zap.Error(err),
			zap.String("topic_id", topic.ID))
		messages = []models.Message{}
	}

	o.mu.Lock()
	o.topic = &topic
	o.messages = messages
	o.mu.Unlock()

	o.publishEstimate()
	return err
}

// --- event handlers -------------------------------------------------------

func (o *Orchestrator) onSendMessage(evt eventbus.Event) {
	send, ok := evt.(eventbus.SendMessageEvent)
	if !ok {
		return
	}
	o.send(send.Message)
}

func (o *Orchestrator) onReceiveMessage(evt eventbus.Event) {
	// Auto-rename is decoupled from the receive path so rendering is never
	// blocked on a summarization call. The topic id is captured now and the
	// timer drops its work if the active topic changed in the meantime.
	o.mu.Lock()
	if o.topic == nil {
		o.mu.Unlock()
		return
	}
	topicID := o.topic.ID
	o.mu.Unlock()

	time.AfterFunc(o.renameDelay, func() {
		o.autoRename(topicID)
	})
}

func (o *Orchestrator) onRegenerateMessage(evt eventbus.Event) {
	regen, ok := evt.(eventbus.RegenerateMessageEvent)
	if !ok {
		return
	}
	o.Regenerate(regen.Model)
}

func (o *Orchestrator) onAutoRename(eventbus.Event) {
	o.mu.Lock()
	if o.topic == nil {
		o.mu.Unlock()
		return
	}
	topicID := o.topic.ID
	o.mu.Unlock()

	o.autoRename(topicID)
}

func (o *Orchestrator) onClearMessages(eventbus.Event) {
	o.ClearMessages()
}

func (o *Orchestrator) onNewContext(eventbus.Event) {
	o.ClearContext()
}

func (o *Orchestrator) onNewBranch(evt eventbus.Event) {
	branch, ok := evt.(eventbus.NewBranchEvent)
	if !ok {
		return
	}
	if _, err := o.BranchTopic(branch.Index); err != nil {
		o.logger.Error("Failed to branch topic", zap.Error(err))
	}
}

func (o *Orchestrator) onExportTopicImage(evt eventbus.Event) {
	export, ok := evt.(eventbus.ExportTopicImageEvent)
	if !ok || o.exporter == nil {
		return
	}
	path, err := o.exporter.SaveImage(export.Name, export.Data)
	if err != nil {
		o.logger.Error("Failed to export topic image",
			zap.Error(err),
			zap.String("name", export.Name))
		return
	}
	o.logger.Info("Exported topic image", zap.String("path", path))
}

// --- operations -----------------------------------------------------------

// send appends msg plus a fresh assistant placeholder, persists the sequence
// in a single write, and dispatches the completion call. Both messages are
// inserted under one lock acquisition: readers never observe only one of
// them.
func (o *Orchestrator) send(msg models.Message) {
	o.mu.Lock()
	if o.topic == nil {
		o.mu.Unlock()
		return
	}

	msg.TopicID = o.topic.ID
	if msg.AssistantID == "" {
		msg.AssistantID = o.assistant.ID
	}
	if msg.Status == models.StatusSending {
		msg.Status = models.StatusSuccess
	}

	placeholder := models.NewAssistantMessage(o.assistant, o.topic)
	if msg.Type == models.TypeRegenerate && msg.ModelID != "" {
		placeholder.ModelID = msg.ModelID
	}

	o.messages = append(o.messages, msg, placeholder)
	o.persistLocked()

	window := ContextWindow(o.messages[:len(o.messages)-1], o.assistant.Settings.ContextCount)
	assistant := o.assistant
	o.mu.Unlock()

	o.publishEstimate()
	o.dispatchCompletion(assistant, window, placeholder)
}

// Regenerate re-sends the most recent user message as a new message with a
// fresh identity, tagged for the selected model. No-op when no user message
// exists.
func (o *Orchestrator) Regenerate(model string) {
	o.mu.Lock()
	var found *models.Message
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].Role == models.RoleUser && o.messages[i].Type != models.TypeClear {
			found = &o.messages[i]
			break
		}
	}
	if found == nil {
		o.mu.Unlock()
		return
	}

	resend := *found
	resend.ID = uuid.New().String()
	resend.Type = models.TypeRegenerate
	resend.ModelID = model
	resend.Status = models.StatusSending
	resend.CreatedAt = time.Now()
	o.mu.Unlock()

	o.send(resend)
}

// DeleteMessage removes exactly the message with the given id, preserving
// the order of the rest, and releases the files it referenced.
func (o *Orchestrator) DeleteMessage(id string) {
	o.mu.Lock()
	idx := -1
	for i, msg := range o.messages {
		if msg.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		o.mu.Unlock()
		return
	}

	removed := o.messages[idx]
	o.messages = append(o.messages[:idx], o.messages[idx+1:]...)
	o.persistLocked()
	o.mu.Unlock()

	o.releaseFiles(distinctFileIDs([]models.Message{removed}))
	o.publishEstimate()
}

// ClearContext appends a clear marker, or removes a trailing one so that
// clearing twice in a row undoes itself. Empty histories are left alone.
func (o *Orchestrator) ClearContext() {
	o.mu.Lock()
	if o.topic == nil || len(o.messages) == 0 {
		o.mu.Unlock()
		return
	}

	if last := o.messages[len(o.messages)-1]; last.Type == models.TypeClear {
		o.messages = o.messages[:len(o.messages)-1]
	} else {
		o.messages = append(o.messages, models.NewClearMessage(o.assistant, o.topic))
	}
	o.persistLocked()
	o.mu.Unlock()

	o.publishEstimate()
}

// ClearMessages wipes the active topic's history and releases every file
// reference it held.
func (o *Orchestrator) ClearMessages() {
	o.mu.Lock()
	if o.topic == nil {
		o.mu.Unlock()
		return
	}
	topicID := o.topic.ID
	removed := o.messages
	o.messages = nil
	o.mu.Unlock()

	if err := o.store.ClearMessages(context.Background(), topicID); err != nil {
		o.logger.Error("Failed to clear messages",
			zap.Error(err),
			zap.String("topic_id", topicID))
	}
	for _, msg := range removed {
		o.releaseFiles(distinctFileIDs([]models.Message{msg}))
	}
	o.publishEstimate()
}

// BranchTopic creates a new topic seeded with the oldest (len - index)
// messages of the current one, counting index from the most recent message.
// The new topic inherits the display name, every distinct file referenced in
// the copied range gains one reference, and the branch becomes active.
func (o *Orchestrator) BranchTopic(index int) (*models.Topic, error) {
	o.mu.Lock()
	if o.topic == nil {
		o.mu.Unlock()
		return nil, nil
	}

	count := len(o.messages) - index
	if count < 0 {
		count = 0
	}
	if count > len(o.messages) {
		count = len(o.messages)
	}

	branch := models.NewTopic(o.assistant)
	branch.Name = o.topic.Name

	copied := make([]models.Message, count)
	copy(copied, o.messages[:count])
	for i := range copied {
		copied[i].ID = uuid.New().String()
		copied[i].TopicID = branch.ID
	}

	if err := o.store.CreateTopic(context.Background(), branch, copied); err != nil {
		o.mu.Unlock()
		return nil, err
	}

	o.topic = &branch
	o.messages = copied
	o.mu.Unlock()

	o.retainFiles(distinctFileIDs(copied))
	o.publishEstimate()
	go o.autoRename(branch.ID)

	return &branch, nil
}

// CompleteMessage fills in a placeholder after the provider call succeeded
// and announces the completed reply.
func (o *Orchestrator) CompleteMessage(id, content string, usage *models.Usage) {
	msg, ok := o.finishMessage(id, func(m *models.Message) {
		m.Content = content
		m.Usage = usage
		m.Status = models.StatusSuccess
	})
	if !ok {
		return
	}

	o.publishEstimate()
	o.bus.Publish(eventbus.ReceiveMessageEvent{Message: msg})
}

// FailMessage marks a placeholder failed. The error text is rendered as-is;
// there is no automatic retry.
func (o *Orchestrator) FailMessage(id, errText string) {
	o.finishMessage(id, func(m *models.Message) {
		m.Content = errText
		m.Status = models.StatusError
	})
	o.publishEstimate()
}

// PauseMessage marks a pending placeholder paused, a terminal state.
func (o *Orchestrator) PauseMessage(id string) {
	o.finishMessage(id, func(m *models.Message) {
		if m.Status == models.StatusPending {
			m.Status = models.StatusPaused
		}
	})
	o.publishEstimate()
}

func (o *Orchestrator) finishMessage(id string, mutate func(*models.Message)) (models.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.messages {
		if o.messages[i].ID == id {
			mutate(&o.messages[i])
			o.persistLocked()
			return o.messages[i], true
		}
	}
	return models.Message{}, false
}

// --- internals ------------------------------------------------------------

// autoRename renames the topic once it still carries the placeholder name
// and has at least two messages. Safe to call repeatedly: the guard makes a
// second invocation a no-op after any rename.
func (o *Orchestrator) autoRename(topicID string) {
	o.mu.Lock()
	if o.closed || o.topic == nil || o.topic.ID != topicID {
		o.mu.Unlock()
		return
	}
	if o.topic.Name != models.DefaultTopicName || len(o.messages) < 2 {
		o.mu.Unlock()
		return
	}
	messages := make([]models.Message, len(o.messages))
	copy(messages, o.messages)
	assistant := o.assistant
	o.mu.Unlock()

	name, err := o.summarizer.Summarize(context.Background(), messages, assistant)
	if err != nil || name == "" {
		// failed or empty summary: keep the placeholder name, no retry
		return
	}

	o.mu.Lock()
	if o.closed || o.topic == nil || o.topic.ID != topicID || o.topic.Name != models.DefaultTopicName {
		o.mu.Unlock()
		return
	}
	o.topic.Name = name
	o.topic.UpdatedAt = time.Now()
	o.mu.Unlock()

	if err := o.store.RenameTopic(context.Background(), topicID, name); err != nil {
		o.logger.Error("Failed to persist topic name",
			zap.Error(err),
			zap.String("topic_id", topicID))
	}
}

func (o *Orchestrator) dispatchCompletion(assistant *models.Assistant, window []models.Message, placeholder models.Message) {
	if o.completer == nil {
		return
	}

	turns := TurnsFromMessages(window)
	go func() {
		resp, err := o.completer.Respond(context.Background(), assistant, turns, placeholder.ModelID)
		if err != nil {
			o.FailMessage(placeholder.ID, err.Error())
			return
		}
		o.CompleteMessage(placeholder.ID, resp.Content, &resp.Usage)
	}()
}

// persistLocked writes the whole sequence for the active topic. Callers hold
// o.mu.
func (o *Orchestrator) persistLocked() {
	if o.topic == nil {
		return
	}
	if err := o.store.ReplaceMessages(context.Background(), o.topic.ID, o.messages); err != nil {
		o.logger.Error("Failed to persist messages",
			zap.Error(err),
			zap.String("topic_id", o.topic.ID))
	}
}

func (o *Orchestrator) publishEstimate() {
	o.mu.Lock()
	messages := make([]models.Message, len(o.messages))
	copy(messages, o.messages)
	limit := o.assistant.Settings.ContextCount
	o.mu.Unlock()

	o.bus.Publish(eventbus.EstimatedTokenCountEvent{
		Tokens:       EstimateTokens(messages),
		ContextCount: ContextCount(messages, limit),
	})
}

// retainFiles adds one reference per file id.
func (o *Orchestrator) retainFiles(fileIDs []string) {
	ctx := context.Background()
	for _, id := range fileIDs {
		file, err := o.store.GetFile(ctx, id)
		if err != nil || file == nil {
			continue
		}
		if err := o.store.UpdateFileCount(ctx, id, file.Count+1); err != nil {
			o.logger.Error("Failed to update file count",
				zap.Error(err),
				zap.String("file_id", id))
		}
	}
}

// releaseFiles drops one reference per file id; a record reaching zero is
// deleted.
func (o *Orchestrator) releaseFiles(fileIDs []string) {
	ctx := context.Background()
	for _, id := range fileIDs {
		file, err := o.store.GetFile(ctx, id)
		if err != nil || file == nil {
			continue
		}
		if file.Count <= 1 {
			if err := o.store.DeleteFile(ctx, id); err != nil {
				o.logger.Error("Failed to delete file record",
					zap.Error(err),
					zap.String("file_id", id))
			}
			continue
		}
		if err := o.store.UpdateFileCount(ctx, id, file.Count-1); err != nil {
			o.logger.Error("Failed to update file count",
				zap.Error(err),
				zap.String("file_id", id))
		}
	}
}

// distinctFileIDs collects the unique file ids referenced by messages, in
// first-seen order.
func distinctFileIDs(messages []models.Message) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, msg := range messages {
		for _, id := range msg.FileIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
