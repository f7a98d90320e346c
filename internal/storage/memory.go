package storage

import (
	"context"
	"sync"
	"time"

	"github.com/quillchat/quill/internal/models"
)

// MemoryStore keeps everything in process memory. Used for tests and
// ephemeral sessions.
type MemoryStore struct {
	mu       sync.RWMutex
	topics   map[string]*models.Topic
	messages map[string][]models.Message
	files    map[string]*models.FileMeta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		topics:   make(map[string]*models.Topic),
		messages: make(map[string][]models.Message),
		files:    make(map[string]*models.FileMeta),
	}
}

func (s *MemoryStore) GetMessages(ctx context.Context, topicID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.messages[topicID]
	if !exists {
		return []models.Message{}, nil
	}
	out := make([]models.Message, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *MemoryStore) ReplaceMessages(ctx context.Context, topicID string, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]models.Message, len(messages))
	copy(stored, messages)
	s.messages[topicID] = stored

	if topic, exists := s.topics[topicID]; exists {
		topic.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemoryStore) CreateTopic(ctx context.Context, topic models.Topic, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := topic
	s.topics[topic.ID] = &t

	stored := make([]models.Message, len(messages))
	copy(stored, messages)
	s.messages[topic.ID] = stored
	return nil
}

func (s *MemoryStore) RenameTopic(ctx context.Context, topicID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if topic, exists := s.topics[topicID]; exists {
		topic.Name = name
		topic.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemoryStore) ClearMessages(ctx context.Context, topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, topicID)
	return nil
}

func (s *MemoryStore) GetFile(ctx context.Context, fileID string) (*models.FileMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, exists := s.files[fileID]
	if !exists {
		return nil, nil
	}
	out := *file
	return &out, nil
}

func (s *MemoryStore) SaveFile(ctx context.Context, file *models.FileMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := *file
	s.files[file.ID] = &f
	return nil
}

func (s *MemoryStore) UpdateFileCount(ctx context.Context, fileID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if file, exists := s.files[fileID]; exists {
		file.Count = count
	}
	return nil
}

func (s *MemoryStore) DeleteFile(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files, fileID)
	return nil
}

// GetTopic returns the stored topic record, or nil if unknown.
func (s *MemoryStore) GetTopic(topicID string) *models.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topic, exists := s.topics[topicID]
	if !exists {
		return nil
	}
	out := *topic
	return &out
}

func (s *MemoryStore) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
