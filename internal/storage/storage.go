package storage

import (
	"context"

	"github.com/quillchat/quill/internal/models"
)

// Store persists topic histories and shared file records.
//
// Missing data is not an error: GetMessages returns an empty slice for an
// unknown topic and GetFile returns nil for an unknown file.
type Store interface {
	GetMessages(ctx context.Context, topicID string) ([]models.Message, error)
	ReplaceMessages(ctx context.Context, topicID string, messages []models.Message) error
	CreateTopic(ctx context.Context, topic models.Topic, messages []models.Message) error
	RenameTopic(ctx context.Context, topicID, name string) error
	ClearMessages(ctx context.Context, topicID string) error

	GetFile(ctx context.Context, fileID string) (*models.FileMeta, error)
	SaveFile(ctx context.Context, file *models.FileMeta) error
	UpdateFileCount(ctx context.Context, fileID string, count int) error
	DeleteFile(ctx context.Context, fileID string) error

	Close() error
}
