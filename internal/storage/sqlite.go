package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quillchat/quill/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore is the desktop-default backend: a single local database file.
type SQLiteStore struct {
	db *gorm.DB
}

type topicRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	AssistantID string `gorm:"index;size:36"`
	Name        string `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (topicRow) TableName() string { return "topics" }

type messageRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	TopicID     string `gorm:"index;size:36"`
	AssistantID string `gorm:"size:36"`
	Role        string `gorm:"size:20"`
	Content     string `gorm:"type:text"`
	Status      string `gorm:"size:20"`
	Type        string `gorm:"size:10"`
	ModelID     string `gorm:"size:64"`
	FileIDs     string `gorm:"type:text"`
	Images      string `gorm:"type:text"`
	UsageJSON   string `gorm:"column:usage_json;type:text"`
	IsPreset    bool
	Seq         int `gorm:"index"`
	CreatedAt   time.Time
}

func (messageRow) TableName() string { return "messages" }

type fileRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:255"`
	OrigName  string `gorm:"size:255"`
	Path      string `gorm:"size:512"`
	Size      int64
	Ext       string `gorm:"size:16"`
	Category  string `gorm:"size:32"`
	Count     int
	CreatedAt time.Time
}

func (fileRow) TableName() string { return "files" }

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&topicRow{}, &messageRow{}, &fileRow{}); err != nil {
		return nil, fmt.Errorf("error migrating sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetMessages(ctx context.Context, topicID string) ([]models.Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}

	messages := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := rowToMessage(row)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *SQLiteStore) ReplaceMessages(ctx context.Context, topicID string, messages []models.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&messageRow{}, "topic_id = ?", topicID).Error; err != nil {
			return err
		}
		for i, msg := range messages {
			row, err := messageToRow(msg, topicID, i)
			if err != nil {
				return err
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return tx.Model(&topicRow{}).
			Where("id = ?", topicID).
			Update("updated_at", time.Now()).Error
	})
}

func (s *SQLiteStore) CreateTopic(ctx context.Context, topic models.Topic, messages []models.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := topicRow{
			ID:          topic.ID,
			AssistantID: topic.AssistantID,
			Name:        topic.Name,
			CreatedAt:   topic.CreatedAt,
			UpdatedAt:   topic.UpdatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for i, msg := range messages {
			mrow, err := messageToRow(msg, topic.ID, i)
			if err != nil {
				return err
			}
			if err := tx.Create(&mrow).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) RenameTopic(ctx context.Context, topicID, name string) error {
	return s.db.WithContext(ctx).Model(&topicRow{}).
		Where("id = ?", topicID).
		Updates(map[string]any{"name": name, "updated_at": time.Now()}).Error
}

func (s *SQLiteStore) ClearMessages(ctx context.Context, topicID string) error {
	return s.db.WithContext(ctx).Delete(&messageRow{}, "topic_id = ?", topicID).Error
}

func (s *SQLiteStore) GetFile(ctx context.Context, fileID string) (*models.FileMeta, error) {
	var row fileRow
	err := s.db.WithContext(ctx).Where("id = ?", fileID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying file: %w", err)
	}

	return &models.FileMeta{
		ID:        row.ID,
		Name:      row.Name,
		OrigName:  row.OrigName,
		Path:      row.Path,
		Size:      row.Size,
		Ext:       row.Ext,
		Category:  row.Category,
		Count:     row.Count,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *SQLiteStore) SaveFile(ctx context.Context, file *models.FileMeta) error {
	row := fileRow{
		ID:        file.ID,
		Name:      file.Name,
		OrigName:  file.OrigName,
		Path:      file.Path,
		Size:      file.Size,
		Ext:       file.Ext,
		Category:  file.Category,
		Count:     file.Count,
		CreatedAt: file.CreatedAt,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *SQLiteStore) UpdateFileCount(ctx context.Context, fileID string, count int) error {
	return s.db.WithContext(ctx).Model(&fileRow{}).
		Where("id = ?", fileID).
		Update("count", count).Error
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, fileID string) error {
	return s.db.WithContext(ctx).Delete(&fileRow{}, "id = ?", fileID).Error
}

func (s *SQLiteStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func messageToRow(msg models.Message, topicID string, seq int) (messageRow, error) {
	fileIDs, err := json.Marshal(msg.FileIDs)
	if err != nil {
		return messageRow{}, fmt.Errorf("error encoding file ids: %w", err)
	}
	images, err := json.Marshal(msg.Images)
	if err != nil {
		return messageRow{}, fmt.Errorf("error encoding images: %w", err)
	}
	usage := ""
	if msg.Usage != nil {
		raw, err := json.Marshal(msg.Usage)
		if err != nil {
			return messageRow{}, fmt.Errorf("error encoding usage: %w", err)
		}
		usage = string(raw)
	}

	return messageRow{
		ID:          msg.ID,
		TopicID:     topicID,
		AssistantID: msg.AssistantID,
		Role:        string(msg.Role),
		Content:     msg.Content,
		Status:      string(msg.Status),
		Type:        string(msg.Type),
		ModelID:     msg.ModelID,
		FileIDs:     string(fileIDs),
		Images:      string(images),
		UsageJSON:   usage,
		IsPreset:    msg.IsPreset,
		Seq:         seq,
		CreatedAt:   msg.CreatedAt,
	}, nil
}

func rowToMessage(row messageRow) (models.Message, error) {
	msg := models.Message{
		ID:          row.ID,
		AssistantID: row.AssistantID,
		TopicID:     row.TopicID,
		Role:        models.Role(row.Role),
		Content:     row.Content,
		Status:      models.Status(row.Status),
		Type:        models.MessageType(row.Type),
		ModelID:     row.ModelID,
		IsPreset:    row.IsPreset,
		CreatedAt:   row.CreatedAt,
	}
	if row.FileIDs != "" {
		if err := json.Unmarshal([]byte(row.FileIDs), &msg.FileIDs); err != nil {
			return msg, fmt.Errorf("error decoding file ids: %w", err)
		}
	}
	if row.Images != "" {
		if err := json.Unmarshal([]byte(row.Images), &msg.Images); err != nil {
			return msg, fmt.Errorf("error decoding images: %w", err)
		}
	}
	if row.UsageJSON != "" {
		msg.Usage = &models.Usage{}
		if err := json.Unmarshal([]byte(row.UsageJSON), msg.Usage); err != nil {
			return msg, fmt.Errorf("error decoding usage: %w", err)
		}
	}
	return msg, nil
}
