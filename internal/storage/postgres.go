package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/quillchat/quill/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresStore is the shared/synced backend.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(config DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	store := &PostgresStore{db: db}

	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetMessages(ctx context.Context, topicID string) ([]models.Message, error) {
	query := `
		SELECT id, assistant_id, topic_id, role, content, status, type,
		       model_id, file_ids, images, usage, is_preset, created_at
		FROM messages
		WHERE topic_id = $1
		ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var usage sql.NullString
		err := rows.Scan(
			&msg.ID,
			&msg.AssistantID,
			&msg.TopicID,
			&msg.Role,
			&msg.Content,
			&msg.Status,
			&msg.Type,
			&msg.ModelID,
			pq.Array(&msg.FileIDs),
			pq.Array(&msg.Images),
			&usage,
			&msg.IsPreset,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		if usage.Valid && usage.String != "" {
			msg.Usage = &models.Usage{}
			if err := json.Unmarshal([]byte(usage.String), msg.Usage); err != nil {
				return nil, fmt.Errorf("error decoding usage: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func (s *PostgresStore) ReplaceMessages(ctx context.Context, topicID string, messages []models.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE topic_id = $1`, topicID); err != nil {
		return fmt.Errorf("error clearing messages: %w", err)
	}

	for i, msg := range messages {
		if err := insertMessage(ctx, tx, topicID, i, msg); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE topics SET updated_at = $1 WHERE id = $2`, time.Now(), topicID); err != nil {
		return fmt.Errorf("error touching topic: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) CreateTopic(ctx context.Context, topic models.Topic, messages []models.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO topics (id, assistant_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query,
		topic.ID, topic.AssistantID, topic.Name, topic.CreatedAt, topic.UpdatedAt); err != nil {
		return fmt.Errorf("error creating topic: %w", err)
	}

	for i, msg := range messages {
		if err := insertMessage(ctx, tx, topic.ID, i, msg); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) RenameTopic(ctx context.Context, topicID, name string) error {
	query := `UPDATE topics SET name = $1, updated_at = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, name, time.Now(), topicID); err != nil {
		return fmt.Errorf("error renaming topic: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearMessages(ctx context.Context, topicID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE topic_id = $1`, topicID); err != nil {
		return fmt.Errorf("error clearing messages: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFile(ctx context.Context, fileID string) (*models.FileMeta, error) {
	query := `
		SELECT id, name, orig_name, path, size, ext, category, count, created_at
		FROM files
		WHERE id = $1`

	file := &models.FileMeta{}
	err := s.db.QueryRowContext(ctx, query, fileID).Scan(
		&file.ID,
		&file.Name,
		&file.OrigName,
		&file.Path,
		&file.Size,
		&file.Ext,
		&file.Category,
		&file.Count,
		&file.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying file: %w", err)
	}

	return file, nil
}

func (s *PostgresStore) SaveFile(ctx context.Context, file *models.FileMeta) error {
	query := `
		INSERT INTO files (id, name, orig_name, path, size, ext, category, count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			orig_name = EXCLUDED.orig_name,
			path = EXCLUDED.path,
			size = EXCLUDED.size,
			ext = EXCLUDED.ext,
			category = EXCLUDED.category,
			count = EXCLUDED.count`

	_, err := s.db.ExecContext(ctx, query,
		file.ID, file.Name, file.OrigName, file.Path,
		file.Size, file.Ext, file.Category, file.Count, file.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateFileCount(ctx context.Context, fileID string, count int) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE files SET count = $1 WHERE id = $2`, count, fileID); err != nil {
		return fmt.Errorf("error updating file count: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteFile(ctx context.Context, fileID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, fileID); err != nil {
		return fmt.Errorf("error deleting file: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func insertMessage(ctx context.Context, tx *sql.Tx, topicID string, seq int, msg models.Message) error {
	var usage any
	if msg.Usage != nil {
		raw, err := json.Marshal(msg.Usage)
		if err != nil {
			return fmt.Errorf("error encoding usage: %w", err)
		}
		usage = string(raw)
	}

	query := `
		INSERT INTO messages (id, assistant_id, topic_id, role, content, status, type,
		                      model_id, file_ids, images, usage, is_preset, seq, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.ExecContext(ctx, query,
		msg.ID,
		msg.AssistantID,
		topicID,
		msg.Role,
		msg.Content,
		msg.Status,
		msg.Type,
		msg.ModelID,
		pq.Array(msg.FileIDs),
		pq.Array(msg.Images),
		usage,
		msg.IsPreset,
		seq,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting message: %w", err)
	}
	return nil
}
