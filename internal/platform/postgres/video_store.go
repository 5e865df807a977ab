// Package postgres implements the store interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/store"
)

// PostgreSQL error codes
const (
	pgUniqueViolationCode     = "23505"
	pgForeignKeyViolationCode = "23503"
)

// PostgresVideoStore implements the store.VideoStore interface
// using a PostgreSQL database as the storage backend.
type PostgresVideoStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresVideoStore creates a new PostgreSQL implementation of the
// VideoStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresVideoStore(db store.DBTX, logger *slog.Logger) *PostgresVideoStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresVideoStore{
		db:     db,
		logger: logger.With(slog.String("component", "video_store")),
	}
}

// Ensure PostgresVideoStore implements store.VideoStore interface
var _ store.VideoStore = (*PostgresVideoStore)(nil)

// Create implements store.VideoStore.Create
func (s *PostgresVideoStore) Create(ctx context.Context, video *domain.Video) error {
	if err := video.Validate(); err != nil {
		s.logger.Warn("video validation failed during create",
			slog.String("error", err.Error()),
			slog.String("video_id", video.ID.String()))
		return err
	}

	query := `
		INSERT INTO videos (id, filename, upload_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		video.ID,
		video.Filename,
		video.UploadPath,
		video.Status,
		video.CreatedAt,
		video.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return fmt.Errorf("%w: video with ID %s", store.ErrDuplicate, video.ID)
		}

		s.logger.Error("failed to create video",
			slog.String("error", err.Error()),
			slog.String("video_id", video.ID.String()))
		return err
	}

	s.logger.Info("video created",
		slog.String("video_id", video.ID.String()),
		slog.String("filename", video.Filename))
	return nil
}

// GetByID implements store.VideoStore.GetByID
func (s *PostgresVideoStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Video, error) {
	query := `
		SELECT id, filename, upload_path, status, created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	var video domain.Video
	var status string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&video.ID,
		&video.Filename,
		&video.UploadPath,
		&status,
		&video.CreatedAt,
		&video.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrVideoNotFound
		}
		s.logger.Error("failed to get video by ID",
			slog.String("error", err.Error()),
			slog.String("video_id", id.String()))
		return nil, err
	}

	video.Status = domain.VideoStatus(status)
	return &video, nil
}

// List implements store.VideoStore.List
func (s *PostgresVideoStore) List(ctx context.Context) ([]*domain.Video, error) {
	query := `
		SELECT id, filename, upload_path, status, created_at, updated_at
		FROM videos
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Error("failed to list videos", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var videos []*domain.Video
	for rows.Next() {
		var video domain.Video
		var status string
		if err := rows.Scan(
			&video.ID,
			&video.Filename,
			&video.UploadPath,
			&status,
			&video.CreatedAt,
			&video.UpdatedAt,
		); err != nil {
			return nil, err
		}
		video.Status = domain.VideoStatus(status)
		videos = append(videos, &video)
	}

	return videos, rows.Err()
}

// UpdateStatus implements store.VideoStore.UpdateStatus
func (s *PostgresVideoStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.VideoStatus) error {
	query := `
		UPDATE videos
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		s.logger.Error("failed to update video status",
			slog.String("error", err.Error()),
			slog.String("video_id", id.String()))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrVideoNotFound
	}

	s.logger.Debug("video status updated",
		slog.String("video_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// WithTx implements store.VideoStore.WithTx
func (s *PostgresVideoStore) WithTx(tx *sql.Tx) store.VideoStore {
	return &PostgresVideoStore{
		db:     tx,
		logger: s.logger,
	}
}
