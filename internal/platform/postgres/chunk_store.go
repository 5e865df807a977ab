package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/store"
)

// PostgresChunkStore implements the store.ChunkStore interface
// using a PostgreSQL database as the storage backend. Embeddings are
// stored as jsonb arrays so the schema does not depend on a vector
// extension being installed.
type PostgresChunkStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresChunkStore creates a new PostgreSQL implementation of the
// ChunkStore interface.
func NewPostgresChunkStore(db store.DBTX, logger *slog.Logger) *PostgresChunkStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresChunkStore{
		db:     db,
		logger: logger.With(slog.String("component", "chunk_store")),
	}
}

// Ensure PostgresChunkStore implements store.ChunkStore interface
var _ store.ChunkStore = (*PostgresChunkStore)(nil)

// ReplaceForVideo implements store.ChunkStore.ReplaceForVideo
func (s *PostgresChunkStore) ReplaceForVideo(ctx context.Context, videoID uuid.UUID, chunks []*domain.Chunk) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE video_id = $1`, videoID); err != nil {
		s.logger.Error("failed to delete existing chunks",
			slog.String("error", err.Error()),
			slog.String("video_id", videoID.String()))
		return err
	}

	for _, chunk := range chunks {
		if err := s.insert(ctx, chunk); err != nil {
			return err
		}
	}

	s.logger.Info("chunks replaced",
		slog.String("video_id", videoID.String()),
		slog.Int("count", len(chunks)))
	return nil
}

// Upsert implements store.ChunkStore.Upsert
func (s *PostgresChunkStore) Upsert(ctx context.Context, chunk *domain.Chunk) error {
	if err := chunk.Validate(); err != nil {
		s.logger.Warn("chunk validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("video_id", chunk.VideoID.String()),
			slog.Int("index", chunk.Index))
		return err
	}

	embedding, err := json.Marshal(chunk.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	query := `
		INSERT INTO chunks (video_id, chunk_index, start_s, end_s, path, transcript, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (video_id, chunk_index) DO UPDATE
		SET start_s = EXCLUDED.start_s,
		    end_s = EXCLUDED.end_s,
		    path = EXCLUDED.path,
		    transcript = EXCLUDED.transcript,
		    embedding = EXCLUDED.embedding
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		chunk.VideoID,
		chunk.Index,
		chunk.StartS,
		chunk.EndS,
		chunk.Path,
		chunk.Transcript,
		embedding,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			return fmt.Errorf("%w: video %s", store.ErrVideoNotFound, chunk.VideoID)
		}

		s.logger.Error("failed to upsert chunk",
			slog.String("error", err.Error()),
			slog.String("video_id", chunk.VideoID.String()),
			slog.Int("index", chunk.Index))
		return err
	}

	return nil
}

// GetByVideoAndIndex implements store.ChunkStore.GetByVideoAndIndex
func (s *PostgresChunkStore) GetByVideoAndIndex(ctx context.Context, videoID uuid.UUID, index int) (*domain.Chunk, error) {
	query := `
		SELECT video_id, chunk_index, start_s, end_s, path, transcript, embedding
		FROM chunks
		WHERE video_id = $1 AND chunk_index = $2
	`

	chunk, err := scanChunk(s.db.QueryRowContext(ctx, query, videoID, index))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrChunkNotFound
		}
		s.logger.Error("failed to get chunk",
			slog.String("error", err.Error()),
			slog.String("video_id", videoID.String()),
			slog.Int("index", index))
		return nil, err
	}

	return chunk, nil
}

// ListByVideo implements store.ChunkStore.ListByVideo
func (s *PostgresChunkStore) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*domain.Chunk, error) {
	query := `
		SELECT video_id, chunk_index, start_s, end_s, path, transcript, embedding
		FROM chunks
		WHERE video_id = $1
		ORDER BY chunk_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, videoID)
	if err != nil {
		s.logger.Error("failed to list chunks",
			slog.String("error", err.Error()),
			slog.String("video_id", videoID.String()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return collectChunks(rows)
}

// ListReady implements store.ChunkStore.ListReady
func (s *PostgresChunkStore) ListReady(ctx context.Context) ([]*domain.Chunk, error) {
	query := `
		SELECT c.video_id, c.chunk_index, c.start_s, c.end_s, c.path, c.transcript, c.embedding
		FROM chunks c
		JOIN videos v ON v.id = c.video_id
		WHERE v.status = $1
		ORDER BY c.video_id, c.chunk_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, domain.VideoStatusReady)
	if err != nil {
		s.logger.Error("failed to list ready chunks", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return collectChunks(rows)
}

// WithTx implements store.ChunkStore.WithTx
func (s *PostgresChunkStore) WithTx(tx *sql.Tx) store.ChunkStore {
	return &PostgresChunkStore{
		db:     tx,
		logger: s.logger,
	}
}

// insert saves a single chunk without conflict handling. Used by
// ReplaceForVideo after the delete, where conflicts cannot occur.
func (s *PostgresChunkStore) insert(ctx context.Context, chunk *domain.Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}

	embedding, err := json.Marshal(chunk.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	query := `
		INSERT INTO chunks (video_id, chunk_index, start_s, end_s, path, transcript, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		chunk.VideoID,
		chunk.Index,
		chunk.StartS,
		chunk.EndS,
		chunk.Path,
		chunk.Transcript,
		embedding,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode:
			return fmt.Errorf("%w: video %s", store.ErrVideoNotFound, chunk.VideoID)
		case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode:
			return fmt.Errorf("%w: chunk (%s, %d)", store.ErrDuplicate, chunk.VideoID, chunk.Index)
		}

		s.logger.Error("failed to insert chunk",
			slog.String("error", err.Error()),
			slog.String("video_id", chunk.VideoID.String()),
			slog.Int("index", chunk.Index))
		return err
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for chunk scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embedding []byte

	if err := row.Scan(
		&chunk.VideoID,
		&chunk.Index,
		&chunk.StartS,
		&chunk.EndS,
		&chunk.Path,
		&chunk.Transcript,
		&embedding,
	); err != nil {
		return nil, err
	}

	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &chunk.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}

	return &chunk, nil
}

func collectChunks(rows *sql.Rows) ([]*domain.Chunk, error) {
	var chunks []*domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
