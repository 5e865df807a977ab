package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/entropic-labs/recall-api/internal/domain"
)

// VideoStore defines the interface for video data persistence.
type VideoStore interface {
	// Create saves a new video to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, video *domain.Video) error

	// GetByID retrieves a video by its unique ID.
	// Returns ErrVideoNotFound if the video does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Video, error)

	// List retrieves all videos, most recently created first.
	List(ctx context.Context) ([]*domain.Video, error)

	// UpdateStatus updates the status of an existing video.
	// Returns ErrVideoNotFound if the video does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.VideoStatus) error

	// WithTx returns a new VideoStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) VideoStore
}

// ChunkStore defines the interface for chunk data persistence.
type ChunkStore interface {
	// ReplaceForVideo atomically replaces every stored chunk of a video
	// with the given set. Indexing a video twice must not leave stale
	// chunks behind.
	ReplaceForVideo(ctx context.Context, videoID uuid.UUID, chunks []*domain.Chunk) error

	// Upsert inserts or updates a single chunk, keyed by (video, index).
	Upsert(ctx context.Context, chunk *domain.Chunk) error

	// GetByVideoAndIndex retrieves one chunk.
	// Returns ErrChunkNotFound if it does not exist.
	GetByVideoAndIndex(ctx context.Context, videoID uuid.UUID, index int) (*domain.Chunk, error)

	// ListByVideo retrieves all chunks of a video ordered by index.
	ListByVideo(ctx context.Context, videoID uuid.UUID) ([]*domain.Chunk, error)

	// ListReady retrieves all chunks belonging to videos in ready status,
	// the searchable corpus.
	ListReady(ctx context.Context) ([]*domain.Chunk, error)

	// WithTx returns a new ChunkStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) ChunkStore
}
