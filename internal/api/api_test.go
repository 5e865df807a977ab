package api_test

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/job"
	"github.com/entropic-labs/recall-api/internal/service"
	"github.com/entropic-labs/recall-api/internal/store"
)

// mockVideoService implements service.VideoService with configurable
// function fields.
type mockVideoService struct {
	mu sync.Mutex

	createFn  func(ctx context.Context, filename, uploadPath string) (*domain.Video, error)
	getFn     func(ctx context.Context, videoID uuid.UUID) (*domain.Video, error)
	listFn    func(ctx context.Context) ([]*domain.Video, error)
	failedFn  func() map[string]job.Result[*domain.Chunk]
	retryFn   func(ctx context.Context, ids ...string) (int, error)
	retryArgs []string
}

func (m *mockVideoService) CreateVideo(ctx context.Context, filename, uploadPath string) (*domain.Video, error) {
	if m.createFn != nil {
		return m.createFn(ctx, filename, uploadPath)
	}
	return domain.NewVideo(filename, uploadPath)
}

func (m *mockVideoService) GetVideo(ctx context.Context, videoID uuid.UUID) (*domain.Video, error) {
	if m.getFn != nil {
		return m.getFn(ctx, videoID)
	}
	return nil, service.ErrVideoNotFound
}

func (m *mockVideoService) ListVideos(ctx context.Context) ([]*domain.Video, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockVideoService) IndexVideo(_ context.Context, _ uuid.UUID) error { return nil }

func (m *mockVideoService) FailedJobs() map[string]job.Result[*domain.Chunk] {
	if m.failedFn != nil {
		return m.failedFn()
	}
	return nil
}

func (m *mockVideoService) RetryJobs(ctx context.Context, ids ...string) (int, error) {
	m.mu.Lock()
	m.retryArgs = append([]string(nil), ids...)
	m.mu.Unlock()
	if m.retryFn != nil {
		return m.retryFn(ctx, ids...)
	}
	return 0, nil
}

// stubChunkStore serves a fixed chunk corpus to the search service.
type stubChunkStore struct {
	ready   []*domain.Chunk
	byVideo map[uuid.UUID][]*domain.Chunk
}

func (s *stubChunkStore) ReplaceForVideo(_ context.Context, _ uuid.UUID, _ []*domain.Chunk) error {
	return nil
}

func (s *stubChunkStore) Upsert(_ context.Context, _ *domain.Chunk) error { return nil }

func (s *stubChunkStore) GetByVideoAndIndex(_ context.Context, videoID uuid.UUID, index int) (*domain.Chunk, error) {
	for _, chunk := range s.byVideo[videoID] {
		if chunk.Index == index {
			return chunk, nil
		}
	}
	return nil, store.ErrChunkNotFound
}

func (s *stubChunkStore) ListByVideo(_ context.Context, videoID uuid.UUID) ([]*domain.Chunk, error) {
	return s.byVideo[videoID], nil
}

func (s *stubChunkStore) ListReady(_ context.Context) ([]*domain.Chunk, error) {
	return s.ready, nil
}

func (s *stubChunkStore) WithTx(_ *sql.Tx) store.ChunkStore { return s }

// constEmbedder returns the same vector for every input.
type constEmbedder struct {
	vector []float32
}

func (c *constEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return c.vector, nil
}
