package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/events"
	"github.com/entropic-labs/recall-api/internal/media"
	"github.com/entropic-labs/recall-api/internal/store"
)

// memVideoStore is a map-backed store.VideoStore for tests.
type memVideoStore struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*domain.Video

	createErr error
	updateErr error
}

func newMemVideoStore() *memVideoStore {
	return &memVideoStore{videos: make(map[uuid.UUID]*domain.Video)}
}

func (m *memVideoStore) Create(_ context.Context, video *domain.Video) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *video
	m.videos[video.ID] = &copied
	return nil
}

func (m *memVideoStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	video, ok := m.videos[id]
	if !ok {
		return nil, store.ErrVideoNotFound
	}
	copied := *video
	return &copied, nil
}

func (m *memVideoStore) List(_ context.Context) ([]*domain.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Video, 0, len(m.videos))
	for _, video := range m.videos {
		copied := *video
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memVideoStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.VideoStatus) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	video, ok := m.videos[id]
	if !ok {
		return store.ErrVideoNotFound
	}
	video.Status = status
	return nil
}

func (m *memVideoStore) WithTx(_ *sql.Tx) store.VideoStore { return m }

func (m *memVideoStore) status(id uuid.UUID) domain.VideoStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if video, ok := m.videos[id]; ok {
		return video.Status
	}
	return ""
}

// memChunkStore is a map-backed store.ChunkStore for tests.
type memChunkStore struct {
	mu     sync.Mutex
	chunks map[uuid.UUID]map[int]*domain.Chunk
}

func newMemChunkStore() *memChunkStore {
	return &memChunkStore{chunks: make(map[uuid.UUID]map[int]*domain.Chunk)}
}

func (m *memChunkStore) ReplaceForVideo(ctx context.Context, videoID uuid.UUID, chunks []*domain.Chunk) error {
	m.mu.Lock()
	delete(m.chunks, videoID)
	m.mu.Unlock()
	for _, chunk := range chunks {
		if err := m.Upsert(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (m *memChunkStore) Upsert(_ context.Context, chunk *domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byIndex, ok := m.chunks[chunk.VideoID]
	if !ok {
		byIndex = make(map[int]*domain.Chunk)
		m.chunks[chunk.VideoID] = byIndex
	}
	copied := *chunk
	byIndex[chunk.Index] = &copied
	return nil
}

func (m *memChunkStore) GetByVideoAndIndex(_ context.Context, videoID uuid.UUID, index int) (*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if chunk, ok := m.chunks[videoID][index]; ok {
		copied := *chunk
		return &copied, nil
	}
	return nil, store.ErrChunkNotFound
}

func (m *memChunkStore) ListByVideo(_ context.Context, videoID uuid.UUID) ([]*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Chunk, 0, len(m.chunks[videoID]))
	for _, chunk := range m.chunks[videoID] {
		copied := *chunk
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memChunkStore) ListReady(_ context.Context) ([]*domain.Chunk, error) {
	return nil, nil
}

func (m *memChunkStore) WithTx(_ *sql.Tx) store.ChunkStore { return m }

func (m *memChunkStore) count(videoID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks[videoID])
}

// stubSplitter returns canned segments without shelling out to ffmpeg.
type stubSplitter struct {
	segments []media.Segment
	err      error
}

func (s *stubSplitter) Split(_ context.Context, _, _ string) ([]media.Segment, error) {
	return s.segments, s.err
}

// recordingEmitter captures emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (r *recordingEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingEmitter) emitted() []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*events.Event(nil), r.events...)
}
