package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/events"
	"github.com/entropic-labs/recall-api/internal/job"
)

// mockVideoService records IndexVideo calls.
type mockVideoService struct {
	mu      sync.Mutex
	indexed []uuid.UUID
	done    chan struct{}
}

func (m *mockVideoService) CreateVideo(_ context.Context, _, _ string) (*domain.Video, error) {
	return nil, nil
}

func (m *mockVideoService) GetVideo(_ context.Context, _ uuid.UUID) (*domain.Video, error) {
	return nil, ErrVideoNotFound
}

func (m *mockVideoService) ListVideos(_ context.Context) ([]*domain.Video, error) { return nil, nil }

func (m *mockVideoService) IndexVideo(_ context.Context, videoID uuid.UUID) error {
	m.mu.Lock()
	m.indexed = append(m.indexed, videoID)
	m.mu.Unlock()
	close(m.done)
	return nil
}

func (m *mockVideoService) FailedJobs() map[string]job.Result[*domain.Chunk] { return nil }

func (m *mockVideoService) RetryJobs(_ context.Context, _ ...string) (int, error) { return 0, nil }

func TestIndexEventHandler_StartsIndexing(t *testing.T) {
	t.Parallel()

	svc := &mockVideoService{done: make(chan struct{})}
	handler, err := NewIndexEventHandler(svc, testLogger())
	require.NoError(t, err)

	videoID := uuid.New()
	event, err := events.NewEvent(events.EventTypeVideoUploaded, events.VideoUploadedPayload{VideoID: videoID})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))

	select {
	case <-svc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("indexing was never started")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, []uuid.UUID{videoID}, svc.indexed)
}

func TestIndexEventHandler_IgnoresOtherEventTypes(t *testing.T) {
	t.Parallel()

	svc := &mockVideoService{done: make(chan struct{})}
	handler, err := NewIndexEventHandler(svc, testLogger())
	require.NoError(t, err)

	event, err := events.NewEvent("something.else", map[string]string{"k": "v"})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))

	select {
	case <-svc.done:
		t.Fatal("indexing should not start for unrelated events")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIndexEventHandler_RejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	svc := &mockVideoService{done: make(chan struct{})}
	handler, err := NewIndexEventHandler(svc, testLogger())
	require.NoError(t, err)

	event := &events.Event{
		ID:      uuid.New(),
		Type:    events.EventTypeVideoUploaded,
		Payload: []byte(`{"video_id": 12`),
	}

	assert.Error(t, handler.HandleEvent(context.Background(), event))
}
