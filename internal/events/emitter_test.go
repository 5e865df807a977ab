package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHandler records the events it receives and optionally fails.
type mockHandler struct {
	HandledCount int
	LastEvent    *Event
	HandlerError error
}

func (m *mockHandler) HandleEvent(_ context.Context, event *Event) error {
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}

func TestInMemoryEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEmitter(logger)
		event, err := NewEvent(EventTypeVideoUploaded, VideoUploadedPayload{VideoID: uuid.New()})
		require.NoError(t, err)

		// Should not error even with no handlers
		err = emitter.EmitEvent(context.Background(), event)
		assert.NoError(t, err)
	})

	t.Run("emit event reaches every handler", func(t *testing.T) {
		emitter := NewInMemoryEmitter(logger)

		handler1 := &mockHandler{}
		handler2 := &mockHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event, err := NewEvent(EventTypeVideoUploaded, VideoUploadedPayload{VideoID: uuid.New()})
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.NoError(t, err)

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler1.LastEvent)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("failing handler does not block the others", func(t *testing.T) {
		emitter := NewInMemoryEmitter(logger)

		handlerErr := errors.New("handler error")
		failing := &mockHandler{HandlerError: handlerErr}
		succeeding := &mockHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(succeeding)

		event, err := NewEvent(EventTypeVideoUploaded, VideoUploadedPayload{VideoID: uuid.New()})
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.ErrorIs(t, err, handlerErr)
		assert.Equal(t, 1, failing.HandledCount)
		assert.Equal(t, 1, succeeding.HandledCount)
	})
}

func TestEventPayloadRoundTrip(t *testing.T) {
	videoID := uuid.New()
	event, err := NewEvent(EventTypeVideoUploaded, VideoUploadedPayload{VideoID: videoID})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, event.ID)
	require.Equal(t, EventTypeVideoUploaded, event.Type)

	var payload VideoUploadedPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, videoID, payload.VideoID)
}
