package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/entropic-labs/recall-api/internal/events"
)

// IndexEventHandler subscribes to video.uploaded events and launches
// the indexing pipeline for each one in the background, so the upload
// request returns as soon as the video is registered.
type IndexEventHandler struct {
	videoService VideoService
	logger       *slog.Logger
}

// NewIndexEventHandler creates an IndexEventHandler.
func NewIndexEventHandler(videoService VideoService, logger *slog.Logger) (*IndexEventHandler, error) {
	if videoService == nil {
		return nil, &VideoServiceError{Operation: "create_event_handler", Message: "video service cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IndexEventHandler{
		videoService: videoService,
		logger:       logger.With("component", "index_event_handler"),
	}, nil
}

// Ensure IndexEventHandler implements events.Handler
var _ events.Handler = (*IndexEventHandler)(nil)

// HandleEvent starts indexing for video.uploaded events and ignores
// everything else. The pipeline runs in its own goroutine with a fresh
// context: indexing must not be cancelled when the originating HTTP
// request finishes.
func (h *IndexEventHandler) HandleEvent(_ context.Context, event *events.Event) error {
	if event.Type != events.EventTypeVideoUploaded {
		return nil
	}

	var payload events.VideoUploadedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode video uploaded payload: %w", err)
	}

	h.logger.Info("starting background indexing",
		"video_id", payload.VideoID,
		"event_id", event.ID)

	go func() {
		if err := h.videoService.IndexVideo(context.Background(), payload.VideoID); err != nil {
			h.logger.Error("background indexing failed",
				"error", err,
				"video_id", payload.VideoID)
		}
	}()

	return nil
}
