package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/events"
	"github.com/entropic-labs/recall-api/internal/job"
	"github.com/entropic-labs/recall-api/internal/media"
	"github.com/entropic-labs/recall-api/internal/metrics"
	"github.com/entropic-labs/recall-api/internal/store"
)

// VideoSplitter segments a source video into fixed-duration chunk
// files. It is satisfied by media.Segmenter.
type VideoSplitter interface {
	Split(ctx context.Context, inputVideo, outDir string) ([]media.Segment, error)
}

// Ensure media.Segmenter satisfies VideoSplitter
var _ VideoSplitter = (*media.Segmenter)(nil)

// VideoService provides video-related operations: accepting uploads,
// running the indexing pipeline and exposing the failed-job quarantine.
type VideoService interface {
	// CreateVideo registers an uploaded video and emits an event that
	// triggers background indexing.
	CreateVideo(ctx context.Context, filename, uploadPath string) (*domain.Video, error)

	// GetVideo retrieves a video by its ID.
	GetVideo(ctx context.Context, videoID uuid.UUID) (*domain.Video, error)

	// ListVideos retrieves all videos, most recently created first.
	ListVideos(ctx context.Context) ([]*domain.Video, error)

	// IndexVideo runs the full indexing pipeline for one video:
	// segment, fan chunk jobs out to the worker pool, wait for the
	// drain and mark the video ready or failed.
	IndexVideo(ctx context.Context, videoID uuid.UUID) error

	// FailedJobs returns the quarantined chunk jobs, keyed by job ID.
	FailedJobs() map[string]job.Result[*domain.Chunk]

	// RetryJobs resubmits quarantined jobs. With no IDs every failed
	// job is replayed. It returns the number resubmitted and, for each
	// video whose quarantine drained, flips a failed video to ready.
	RetryJobs(ctx context.Context, ids ...string) (int, error)
}

// VideoServiceConfig holds pipeline tuning for the video service.
type VideoServiceConfig struct {
	// ScratchRoot is the directory chunk and frame files are written
	// under, one subdirectory per video.
	ScratchRoot string

	// MaxRetries is the per-chunk-job retry ceiling.
	MaxRetries int

	// JoinTimeout bounds how long IndexVideo waits for its chunk jobs
	// to reach a terminal outcome. Zero means wait indefinitely.
	JoinTimeout time.Duration
}

// videoServiceImpl implements the VideoService interface
type videoServiceImpl struct {
	videos   store.VideoStore
	chunks   store.ChunkStore
	splitter VideoSplitter
	runner   *IndexRunner
	emitter  events.Emitter
	config   VideoServiceConfig
	logger   *slog.Logger
}

// NewVideoService creates a new VideoService.
// It returns an error if any of the required dependencies are nil.
func NewVideoService(
	videos store.VideoStore,
	chunks store.ChunkStore,
	splitter VideoSplitter,
	runner *IndexRunner,
	emitter events.Emitter,
	config VideoServiceConfig,
	logger *slog.Logger,
) (VideoService, error) {
	if videos == nil {
		return nil, &VideoServiceError{Operation: "create_service", Message: "video store cannot be nil"}
	}
	if chunks == nil {
		return nil, &VideoServiceError{Operation: "create_service", Message: "chunk store cannot be nil"}
	}
	if splitter == nil {
		return nil, &VideoServiceError{Operation: "create_service", Message: "splitter cannot be nil"}
	}
	if runner == nil {
		return nil, &VideoServiceError{Operation: "create_service", Message: "runner cannot be nil"}
	}
	if emitter == nil {
		return nil, &VideoServiceError{Operation: "create_service", Message: "event emitter cannot be nil"}
	}
	if config.ScratchRoot == "" {
		config.ScratchRoot = "data/chunks"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &videoServiceImpl{
		videos:   videos,
		chunks:   chunks,
		splitter: splitter,
		runner:   runner,
		emitter:  emitter,
		config:   config,
		logger:   logger.With("component", "video_service"),
	}, nil
}

// CreateVideo registers a new video with uploaded status and emits a
// video.uploaded event so background indexing starts without the API
// layer knowing about the pipeline.
func (s *videoServiceImpl) CreateVideo(ctx context.Context, filename, uploadPath string) (*domain.Video, error) {
	video, err := domain.NewVideo(filename, uploadPath)
	if err != nil {
		s.logger.Error("failed to create video object",
			"error", err,
			"filename", filename)
		return nil, NewVideoServiceError("create_video", "failed to create video object", err)
	}

	if err := s.videos.Create(ctx, video); err != nil {
		s.logger.Error("failed to save video",
			"error", err,
			"video_id", video.ID)
		return nil, NewVideoServiceError("create_video", "failed to save video", err)
	}

	s.logger.Info("video created",
		"video_id", video.ID,
		"filename", filename)

	event, err := events.NewEvent(events.EventTypeVideoUploaded, events.VideoUploadedPayload{VideoID: video.ID})
	if err != nil {
		return nil, NewVideoServiceError("create_video", "failed to create event", err)
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit video uploaded event",
			"error", err,
			"video_id", video.ID,
			"event_id", event.ID)
		return nil, NewVideoServiceError("create_video", "failed to emit event", err)
	}

	return video, nil
}

// GetVideo retrieves a video by its ID
func (s *videoServiceImpl) GetVideo(ctx context.Context, videoID uuid.UUID) (*domain.Video, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, store.ErrVideoNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, NewVideoServiceError("get_video", "failed to retrieve video", err)
	}
	return video, nil
}

// ListVideos retrieves all videos
func (s *videoServiceImpl) ListVideos(ctx context.Context) ([]*domain.Video, error) {
	videos, err := s.videos.List(ctx)
	if err != nil {
		return nil, NewVideoServiceError("list_videos", "failed to list videos", err)
	}
	return videos, nil
}

// IndexVideo runs the indexing pipeline for one video. Chunk jobs that
// exhaust their retries stay quarantined in the runner for manual
// replay; the video is marked failed until the quarantine drains.
func (s *videoServiceImpl) IndexVideo(ctx context.Context, videoID uuid.UUID) error {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, store.ErrVideoNotFound) {
			return ErrVideoNotFound
		}
		return NewVideoServiceError("index_video", "failed to retrieve video", err)
	}

	if video.Status == domain.VideoStatusProcessing {
		return ErrVideoNotIndexable
	}

	if err := s.videos.UpdateStatus(ctx, videoID, domain.VideoStatusProcessing); err != nil {
		return NewVideoServiceError("index_video", "failed to mark video processing", err)
	}

	scratch := filepath.Join(s.config.ScratchRoot, videoID.String())

	segments, err := s.splitter.Split(ctx, video.UploadPath, scratch)
	if err != nil {
		s.markFailed(ctx, videoID)
		return NewVideoServiceError("index_video", "failed to segment video", err)
	}

	if err := media.WriteManifest(scratch, segments); err != nil {
		s.logger.Warn("failed to write chunk manifest",
			"error", err,
			"video_id", videoID)
	}

	// Re-indexing must not leave chunks from a previous run behind.
	if err := s.chunks.ReplaceForVideo(ctx, videoID, nil); err != nil {
		s.markFailed(ctx, videoID)
		return NewVideoServiceError("index_video", "failed to clear stale chunks", err)
	}

	jobIDs := make([]string, 0, len(segments))
	for _, seg := range segments {
		payload := ChunkPayload{
			VideoID:   videoID,
			Index:     seg.Index,
			StartS:    seg.StartS,
			EndS:      seg.EndS,
			Path:      seg.Path,
			FramesDir: filepath.Join(scratch, fmt.Sprintf("frames_%05d", seg.Index)),
		}

		chunkJob := job.NewJob(chunkJobID(videoID, seg.Index), payload, s.config.MaxRetries)
		if err := s.runner.Submit(chunkJob); err != nil {
			s.markFailed(ctx, videoID)
			return NewVideoServiceError("index_video", "failed to enqueue chunk job", err)
		}
		jobIDs = append(jobIDs, chunkJob.ID)
	}

	s.logger.Info("chunk jobs submitted",
		"video_id", videoID,
		"chunk_count", len(jobIDs))

	if !s.waitForJobs(ctx, jobIDs) {
		s.markFailed(ctx, videoID)
		return NewVideoServiceError("index_video", "timed out waiting for chunk jobs",
			fmt.Errorf("%d jobs still pending", len(jobIDs)))
	}

	failed := s.runner.Failed()
	failedCount := 0
	for _, id := range jobIDs {
		if _, ok := failed[id]; ok {
			failedCount++
		}
	}

	if failedCount > 0 {
		s.markFailed(ctx, videoID)
		s.logger.Error("video indexing failed",
			"video_id", videoID,
			"failed_chunks", failedCount,
			"total_chunks", len(jobIDs))
		return NewVideoServiceError("index_video", "chunk jobs failed",
			fmt.Errorf("%d of %d chunks failed", failedCount, len(jobIDs)))
	}

	if err := s.videos.UpdateStatus(ctx, videoID, domain.VideoStatusReady); err != nil {
		return NewVideoServiceError("index_video", "failed to mark video ready", err)
	}

	metrics.VideosIndexedTotal.WithLabelValues("ready").Inc()
	s.logger.Info("video indexed",
		"video_id", videoID,
		"chunk_count", len(jobIDs))
	return nil
}

// FailedJobs returns the quarantined chunk jobs.
func (s *videoServiceImpl) FailedJobs() map[string]job.Result[*domain.Chunk] {
	return s.runner.Failed()
}

// RetryJobs replays quarantined jobs and, once a failed video has no
// quarantined chunks left, waits for the replays to settle and marks
// the video ready if they all succeeded.
func (s *videoServiceImpl) RetryJobs(ctx context.Context, ids ...string) (int, error) {
	quarantined := s.runner.Failed()

	// Record which videos had quarantined chunks before the replay.
	affected := make(map[uuid.UUID]struct{})
	for id := range quarantined {
		if videoID, ok := videoIDFromJobID(id); ok {
			affected[videoID] = struct{}{}
		}
	}

	replaying := make([]string, 0, len(quarantined))
	if len(ids) == 0 {
		for id := range quarantined {
			replaying = append(replaying, id)
		}
	} else {
		for _, id := range ids {
			if _, ok := quarantined[id]; ok {
				replaying = append(replaying, id)
			}
		}
	}

	retried := s.runner.RetryFailed(ids...)
	if retried == 0 {
		return 0, nil
	}

	// Wait only on the replayed jobs. A runner-wide Join would gate this
	// call on unrelated in-flight indexing work.
	if !s.waitForJobs(ctx, replaying) {
		s.logger.Warn("timed out waiting for replayed jobs",
			"replayed", retried)
		return retried, nil
	}

	// A video recovers when no quarantined job references it anymore.
	stillFailed := make(map[uuid.UUID]struct{})
	for id := range s.runner.Failed() {
		if videoID, ok := videoIDFromJobID(id); ok {
			stillFailed[videoID] = struct{}{}
		}
	}

	for videoID := range affected {
		if _, bad := stillFailed[videoID]; bad {
			continue
		}

		video, err := s.videos.GetByID(ctx, videoID)
		if err != nil || video.Status != domain.VideoStatusFailed {
			continue
		}

		if err := s.videos.UpdateStatus(ctx, videoID, domain.VideoStatusReady); err != nil {
			s.logger.Error("failed to mark replayed video ready",
				"error", err,
				"video_id", videoID)
			continue
		}

		metrics.VideosIndexedTotal.WithLabelValues("ready").Inc()
		s.logger.Info("video recovered after replay", "video_id", videoID)
	}

	return retried, nil
}

// markFailed records a terminal indexing failure for the video.
func (s *videoServiceImpl) markFailed(ctx context.Context, videoID uuid.UUID) {
	if err := s.videos.UpdateStatus(ctx, videoID, domain.VideoStatusFailed); err != nil {
		s.logger.Error("failed to mark video failed",
			"error", err,
			"video_id", videoID)
	}
	metrics.VideosIndexedTotal.WithLabelValues("failed").Inc()
}

// waitForJobs blocks until each of the given job IDs has a terminal
// outcome or the configured join timeout elapses. Unlike Runner.Join it
// only watches this video's jobs, so concurrent pipelines do not extend
// each other's waits.
func (s *videoServiceImpl) waitForJobs(ctx context.Context, jobIDs []string) bool {
	var deadline time.Time
	if s.config.JoinTimeout > 0 {
		deadline = time.Now().Add(s.config.JoinTimeout)
	}

	remaining := make(map[string]struct{}, len(jobIDs))
	for _, id := range jobIDs {
		remaining[id] = struct{}{}
	}

	for {
		completed := s.runner.Completed()
		failed := s.runner.Failed()
		for id := range remaining {
			if _, ok := completed[id]; ok {
				delete(remaining, id)
				continue
			}
			if _, ok := failed[id]; ok {
				delete(remaining, id)
			}
		}

		if len(remaining) == 0 {
			return true
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// chunkJobID builds the job ID for one chunk of a video. The video ID
// prefix lets the replay path map quarantined jobs back to their video.
func chunkJobID(videoID uuid.UUID, index int) string {
	return fmt.Sprintf("%s:%05d", videoID, index)
}

// videoIDFromJobID recovers the video a chunk job belongs to.
func videoIDFromJobID(jobID string) (uuid.UUID, bool) {
	prefix, _, found := strings.Cut(jobID, ":")
	if !found {
		return uuid.Nil, false
	}

	videoID, err := uuid.Parse(prefix)
	if err != nil {
		return uuid.Nil, false
	}
	return videoID, true
}
