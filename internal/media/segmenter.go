// Package media wraps the external FFmpeg tooling that segments uploaded
// videos into chunks and samples JPEG frames from them. Everything here
// shells out to ffmpeg/ffprobe; the rest of the system only sees ordered
// manifests of segments and frames.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

const (
	// chunkFilePattern is the ffmpeg output pattern for segment files.
	chunkFilePattern = "chunk_%05d.mp4"

	// segmentListName is the CSV file ffmpeg writes with per-segment
	// start/end timings.
	segmentListName = "segments.csv"

	// minChunkSeconds and maxChunkSeconds bound the configurable segment
	// length.
	minChunkSeconds = 10
	maxChunkSeconds = 60
)

// Common errors returned by the segmenter
var (
	ErrInvalidChunkSeconds = errors.New("chunk seconds must be between 10 and 60")
	ErrFFmpegMissing       = errors.New("ffmpeg/ffprobe not found on PATH")
	ErrInputMissing        = errors.New("input video not found")
)

// Segment describes one chunk produced by splitting a video: a dense
// zero-based index, start/end timestamps in seconds, and the chunk file
// path.
type Segment struct {
	Index  int     `json:"index"`
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
	Path   string  `json:"path"`
}

// SegmenterConfig holds configuration for the video segmenter
type SegmenterConfig struct {
	// ChunkSeconds is the target length of each segment.
	ChunkSeconds int

	// ExactBoundaries re-encodes instead of stream-copying, forcing key
	// frames at every segment boundary. Slower but the segments cut at
	// exact timestamps.
	ExactBoundaries bool
}

// Segmenter splits a video into fixed-length MP4 chunks using ffmpeg's
// segment muxer and reports the resulting ordered manifest.
type Segmenter struct {
	config SegmenterConfig
	logger *slog.Logger
}

// NewSegmenter creates a Segmenter. Returns ErrInvalidChunkSeconds when
// the configured chunk length is outside the supported range.
func NewSegmenter(config SegmenterConfig, logger *slog.Logger) (*Segmenter, error) {
	if config.ChunkSeconds < minChunkSeconds || config.ChunkSeconds > maxChunkSeconds {
		return nil, ErrInvalidChunkSeconds
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Segmenter{
		config: config,
		logger: logger.With("component", "segmenter"),
	}, nil
}

// Split segments the input video into outDir and returns the ordered
// manifest. The manifest is also persisted as manifest.json in outDir so
// the chunk set can be reloaded without re-probing the source.
func (s *Segmenter) Split(ctx context.Context, inputVideo, outDir string) ([]Segment, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, ErrFFmpegMissing
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, ErrFFmpegMissing
	}

	if _, err := os.Stat(inputVideo); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputMissing, inputVideo)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	segmentList := filepath.Join(outDir, segmentListName)
	outputPattern := filepath.Join(outDir, chunkFilePattern)

	args := []string{"-hide_banner", "-y", "-i", inputVideo, "-map", "0"}
	if s.config.ExactBoundaries {
		args = append(args,
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-crf", "23",
			"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", s.config.ChunkSeconds),
			"-c:a", "aac",
			"-b:a", "128k",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args,
		"-f", "segment",
		"-segment_time", strconv.Itoa(s.config.ChunkSeconds),
		"-reset_timestamps", "1",
		"-segment_list", segmentList,
		"-segment_list_type", "csv",
		outputPattern,
	)

	s.logger.Debug("segmenting video",
		"input", inputVideo,
		"out_dir", outDir,
		"chunk_seconds", s.config.ChunkSeconds,
		"exact_boundaries", s.config.ExactBoundaries)

	if err := runFFmpeg(ctx, "ffmpeg", args...); err != nil {
		return nil, fmt.Errorf("ffmpeg segmentation failed: %w", err)
	}

	duration, err := probeDuration(ctx, inputVideo)
	if err != nil {
		return nil, err
	}

	segments, err := buildManifest(outDir, s.config.ChunkSeconds, duration, segmentList)
	if err != nil {
		return nil, err
	}

	if err := WriteManifest(outDir, segments); err != nil {
		return nil, err
	}

	// The segment list has served its purpose once the manifest exists.
	if err := os.Remove(segmentList); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove segment list", "path", segmentList, "error", err)
	}

	s.logger.Info("video segmented",
		"input", inputVideo,
		"chunks", len(segments),
		"duration_s", duration)

	return segments, nil
}

// probeDuration returns the container duration of a video in seconds.
func probeDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", videoPath, err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration %q: %w", probe.Format.Duration, err)
	}

	return duration, nil
}

// runFFmpeg executes an ffmpeg-family command, capturing stderr into the
// returned error on failure.
func runFFmpeg(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		tail := out
		if len(tail) > 4000 {
			tail = tail[len(tail)-4000:]
		}
		return fmt.Errorf("%s: %w\n%s", name, err, tail)
	}
	return nil
}
