package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/entropic-labs/recall-api/internal/domain"
)

// ErrInvalidFPS is returned when constructing a FrameExtractor with a
// non-positive sampling rate.
var ErrInvalidFPS = errors.New("sampling fps must be positive")

// FrameExtractor samples JPEG stills from a video chunk at a fixed rate.
// Frame i of a chunk sampled at fps f sits at i/f seconds into the chunk;
// no per-frame timestamps are probed beyond that derivation.
type FrameExtractor struct {
	fps    float64
	logger *slog.Logger
}

// NewFrameExtractor creates a FrameExtractor sampling at the given fps.
func NewFrameExtractor(fps float64, logger *slog.Logger) (*FrameExtractor, error) {
	if fps <= 0 {
		return nil, ErrInvalidFPS
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &FrameExtractor{
		fps:    fps,
		logger: logger.With("component", "frame_extractor"),
	}, nil
}

// Extract samples frames from chunkPath into outDir and returns them in
// sequence order.
func (e *FrameExtractor) Extract(ctx context.Context, chunkPath, outDir string) ([]domain.Frame, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}

	pattern := filepath.Join(outDir, "frame_%05d.jpg")
	err := runFFmpeg(ctx, "ffmpeg",
		"-hide_banner", "-y",
		"-i", chunkPath,
		"-vf", fmt.Sprintf("fps=%g", e.fps),
		"-q:v", "2",
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(outDir, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob frames: %w", err)
	}
	sort.Strings(files)

	frames := make([]domain.Frame, 0, len(files))
	for i, path := range files {
		frames = append(frames, domain.Frame{
			Index:      i,
			TimestampS: round3(float64(i) / e.fps),
			JPEGPath:   path,
		})
	}

	e.logger.Debug("frames extracted",
		"chunk", chunkPath,
		"frame_count", len(frames),
		"fps", e.fps)

	return frames, nil
}
