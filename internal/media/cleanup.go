package media

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// CleanupScratch deletes the chunk files and segment list left in dir.
// When removeManifest is set the manifest.json is deleted too. Returns the
// number of files removed. A missing directory removes nothing.
func CleanupScratch(dir string, removeManifest bool) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	patterns := []string{"chunk_*.mp4", segmentListName, "frame_*.jpg"}
	if removeManifest {
		patterns = append(patterns, manifestName)
	}

	deleted := 0
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return deleted, err
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return deleted, err
			}
			deleted++
		}
	}

	return deleted, nil
}

// Janitor periodically sweeps a scratch root, removing working
// directories whose contents have not been touched for longer than the
// configured TTL. Abandoned frame directories accumulate otherwise: the
// indexing pipeline keeps chunk files (they back clip serving) but frames
// are only needed while a chunk is being annotated.
type Janitor struct {
	root   string
	ttl    time.Duration
	cron   *cron.Cron
	logger *slog.Logger
}

// NewJanitor creates a Janitor sweeping root on the given cron schedule
// (standard 5-field spec, e.g. "*/30 * * * *").
func NewJanitor(root string, ttl time.Duration, schedule string, logger *slog.Logger) (*Janitor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	j := &Janitor{
		root:   root,
		ttl:    ttl,
		cron:   cron.New(),
		logger: logger.With("component", "janitor"),
	}

	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, err
	}

	return j, nil
}

// Start begins the scheduled sweeps.
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("janitor started", "root", j.root, "ttl", j.ttl)
}

// Stop halts scheduling; a sweep already in progress finishes.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// sweep removes stale per-chunk frame directories under the root.
func (j *Janitor) sweep() {
	entries, err := os.ReadDir(j.root)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Error("janitor sweep failed", "error", err)
		}
		return
	}

	cutoff := time.Now().Add(-j.ttl)
	removed := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(j.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			j.logger.Warn("failed to remove stale scratch dir", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("janitor sweep completed", "removed_dirs", removed)
	}
}
