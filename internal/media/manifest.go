package media

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// manifestName is the JSON manifest written next to the chunk files.
const manifestName = "manifest.json"

// buildManifest assembles the ordered segment manifest for outDir. It
// prefers the per-segment timings ffmpeg wrote to the segment list; when
// those are unavailable it falls back to computing boundaries from the
// chunk length and total duration.
func buildManifest(outDir string, chunkSeconds int, durationS float64, segmentList string) ([]Segment, error) {
	segments, err := readSegmentTimings(segmentList)
	if err != nil {
		return nil, err
	}
	if len(segments) > 0 {
		return segments, nil
	}

	chunkFiles, err := filepath.Glob(filepath.Join(outDir, "chunk_*.mp4"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob chunk files: %w", err)
	}
	sort.Strings(chunkFiles)

	segments = make([]Segment, 0, len(chunkFiles))
	for i, path := range chunkFiles {
		start := float64(i * chunkSeconds)
		end := math.Min(float64((i+1)*chunkSeconds), durationS)
		segments = append(segments, Segment{
			Index:  i,
			StartS: round3(start),
			EndS:   round3(end),
			Path:   path,
		})
	}

	return segments, nil
}

// readSegmentTimings parses ffmpeg's CSV segment list (filename, start,
// end per row). Rows that do not parse are skipped, matching ffmpeg's
// occasionally noisy output. A missing file yields no segments, not an
// error, so callers can fall back to computed boundaries.
func readSegmentTimings(segmentList string) ([]Segment, error) {
	f, err := os.Open(segmentList)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open segment list: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse segment list: %w", err)
	}

	dir := filepath.Dir(segmentList)
	segments := make([]Segment, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			continue
		}
		start, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		segments = append(segments, Segment{
			Index:  i,
			StartS: round3(start),
			EndS:   round3(end),
			Path:   filepath.Join(dir, row[0]),
		})
	}

	return segments, nil
}

// WriteManifest persists the segment manifest as JSON in outDir.
func WriteManifest(outDir string, segments []Segment) error {
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := filepath.Join(outDir, manifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// ReadManifest loads a previously written segment manifest from outDir.
func ReadManifest(outDir string) ([]Segment, error) {
	data, err := os.ReadFile(filepath.Join(outDir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var segments []Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return segments, nil
}

// round3 rounds to millisecond precision, the resolution the manifest
// stores timestamps at.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
