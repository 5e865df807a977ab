// Package transcription produces a text transcript for a video chunk.
// Speech-to-text itself is an external concern: the command transcriber
// shells out to whatever tool is configured, and a fallback transcriber
// keeps indexing functional when none is available.
package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Transcriber produces a transcript for the media file at path.
// Implementations must be safe for concurrent use; the indexing workers
// call them in parallel for different chunks.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// CommandTranscriber invokes an external speech-to-text command with the
// chunk path appended and returns its trimmed stdout as the transcript.
type CommandTranscriber struct {
	command string
	args    []string
	logger  *slog.Logger
}

// NewCommandTranscriber creates a CommandTranscriber running the given
// command (e.g. "whisper-cli" with model flags).
func NewCommandTranscriber(command string, args []string, logger *slog.Logger) *CommandTranscriber {
	if logger == nil {
		logger = slog.Default()
	}

	return &CommandTranscriber{
		command: command,
		args:    args,
		logger:  logger.With("component", "transcriber"),
	}
}

var _ Transcriber = (*CommandTranscriber)(nil)

// Transcribe implements Transcriber.
func (t *CommandTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	args := append(append([]string{}, t.args...), path)
	cmd := exec.CommandContext(ctx, t.command, args...)

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("transcription command failed: %w", err)
	}

	transcript := strings.TrimSpace(string(out))
	if transcript == "" {
		transcript = fallbackTranscript(path)
	}

	t.logger.Debug("chunk transcribed",
		"path", path,
		"transcript_length", len(transcript))

	return transcript, nil
}

// FallbackTranscriber produces a placeholder transcript derived from the
// chunk filename. Searches still work on chunk identity even when no
// speech-to-text tool is installed.
type FallbackTranscriber struct{}

// NewFallbackTranscriber creates a FallbackTranscriber.
func NewFallbackTranscriber() *FallbackTranscriber {
	return &FallbackTranscriber{}
}

var _ Transcriber = (*FallbackTranscriber)(nil)

// Transcribe implements Transcriber.
func (t *FallbackTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	return fallbackTranscript(path), nil
}

// fallbackTranscript turns "chunk_00003.mp4" into "Video chunk chunk 00003".
func fallbackTranscript(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return "Video chunk " + strings.ReplaceAll(stem, "_", " ")
}
