package domain

import (
	"errors"

	"github.com/google/uuid"
)

// Common validation errors for Chunk
var (
	ErrEmptyChunkVideoID   = errors.New("chunk video ID cannot be empty")
	ErrNegativeChunkIndex  = errors.New("chunk index cannot be negative")
	ErrInvalidChunkTiming  = errors.New("chunk end time must not precede start time")
	ErrEmptyChunkPath      = errors.New("chunk path cannot be empty")
	ErrEmptyChunkEmbedding = errors.New("chunk embedding cannot be empty")
)

// Chunk is one fixed-duration segment of a video. The index is dense and
// zero-based within its video and defines the global ordering of segments.
// Transcript and Embedding are filled in by the indexing pipeline.
type Chunk struct {
	VideoID    uuid.UUID `json:"video_id"`
	Index      int       `json:"index"`
	StartS     float64   `json:"start_s"`
	EndS       float64   `json:"end_s"`
	Path       string    `json:"path"`
	Transcript string    `json:"transcript"`
	Embedding  []float32 `json:"embedding"`
}

// Validate checks if the Chunk has valid data.
// Returns an error if any field fails validation.
func (c *Chunk) Validate() error {
	if c.VideoID == uuid.Nil {
		return ErrEmptyChunkVideoID
	}

	if c.Index < 0 {
		return ErrNegativeChunkIndex
	}

	if c.EndS < c.StartS {
		return ErrInvalidChunkTiming
	}

	if c.Path == "" {
		return ErrEmptyChunkPath
	}

	return nil
}
