// Package embedding turns chunk transcripts and search queries into dense
// vectors for similarity search. A Gemini-backed implementation is used
// when an API key is configured; otherwise a deterministic hash embedder
// keeps the pipeline functional offline.
package embedding

import (
	"context"
	"errors"
)

// Common errors returned by embedders
var (
	// ErrEmptyText is returned when asked to embed an empty string.
	ErrEmptyText = errors.New("text to embed cannot be empty")

	// ErrInvalidConfig is returned when an embedder is constructed with
	// invalid configuration.
	ErrInvalidConfig = errors.New("invalid embedder configuration")
)

// Embedder produces a vector representation of a piece of text. The same
// implementation must be used for indexing and querying so the vectors
// are comparable.
type Embedder interface {
	// Embed returns the vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
