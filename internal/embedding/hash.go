package embedding

import (
	"context"
	"crypto/sha256"
)

// hashDimensions is the vector width of the fallback embedder.
const hashDimensions = 64

// HashEmbedder derives a deterministic pseudo-embedding from a SHA-256
// digest of the text, mapping each byte into [-1, 1]. It carries no
// semantic signal but keeps indexing and search functional without a
// remote embedding service, and identical texts still collide exactly.
type HashEmbedder struct{}

// NewHashEmbedder creates a HashEmbedder.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

var _ Embedder = (*HashEmbedder)(nil)

// Embed implements Embedder.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, hashDimensions)
	for i := 0; i < hashDimensions; i++ {
		vec[i] = float32(digest[i%len(digest)])/255.0*2 - 1
	}

	return vec, nil
}
