// Package search implements semantic retrieval over indexed video chunks.
// Queries are embedded with the same embedder used at index time and
// compared against the stored chunk embeddings by cosine similarity.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/embedding"
	"github.com/entropic-labs/recall-api/internal/store"
)

// Common search errors
var (
	ErrEmptyQuery  = errors.New("search query cannot be empty")
	ErrInvalidTopK = errors.New("top k must be positive")
)

// Match is a single search hit: the chunk that matched and its
// similarity to the query in [-1, 1].
type Match struct {
	VideoID    uuid.UUID `json:"video_id"`
	Index      int       `json:"index"`
	StartS     float64   `json:"start_s"`
	EndS       float64   `json:"end_s"`
	Path       string    `json:"path"`
	Transcript string    `json:"transcript"`
	Score      float64   `json:"score"`
}

// Service performs semantic search over the ready chunk corpus. The
// corpus is scanned linearly on every query, which is adequate for the
// chunk counts a single deployment indexes.
type Service struct {
	chunks   store.ChunkStore
	embedder embedding.Embedder
	logger   *slog.Logger
}

// NewService creates a search service backed by the given chunk store
// and embedder.
func NewService(chunks store.ChunkStore, embedder embedding.Embedder, logger *slog.Logger) (*Service, error) {
	if chunks == nil {
		return nil, errors.New("chunk store cannot be nil")
	}
	if embedder == nil {
		return nil, errors.New("embedder cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		chunks:   chunks,
		embedder: embedder,
		logger:   logger.With(slog.String("component", "search_service")),
	}, nil
}

// Search embeds the query and returns the topK most similar chunks
// across all ready videos, best first. Chunks without an embedding are
// skipped.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	corpus, err := s.chunks.ListReady(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk corpus: %w", err)
	}

	matches := make([]Match, 0, len(corpus))
	for _, chunk := range corpus {
		if len(chunk.Embedding) == 0 {
			continue
		}
		matches = append(matches, Match{
			VideoID:    chunk.VideoID,
			Index:      chunk.Index,
			StartS:     chunk.StartS,
			EndS:       chunk.EndS,
			Path:       chunk.Path,
			Transcript: chunk.Transcript,
			Score:      Cosine(queryVec, chunk.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	s.logger.Debug("search completed",
		slog.String("query", query),
		slog.Int("corpus_size", len(corpus)),
		slog.Int("results", len(matches)))

	return matches, nil
}

// ClipsByVideo returns the indexed chunks of one video in playback
// order, so a client can fetch the clip manifest after indexing.
func (s *Service) ClipsByVideo(ctx context.Context, videoID uuid.UUID) ([]*domain.Chunk, error) {
	chunks, err := s.chunks.ListByVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	return chunks, nil
}

// Clip returns a single indexed chunk, for serving its media file.
func (s *Service) Clip(ctx context.Context, videoID uuid.UUID, index int) (*domain.Chunk, error) {
	chunk, err := s.chunks.GetByVideoAndIndex(ctx, videoID, index)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return chunk, nil
}

// Cosine computes the cosine similarity of two vectors. Mismatched
// lengths compare over the shorter prefix; a zero vector scores 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
