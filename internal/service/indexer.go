package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/embedding"
	"github.com/entropic-labs/recall-api/internal/job"
	"github.com/entropic-labs/recall-api/internal/store"
	"github.com/entropic-labs/recall-api/internal/transcription"
	"github.com/entropic-labs/recall-api/internal/vision"
)

// ChunkPayload carries everything a worker needs to index one video
// chunk independently of the others.
type ChunkPayload struct {
	VideoID   uuid.UUID `json:"video_id"`
	Index     int       `json:"index"`
	StartS    float64   `json:"start_s"`
	EndS      float64   `json:"end_s"`
	Path      string    `json:"path"`
	FramesDir string    `json:"frames_dir"`
}

// IndexRunner is the job runner instantiation used for chunk indexing.
type IndexRunner = job.Runner[ChunkPayload, *domain.Chunk]

// Annotator produces frame-level annotations for one chunk. It is
// satisfied by vision.Pipeline and may be nil when no vision endpoint
// is configured.
type Annotator interface {
	AnnotateChunk(ctx context.Context, chunkPath, framesDir string) ([]domain.FrameAnnotation, error)
}

// Ensure vision.Pipeline satisfies Annotator
var _ Annotator = (*vision.Pipeline)(nil)

// ChunkIndexer is the job handler that turns one chunk payload into an
// indexed chunk: transcribe the segment, annotate its frames, embed the
// combined text and persist the result. Any error fails the job so the
// runner's retry and quarantine machinery applies.
type ChunkIndexer struct {
	transcriber transcription.Transcriber
	annotator   Annotator
	embedder    embedding.Embedder
	fallback    embedding.Embedder
	chunks      store.ChunkStore
	logger      *slog.Logger
}

// NewChunkIndexer creates a ChunkIndexer. The annotator may be nil to
// skip frame annotation; the fallback embedder may be nil to make
// primary embedding failures fatal for the job.
func NewChunkIndexer(
	transcriber transcription.Transcriber,
	annotator Annotator,
	embedder embedding.Embedder,
	fallback embedding.Embedder,
	chunks store.ChunkStore,
	logger *slog.Logger,
) (*ChunkIndexer, error) {
	if transcriber == nil {
		return nil, &VideoServiceError{Operation: "create_indexer", Message: "transcriber cannot be nil"}
	}
	if embedder == nil {
		return nil, &VideoServiceError{Operation: "create_indexer", Message: "embedder cannot be nil"}
	}
	if chunks == nil {
		return nil, &VideoServiceError{Operation: "create_indexer", Message: "chunk store cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ChunkIndexer{
		transcriber: transcriber,
		annotator:   annotator,
		embedder:    embedder,
		fallback:    fallback,
		chunks:      chunks,
		logger:      logger.With("component", "chunk_indexer"),
	}, nil
}

// Ensure ChunkIndexer implements the job handler interface
var _ job.Handler[ChunkPayload, *domain.Chunk] = (*ChunkIndexer)(nil)

// Execute indexes a single chunk. It is safe to call concurrently from
// multiple workers.
func (ix *ChunkIndexer) Execute(ctx context.Context, payload ChunkPayload) (*domain.Chunk, error) {
	logger := ix.logger.With(
		"video_id", payload.VideoID,
		"chunk_index", payload.Index)

	transcript, err := ix.transcriber.Transcribe(ctx, payload.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe chunk: %w", err)
	}

	var annotations []domain.FrameAnnotation
	if ix.annotator != nil {
		annotations, err = ix.annotator.AnnotateChunk(ctx, payload.Path, payload.FramesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to annotate chunk frames: %w", err)
		}
	}

	text := composeText(transcript, annotations)

	vector, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		if ix.fallback == nil {
			return nil, fmt.Errorf("failed to embed chunk text: %w", err)
		}
		logger.Warn("primary embedder failed, using fallback", "error", err)
		vector, err = ix.fallback.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("fallback embedding failed: %w", err)
		}
	}

	chunk := &domain.Chunk{
		VideoID:    payload.VideoID,
		Index:      payload.Index,
		StartS:     payload.StartS,
		EndS:       payload.EndS,
		Path:       payload.Path,
		Transcript: transcript,
		Embedding:  vector,
	}

	if err := ix.chunks.Upsert(ctx, chunk); err != nil {
		return nil, fmt.Errorf("failed to persist chunk: %w", err)
	}

	logger.Debug("chunk indexed",
		"transcript_len", len(transcript),
		"annotations", len(annotations))
	return chunk, nil
}

// composeText joins the transcript with frame captions and any text
// seen on screen into the string that gets embedded, so searches match
// both what was said and what was shown.
func composeText(transcript string, annotations []domain.FrameAnnotation) string {
	var b strings.Builder
	b.WriteString(transcript)

	for _, a := range annotations {
		if a.Caption != "" {
			b.WriteString(" ")
			b.WriteString(a.Caption)
		}
		if a.TextSeen != "" {
			b.WriteString(" ")
			b.WriteString(a.TextSeen)
		}
	}

	return b.String()
}
