package vision

import (
	"context"
	"log/slog"

	"github.com/entropic-labs/recall-api/internal/batch"
	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/media"
)

// PipelineConfig holds configuration for the annotation pipeline
type PipelineConfig struct {
	// BatchSize is the number of frames per request to the processor.
	BatchSize int

	// Parallelism caps how many batches are in flight at once. One means
	// strictly sequential dispatch.
	Parallelism int
}

// DefaultPipelineConfig returns a PipelineConfig with reasonable defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize:   10,
		Parallelism: 2,
	}
}

// FrameSampler extracts ordered frames from a chunk into a scratch
// directory. *media.FrameExtractor is the production implementation.
type FrameSampler interface {
	Extract(ctx context.Context, chunkPath, outDir string) ([]domain.Frame, error)
}

var _ FrameSampler = (*media.FrameExtractor)(nil)

// Pipeline runs end-to-end frame annotation for one chunk: sample frames,
// partition them into fixed-size batches, dispatch the batches to the
// vision processor concurrently, and reassemble one sequence of
// annotations ordered by frame index regardless of which batch finished
// first.
type Pipeline struct {
	extractor FrameSampler
	client    *Client
	config    PipelineConfig
	logger    *slog.Logger
}

// NewPipeline creates an annotation Pipeline.
func NewPipeline(extractor FrameSampler, client *Client, config PipelineConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		extractor: extractor,
		client:    client,
		config:    config,
		logger:    logger.With("component", "annotation_pipeline"),
	}
}

// AnnotateChunk annotates every sampled frame of the chunk at chunkPath,
// writing scratch JPEGs under framesDir. The returned annotations are
// sorted by frame index. A single failed batch send fails the whole
// operation; retrying is the caller's concern.
func (p *Pipeline) AnnotateChunk(ctx context.Context, chunkPath, framesDir string) ([]domain.FrameAnnotation, error) {
	frames, err := p.extractor.Extract(ctx, chunkPath, framesDir)
	if err != nil {
		return nil, err
	}

	if len(frames) == 0 {
		return nil, nil
	}

	groups, err := batch.Partition(frames, p.config.BatchSize)
	if err != nil {
		return nil, err
	}

	results, err := batch.Dispatch(ctx, groups, p.client.SendBatch, p.config.Parallelism)
	if err != nil {
		return nil, err
	}

	merged, err := batch.Reassemble(results, func(a Annotation) (int, bool) {
		if a.FrameIndex == nil {
			return 0, false
		}
		return *a.FrameIndex, true
	})
	if err != nil {
		return nil, err
	}

	annotations := make([]domain.FrameAnnotation, 0, len(merged))
	for _, a := range merged {
		annotations = append(annotations, domain.FrameAnnotation{
			FrameIndex: *a.FrameIndex,
			TimestampS: a.TimestampS,
			Caption:    a.Caption,
			TextSeen:   a.TextSeen,
		})
	}

	p.logger.Info("chunk annotated",
		"chunk", chunkPath,
		"frames", len(frames),
		"batches", len(groups),
		"annotations", len(annotations))

	return annotations, nil
}
