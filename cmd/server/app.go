package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/entropic-labs/recall-api/internal/config"
	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/embedding"
	"github.com/entropic-labs/recall-api/internal/events"
	"github.com/entropic-labs/recall-api/internal/job"
	"github.com/entropic-labs/recall-api/internal/media"
	"github.com/entropic-labs/recall-api/internal/platform/postgres"
	"github.com/entropic-labs/recall-api/internal/search"
	"github.com/entropic-labs/recall-api/internal/service"
	"github.com/entropic-labs/recall-api/internal/store"
	"github.com/entropic-labs/recall-api/internal/transcription"
	"github.com/entropic-labs/recall-api/internal/vision"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	videoStore store.VideoStore
	chunkStore store.ChunkStore

	eventEmitter  *events.InMemoryEmitter
	indexRunner   *service.IndexRunner
	videoService  service.VideoService
	searchService *search.Service

	janitor *media.Janitor
}

// newApplication creates a new application instance with all
// dependencies initialized. It accepts core dependencies that must be
// established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.videoStore = postgres.NewPostgresVideoStore(db, logger)
	app.chunkStore = postgres.NewPostgresChunkStore(db, logger)

	segmenter, err := media.NewSegmenter(media.SegmenterConfig{
		ChunkSeconds:    cfg.Media.ChunkSeconds,
		ExactBoundaries: cfg.Media.ExactBoundaries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create segmenter: %w", err)
	}

	transcriber := setupTranscriber(cfg, logger)
	annotator, err := setupAnnotator(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up frame annotation: %w", err)
	}

	embedder, fallback, err := setupEmbedders(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up embedding: %w", err)
	}

	indexer, err := service.NewChunkIndexer(transcriber, annotator, embedder, fallback, app.chunkStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk indexer: %w", err)
	}

	app.indexRunner, err = job.NewRunner[service.ChunkPayload, *domain.Chunk](indexer, job.RunnerConfig{
		WorkerCount: cfg.Job.WorkerCount,
		QueueSize:   cfg.Job.QueueSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create job runner: %w", err)
	}
	app.indexRunner.Start()

	app.eventEmitter = events.NewInMemoryEmitter(logger)

	app.videoService, err = service.NewVideoService(
		app.videoStore,
		app.chunkStore,
		segmenter,
		app.indexRunner,
		app.eventEmitter,
		service.VideoServiceConfig{
			ScratchRoot: cfg.Media.ScratchDir,
			MaxRetries:  cfg.Job.MaxRetries,
			JoinTimeout: time.Duration(cfg.Job.JoinTimeoutSeconds) * time.Second,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create video service: %w", err)
	}

	indexHandler, err := service.NewIndexEventHandler(app.videoService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create index event handler: %w", err)
	}
	app.eventEmitter.RegisterHandler(indexHandler)

	app.searchService, err = search.NewService(app.chunkStore, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}

	if cfg.Janitor.Enabled {
		app.janitor, err = media.NewJanitor(
			cfg.Media.ScratchDir,
			time.Duration(cfg.Janitor.TTLHours)*time.Hour,
			cfg.Janitor.Schedule,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create scratch janitor: %w", err)
		}
		app.janitor.Start()
	}

	logger.Info("application initialized")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// setupTranscriber picks the configured transcription backend. Without
// an external command the deterministic fallback transcriber is used.
func setupTranscriber(cfg *config.Config, logger *slog.Logger) transcription.Transcriber {
	if cfg.Transcription.Command != "" {
		logger.Info("using command transcriber", "command", cfg.Transcription.Command)
		return transcription.NewCommandTranscriber(cfg.Transcription.Command, cfg.Transcription.Args, logger)
	}

	logger.Info("no transcription command configured, using fallback transcripts")
	return transcription.NewFallbackTranscriber()
}

// setupAnnotator builds the vision annotation pipeline, or returns nil
// when no vision endpoint is configured.
func setupAnnotator(cfg *config.Config, logger *slog.Logger) (service.Annotator, error) {
	if cfg.Vision.EndpointURL == "" {
		logger.Info("no vision endpoint configured, frame annotation disabled")
		return nil, nil
	}

	extractor, err := media.NewFrameExtractor(cfg.Media.FrameFPS, logger)
	if err != nil {
		return nil, err
	}

	client, err := vision.NewClient(vision.ClientConfig{
		EndpointURL:       cfg.Vision.EndpointURL,
		RequestTimeout:    cfg.Vision.RequestTimeout,
		RequestsPerSecond: cfg.Vision.RequestsPerSecond,
	}, logger)
	if err != nil {
		return nil, err
	}

	pipeline := vision.NewPipeline(extractor, client, vision.PipelineConfig{
		BatchSize:   cfg.Vision.BatchSize,
		Parallelism: cfg.Vision.Parallelism,
	}, logger)

	logger.Info("vision annotation enabled",
		"endpoint", cfg.Vision.EndpointURL,
		"batch_size", cfg.Vision.BatchSize,
		"parallelism", cfg.Vision.Parallelism)
	return pipeline, nil
}

// setupEmbedders builds the primary and fallback embedders. With a
// Gemini API key the primary is the hosted model and the hash embedder
// backs it up; without one the hash embedder serves alone.
func setupEmbedders(ctx context.Context, cfg *config.Config, logger *slog.Logger) (embedding.Embedder, embedding.Embedder, error) {
	hash := embedding.NewHashEmbedder()

	if cfg.Embedding.GeminiAPIKey == "" {
		logger.Info("no embedding API key configured, using hash embeddings")
		return hash, nil, nil
	}

	gemini, err := embedding.NewGeminiEmbedder(ctx, embedding.GeminiConfig{
		APIKey:    cfg.Embedding.GeminiAPIKey,
		ModelName: cfg.Embedding.ModelName,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("gemini embeddings enabled", "model", cfg.Embedding.ModelName)
	return gemini, hash, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.indexRunner != nil {
		// Let in-flight chunk jobs settle before stopping the workers.
		app.indexRunner.Join(30 * time.Second)
		app.indexRunner.Shutdown()
	}

	if app.janitor != nil {
		app.janitor.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
