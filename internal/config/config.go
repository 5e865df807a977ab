package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Media     MediaConfig     `mapstructure:"media" validate:"required"`
	Vision    VisionConfig    `mapstructure:"vision"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	Transcription TranscriptionConfig `mapstructure:"transcription"`

	Job     JobConfig     `mapstructure:"job" validate:"required"`
	Janitor JanitorConfig `mapstructure:"janitor"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// MediaConfig tunes segmentation and frame extraction.
type MediaConfig struct {
	// UploadDir is where raw uploads are stored.
	UploadDir string `mapstructure:"upload_dir" validate:"required"`

	// ScratchDir is where chunk and frame files are written.
	ScratchDir string `mapstructure:"scratch_dir" validate:"required"`

	// ChunkSeconds is the fixed chunk duration.
	ChunkSeconds int `mapstructure:"chunk_seconds" validate:"required,gte=10,lte=60"`

	// ExactBoundaries re-encodes so every chunk starts on a keyframe.
	ExactBoundaries bool `mapstructure:"exact_boundaries"`

	// FrameFPS is the frame sampling rate for vision annotation.
	FrameFPS float64 `mapstructure:"frame_fps" validate:"gt=0"`
}

// VisionConfig configures the external frame annotation endpoint.
// An empty endpoint URL disables frame annotation.
type VisionConfig struct {
	EndpointURL       string        `mapstructure:"endpoint_url" validate:"omitempty,url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BatchSize         int           `mapstructure:"batch_size" validate:"gte=0"`
	Parallelism       int           `mapstructure:"parallelism" validate:"gte=0"`
}

// EmbeddingConfig configures text embedding. Without an API key the
// deterministic hash embedder is used.
type EmbeddingConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}

// TranscriptionConfig configures the external transcription command.
// The chunk file path is appended to the arguments; an empty command
// selects the deterministic fallback transcripts.
type TranscriptionConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// JobConfig tunes the chunk indexing worker pool.
type JobConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
	MaxRetries  int `mapstructure:"max_retries" validate:"gte=0"`

	// JoinTimeoutSeconds bounds how long one video's indexing waits for
	// its chunk jobs. Zero waits indefinitely.
	JoinTimeoutSeconds int `mapstructure:"join_timeout_seconds" validate:"gte=0"`
}

// JanitorConfig configures the scratch directory sweeper.
type JanitorConfig struct {
	// Enabled turns the periodic sweep on.
	Enabled bool `mapstructure:"enabled"`

	// Schedule is a cron expression for the sweep cadence.
	Schedule string `mapstructure:"schedule"`

	// TTLHours is how old a video's scratch directory must be before it
	// is removed.
	TTLHours int `mapstructure:"ttl_hours" validate:"gte=0"`
}
