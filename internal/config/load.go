package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables use the RECALL_ prefix with
// underscores standing in for section dots (RECALL_SERVER_PORT) and
// take precedence over file values. Returns a populated Config struct
// or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything can come from the
		// environment.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Keys without a meaningful default still need to be registered so
	// AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("vision.endpoint_url", "")
	v.SetDefault("embedding.gemini_api_key", "")

	v.SetDefault("media.upload_dir", "data/uploads")
	v.SetDefault("media.scratch_dir", "data/chunks")
	v.SetDefault("media.chunk_seconds", 10)
	v.SetDefault("media.exact_boundaries", false)
	v.SetDefault("media.frame_fps", 0.2)

	v.SetDefault("vision.request_timeout", 120*time.Second)
	v.SetDefault("vision.requests_per_second", 1.0)
	v.SetDefault("vision.batch_size", 10)
	v.SetDefault("vision.parallelism", 2)

	v.SetDefault("embedding.model_name", "gemini-embedding-001")

	v.SetDefault("transcription.command", "")

	v.SetDefault("job.worker_count", 2)
	v.SetDefault("job.queue_size", 256)
	v.SetDefault("job.max_retries", 2)
	v.SetDefault("job.join_timeout_seconds", 900)

	v.SetDefault("janitor.enabled", false)
	v.SetDefault("janitor.schedule", "0 * * * *")
	v.SetDefault("janitor.ttl_hours", 24)
}
