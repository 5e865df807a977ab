// Package main implements the entry point for the recall API server,
// which indexes uploaded screen recordings into searchable, timestamped
// chunks and answers natural-language queries over them.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/entropic-labs/recall-api/internal/config"
	"github.com/entropic-labs/recall-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.Setup(logger.Config{Level: cfg.Server.LogLevel})

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"chunk_seconds", cfg.Media.ChunkSeconds,
		"worker_count", cfg.Job.WorkerCount,
		"vision_enabled", cfg.Vision.EndpointURL != "")

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if *migrateCmd != "" {
		if err := runMigrationCommand(db, *migrateCmd, appLogger); err != nil {
			appLogger.Error("migration command failed", "command", *migrateCmd, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := migrateUp(db, appLogger); err != nil {
		appLogger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		appLogger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		appLogger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
