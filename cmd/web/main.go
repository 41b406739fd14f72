// Command web serves the segmentation API, the progress WebSocket and the
// Prometheus metrics endpoint.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"segmentcli/internal/app"
	"segmentcli/internal/config"
	"segmentcli/internal/infrastructure"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
