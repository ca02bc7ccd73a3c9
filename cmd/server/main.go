package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/igarcialujan/user-management-api/internal/app"
	"github.com/igarcialujan/user-management-api/internal/config"
	"github.com/igarcialujan/user-management-api/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, err := logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
