// Package main is the entry point for the yeogida API server.
//
// main only reads configuration, builds the logger and hands over to
// internal/server; everything else lives in the internal packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yeogida/yeogida-backend/internal/config"
	"github.com/yeogida/yeogida-backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Log levels (from least to most severe): Debug → Info → Warn → Error
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if cfg.KakaoClientID == "" {
		logger.Warn("KAKAO_REST_API_KEY not set; Kakao login will be rejected by the provider")
	}
	if cfg.DevMode {
		logger.Warn("DEV_MODE is on; anonymous review comments are attributed to the first account")
	}

	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
