package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/parkgo/docs"
	"github.com/kirinyoku/parkgo/internal/app"
	"github.com/kirinyoku/parkgo/internal/config"
)

// @title ParkGo API
// @version 1.0
// @description Parking lot allocation and billing service.
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
