package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/deusflow/devops-digest/internal/app"
	"github.com/deusflow/devops-digest/internal/config"
	"github.com/deusflow/devops-digest/internal/logger"
)

func main() {
	// .env is optional; real deployments pass the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to read .env", "error", err)
	}

	logger.Init()
	logger.WithRun(uuid.NewString())

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Warn("failed to close AI client", "error", err)
		}
	}()

	logger.Info("DevOps digest starting")
	if err := pipeline.Run(ctx); err != nil {
		logger.Warn("run interrupted", "error", err)
		return
	}
	logger.Info("DevOps digest finished")
}
