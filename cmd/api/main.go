package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/outreach/internal/app"
	"github.com/markdave123-py/outreach/internal/config"
	"github.com/markdave123-py/outreach/internal/logger"
)

func main() {
	// Handle SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(logger.ParseLevel("info"), "json").Fatal("invalid configuration", "error", err.Error())
	}
	log := logger.New(logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err.Error())
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", "error", err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err.Error())
	}
	if err := application.Close(shutdownCtx); err != nil {
		log.Error("closing clients failed", "error", err.Error())
	}
}
