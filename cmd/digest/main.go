package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/shu-bamma/anime-ai-digest/internal/app"
	"github.com/shu-bamma/anime-ai-digest/internal/config"
	"github.com/shu-bamma/anime-ai-digest/internal/logging"
)

func main() {
	serve := flag.Bool("serve", false, "run on the configured schedule instead of once")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if *serve {
		err = application.Serve(ctx)
	} else {
		err = application.RunOnce(ctx)
	}
	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
