// Package app assembles configuration, adapters, and use cases into a
// runnable digest application.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shu-bamma/anime-ai-digest/internal/config"
	"github.com/shu-bamma/anime-ai-digest/internal/fetch"
	"github.com/shu-bamma/anime-ai-digest/internal/infrastructure/email"
	"github.com/shu-bamma/anime-ai-digest/internal/infrastructure/feed"
	"github.com/shu-bamma/anime-ai-digest/internal/infrastructure/llm"
	"github.com/shu-bamma/anime-ai-digest/internal/infrastructure/rest"
	"github.com/shu-bamma/anime-ai-digest/internal/infrastructure/scheduler"
	"github.com/shu-bamma/anime-ai-digest/internal/infrastructure/scrape"
	"github.com/shu-bamma/anime-ai-digest/internal/infrastructure/storage"
	"github.com/shu-bamma/anime-ai-digest/internal/infrastructure/translate"
	"github.com/shu-bamma/anime-ai-digest/internal/logging"
	"github.com/shu-bamma/anime-ai-digest/internal/ports"
	"github.com/shu-bamma/anime-ai-digest/internal/render"
	"github.com/shu-bamma/anime-ai-digest/internal/scoring"
	"github.com/shu-bamma/anime-ai-digest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	store     *storage.PostgresRepository
}

// New builds the application. It fails fast on unusable configuration
// and on an unreachable database.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	registry := fetch.NewRegistry()
	registry.Register(feed.NewFetcher(nil))
	registry.Register(rest.NewCivitaiFetcher(nil))
	registry.Register(rest.NewHuggingFaceFetcher(nil))
	registry.Register(rest.NewSakugabooruFetcher(nil))
	registry.Register(scrape.NewAnimeCornerFetcher(nil))

	source := fetch.NewMultiSource(registry, cfg.Sources, baseLogger.With("component", "source"))

	scorer, err := scoring.NewScorer(cfg.Scoring.Weights, cfg.Scoring.Keywords, cfg.Scoring.CategoryPriorities(), nil)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build scorer: %w", err)
	}

	var translator ports.Translator
	if cfg.Translate.Enabled {
		translator = translate.NewGoogleTranslator(cfg.Translate.Endpoint, nil, store, cfg.Translate.RequestsPerSecond)
	}

	var summarizer ports.Summarizer
	if cfg.LLM.APIKey != "" {
		summarizer = llm.NewClient(cfg.LLM, baseLogger.With("component", "llm"))
	}

	var mailer ports.Mailer
	if cfg.Email.APIKey != "" {
		mailer = email.NewMailer(cfg.Email)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Items:      store,
		Scores:     store,
		Runs:       store,
		Summaries:  store,
		Translator: translator,
		Summarizer: summarizer,
		Renderer:   render.NewRenderer(cfg.Digest.Title),
		Mailer:     mailer,
		Scorer:     scorer,
		Caps:       cfg.Selection,
		Options: usecase.Options{
			Title:       cfg.Digest.Title,
			WindowHours: cfg.Digest.WindowHours,
			MaxItems:    cfg.Digest.MaxItems,
			MinItems:    cfg.Digest.MinItems,
			OutputDir:   cfg.Digest.OutputDir,
		},
		Logger: baseLogger.With("component", "pipeline"),
	})

	cron, err := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build scheduler: %w", err)
	}

	return &Application{
		cfg:       cfg,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(cron, pipeline),
		store:     store,
	}, nil
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context) error {
	return a.pipeline.Run(ctx)
}

// Serve starts the scheduler and blocks until the context is done.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return a.scheduler.Stop(context.WithoutCancel(ctx))
}

// Close releases held resources.
func (a *Application) Close() error {
	return a.store.Close()
}
