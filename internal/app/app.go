// Package app wires configuration into the store, pipeline and services
// shared by the CLI and the daemon.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/blotter-tracker/internal/export"
	"github.com/joseph-ayodele/blotter-tracker/internal/pipeline"
	"github.com/joseph-ayodele/blotter-tracker/internal/repository"
	"github.com/joseph-ayodele/blotter-tracker/internal/summarize"
)

type App struct {
	Config     *common.Config
	Logger     *slog.Logger
	Store      *repository.Store
	Extractor  *ocr.Extractor
	Summarizer *summarize.Service
	Processor  *pipeline.Processor
	Exporter   *export.Service
}

// New opens and migrates the database and builds the services on top of it.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	store, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.HealthCheck(ctx, 5*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	provider, err := summarize.NewProvider(ctx, cfg.LLM, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	summarizer := summarize.NewService(store, provider, logger, cfg.LLM.Timeout)
	extractor := NewExtractor(cfg, logger)

	opts := []pipeline.Option{pipeline.WithConcurrency(cfg.Ingest.Workers)}
	if cfg.Ingest.Summarize {
		opts = append(opts, pipeline.WithSummarizer(summarizer))
	}

	logger.Info("app.ready",
		"db_driver", cfg.Database.Driver,
		"llm_provider", cfg.LLM.Provider,
		"summarize", cfg.Ingest.Summarize,
	)
	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Extractor:  extractor,
		Summarizer: summarizer,
		Processor:  pipeline.NewProcessor(logger, extractor, store, opts...),
		Exporter:   export.NewService(store, logger),
	}, nil
}

// NewExtractor builds the text extractor alone, for commands that never touch the database.
func NewExtractor(cfg *common.Config, logger *slog.Logger) *ocr.Extractor {
	return ocr.NewExtractor(ocr.ConfigFromCommon(cfg.OCR), logger)
}

func (a *App) Close() {
	a.Store.Close()
}
