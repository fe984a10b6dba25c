package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/blotter-tracker/internal/app"
	"github.com/joseph-ayodele/blotter-tracker/internal/async"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/ingest"
	"github.com/joseph-ayodele/blotter-tracker/internal/logging"
	"github.com/joseph-ayodele/blotter-tracker/internal/server"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		logging.Init(logging.ModeJSON, "info").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Init(logging.ModeJSON, cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Server.HTTPAddr != "" {
		api := server.NewAPI(server.HTTPConfig{
			PublicBaseURL:  cfg.Server.PublicBaseURL,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			UploadDir:      cfg.Server.UploadDir,
		}, a.Store, a.Store, a.Exporter, a.Processor, logger)
		httpServer := &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		grpcServer := server.NewGRPCServer(server.NewGRPCService(a.Processor, logger), logger)
		g.Go(func() error {
			logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-ctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}

	if cfg.Ingest.Dir != "" {
		if err := os.MkdirAll(cfg.Ingest.Dir, 0o755); err != nil {
			logger.Error("failed to create drop folder", "dir", cfg.Ingest.Dir, "error", err)
			os.Exit(1)
		}
		pool := async.NewPool(a.Processor, logger,
			async.WithWorkers(cfg.Ingest.Workers),
			async.WithQueueSize(cfg.Ingest.QueueSize),
			async.WithProcessTimeout(cfg.Ingest.ProcessTimeout),
		)
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{cfg.Ingest.Dir},
			InitialScan: true,
			Debounce:    cfg.Ingest.Debounce,
			SkipHidden:  true,
		}, logger)
		if err != nil {
			logger.Error("failed to start watcher", "dir", cfg.Ingest.Dir, "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			for err := range errs {
				logger.Warn("watch.error", "error", err)
			}
			return nil
		})
		g.Go(func() error {
			ingest.Feed(ctx, events, pool, "", logger)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			pool.Shutdown(shutdownCtx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
