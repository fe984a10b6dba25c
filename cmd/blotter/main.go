package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/blotter-tracker/internal/app"
	"github.com/joseph-ayodele/blotter-tracker/internal/async"
	"github.com/joseph-ayodele/blotter-tracker/internal/briefing"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/parser"
	"github.com/joseph-ayodele/blotter-tracker/internal/ingest"
	"github.com/joseph-ayodele/blotter-tracker/internal/logging"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "blotter",
		Short: "Extract incidents from police blotters",
		Long: `blotter turns daily police and sheriff blotters (PDF, scanned image or
plain text) into structured incident records and daily digest posts.

Configuration comes from .env, the YAML file named by BLOTTER_CONFIG,
and environment variables, in that order.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(digestCmd())
	rootCmd.AddCommand(briefingCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logging.Init(logging.ModeText, cfg.Log.Level), nil
}

// withApp loads config, opens the application and closes it after fn.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseCmd() *cobra.Command {
	var county string
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse one document and print its incidents as JSON",
		Long: `Parse one document without touching the database.

Example:
  blotter parse GCSO_0211.pdf
  blotter parse helena.txt --county "Lewis and Clark"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ext, err := app.NewExtractor(cfg, logger).AcquireText(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res := parser.ParseDocumentText(ext.Text, parser.Options{Logger: logger, Source: filepath.Base(args[0])})
			if county != "" {
				res.County = county
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&county, "county", "", "override the detected county")
	return cmd
}

func ingestCmd() *cobra.Command {
	var (
		dir        string
		county     string
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Parse and store documents",
		Long: `Parse and store the given files, or every supported file under --dir.
Documents already stored (same content hash) are skipped.

Example:
  blotter ingest GCSO_0211.pdf havre.txt
  blotter ingest --dir ./inbox --county Gallatin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" && len(args) == 0 {
				return fmt.Errorf("pass files or --dir")
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				out := cmd.OutOrStdout()
				if dir != "" {
					var ing ingest.Ingestor = ingest.NewFSIngestor(a.Processor, a.Logger)
					results, stats, err := ing.IngestDirectory(cmd.Context(), dir, county, skipHidden)
					if err != nil {
						return err
					}
					for _, r := range results {
						printIngestion(out, r)
					}
					fmt.Fprintf(out, "\nscanned=%d matched=%d succeeded=%d deduplicated=%d failed=%d\n",
						stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed)
				}
				failed := 0
				for _, o := range a.Processor.ProcessFiles(cmd.Context(), args, county) {
					if o.Err != nil {
						failed++
						fmt.Fprintf(out, "FAIL  %s: %v\n", o.Path, o.Err)
						continue
					}
					tag := "OK  "
					if o.Result.Duplicate {
						tag = "DUP "
					}
					fmt.Fprintf(out, "%s  %s  batch=%s county=%s incidents=%d\n",
						tag, o.Path, o.Result.Batch.ID, o.Result.Batch.County, o.Result.Batch.IncidentCount)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files failed", failed, len(args))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "ingest every supported file under this directory")
	cmd.Flags().StringVar(&county, "county", "", "override the detected county")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot-files and dot-directories")
	return cmd
}

func printIngestion(w io.Writer, r ingest.IngestionResult) {
	switch {
	case r.Err != "":
		fmt.Fprintf(w, "FAIL  %s: %s\n", r.SourcePath, r.Err)
	case r.Deduplicated:
		fmt.Fprintf(w, "DUP   %s  batch=%s\n", r.SourcePath, r.BatchID)
	default:
		fmt.Fprintf(w, "OK    %s  batch=%s county=%s incidents=%d\n", r.SourcePath, r.BatchID, r.County, r.Incidents)
	}
}

func watchCmd() *cobra.Command {
	var (
		dir    string
		county string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a drop folder and ingest documents as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				if dir == "" {
					dir = a.Config.Ingest.Dir
				}
				return runWatch(cmd.Context(), a, dir, county)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "drop folder (default BLOTTER_INBOX)")
	cmd.Flags().StringVar(&county, "county", "", "override the detected county")
	return cmd
}

func runWatch(ctx context.Context, a *app.App, dir, county string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create drop folder: %w", err)
	}
	pool := async.NewPool(a.Processor, a.Logger,
		async.WithWorkers(a.Config.Ingest.Workers),
		async.WithQueueSize(a.Config.Ingest.QueueSize),
		async.WithProcessTimeout(a.Config.Ingest.ProcessTimeout),
	)
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    a.Config.Ingest.Debounce,
		SkipHidden:  true,
	}, a.Logger)
	if err != nil {
		return err
	}
	go func() {
		for err := range errs {
			a.Logger.Warn("watch.error", "error", err)
		}
	}()

	a.Logger.Info("watch.start", "dir", dir, "workers", a.Config.Ingest.Workers)
	ingest.Feed(ctx, events, pool, county, a.Logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Ingest.ProcessTimeout)
	defer cancel()
	pool.Shutdown(shutdownCtx)
	processed, failed := pool.Stats()
	a.Logger.Info("watch.stop", "processed", processed, "failed", failed)
	return nil
}

func listCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored blotters, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				batches, err := a.Store.ListBatches(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, b := range batches {
					fmt.Fprintf(out, "%s  %-10s  %-16s  %-8s  %4d  %s\n",
						b.ID, b.Status, b.County, b.Format, b.IncidentCount, b.Filename)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of blotters")
	return cmd
}

func batchFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "batch", "", "blotter id")
	_ = cmd.MarkFlagRequired("batch")
}

func parseBatchID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--batch must be a UUID: %w", common.ErrInvalidInput)
	}
	return id, nil
}

func exportCmd() *cobra.Command {
	var batch, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a blotter's incidents to an XLSX workbook",
		Long: `Example:
  blotter export --batch 7c1e... --out gallatin-0211.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBatchID(batch)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				data, err := a.Exporter.ExportBatchXLSX(cmd.Context(), id)
				if err != nil {
					return err
				}
				if out == "" {
					out = "blotter-" + id.String() + ".xlsx"
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
				return nil
			})
		},
	}
	batchFlag(cmd, &batch)
	cmd.Flags().StringVar(&out, "out", "", "output path (default blotter-<id>.xlsx)")
	return cmd
}

func digestCmd() *cobra.Command {
	var batch, sender string
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Write the daily digest post for a stored blotter",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBatchID(batch)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				var senderPtr *string
				if sender != "" {
					senderPtr = &sender
				}
				post, err := a.Summarizer.Summarize(cmd.Context(), id, senderPtr)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), post)
			})
		},
	}
	batchFlag(cmd, &batch)
	cmd.Flags().StringVar(&sender, "sender", "", "sender address used for agency detection")
	return cmd
}

func briefingCmd() *cobra.Command {
	var date, out string
	cmd := &cobra.Command{
		Use:   "briefing",
		Short: "Render the morning briefing HTML for one day's posts",
		Long: `Example:
  blotter briefing --date 2026-02-11 --out briefing.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			day := now.AddDate(0, 0, -1)
			if date != "" {
				d, err := time.Parse(briefing.DayLayout, date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", common.ErrInvalidInput)
				}
				day = d
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				posts, err := briefing.PostsForDay(cmd.Context(), a.Store, day)
				if err != nil {
					return err
				}
				html, err := briefing.Render(posts, day, now)
				if err != nil {
					return err
				}
				if out == "" {
					_, err = cmd.OutOrStdout().Write(html)
					return err
				}
				a.Logger.Info("briefing.written", "path", out, "posts", len(posts))
				return os.WriteFile(out, html, 0o644)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to report (default yesterday)")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}
