package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/pipeline"
)

// FileProcessor is the pipeline entry point used for each file.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path, countyOverride string) (*pipeline.Result, error)
}

// FSIngestor reads blotters from the local filesystem.
type FSIngestor struct {
	Processor   FileProcessor
	Logger      *slog.Logger
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> default set
}

var _ Ingestor = (*FSIngestor)(nil)

func NewFSIngestor(proc FileProcessor, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Processor: proc, Logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path, county string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		i.Logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !allowedIn(ext, i.AllowedExts) {
		i.Logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, ext)
	}

	res, err := i.Processor.ProcessFile(ctx, abs, county)
	if err != nil {
		return out, err
	}

	out = IngestionResult{
		SourcePath:   abs,
		BatchID:      res.Batch.ID.String(),
		Deduplicated: res.Duplicate,
		HashHex:      hex.EncodeToString(res.Batch.ContentHash),
		FileExt:      ext,
		County:       res.Batch.County,
		Incidents:    res.Batch.IncidentCount,
		IngestedAt:   time.Now().UTC(),
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root, county string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, fmt.Errorf("%w: root path is required", common.ErrInvalidInput)
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !allowedIn(filepath.Ext(path), i.AllowedExts) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path, county)
		if err != nil {
			i.Logger.Error("ingest failed", "path", path, "error", err)
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.Logger.Info("directory ingest complete",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, err
}

var _ Ingestor = (*FSIngestor)(nil)
