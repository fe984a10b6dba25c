package ingest

import (
	"context"
	"time"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	BatchID      string
	Deduplicated bool
	HashHex      string
	FileExt      string
	County       string
	Incidents    int
	IngestedAt   time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the CLI depends on.
type Ingestor interface {
	// IngestPath processes a single file.
	IngestPath(ctx context.Context, path, county string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root, county string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
