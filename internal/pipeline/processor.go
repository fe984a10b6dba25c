// Package pipeline runs a blotter document end to end: acquire text, parse,
// persist, and optionally write the digest post.
package pipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/parser"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
	"github.com/joseph-ayodele/blotter-tracker/internal/repository"
	"github.com/joseph-ayodele/blotter-tracker/internal/summarize"
)

type TextAcquirer interface {
	AcquireText(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

type BatchStore interface {
	SaveParseResult(ctx context.Context, meta repository.BatchMeta, res entity.ParseResult) (*entity.Batch, error)
	FindBatchByHash(ctx context.Context, hash []byte) (*entity.Batch, error)
	SetBatchStatus(ctx context.Context, id uuid.UUID, status constants.BatchStatus) error
}

type Summarizer interface {
	Summarize(ctx context.Context, batchID uuid.UUID, senderEmail *string) (*entity.Post, error)
}

// Processor coordinates text acquisition, parsing and persistence.
type Processor struct {
	logger      *slog.Logger
	acquirer    TextAcquirer
	store       BatchStore
	summarizer  Summarizer
	now         func() time.Time
	concurrency int
}

type Option func(*Processor)

// WithSummarizer writes a digest post after each stored batch.
func WithSummarizer(s Summarizer) Option { return func(p *Processor) { p.summarizer = s } }

// WithClock sets the clock used for undated documents.
func WithClock(now func() time.Time) Option { return func(p *Processor) { p.now = now } }

// WithConcurrency bounds ProcessFiles parallelism.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func NewProcessor(logger *slog.Logger, acquirer TextAcquirer, store BatchStore, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:      logger,
		acquirer:    acquirer,
		store:       store,
		now:         time.Now,
		concurrency: 2,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Result describes one processed document.
type Result struct {
	Batch      *entity.Batch
	Parse      entity.ParseResult
	Extraction ocr.ExtractionResult
	Post       *entity.Post
	// Duplicate is set when the content hash matched an earlier batch; Batch
	// is then the earlier one and nothing new was stored.
	Duplicate bool
}

// TextDocument is a blotter that arrived as text, e.g. an email body.
type TextDocument struct {
	Text        string
	Filename    string
	Source      string
	SenderEmail *string
	County      string
}

// ProcessFile runs the whole pipeline for one file. countyOverride, when set,
// replaces the detected county on the stored batch.
func (p *Processor) ProcessFile(ctx context.Context, path, countyOverride string) (*Result, error) {
	logger := common.LoggerFromContext(ctx, p.logger).With("path", path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	hash, err := HashFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrDocumentNotFound, path)
		}
		return nil, err
	}

	if existing, err := p.store.FindBatchByHash(ctx, hash); err == nil {
		logger.Info("pipeline.dedupe.hit", "batch_id", existing.ID)
		return &Result{Batch: existing, Duplicate: true}, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	ext, err := p.acquirer.AcquireText(ctx, abs)
	if err != nil {
		logger.Error("pipeline.acquire.failed", "error", err)
		return nil, err
	}
	if ext.Fallback != ocr.FallbackNone {
		logger.Warn("pipeline.acquire.fallback", "reason", ext.Fallback, "detail", ext.FallbackErr)
	}

	res := parser.ParseDocumentText(ext.Text, parser.Options{Now: p.now, Logger: logger, Source: filepath.Base(abs)})
	out := &Result{Parse: res, Extraction: ext}

	out.Batch, err = p.store.SaveParseResult(ctx, repository.BatchMeta{
		Filename:    filepath.Base(abs),
		SourcePath:  abs,
		SourceType:  ext.SourceType,
		ContentHash: hash,
		County:      strings.TrimSpace(countyOverride),
	}, res)
	if errors.Is(err, common.ErrConflict) {
		// Another worker stored the same content since the lookup above.
		if existing, findErr := p.store.FindBatchByHash(ctx, hash); findErr == nil {
			logger.Info("pipeline.dedupe.hit", "batch_id", existing.ID, "late", true)
			return &Result{Batch: existing, Duplicate: true}, nil
		}
	}
	if err != nil {
		logger.Error("pipeline.save.failed", "error", err)
		return nil, err
	}
	logger.Info("pipeline.file.ok",
		"batch_id", out.Batch.ID,
		"county", out.Batch.County,
		"format", res.Format,
		"incidents", res.TotalCount,
		"method", ext.Method,
	)

	out.Post = p.summarize(ctx, logger, out.Batch, nil)
	return out, nil
}

// ProcessText parses and stores a text document. Text documents carry no
// content hash and are never de-duplicated.
func (p *Processor) ProcessText(ctx context.Context, doc TextDocument) (*Result, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: text is empty", common.ErrInvalidInput)
	}
	logger := common.LoggerFromContext(ctx, p.logger).With("source", doc.Source)

	source := doc.Source
	if source == "" {
		source = "text"
	}
	filename := doc.Filename
	if filename == "" {
		filename = source + ".txt"
	}

	res := parser.ParseDocumentText(doc.Text, parser.Options{Now: p.now, Logger: logger, Source: source})
	out := &Result{Parse: res}

	var err error
	out.Batch, err = p.store.SaveParseResult(ctx, repository.BatchMeta{
		Filename:    filename,
		SourceType:  "TXT",
		SenderEmail: doc.SenderEmail,
		County:      strings.TrimSpace(doc.County),
	}, res)
	if err != nil {
		logger.Error("pipeline.save.failed", "error", err)
		return nil, err
	}
	logger.Info("pipeline.text.ok", "batch_id", out.Batch.ID, "county", out.Batch.County, "incidents", res.TotalCount)

	out.Post = p.summarize(ctx, logger, out.Batch, doc.SenderEmail)
	return out, nil
}

// summarize failures never fail the batch; incidents are already stored.
func (p *Processor) summarize(ctx context.Context, logger *slog.Logger, b *entity.Batch, sender *string) *entity.Post {
	if p.summarizer == nil {
		return nil
	}
	post, err := p.summarizer.Summarize(ctx, b.ID, sender)
	if errors.Is(err, summarize.ErrNoRecords) || errors.Is(err, summarize.ErrDigestExists) {
		logger.Info("pipeline.summarize.skipped", "batch_id", b.ID, "reason", err)
		return nil
	}
	if err != nil {
		logger.Error("pipeline.summarize.failed", "batch_id", b.ID, "error", err)
		if serr := p.store.SetBatchStatus(ctx, b.ID, constants.BatchStatusFailed); serr != nil {
			logger.Warn("pipeline.status.failed", "batch_id", b.ID, "error", serr)
		}
		return nil
	}
	if err := p.store.SetBatchStatus(ctx, b.ID, constants.BatchStatusSummarized); err != nil {
		logger.Warn("pipeline.status.failed", "batch_id", b.ID, "error", err)
	} else {
		b.Status = string(constants.BatchStatusSummarized)
	}
	return post
}

// FileOutcome pairs a path with its result or error.
type FileOutcome struct {
	Path   string
	Result *Result
	Err    error
}

// ProcessFiles processes paths with bounded parallelism. One failing file does
// not stop the others; outcomes keep the input order.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string, countyOverride string) []FileOutcome {
	out := make([]FileOutcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			res, err := p.ProcessFile(gctx, path, countyOverride)
			out[i] = FileOutcome{Path: path, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// HashFile returns the SHA-256 of the file contents.
func HashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
