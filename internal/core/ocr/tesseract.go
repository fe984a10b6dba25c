package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Recognizer runs optical character recognition over scanned input.
type Recognizer interface {
	// RecognizePDF rasterizes every page and returns one text per page, in
	// page order. Pages recognized before a failure are returned with the error.
	RecognizePDF(ctx context.Context, path string) ([]string, error)
	RecognizeImage(ctx context.Context, path string) (string, error)
}

// TesseractOCR rasterizes with pdftoppm and recognizes with tesseract.
type TesseractOCR struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractOCR(cfg Config, runner Runner, logger *slog.Logger) *TesseractOCR {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &TesseractOCR{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (t *TesseractOCR) RecognizePDF(ctx context.Context, path string) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "blotter-pp-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.logger.Warn("ocr.tmp.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 200 -png <in.pdf> <tmp/page>
	_, errb, err := t.runner.Run(ctx, t.cfg.Pdftoppm, t.logger, "-r", strconv.Itoa(t.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	// collect generated pngs (page-1.png, page-2.png, ... zero-padded for larger documents)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if t.cfg.MaxPages > 0 && len(matches) > t.cfg.MaxPages {
		matches = matches[:t.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, errors.New("pdftoppm produced no images")
	}

	pages := make([]string, 0, len(matches))
	var errs []error
	for i, img := range matches {
		txt, err := t.RecognizeImage(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return pages, err
			}
			t.logger.Warn("ocr.page.failed", "page", i+1, "error", err)
			errs = append(errs, fmt.Errorf("page %d: %w", i+1, err))
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	return pages, errors.Join(errs...)
}

func (t *TesseractOCR) RecognizeImage(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l eng --psm 6
	args := []string{path, "stdout", "-l", t.cfg.Language}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.logger, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return string(out), nil
}
