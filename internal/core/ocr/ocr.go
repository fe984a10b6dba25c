// Package ocr acquires the text of a blotter document: the embedded PDF text
// layer first, rasterized OCR only when every page came back blank.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/normalize"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string // default "eng"
	DPI         int    // rasterization DPI for scanned PDFs, default 200
	PSM         int    // tesseract page segmentation mode, default 6 (uniform block of text)
	MaxPages    int    // 0 = no limit
	TessdataDir string
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 200
	}
	if c.PSM <= 0 {
		c.PSM = 6
	}
	return c
}

// ConfigFromCommon maps the application OCR settings.
func ConfigFromCommon(c common.OCRConfig) Config {
	return Config{
		Pdftoppm:    c.PdftoppmBin,
		Tesseract:   c.TesseractBin,
		Language:    c.Language,
		DPI:         c.DPI,
		PSM:         c.PSM,
		MaxPages:    c.MaxPages,
		TessdataDir: c.TessdataDir,
	}
}

// Method names the path that produced the text.
type Method string

const (
	MethodPDFText   Method = "pdf-text"
	MethodPDFOCR    Method = "pdf-ocr"
	MethodImageOCR  Method = "image-ocr"
	MethodPlainText Method = "plain-text"
)

// FallbackReason explains why OCR produced no usable text. Empty means OCR
// was not needed or succeeded.
type FallbackReason string

const (
	FallbackNone           FallbackReason = ""
	FallbackOCRUnavailable FallbackReason = "ocr_unavailable"
	FallbackOCRFailed      FallbackReason = "ocr_failed"
	FallbackOCREmpty       FallbackReason = "ocr_empty"
	FallbackCanceled       FallbackReason = "canceled"
)

type ExtractionResult struct {
	Text         string
	Pages        int
	SourceType   string // constants.FileTypes
	Method       Method
	Language     string
	Duration     time.Duration
	OCRAttempted bool
	Fallback     FallbackReason
	FallbackErr  string
}

type Extractor struct {
	cfg    Config
	layer  TextLayer
	ocr    Recognizer
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTextLayer replaces the pdfcpu text layer reader.
func WithTextLayer(l TextLayer) Option { return func(e *Extractor) { e.layer = l } }

// WithRecognizer replaces the tesseract recognizer.
func WithRecognizer(r Recognizer) Option { return func(e *Extractor) { e.ocr = r } }

// WithRunner keeps tesseract but routes its commands through r.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.ocr = NewTesseractOCR(e.cfg, r, e.logger) }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	e := &Extractor{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.layer == nil {
		e.layer = PDFCPUTextLayer{MaxPages: cfg.MaxPages}
	}
	if e.ocr == nil {
		e.ocr = NewTesseractOCR(cfg, ExecRunner{}, logger)
	}
	return e
}

// AcquireText produces the normalized text of the document at path.
// Only a missing file (common.ErrDocumentNotFound) or an unreadable container
// (common.ErrUnreadableDocument) are errors; OCR trouble is reported through
// ExtractionResult.Fallback with whatever text was gathered.
func (e *Extractor) AcquireText(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return ExtractionResult{}, fmt.Errorf("%w: %s", common.ErrDocumentNotFound, path)
		}
		return ExtractionResult{}, fmt.Errorf("%w: %s: %v", common.ErrDocumentNotFound, path, err)
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	sourceType := constants.SourceTypeForExt(ext)
	e.logger.Debug("ocr.acquire.start", "path", path, "ext", ext, "source_type", sourceType)

	var res ExtractionResult
	switch sourceType {
	case "TXT":
		res, err = e.readPlainText(path)
	case "IMAGE":
		res = e.extractImage(ctx, path)
	default:
		res, err = e.extractPDF(ctx, path)
	}
	if err != nil {
		e.logger.Error("ocr.acquire.failed", "path", path, "error", err)
		return ExtractionResult{}, err
	}
	res.SourceType = sourceType
	res.Duration = time.Since(start)

	e.logger.Info("ocr.acquire.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"fallback", res.Fallback,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) readPlainText(path string) (ExtractionResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("%w: %s: %v", common.ErrUnreadableDocument, path, err)
	}
	return ExtractionResult{
		Text:   normalize.Normalize(string(raw)),
		Pages:  1,
		Method: MethodPlainText,
	}, nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) ExtractionResult {
	res := ExtractionResult{Pages: 1, Method: MethodImageOCR, Language: e.cfg.Language, OCRAttempted: true}
	txt, err := e.ocr.RecognizeImage(ctx, path)
	res.Text = normalize.Normalize(txt)
	e.recordFallback(ctx, &res, path, err)
	return res
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	if err := sniffPDF(path); err != nil {
		return ExtractionResult{}, err
	}
	pages, err := e.layer.PageTexts(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return ExtractionResult{}, ctx.Err()
		}
		return ExtractionResult{}, fmt.Errorf("%w: %s: %v", common.ErrUnreadableDocument, path, err)
	}

	joined := strings.Join(pages, "\n")
	if strings.TrimSpace(joined) != "" {
		return ExtractionResult{
			Text:   normalize.Normalize(joined),
			Pages:  len(pages),
			Method: MethodPDFText,
		}, nil
	}

	e.logger.Info("ocr.textlayer.empty", "path", path, "pages", len(pages))
	res := ExtractionResult{Pages: len(pages), Method: MethodPDFOCR, Language: e.cfg.Language, OCRAttempted: true}
	ocrPages, err := e.ocr.RecognizePDF(ctx, path)
	res.Text = normalize.Normalize(strings.Join(ocrPages, "\n"))
	if len(ocrPages) > res.Pages {
		res.Pages = len(ocrPages)
	}
	e.recordFallback(ctx, &res, path, err)
	return res, nil
}

func (e *Extractor) recordFallback(ctx context.Context, res *ExtractionResult, path string, err error) {
	if strings.TrimSpace(res.Text) != "" {
		if err != nil {
			res.FallbackErr = err.Error()
			e.logger.Warn("ocr.partial", "path", path, "chars", len(res.Text), "error", err)
		}
		return
	}
	switch {
	case err == nil:
		res.Fallback = FallbackOCREmpty
	case ctx.Err() != nil:
		res.Fallback = FallbackCanceled
	case errors.Is(err, exec.ErrNotFound):
		res.Fallback = FallbackOCRUnavailable
	default:
		res.Fallback = FallbackOCRFailed
	}
	if err != nil {
		res.FallbackErr = err.Error()
	}
	e.logger.Warn("ocr.fallback",
		"path", path,
		"reason", res.Fallback,
		"chars", len(res.Text),
		"error", err,
	)
}

// sniffPDF rejects files that do not carry a PDF header near the start.
func sniffPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrUnreadableDocument, path, err)
	}
	defer f.Close()
	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %v", common.ErrUnreadableDocument, path, err)
	}
	if !bytes.Contains(head[:n], []byte("%PDF-")) {
		return fmt.Errorf("%w: %s: not a PDF", common.ErrUnreadableDocument, path)
	}
	return nil
}
