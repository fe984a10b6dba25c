package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/blotter-tracker/internal/logging"
)

// runocr prints the text the pipeline would parse for one document.
func main() {
	logger := logging.Init(logging.ModeJSON, "info")

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <path>")
		os.Exit(2)
	}
	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	x := ocr.NewExtractor(ocr.ConfigFromCommon(cfg.OCR), logger)
	start := time.Now()
	res, err := x.AcquireText(ctx, os.Args[1])
	if err != nil {
		logger.Error("text extraction failed", "path", os.Args[1], "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"method", res.Method,
		"source_type", res.SourceType,
		"pages", res.Pages,
		"ocr_attempted", res.OCRAttempted,
		"fallback", res.Fallback,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	fmt.Println(res.Text)
}
