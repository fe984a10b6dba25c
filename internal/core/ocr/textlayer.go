package ocr

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// TextLayer reads the embedded text of each PDF page, in page order.
type TextLayer interface {
	PageTexts(ctx context.Context, path string) ([]string, error)
}

// PDFCPUTextLayer extracts page text by walking content streams with pdfcpu.
type PDFCPUTextLayer struct {
	// MaxPages caps how many pages are read; 0 = no limit.
	MaxPages int
}

// PageTexts returns one entry per page. An error means the container itself
// could not be read; a page whose stream cannot be decoded yields "".
func (l PDFCPUTextLayer) PageTexts(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pdfCtx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	count := pdfCtx.PageCount
	if l.MaxPages > 0 && count > l.MaxPages {
		count = l.MaxPages
	}
	pages := make([]string, 0, count)
	for pageNr := 1; pageNr <= count; pageNr++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		pages = append(pages, pageText(pdfCtx, pageNr))
	}
	return pages, nil
}

func pageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}
