package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/logging"
)

func TestTextFromContentStream(t *testing.T) {
	cases := []struct {
		name   string
		stream string
		want   string
	}{
		{"tj with line moves", "BT /F1 12 Tf 72 720 Td (GCSO) Tj 0 -14 Td (Line two) Tj ET", "GCSO\nLine two"},
		{"tj kerning gap", "BT [(Hel) -20 (lo) -300 (World)] TJ ET", "Hello World"},
		{"escapes", `BT (a\(b\)) Tj ET`, "a(b)"},
		{"octal escape", `BT (\101BC) Tj ET`, "ABC"},
		{"hex string", "BT <48656C6C6F> Tj ET", "Hello"},
		{"t star", "BT (one) Tj T* (two) Tj ET", "one\ntwo"},
		{"quote operator", "BT (one) Tj (two) ' ET", "one\ntwo"},
		{"tm rows", "BT 1 0 0 1 72 700 Tm (a) Tj 1 0 0 1 150 700 Tm (b) Tj 1 0 0 1 72 686 Tm (c) Tj ET", "a b\nc"},
		{"horizontal td", "BT (left) Tj 120 0 Td (right) Tj ET", "left right"},
		{"inline image skipped", "BI /W 1 /H 1 ID \xff\x00\x01 EI BT (after) Tj ET", "after"},
		{"dict operand", "/P <</MCID 0>> BDC BT (marked) Tj ET EMC", "marked"},
		{"comment", "% header\nBT (x) Tj ET", "x"},
		{"two-byte glyph ids dropped", "BT /F2 10 Tf <002A0046004F0046> Tj ET", ""},
		{"two-byte glyphs beside simple text", "BT (Header) Tj 0 -14 Td [<00240025> -300 <0026>] TJ ET", "Header"},
		{"odd-length string kept", "BT <48> Tj ET", "H"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textFromContentStream([]byte(tc.stream)); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

type fakeLayer struct {
	pages []string
	err   error
	calls int
}

func (f *fakeLayer) PageTexts(context.Context, string) ([]string, error) {
	f.calls++
	return f.pages, f.err
}

type fakeRecognizer struct {
	pages    []string
	image    string
	err      error
	pdfCalls int
	imgCalls int
}

func (f *fakeRecognizer) RecognizePDF(context.Context, string) ([]string, error) {
	f.pdfCalls++
	return f.pages, f.err
}

func (f *fakeRecognizer) RecognizeImage(context.Context, string) (string, error) {
	f.imgCalls++
	return f.image, f.err
}

func quietLogger() *slog.Logger { return logging.Discard() }

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAcquireTextUsesTextLayerWhenPresent(t *testing.T) {
	path := writeFile(t, "log.pdf", []byte("%PDF-1.4\n"))
	layer := &fakeLayer{pages: []string{"GCSO page one", "   ", "page three"}}
	rec := &fakeRecognizer{}
	e := NewExtractor(Config{}, quietLogger(), WithTextLayer(layer), WithRecognizer(rec))

	res, err := e.AcquireText(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if rec.pdfCalls != 0 {
		t.Fatalf("OCR ran although text layer had content")
	}
	if res.Method != MethodPDFText || res.OCRAttempted {
		t.Fatalf("method=%s attempted=%v", res.Method, res.OCRAttempted)
	}
	if res.Text != "GCSO page one\n\npage three" {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Pages != 3 || res.SourceType != "PDF" {
		t.Fatalf("pages=%d source=%s", res.Pages, res.SourceType)
	}
}

func TestAcquireTextFallsBackToOCROnlyWhenAllPagesBlank(t *testing.T) {
	path := writeFile(t, "scan.pdf", []byte("%PDF-1.7\n"))
	layer := &fakeLayer{pages: []string{"", " \n ", "\t"}}
	rec := &fakeRecognizer{pages: []string{"HAVRE POLICE", "26-0001 0800 Theft"}}
	e := NewExtractor(Config{}, quietLogger(), WithTextLayer(layer), WithRecognizer(rec))

	res, err := e.AcquireText(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if rec.pdfCalls != 1 {
		t.Fatalf("RecognizePDF calls = %d", rec.pdfCalls)
	}
	if res.Method != MethodPDFOCR || !res.OCRAttempted || res.Fallback != FallbackNone {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Text != "HAVRE POLICE\n26-0001 0800 Theft" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestAcquireTextOCRFailureKeepsPartialText(t *testing.T) {
	path := writeFile(t, "scan.pdf", []byte("%PDF-1.7\n"))
	rec := &fakeRecognizer{pages: []string{"page one", ""}, err: errors.New("page 2: tesseract: exit status 1")}
	e := NewExtractor(Config{}, quietLogger(), WithTextLayer(&fakeLayer{pages: []string{""}}), WithRecognizer(rec))

	res, err := e.AcquireText(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "page one" {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Fallback != FallbackNone || res.FallbackErr == "" {
		t.Fatalf("fallback = %q err = %q", res.Fallback, res.FallbackErr)
	}
}

func TestAcquireTextFallbackReasons(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FallbackReason
	}{
		{"missing binary", &exec.Error{Name: "tesseract", Err: exec.ErrNotFound}, FallbackOCRUnavailable},
		{"tool failure", errors.New("exit status 1"), FallbackOCRFailed},
		{"blank output", nil, FallbackOCREmpty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "scan.pdf", []byte("%PDF-1.7\n"))
			rec := &fakeRecognizer{pages: []string{"  "}, err: tc.err}
			e := NewExtractor(Config{}, quietLogger(), WithTextLayer(&fakeLayer{pages: []string{""}}), WithRecognizer(rec))

			res, err := e.AcquireText(context.Background(), path)
			if err != nil {
				t.Fatal(err)
			}
			if res.Fallback != tc.want {
				t.Fatalf("fallback = %q, want %q", res.Fallback, tc.want)
			}
			if res.Text != "" {
				t.Fatalf("text = %q", res.Text)
			}
		})
	}
}

func TestAcquireTextCanceled(t *testing.T) {
	path := writeFile(t, "scan.png", []byte("png"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &fakeRecognizer{err: context.Canceled}
	e := NewExtractor(Config{}, quietLogger(), WithRecognizer(rec))

	res, err := e.AcquireText(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fallback != FallbackCanceled {
		t.Fatalf("fallback = %q", res.Fallback)
	}
}

func TestAcquireTextImageGoesStraightToOCR(t *testing.T) {
	path := writeFile(t, "photo.JPG", []byte{0xff, 0xd8})
	layer := &fakeLayer{}
	rec := &fakeRecognizer{image: "  GCSO  \r\nline  "}
	e := NewExtractor(Config{}, quietLogger(), WithTextLayer(layer), WithRecognizer(rec))

	res, err := e.AcquireText(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if layer.calls != 0 || rec.imgCalls != 1 {
		t.Fatalf("layer=%d image=%d", layer.calls, rec.imgCalls)
	}
	if res.SourceType != "IMAGE" || res.Method != MethodImageOCR {
		t.Fatalf("unexpected %+v", res)
	}
	if res.Text != "GCSO\nline" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestAcquireTextPlainText(t *testing.T) {
	path := writeFile(t, "log.txt", []byte("Helena Police\r\n\r\n\r\nline"))
	e := NewExtractor(Config{}, quietLogger(), WithRecognizer(&fakeRecognizer{}))

	res, err := e.AcquireText(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != MethodPlainText || res.Text != "Helena Police\n\nline" {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestAcquireTextErrors(t *testing.T) {
	e := NewExtractor(Config{}, quietLogger(), WithRecognizer(&fakeRecognizer{}))
	ctx := context.Background()

	if _, err := e.AcquireText(ctx, filepath.Join(t.TempDir(), "nope.pdf")); !errors.Is(err, common.ErrDocumentNotFound) {
		t.Fatalf("missing file: %v", err)
	}
	if _, err := e.AcquireText(ctx, t.TempDir()); !errors.Is(err, common.ErrDocumentNotFound) {
		t.Fatalf("directory: %v", err)
	}

	notPDF := writeFile(t, "fake.pdf", []byte("just some text, not a pdf"))
	if _, err := e.AcquireText(ctx, notPDF); !errors.Is(err, common.ErrUnreadableDocument) {
		t.Fatalf("non-pdf: %v", err)
	}

	broken := writeFile(t, "broken.pdf", []byte("%PDF-1.4\n"))
	e2 := NewExtractor(Config{}, quietLogger(),
		WithTextLayer(&fakeLayer{err: errors.New("xref corrupt")}),
		WithRecognizer(&fakeRecognizer{}))
	if _, err := e2.AcquireText(ctx, broken); !errors.Is(err, common.ErrUnreadableDocument) {
		t.Fatalf("corrupt: %v", err)
	}
}

func TestAcquireTextRealPDF(t *testing.T) {
	pdf := buildTextPDF([]string{
		"Gallatin County Sheriff's Office",
		"02/11/26 01:34:33 CFS26-004521 400 BLOCK MAIN ST TRAFFIC STOP",
	})
	path := writeFile(t, "gcso.pdf", pdf)
	rec := &fakeRecognizer{}
	e := NewExtractor(Config{}, quietLogger(), WithRecognizer(rec))

	res, err := e.AcquireText(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if rec.pdfCalls != 0 {
		t.Fatal("OCR should not run for a PDF with a text layer")
	}
	want := "Gallatin County Sheriff's Office\n02/11/26 01:34:33 CFS26-004521 400 BLOCK MAIN ST TRAFFIC STOP"
	if res.Text != want {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Pages != 1 {
		t.Fatalf("pages = %d", res.Pages)
	}
}

func TestAcquireTextGlyphOnlyPDFGoesToOCR(t *testing.T) {
	path := writeFile(t, "cid.pdf", buildContentPDF("BT\n/F1 10 Tf\n72 720 Td\n<002A0046004F0046> Tj\nET"))
	rec := &fakeRecognizer{pages: []string{"recognized text"}}
	e := NewExtractor(Config{}, quietLogger(), WithRecognizer(rec))

	res, err := e.AcquireText(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if rec.pdfCalls != 1 || res.Method != MethodPDFOCR {
		t.Fatalf("expected OCR fallback, got method=%s calls=%d", res.Method, rec.pdfCalls)
	}
	if res.Text != "recognized text" {
		t.Fatalf("text = %q", res.Text)
	}
}

type fakeRunner struct {
	calls []string
	pages int
	fail  map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	if err := f.fail[name]; err != nil {
		return nil, []byte("boom"), err
	}
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o644); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		return []byte("text of " + filepath.Base(args[0])), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func TestTesseractOCRRecognizePDF(t *testing.T) {
	r := &fakeRunner{pages: 2}
	ocr := NewTesseractOCR(Config{TessdataDir: "/td"}, r, quietLogger())

	pages, err := ocr.RecognizePDF(context.Background(), "/in/doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 || pages[0] != "text of page-1.png" || pages[1] != "text of page-2.png" {
		t.Fatalf("pages = %q", pages)
	}
	if !strings.HasPrefix(r.calls[0], "pdftoppm -r 200 -png /in/doc.pdf ") {
		t.Fatalf("pdftoppm call = %q", r.calls[0])
	}
	if !strings.HasSuffix(r.calls[1], " stdout -l eng --psm 6 --tessdata-dir /td") {
		t.Fatalf("tesseract call = %q", r.calls[1])
	}
}

func TestTesseractOCRErrors(t *testing.T) {
	r := &fakeRunner{fail: map[string]error{"pdftoppm": &exec.Error{Name: "pdftoppm", Err: exec.ErrNotFound}}}
	_, err := NewTesseractOCR(Config{}, r, quietLogger()).RecognizePDF(context.Background(), "/in/doc.pdf")
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}

	empty := &fakeRunner{pages: 0}
	if _, err := NewTesseractOCR(Config{}, empty, quietLogger()).RecognizePDF(context.Background(), "/in/doc.pdf"); err == nil {
		t.Fatal("expected error when no page images are produced")
	}
}

func TestExtractorWithRunnerRoutesThroughTesseract(t *testing.T) {
	path := writeFile(t, "scan.tiff", []byte("II*"))
	r := &fakeRunner{}
	var buf bytes.Buffer
	e := NewExtractor(Config{Language: "eng"}, logging.New(&buf, logging.ModeText, slog.LevelDebug), WithRunner(r))

	res, err := e.AcquireText(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "text of scan.tiff" {
		t.Fatalf("text = %q", res.Text)
	}
	if !strings.Contains(buf.String(), "ocr.acquire.ok") {
		t.Fatalf("missing acquire log: %s", buf.String())
	}
}

// buildTextPDF assembles a minimal single-page PDF whose content stream
// shows each line with a downward Td move.
func buildTextPDF(lines []string) []byte {
	var stream strings.Builder
	stream.WriteString("BT\n/F1 10 Tf\n72 720 Td\n")
	for i, line := range lines {
		if i > 0 {
			stream.WriteString("0 -14 Td\n")
		}
		esc := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(line)
		stream.WriteString("(" + esc + ") Tj\n")
	}
	stream.WriteString("ET")
	return buildContentPDF(stream.String())
}

// buildContentPDF wraps one page content stream in a minimal PDF.
func buildContentPDF(content string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length " + strconv.Itoa(len(content)) + " >>\nstream\n")
	b.WriteString(content)
	b.WriteString("\nendstream\nendobj\n")
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		b.WriteString(fmt.Sprintf("%010d 00000 n \n", offsets[i]))
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n")
	b.WriteString(strconv.Itoa(xref))
	b.WriteString("\n%%EOF\n")
	return []byte(b.String())
}
