package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
	"github.com/joseph-ayodele/blotter-tracker/internal/logging"
	"github.com/joseph-ayodele/blotter-tracker/internal/repository"
)

const gcsoText = `Gallatin County Sheriff's Office
CFS Date/Time CFS Number Location Type
02/11/26 01:34:33 CFS26-004521 400 BLOCK MAIN ST TRAFFIC STOP
02/11/26 01:35:10 - Alexander, Logan - Vehicle released, verbal warning issued for expired plates, driver cooperative throughout stop.`

// textAcquirer reads files verbatim, standing in for the OCR extractor.
type textAcquirer struct {
	mu    sync.Mutex
	calls int
	// before runs ahead of each read.
	before func(path string)
}

func (a *textAcquirer) AcquireText(_ context.Context, path string) (ocr.ExtractionResult, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.before != nil {
		a.before(path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ocr.ExtractionResult{}, common.ErrDocumentNotFound
	}
	return ocr.ExtractionResult{Text: string(b), Pages: 1, SourceType: "PDF", Method: ocr.MethodPDFText}, nil
}

type fakeSummarizer struct {
	err    error
	sender *string
	calls  int
}

func (f *fakeSummarizer) Summarize(_ context.Context, batchID uuid.UUID, sender *string) (*entity.Post, error) {
	f.calls++
	f.sender = sender
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Post{ID: uuid.New(), BatchID: batchID, Title: "digest"}, nil
}

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	s, err := repository.OpenSQLite(context.Background(), "file:"+filepath.Join(t.TempDir(), "p.db"), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func writeDoc(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func fixedNow() time.Time { return time.Date(2026, 2, 12, 7, 0, 0, 0, time.UTC) }

func TestProcessFileStoresAndSummarizes(t *testing.T) {
	store := newStore(t)
	sum := &fakeSummarizer{}
	p := NewProcessor(logging.Discard(), &textAcquirer{}, store, WithSummarizer(sum), WithClock(fixedNow))
	path := writeDoc(t, t.TempDir(), "gcso.pdf", gcsoText)

	res, err := p.ProcessFile(context.Background(), path, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Duplicate || res.Batch.County != "Gallatin" || res.Parse.TotalCount != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Post == nil || sum.calls != 1 {
		t.Fatalf("summarizer not run")
	}
	got, err := store.GetBatch(context.Background(), res.Batch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != string(constants.BatchStatusSummarized) || got.Format != string(constants.FormatGCSO) {
		t.Fatalf("stored batch %+v", got)
	}
	records, err := store.ListRecords(context.Background(), res.Batch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || entity.StringValue(records[0].CaseNumber) != "CFS26-004521" {
		t.Fatalf("records = %+v", records)
	}
}

func TestProcessFileDeduplicatesByContent(t *testing.T) {
	store := newStore(t)
	acq := &textAcquirer{}
	p := NewProcessor(logging.Discard(), acq, store)
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.pdf", gcsoText)
	b := writeDoc(t, dir, "copy-of-a.pdf", gcsoText)

	first, err := p.ProcessFile(context.Background(), a, "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ProcessFile(context.Background(), b, "")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Duplicate || second.Batch.ID != first.Batch.ID {
		t.Fatalf("expected duplicate of %s, got %+v", first.Batch.ID, second)
	}
	if acq.calls != 1 {
		t.Fatalf("acquire calls = %d", acq.calls)
	}
}

func TestProcessFileConcurrentSameContent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	var winner *entity.Batch
	acq := &textAcquirer{before: func(path string) {
		// A second worker finishes the same file while this one extracts text.
		hash, err := HashFile(path)
		if err != nil {
			t.Fatal(err)
		}
		winner, err = store.SaveParseResult(ctx, repository.BatchMeta{
			Filename: "other.pdf", SourceType: "PDF", ContentHash: hash,
		}, entity.ParseResult{})
		if err != nil {
			t.Fatal(err)
		}
	}}
	p := NewProcessor(logging.Discard(), acq, store)
	path := writeDoc(t, t.TempDir(), "gcso.pdf", gcsoText)

	res, err := p.ProcessFile(ctx, path, "")
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	if !res.Duplicate || res.Batch.ID != winner.ID {
		t.Fatalf("expected duplicate of %s, got %+v", winner.ID, res)
	}
	batches, err := store.ListBatches(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
}

func TestProcessFileCountyOverride(t *testing.T) {
	store := newStore(t)
	p := NewProcessor(logging.Discard(), &textAcquirer{}, store)
	path := writeDoc(t, t.TempDir(), "gcso.pdf", gcsoText)

	res, err := p.ProcessFile(context.Background(), path, " Park ")
	if err != nil {
		t.Fatal(err)
	}
	if res.Batch.County != "Park" || res.Parse.County != "Gallatin" {
		t.Fatalf("batch county %q parse county %q", res.Batch.County, res.Parse.County)
	}
}

func TestProcessFileMissing(t *testing.T) {
	p := NewProcessor(logging.Discard(), &textAcquirer{}, newStore(t))
	_, err := p.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "none.pdf"), "")
	if !errors.Is(err, common.ErrDocumentNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSummarizeFailureKeepsBatch(t *testing.T) {
	store := newStore(t)
	sum := &fakeSummarizer{err: errors.New("db down")}
	p := NewProcessor(logging.Discard(), &textAcquirer{}, store, WithSummarizer(sum))
	path := writeDoc(t, t.TempDir(), "gcso.pdf", gcsoText)

	res, err := p.ProcessFile(context.Background(), path, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Post != nil {
		t.Fatal("post should be nil")
	}
	got, err := store.GetBatch(context.Background(), res.Batch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != string(constants.BatchStatusFailed) || got.IncidentCount != 1 {
		t.Fatalf("stored batch %+v", got)
	}
}

func TestProcessText(t *testing.T) {
	store := newStore(t)
	sum := &fakeSummarizer{}
	p := NewProcessor(logging.Discard(), &textAcquirer{}, store, WithSummarizer(sum), WithClock(fixedNow))
	sender := "dispatch@helenamt.gov"

	text := "Helena Police Department\nFebruary 11, 2026\n8:20 AM - Theft reported at 1200 block of Last Chance Gulch."
	res, err := p.ProcessText(context.Background(), TextDocument{Text: text, Source: "email", SenderEmail: &sender})
	if err != nil {
		t.Fatal(err)
	}
	if res.Batch.County != constants.HelenaCounty || res.Batch.SourceType != "TXT" || res.Batch.Filename != "email.txt" {
		t.Fatalf("batch %+v", res.Batch)
	}
	if sum.sender == nil || *sum.sender != sender {
		t.Fatalf("sender not passed to summarizer")
	}

	if _, err := p.ProcessText(context.Background(), TextDocument{Text: "  \n"}); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("empty text: %v", err)
	}
}

func TestProcessFilesKeepsOrderAndIsolatesFailures(t *testing.T) {
	store := newStore(t)
	p := NewProcessor(logging.Discard(), &textAcquirer{}, store, WithConcurrency(3))
	dir := t.TempDir()
	paths := []string{
		writeDoc(t, dir, "one.pdf", gcsoText),
		filepath.Join(dir, "missing.pdf"),
		writeDoc(t, dir, "three.txt", strings.Replace(gcsoText, "CFS26-004521", "CFS26-004999", 1)),
	}

	outcomes := p.ProcessFiles(context.Background(), paths, "")
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Path != paths[i] {
			t.Fatalf("outcome %d path %s", i, o.Path)
		}
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Fatalf("unexpected errors: %v / %v", outcomes[0].Err, outcomes[2].Err)
	}
	if !errors.Is(outcomes[1].Err, common.ErrDocumentNotFound) {
		t.Fatalf("missing file err = %v", outcomes[1].Err)
	}
}
