package summarize

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
	"github.com/joseph-ayodele/blotter-tracker/internal/logging"
	"github.com/joseph-ayodele/blotter-tracker/internal/repository"
)

type fakeProvider struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func ptr(s string) *string { return &s }

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	s, err := repository.OpenSQLite(context.Background(), "file:"+filepath.Join(t.TempDir(), "s.db"), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func seedBatch(t *testing.T, s *repository.Store, filename string, incidents []entity.Incident) uuid.UUID {
	t.Helper()
	b, err := s.SaveParseResult(context.Background(), repository.BatchMeta{
		Filename:    filename,
		SourcePath:  "/tmp/" + filename,
		SourceType:  "PDF",
		ContentHash: []byte(uuid.NewString()),
	}, entity.ParseResult{
		County:     "Gallatin",
		Format:     constants.FormatGCSO,
		Incidents:  incidents,
		TotalCount: len(incidents),
	})
	if err != nil {
		t.Fatal(err)
	}
	return b.ID
}

var gcsoIncidents = []entity.Incident{
	{Date: "02/11/26", Time: ptr("14:05:00"), IncidentType: "Theft", Location: "100 BLOCK MAIN ST", Details: "Bike stolen from rack"},
	{Date: "02/11/26", Time: ptr("01:34:33"), IncidentType: "Vehicle", Location: "400 BLOCK MAIN ST", Details: "Traffic stop"},
	{Date: "02/10/26", Time: ptr("23:10:00"), IncidentType: "", Location: "", Details: "Noise complaint"},
}

func TestSummarizeWithModel(t *testing.T) {
	s := newStore(t)
	id := seedBatch(t, s, "GCSO_0211.pdf", gcsoIncidents)
	prov := &fakeProvider{reply: "```json\n{\"title\":\"Busy Night in Bozeman\",\"summary\":\"The office responded to three calls.\",\"city\":\"Bozeman\",\"agency_type\":\"Sheriff\",\"agency_name\":\"\"}\n```"}

	post, err := NewService(s, prov, logging.Discard(), 0).Summarize(context.Background(), id, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	want := &entity.Post{
		ID:           post.ID,
		BatchID:      id,
		Title:        "Busy Night in Bozeman",
		Summary:      "The office responded to three calls.",
		County:       "Gallatin",
		City:         "Bozeman",
		AgencyType:   constants.AgencySheriff,
		AgencyName:   "Gallatin County Sheriff's Office",
		IncidentType: constants.DailyDigest,
		IncidentDate: "02/10/26",
		Source:       string(constants.DigestSourceLLM),
		CreatedAt:    post.CreatedAt,
	}
	if diff := cmp.Diff(want, post); diff != "" {
		t.Errorf("post mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(prov.system, "journalist") {
		t.Errorf("system prompt = %q", prov.system)
	}
	first := strings.Index(prov.user, "- 23:10:00  Unknown  |    |  Noise complaint")
	second := strings.Index(prov.user, "- 01:34:33  Vehicle")
	third := strings.Index(prov.user, "- 14:05:00  Theft")
	if first < 0 || second < first || third < second {
		t.Errorf("incident lines out of order in prompt:\n%s", prov.user)
	}
}

func TestSummarizeFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		reason   string
	}{
		{"disabled", nil, ReasonDisabled},
		{"provider error", &fakeProvider{err: errors.New("boom")}, ReasonProviderError},
		{"not json", &fakeProvider{reply: "I cannot help with that"}, ReasonInvalidResponse},
		{"empty summary", &fakeProvider{reply: `{"title":"x","summary":""}`}, ReasonInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			id := seedBatch(t, s, "GCSO_0211.pdf", gcsoIncidents)

			post, err := NewService(s, tt.provider, logging.Discard(), 0).Summarize(context.Background(), id, nil)
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			if post.Source != string(constants.DigestSourceFallback) {
				t.Errorf("source = %q", post.Source)
			}
			if got := entity.StringValue(post.FailureReason); got != tt.reason {
				t.Errorf("failure reason = %q, want %q", got, tt.reason)
			}
			if post.Title != "Daily Activity Report – Gallatin County Sheriff's Office" {
				t.Errorf("title = %q", post.Title)
			}
			wantSummary := "The Gallatin County Sheriff's Office responded to the following incidents:\n" +
				"23:10:00 – Incident\n" +
				"01:34:33 – Vehicle at 400 BLOCK MAIN ST\n" +
				"14:05:00 – Theft at 100 BLOCK MAIN ST"
			if post.Summary != wantSummary {
				t.Errorf("summary = %q", post.Summary)
			}
		})
	}
}

func TestSummarizeRepairsJSON(t *testing.T) {
	s := newStore(t)
	id := seedBatch(t, s, "GCSO_0211.pdf", gcsoIncidents)
	prov := &fakeProvider{reply: `{"title": "Night Report", "summary": "Three calls overnight.",}`}

	post, err := NewService(s, prov, logging.Discard(), 0).Summarize(context.Background(), id, nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if post.Source != string(constants.DigestSourceLLM) || post.Summary != "Three calls overnight." {
		t.Errorf("post = %+v", post)
	}
}

func TestSummarizeOncePerBatch(t *testing.T) {
	s := newStore(t)
	id := seedBatch(t, s, "GCSO_0211.pdf", gcsoIncidents)
	svc := NewService(s, nil, logging.Discard(), 0)

	if _, err := svc.Summarize(context.Background(), id, nil); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := svc.Summarize(context.Background(), id, nil)
	if !errors.Is(err, ErrDigestExists) || !errors.Is(err, common.ErrConflict) {
		t.Fatalf("second err = %v", err)
	}
}

func TestSummarizeNoRecordsAndMissingBatch(t *testing.T) {
	s := newStore(t)
	svc := NewService(s, nil, logging.Discard(), 0)

	empty := seedBatch(t, s, "empty.pdf", nil)
	if _, err := svc.Summarize(context.Background(), empty, nil); !errors.Is(err, ErrNoRecords) {
		t.Errorf("empty batch err = %v", err)
	}
	if _, err := svc.Summarize(context.Background(), uuid.New(), nil); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing batch err = %v", err)
	}
}

func TestSummarizeUsesSenderForAgency(t *testing.T) {
	s := newStore(t)
	id := seedBatch(t, s, "report.pdf", []entity.Incident{
		{Date: "02/11/26", Time: ptr("08:00"), IncidentType: "Theft", Location: "Main", Details: "Wallet taken"},
	})
	post, err := NewService(s, nil, logging.Discard(), 0).Summarize(context.Background(), id, ptr("pd@city.gov"))
	if err != nil {
		t.Fatal(err)
	}
	if post.AgencyType != constants.AgencyPolice || post.AgencyName != "Gallatin Police Department" {
		t.Errorf("agency = %q / %q", post.AgencyType, post.AgencyName)
	}
}

func TestSortRecords(t *testing.T) {
	rec := func(date, tm string) entity.Record {
		return entity.Record{Incident: entity.Incident{Date: date, Time: ptr(tm), Details: date + " " + tm}}
	}
	records := []entity.Record{
		rec("02/11/26", "2:15 PM"),
		rec("02/11/26", "09:00"),
		rec("garbage", "01:00"),
		rec("02/10/26", "23:59:59"),
		rec("02/11/26", "nonsense"),
		rec("02/11/26", "9:00AM"),
		rec("02/11/26", ""),
	}
	SortRecords(records)

	var got []string
	for _, r := range records {
		got = append(got, r.Details)
	}
	want := []string{
		"02/10/26 23:59:59",
		"02/11/26 ",
		"02/11/26 09:00",
		"02/11/26 9:00AM",
		"02/11/26 2:15 PM",
		"02/11/26 nonsense",
		"garbage 01:00",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestClockKey(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", -1},
		{"00:00", 0},
		{"09:05:30", 9*3600 + 5*60 + 30},
		{"2:15 pm", 14*3600 + 15*60},
		{"11:59:59 PM", 24*3600 - 1},
		{"nonsense", 24 * 3600},
	}
	for _, tt := range tests {
		if got := clockKey(tt.in); got != tt.want {
			t.Errorf("clockKey(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDecodeDigest(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     Digest
		repaired bool
		wantErr  bool
	}{
		{name: "plain", in: `{"summary":"s","city":" Helena "}`, want: Digest{Summary: "s", City: "Helena"}},
		{name: "fenced", in: "```\n{\"summary\":\"s\"}\n```", want: Digest{Summary: "s"}},
		{name: "trailing comma", in: `{"summary":"s",}`, want: Digest{Summary: "s"}, repaired: true},
		{name: "empty", in: "   ", wantErr: true},
		{name: "missing summary", in: `{"title":"t"}`, wantErr: true},
		{name: "wrong type", in: `{"summary":5}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, repaired, err := decodeDigest(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want || repaired != tt.repaired {
				t.Errorf("got %+v repaired=%v, want %+v repaired=%v", got, repaired, tt.want, tt.repaired)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), common.LLMConfig{Provider: "none"}, logging.Discard())
	if err != nil || p != nil {
		t.Errorf("none: %v %v", p, err)
	}
	p, err = NewProvider(context.Background(), common.LLMConfig{Provider: "openai", APIKey: "k"}, logging.Discard())
	if err != nil || p == nil || p.Name() != "openai" {
		t.Errorf("openai: %v %v", p, err)
	}
	if _, err := NewProvider(context.Background(), common.LLMConfig{Provider: "gemini"}, logging.Discard()); err == nil {
		t.Error("gemini without key should fail")
	}
	if _, err := NewProvider(context.Background(), common.LLMConfig{Provider: "llama"}, logging.Discard()); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("unknown provider err = %v", err)
	}
}
