// Package summarize writes the one-per-batch digest post, asking a language
// model first and falling back to a plain listing when it cannot.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/jurisdiction"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/normalize"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

var (
	// ErrDigestExists means the batch already has its post.
	ErrDigestExists = fmt.Errorf("digest already exists: %w", common.ErrConflict)
	// ErrNoRecords means the batch holds no incidents to summarize.
	ErrNoRecords = errors.New("batch has no incidents")
)

// Failure reasons recorded on fallback posts.
const (
	ReasonDisabled        = "llm_disabled"
	ReasonProviderError   = "llm_error"
	ReasonInvalidResponse = "invalid_response"
)

// Outcome records which path produced a digest and, for fallbacks, why.
type Outcome struct {
	Source        constants.DigestSource
	FailureReason string
}

func fallbackOutcome(reason string) Outcome {
	return Outcome{Source: constants.DigestSourceFallback, FailureReason: reason}
}

// Provider completes a prompt with a model.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

type Store interface {
	GetBatch(ctx context.Context, id uuid.UUID) (*entity.Batch, error)
	ListRecords(ctx context.Context, batchID uuid.UUID) ([]entity.Record, error)
	PostForBatch(ctx context.Context, batchID uuid.UUID) (*entity.Post, error)
	CreatePost(ctx context.Context, p *entity.Post) error
}

type Service struct {
	store    Store
	provider Provider // nil disables the model call
	logger   *slog.Logger
	timeout  time.Duration
}

func NewService(store Store, provider Provider, logger *slog.Logger, timeout time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, provider: provider, logger: logger, timeout: timeout}
}

// Summarize creates the digest post for a batch.
func (s *Service) Summarize(ctx context.Context, batchID uuid.UUID, senderEmail *string) (*entity.Post, error) {
	logger := common.LoggerFromContext(ctx, s.logger).With("batch_id", batchID)

	if _, err := s.store.PostForBatch(ctx, batchID); err == nil {
		logger.Info("summarize.skip.exists")
		return nil, ErrDigestExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListRecords(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		logger.Info("summarize.skip.empty")
		return nil, ErrNoRecords
	}
	SortRecords(records)

	county := records[0].County
	if county == "" {
		county = batch.County
	}
	incidentDate := records[0].Date
	if incidentDate == "" {
		incidentDate = batch.CreatedAt.Format(normalize.WireDateLayout)
	}

	combined := make([]string, 0, len(records))
	for _, r := range records {
		combined = append(combined, r.IncidentType+" "+r.Location+" "+r.Details)
	}
	agencyType, agencyName := jurisdiction.DetectAgency(strings.Join(combined, " "), entity.StringValue(senderEmail), batch.Filename, county)

	digest, outcome := s.callModel(ctx, logger, promptInput{
		County:     county,
		Date:       incidentDate,
		AgencyType: agencyType,
		AgencyName: agencyName,
		Filename:   batch.Filename,
		Lines:      IncidentLines(records),
	})

	finalType := agencyType
	if t, ok := constants.CanonicalizeAgencyType(digest.AgencyType); ok {
		finalType = t
	}
	finalName := agencyName
	if digest.AgencyName != "" {
		finalName = digest.AgencyName
	}
	title := digest.Title
	if title == "" {
		title = "Daily Activity Report – " + firstNonEmpty(finalName, county)
	}
	summary := digest.Summary
	if summary == "" {
		summary = FallbackSummary(agencyName, records)
		outcome.Source = constants.DigestSourceFallback
	}

	post := &entity.Post{
		BatchID:      batchID,
		Title:        title,
		Summary:      summary,
		County:       county,
		City:         digest.City,
		AgencyType:   finalType,
		AgencyName:   finalName,
		IncidentType: constants.DailyDigest,
		IncidentDate: incidentDate,
		Source:       string(outcome.Source),
	}
	if outcome.FailureReason != "" {
		post.FailureReason = &outcome.FailureReason
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, ErrDigestExists
		}
		return nil, err
	}
	logger.Info("summarize.ok", "post_id", post.ID, "source", post.Source, "agency", post.AgencyName)
	return post, nil
}

func (s *Service) callModel(ctx context.Context, logger *slog.Logger, in promptInput) (Digest, Outcome) {
	if s.provider == nil {
		return Digest{}, fallbackOutcome(ReasonDisabled)
	}
	ctx, cancel := common.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.provider.Complete(ctx, systemPrompt, buildUserPrompt(in))
	if err != nil {
		logger.Warn("summarize.llm.error", "provider", s.provider.Name(), "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Digest{}, fallbackOutcome(ReasonProviderError)
	}
	d, repaired, err := decodeDigest(reply)
	if err != nil {
		logger.Warn("summarize.llm.invalid", "provider", s.provider.Name(), "error", err, "reply_bytes", len(reply))
		return Digest{}, fallbackOutcome(ReasonInvalidResponse)
	}
	if repaired {
		logger.Debug("summarize.llm.repaired", "provider", s.provider.Name())
	}
	logger.Info("summarize.llm.ok", "provider", s.provider.Name(), "elapsed_ms", time.Since(start).Milliseconds())
	return d, Outcome{Source: constants.DigestSourceLLM}
}

// IncidentLines renders records as "- time  type  |  location  |  details".
func IncidentLines(records []entity.Record) []string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		itype := firstNonEmpty(r.IncidentType, "Unknown")
		line := fmt.Sprintf("- %s  %s  |  %s  |  %s", entity.StringValue(r.Time), itype, r.Location, r.Details)
		lines = append(lines, strings.Trim(line, " |"))
	}
	return lines
}

// FallbackSummary lists every incident when no model summary is available.
func FallbackSummary(agencyName string, records []entity.Record) string {
	lines := []string{fmt.Sprintf("The %s responded to the following incidents:", firstNonEmpty(agencyName, "agency"))}
	for _, r := range records {
		line := entity.StringValue(r.Time) + " – " + firstNonEmpty(r.IncidentType, "Incident")
		if r.Location != "" {
			line += " at " + r.Location
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// SortRecords orders records by date then time of day. Ties and values that
// do not parse keep their source order.
func SortRecords(records []entity.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		di, dj := dateKey(records[i].Date), dateKey(records[j].Date)
		if di != dj {
			return di < dj
		}
		return clockKey(entity.StringValue(records[i].Time)) < clockKey(entity.StringValue(records[j].Time))
	})
}

func dateKey(s string) string {
	if t, ok := normalize.ParseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return "~" + s
}

var clockLayouts = []string{"15:04:05", "15:04", "3:04 PM", "3:04PM", "3:04:05 PM"}

// clockKey is seconds past midnight. An empty time sorts before any real time
// and an unparseable one after.
func clockKey(s string) int {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return -1
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*3600 + t.Minute()*60 + t.Second()
		}
	}
	return 24 * 3600
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
