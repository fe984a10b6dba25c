package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/normalize"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

var (
	reMonthDate = regexp.MustCompile(
		`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)` +
			`\s+(\d{1,2}),?\s+(\d{4})`)
	reSlashDate = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`)

	// "8:20 AM – A theft was reported ..." where the dash may be any lone
	// non-alphanumeric character after OCR.
	reHelenaTimed = regexp.MustCompile(`(?im)^(\d{1,2}:\d{2}\s+[AP]M)\s+[^\p{L}\p{N}\s]\s+(.+)$`)

	// "1008 hours, an Officer responded ..."
	reHelenaHours    = regexp.MustCompile(`(?im)^(\d{4})\s+hours?,\s+`)
	reHelenaBoundary = regexp.MustCompile(`(?im)^\d{4}\s+hours?`)
)

// helenaDate finds the single press-release date: a month-name date, then a
// slash date, then the injected clock.
func helenaDate(text string, opts Options) string {
	if m := reMonthDate.FindStringSubmatch(text); len(m) == 4 {
		if t, err := time.Parse("January 2 2006", m[1]+" "+m[2]+" "+m[3]); err == nil {
			return t.Format(normalize.WireDateLayout)
		}
	}
	if m := reSlashDate.FindStringSubmatch(text); len(m) == 2 {
		if t, err := time.Parse("1/2/2006", m[1]); err == nil {
			return t.Format(normalize.WireDateLayout)
		}
	}
	return opts.fallbackDate(constants.FormatHelena)
}

func helenaIncident(date, clock, description string) entity.Incident {
	return incidentBuilder{
		date:         date,
		time:         strPtr(clock),
		location:     normalize.ExtractHelenaLocation(description),
		incidentType: normalize.ClassifyIncidentType(description),
		details:      description,
	}.build()
}

// parseHelena reads press releases. The timed-bullet layout wins when it
// yields anything; military "hours" paragraphs are tried only otherwise.
func parseHelena(text string, opts Options) []entity.Incident {
	date := helenaDate(text, opts)

	var incidents []entity.Incident
	for _, m := range reHelenaTimed.FindAllStringSubmatch(text, -1) {
		if len(m) != 3 {
			continue
		}
		description := strings.TrimSpace(m[2])
		incidents = append(incidents, helenaIncident(date, strings.TrimSpace(m[1]), description))
	}
	if len(incidents) > 0 {
		return incidents
	}

	boundaries := reHelenaBoundary.FindAllStringIndex(text, -1)
	for _, loc := range reHelenaHours.FindAllStringSubmatchIndex(text, -1) {
		if len(loc) < 4 {
			continue
		}
		end := len(text)
		for _, b := range boundaries {
			if b[0] > loc[0] {
				end = b[0]
				break
			}
		}
		if end < loc[1] {
			continue
		}
		description := normalize.CollapseWhitespace(text[loc[1]:end])
		if description == "" {
			continue
		}
		clock, _ := normalize.MilitaryTo12Hour(text[loc[2]:loc[3]])
		incidents = append(incidents, helenaIncident(date, clock, description))
	}
	return incidents
}
