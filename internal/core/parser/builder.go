package parser

import (
	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

// incidentBuilder accumulates fields while a parser is still reading an
// incident. Only build produces an entity.Incident, so a half-read record can
// never reach a ParseResult.
type incidentBuilder struct {
	caseNumber   *string
	date         string
	time         *string
	location     string
	incidentType string
	details      string
	officer      *string
	logs         []entity.LogEntry
}

func (b incidentBuilder) withLog(e entity.LogEntry) incidentBuilder {
	logs := make([]entity.LogEntry, len(b.logs), len(b.logs)+1)
	copy(logs, b.logs)
	b.logs = append(logs, e)
	if b.officer == nil && e.Officer != "" {
		b.officer = strPtr(e.Officer)
	}
	return b
}

func (b incidentBuilder) build() entity.Incident {
	inc := entity.Incident{
		CaseNumber:   b.caseNumber,
		Date:         b.date,
		Time:         b.time,
		Location:     b.location,
		IncidentType: b.incidentType,
		Details:      b.details,
		Officer:      b.officer,
	}
	if inc.Location == "" {
		inc.Location = constants.UnknownLocation
	}
	if inc.IncidentType == "" {
		inc.IncidentType = constants.UnknownType
	}
	if len(b.logs) > 0 {
		inc.CommandLogs = append([]entity.LogEntry(nil), b.logs...)
	}
	return inc
}

func strPtr(s string) *string {
	return &s
}
