package parser

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/normalize"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

var reGenericDate = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2})`)

// parseGeneric is the safety net for unknown layouts: any line opening with a
// date becomes an incident, split on the first hyphen into type and details.
func parseGeneric(text string) []entity.Incident {
	var incidents []entity.Incident
	for _, line := range splitLines(text) {
		m := reGenericDate.FindStringSubmatch(line)
		if len(m) != 2 {
			continue
		}
		rest := strings.TrimSpace(line[len(m[1]):])

		incidentType, details := constants.UnknownType, rest
		if head, tail, found := strings.Cut(rest, "-"); found {
			incidentType = strings.TrimSpace(head)
			details = strings.TrimSpace(tail)
		}
		date, _ := normalize.CanonicalDate(m[1])

		incidents = append(incidents, incidentBuilder{
			date:         date,
			location:     constants.UnknownLocation,
			incidentType: incidentType,
			details:      details,
		}.build())
	}
	return incidents
}
