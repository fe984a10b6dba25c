package normalize

import (
	"strings"

	"github.com/joseph-ayodele/blotter-tracker/constants"
)

type keywordRule struct {
	label    string
	keywords []string
}

// First matching rule wins.
var incidentRules = []keywordRule{
	{constants.IncidentTheft, []string{"theft", "shoplift", "stolen"}},
	{constants.IncidentAssault, []string{"assault"}},
	{constants.IncidentDomesticDisturbance, []string{"domestic"}},
	{constants.IncidentWarrantArrest, []string{"warrant"}},
	{constants.IncidentAccident, []string{"accident", "crash", "collision"}},
	{constants.IncidentTrespassing, []string{"trespass"}},
	{constants.IncidentDrugNarcotic, []string{"drug", "marijuana", "mip", "narcotic"}},
	{constants.IncidentDisturbance, []string{"disturbance", "disorderly"}},
	{constants.IncidentProtectionOrder, []string{"protection order", "protective order"}},
	{constants.IncidentWelfareCheck, []string{"welfare"}},
	{constants.IncidentSuspicious, []string{"suspicious"}},
	{constants.IncidentFraud, []string{"fraud"}},
	{constants.IncidentVehicle, []string{"vehicle"}},
}

// ClassifyIncidentType maps a free-text description to a short label.
// Matching is a case-insensitive substring test; the result is never empty.
func ClassifyIncidentType(description string) string {
	d := strings.ToLower(description)
	for _, rule := range incidentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(d, kw) {
				return rule.label
			}
		}
	}
	return constants.IncidentPolice
}
