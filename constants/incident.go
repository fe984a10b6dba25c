package constants

import "strings"

// Incident type labels produced by the keyword classifier.
const (
	IncidentTheft               = "Theft"
	IncidentAssault             = "Assault"
	IncidentDomesticDisturbance = "Domestic Disturbance"
	IncidentWarrantArrest       = "Warrant Arrest"
	IncidentAccident            = "Accident"
	IncidentTrespassing         = "Trespassing"
	IncidentDrugNarcotic        = "Drug/Narcotic"
	IncidentDisturbance         = "Disturbance"
	IncidentProtectionOrder     = "Protection Order"
	IncidentWelfareCheck        = "Welfare Check"
	IncidentSuspicious          = "Suspicious Activity"
	IncidentFraud               = "Fraud"
	IncidentVehicle             = "Vehicle"
	IncidentPolice              = "Police Incident"

	// DailyDigest is the incident type stamped on summary posts.
	DailyDigest = "Daily Digest"
)

// Agency types attached to batches and posts.
const (
	AgencySheriff = "sheriff"
	AgencyPolice  = "police"
	AgencyOther   = "other"
)

var agencyTypes = []string{AgencySheriff, AgencyPolice, AgencyOther}

// AgencyTypes lists the accepted agency_type filter values.
func AgencyTypes() []string {
	out := make([]string, len(agencyTypes))
	copy(out, agencyTypes)
	return out
}

// CanonicalizeAgencyType lowercases and validates an agency type.
func CanonicalizeAgencyType(input string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, a := range agencyTypes {
		if normalized == a {
			return a, true
		}
	}
	return AgencyOther, false
}
