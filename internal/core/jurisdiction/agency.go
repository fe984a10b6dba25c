package jurisdiction

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/blotter-tracker/constants"
)

var (
	reSOToken      = regexp.MustCompile(`\bSO\b`)
	rePDToken      = regexp.MustCompile(`\bPD\b`)
	reSheriffName  = regexp.MustCompile(`(?i)([A-Za-z\s]+(?:County)?\s+Sheriff(?:'?s)?\s+Office)`)
	rePoliceDeptNm = regexp.MustCompile(`(?i)([A-Za-z\s]+Police\s+Department)`)
)

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func sheriffOffice(county string) string {
	return strings.TrimSpace(county + " Sheriff's Office")
}

func countySheriffOffice(county string) string {
	return strings.TrimSpace(county + " County Sheriff's Office")
}

func policeDepartment(county string) string {
	return strings.TrimSpace(county + " Police Department")
}

// DetectAgency attributes a blotter to an agency type (sheriff, police, other)
// and a display name. Evidence is consulted in order: filename abbreviations,
// document content, then the local part of the sender address.
func DetectAgency(text, senderEmail, filename, county string) (agencyType, agencyName string) {
	fname := strings.ToUpper(filename)
	switch {
	case strings.Contains(fname, "GCSO"):
		return constants.AgencySheriff, countySheriffOffice(orDefault(county, "Gallatin"))
	case strings.Contains(fname, "LCSO"):
		return constants.AgencySheriff, countySheriffOffice(orDefault(county, "Lewis and Clark"))
	case reSOToken.MatchString(fname):
		return constants.AgencySheriff, countySheriffOffice(county)
	case rePDToken.MatchString(fname):
		return constants.AgencyPolice, policeDepartment(county)
	}

	upper := strings.ToUpper(text)
	if strings.Contains(upper, "SHERIFF") {
		if m := reSheriffName.FindStringSubmatch(text); len(m) > 1 {
			return constants.AgencySheriff, strings.TrimSpace(m[1])
		}
		return constants.AgencySheriff, sheriffOffice(county)
	}
	if strings.Contains(upper, "POLICE DEPARTMENT") || rePDToken.MatchString(text) {
		if m := rePoliceDeptNm.FindStringSubmatch(text); len(m) > 1 {
			return constants.AgencyPolice, strings.TrimSpace(m[1])
		}
		return constants.AgencyPolice, policeDepartment(county)
	}

	if senderEmail != "" {
		local, _, _ := strings.Cut(senderEmail, "@")
		local = strings.ToLower(local)
		if strings.Contains(local, "sheriff") {
			return constants.AgencySheriff, sheriffOffice(county)
		}
		if local == "pd" || local == "police" {
			return constants.AgencyPolice, policeDepartment(county)
		}
	}
	return constants.AgencyOther, ""
}
