// Package jurisdiction decides which agency wrote a blotter and which
// structural parser should read it.
package jurisdiction

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/blotter-tracker/constants"
)

var (
	reHelena = regexp.MustCompile(`(?i)Helena Police|HPD Officers responded|helenamt\.gov`)
	reHavre  = regexp.MustCompile(`(?i)HAVRE POLICE|For Jurisdiction:\s*HAVRE`)
)

type countyPattern struct {
	re    *regexp.Regexp
	fixed string // used instead of the capture when set
}

// Evaluated in order; first match wins.
var countyPatterns = []countyPattern{
	{re: regexp.MustCompile(`(?i)(\w+)\s+County\s+Sheriff`)},
	{re: regexp.MustCompile(`(?i)GCSO`), fixed: constants.GallatinCounty},
	{re: regexp.MustCompile(`(?i)(\w+)\s+County`)},
}

// IsGCSO reports whether text carries a Gallatin County Sheriff marker.
func IsGCSO(text string) bool {
	return strings.Contains(text, "GCSO") || strings.Contains(text, "Gallatin County")
}

// IsHelena reports whether text carries a Helena Police marker.
func IsHelena(text string) bool { return reHelena.MatchString(text) }

// IsHavre reports whether text carries a Havre Police marker.
func IsHavre(text string) bool { return reHavre.MatchString(text) }

// SelectFormat picks the structural parser for text. Rules are ordered and the
// first match wins, so an agency marker always beats the generic fallback.
func SelectFormat(text string) constants.Format {
	switch {
	case IsGCSO(text):
		return constants.FormatGCSO
	case IsHelena(text):
		return constants.FormatHelena
	case IsHavre(text):
		return constants.FormatHavre
	default:
		return constants.FormatGeneric
	}
}

// DetectCounty returns the county label for text, "Unknown" when none is found.
// Police formats map to their fixed county regardless of other county phrases.
func DetectCounty(text string) string {
	if IsHelena(text) {
		return constants.HelenaCounty
	}
	if IsHavre(text) {
		return constants.HavreCounty
	}
	for _, p := range countyPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if p.fixed != "" {
			return p.fixed
		}
		if len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return constants.UnknownCounty
}
