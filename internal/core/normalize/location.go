package normalize

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/blotter-tracker/constants"
)

var reBlockLocation = regexp.MustCompile(
	`(?i)(?:near|to|at|around)\s+(?:the\s+)?(\d+\s+block\s+of\s+[\w\s]+?` +
		`(?:St|Ave|Blvd|Dr|Rd|Ln|Way|Circle|Gulch|Ct|Pl|Hwy|Highway)\.?)`)

// ExtractHelenaLocation pulls "<N> block of <street>" out of a press-release
// description, defaulting to the city.
func ExtractHelenaLocation(description string) string {
	m := reBlockLocation.FindStringSubmatch(description)
	if len(m) < 2 {
		return constants.HelenaLocation
	}
	if loc := strings.TrimSpace(m[1]); loc != "" {
		return loc
	}
	return constants.HelenaLocation
}
