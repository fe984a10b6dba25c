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
	reHavreForDate    = regexp.MustCompile(`For Date:\s*(\d{2}/\d{2}/\d{4})`)
	reHavreBlockStart = regexp.MustCompile(`^\d{2}-\d{4}(\s|$)`)
	reHavreFirstLine  = regexp.MustCompile(`^(\d{2}-\d{4})\s+([0O]?\d{3,4})\s*(.*)`)
	reHavreAction     = regexp.MustCompile(`\s+([A-Z]-\s+.+)$`)
	reHavreMetaLine   = regexp.MustCompile(
		`(?i)^(Location|Narrative|Calling|Involved|Refer|Arrest|Summons|Address|Age|Charges|Page)[\s:/]`)
	reHavreLocation  = regexp.MustCompile(`(?i)^Location(?:/Address)?:\s*(.+)`)
	reHavreAreaCode  = regexp.MustCompile(`[\[{]HAV\s*[^\]}\s]*[\]}]?\s*`)
	reHavreNarrative = regexp.MustCompile(`(?i)^Narrative:\s*`)
	reHavreNarrStop  = regexp.MustCompile(
		`(?i)^(Refer To|Arrest:|Summons|Charges:|Age:|Address:|Calling Party:|Involved Party:|For Date:)`)
	reHavrePageHeader = regexp.MustCompile(`(?is)HAVRE POLICE DEPT\w*\s+Page:.*?Printed:\s*\d{2}/\d{2}/\d{4}`)
)

func havreDate(text string, opts Options) string {
	if m := reHavreForDate.FindStringSubmatch(text); len(m) == 2 {
		if t, err := time.Parse("01/02/2006", m[1]); err == nil {
			return t.Format(normalize.WireDateLayout)
		}
	}
	return opts.fallbackDate(constants.FormatHavre)
}

// havreBlocks groups lines into per-call blocks. A block starts at every line
// that opens with a call number; text before the first call is its own block.
// Lines are trimmed and blank lines dropped.
func havreBlocks(text string) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	for _, raw := range splitLines(text) {
		if reHavreBlockStart.MatchString(raw) && len(current) > 0 {
			blocks = append(blocks, current)
			current = nil
		}
		if line := strings.TrimSpace(raw); line != "" {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func havreTime(token string) string {
	token = strings.NewReplacer("O", "0", "o", "0").Replace(token)
	if len(token) == 3 {
		token = "0" + token
	}
	clock, _ := normalize.MilitaryTo12Hour(token)
	return clock
}

func havreLocation(lines []string) string {
	for _, line := range lines {
		m := reHavreLocation.FindStringSubmatch(line)
		if len(m) != 2 {
			continue
		}
		loc := reHavreAreaCode.ReplaceAllString(strings.TrimSpace(m[1]), "")
		loc = strings.Trim(normalize.CleanOCRArtifacts(loc), " -|~")
		if loc != "" {
			return loc
		}
		break
	}
	return constants.HavreLocation
}

func havreNarrative(lines []string) string {
	var (
		parts  []string
		inNarr bool
	)
	for _, line := range lines {
		if loc := reHavreNarrative.FindStringIndex(line); loc != nil {
			inNarr = true
			if after := strings.TrimSpace(line[loc[1]:]); after != "" {
				parts = append(parts, after)
			}
			continue
		}
		if !inNarr {
			continue
		}
		if reHavreNarrStop.MatchString(line) {
			break
		}
		parts = append(parts, line)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// havreIncident reads one call block; ok is false when the block does not
// open with a call line.
func havreIncident(lines []string, date string) (entity.Incident, bool) {
	m := reHavreFirstLine.FindStringSubmatch(lines[0])
	if len(m) != 4 {
		return entity.Incident{}, false
	}
	rest := strings.TrimSpace(m[3])

	incidentType, action := rest, ""
	if loc := reHavreAction.FindStringSubmatchIndex(rest); len(loc) == 4 {
		action = strings.TrimSpace(rest[loc[2]:loc[3]])
		incidentType = strings.TrimSpace(rest[:loc[0]])
	}
	if incidentType == "" {
		for _, line := range lines[1:min(len(lines), 4)] {
			if !reHavreMetaLine.MatchString(line) {
				incidentType = line
				break
			}
		}
	}
	if incidentType != "" {
		incidentType = normalize.TitleCase(incidentType)
	}

	details := havreNarrative(lines)
	if details == "" {
		details = incidentType
	}
	if action != "" {
		if details != "" {
			details = details + " (" + action + ")"
		} else {
			details = action
		}
	}
	details = reHavrePageHeader.ReplaceAllString(details, "")
	details = normalize.CleanOCRArtifacts(details)

	if incidentType == "" {
		incidentType = constants.IncidentPolice
	}

	return incidentBuilder{
		caseNumber:   strPtr(m[1]),
		date:         date,
		time:         strPtr(havreTime(m[2])),
		location:     havreLocation(lines),
		incidentType: incidentType,
		details:      details,
	}.build(), true
}

func parseHavre(text string, opts Options) []entity.Incident {
	date := havreDate(text, opts)

	var incidents []entity.Incident
	for _, block := range havreBlocks(text) {
		if inc, ok := havreIncident(block, date); ok {
			incidents = append(incidents, inc)
		}
	}
	return incidents
}
