package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

var (
	reGCSOIncident = regexp.MustCompile(
		`^(\d{2}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2})\s+(CFS\d{2}-\d+)\s+(.+?)\s+(\w+(?:\s+\w+)?)\s*$`)
	reGCSOLogStart = regexp.MustCompile(`^\d{2}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2}\s+-\s+`)

	// Officer names may carry apostrophes, hyphens and rank abbreviations; the
	// lazy match ends the name at the first " - ".
	reGCSOLog = regexp.MustCompile(`^(\d{2}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2})\s+-\s+([\w,.'\-\s]+?)\s+-\s+(.+)`)
)

// Dispatch noise that never counts as narrative.
var gcsoNarrativeSkip = []string{"CB1", "CB2", "NO ANSWER", "VM", "ADV"}

const gcsoNarrativeMinLen = 50

type gcsoPhase int

const (
	noCurrentIncident gcsoPhase = iota
	accumulatingIncident
)

type gcsoState struct {
	phase   gcsoPhase
	current incidentBuilder
	done    []entity.Incident
}

func isGCSOHeader(line string) bool {
	return strings.Contains(line, "CFS Date/Time") ||
		strings.Contains(line, "Command Log") ||
		strings.Contains(line, "Page")
}

// stepGCSO is the transition function of the dispatch-log state machine.
func stepGCSO(s gcsoState, line string) gcsoState {
	if isGCSOHeader(line) {
		return s
	}
	line = strings.TrimSpace(line)

	if m := reGCSOIncident.FindStringSubmatch(line); len(m) == 5 {
		s = flushGCSO(s)
		stamp := strings.Fields(m[1])
		b := incidentBuilder{
			caseNumber:   strPtr(strings.TrimSpace(m[2])),
			location:     strings.TrimSpace(m[3]),
			incidentType: strings.TrimSpace(m[4]),
		}
		if len(stamp) == 2 {
			b.date = stamp[0]
			b.time = strPtr(stamp[1])
		}
		s.current = b
		s.phase = accumulatingIncident
		return s
	}

	if s.phase != accumulatingIncident || !reGCSOLogStart.MatchString(line) {
		return s
	}
	m := reGCSOLog.FindStringSubmatch(line)
	if len(m) != 4 {
		return s
	}
	s.current = s.current.withLog(entity.LogEntry{
		Timestamp: strings.TrimSpace(m[1]),
		Officer:   strings.TrimSpace(m[2]),
		Entry:     strings.TrimSpace(m[3]),
	})
	return s
}

// flushGCSO emits the incident being accumulated, if any.
func flushGCSO(s gcsoState) gcsoState {
	if s.phase != accumulatingIncident {
		return s
	}
	b := s.current
	b.details = gcsoNarrative(b.logs)
	s.done = append(s.done, b.build())
	s.current = incidentBuilder{}
	s.phase = noCurrentIncident
	return s
}

func parseGCSO(text string) []entity.Incident {
	var s gcsoState
	for _, line := range splitLines(text) {
		s = stepGCSO(s, line)
	}
	return flushGCSO(s).done
}

// gcsoNarrative joins the substantive command-log entries. With none it falls
// back to the last entry.
func gcsoNarrative(logs []entity.LogEntry) string {
	if len(logs) == 0 {
		return ""
	}
	var parts []string
	for _, l := range logs {
		if utf8.RuneCountInString(l.Entry) <= gcsoNarrativeMinLen || isDispatchNoise(l.Entry) {
			continue
		}
		parts = append(parts, l.Entry)
	}
	if len(parts) == 0 {
		return logs[len(logs)-1].Entry
	}
	return strings.Join(parts, " ")
}

func isDispatchNoise(entry string) bool {
	upper := strings.ToUpper(entry)
	for _, skip := range gcsoNarrativeSkip {
		if strings.Contains(upper, skip) {
			return true
		}
	}
	return false
}
