package entity

import "github.com/joseph-ayodele/blotter-tracker/constants"

// Incident is one normalized blotter entry.
type Incident struct {
	CaseNumber   *string    `json:"case_number,omitempty"`
	Date         string     `json:"date"`
	Time         *string    `json:"time,omitempty"`
	Location     string     `json:"location"`
	IncidentType string     `json:"incident_type"`
	Details      string     `json:"details"`
	Officer      *string    `json:"officer,omitempty"`
	CommandLogs  []LogEntry `json:"command_logs,omitempty"`
}

// LogEntry is a timestamped command-log line attached to a GCSO incident.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Officer   string `json:"officer"`
	Entry     string `json:"entry"`
}

// ParseResult is the outcome of parsing one document.
type ParseResult struct {
	County     string           `json:"county"`
	Format     constants.Format `json:"format"`
	Incidents  []Incident       `json:"incidents"`
	TotalCount int              `json:"total_count"`
}

// StringValue dereferences an optional field, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
