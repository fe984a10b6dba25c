package entity

import (
	"time"

	"github.com/google/uuid"
)

// Post is a published digest summarizing one batch.
type Post struct {
	ID            uuid.UUID `json:"id"`
	BatchID       uuid.UUID `json:"batch_id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	County        string    `json:"county"`
	City          string    `json:"city,omitempty"`
	AgencyType    string    `json:"agency_type"`
	AgencyName    string    `json:"agency_name,omitempty"`
	IncidentType  string    `json:"incident_type"`
	IncidentDate  string    `json:"incident_date,omitempty"`
	Source        string    `json:"source"`
	FailureReason *string   `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PostFilter narrows post listings.
type PostFilter struct {
	County     string
	AgencyType string
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
	Limit      int
	Offset     int
}

// CountyCount is a county with its post and record totals.
type CountyCount struct {
	County      string `json:"county"`
	PostCount   int    `json:"post_count"`
	RecordCount int    `json:"record_count"`
}

// AgencyCount is an agency with its post total and most recent report day.
type AgencyCount struct {
	AgencyName string `json:"agency_name"`
	AgencyType string `json:"agency_type"`
	County     string `json:"county"`
	PostCount  int    `json:"post_count"`
	LastReport string `json:"last_report,omitempty"`
}
