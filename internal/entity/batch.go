package entity

import (
	"time"

	"github.com/google/uuid"
)

// Batch represents one ingested blotter document for data transfer between layers.
type Batch struct {
	ID            uuid.UUID  `json:"id"`
	Filename      string     `json:"filename"`
	County        string     `json:"county"`
	Format        string     `json:"format"`
	IncidentCount int        `json:"incident_count"`
	SourcePath    string     `json:"source_path"`
	SourceType    string     `json:"source_type"`
	ContentHash   []byte     `json:"-"`
	SenderEmail   *string    `json:"sender_email,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// Record is a persisted incident belonging to a batch.
type Record struct {
	ID      uuid.UUID `json:"id"`
	BatchID uuid.UUID `json:"batch_id"`
	Seq     int       `json:"seq"`
	County  string    `json:"county"`
	Incident
	CreatedAt time.Time `json:"created_at"`
}
