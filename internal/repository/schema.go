package repository

import (
	"context"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS blotters (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		county TEXT NOT NULL,
		format TEXT NOT NULL,
		incident_count INTEGER NOT NULL DEFAULT 0,
		source_path TEXT,
		source_type TEXT NOT NULL,
		content_hash TEXT,
		sender_email TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		processed_at TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_blotters_content_hash ON blotters(content_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_blotters_county ON blotters(county)`,
	`CREATE INDEX IF NOT EXISTS idx_blotters_created ON blotters(created_at)`,
	`CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		blotter_id TEXT NOT NULL REFERENCES blotters(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		cfs_number TEXT,
		date TEXT NOT NULL,
		time TEXT,
		incident_type TEXT,
		location TEXT,
		details TEXT,
		county TEXT NOT NULL,
		officer TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_blotter ON records(blotter_id, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_records_county ON records(county)`,
	`CREATE INDEX IF NOT EXISTS idx_records_date ON records(date)`,
	`CREATE TABLE IF NOT EXISTS command_logs (
		id TEXT PRIMARY KEY,
		record_id TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		timestamp TEXT,
		officer TEXT,
		entry TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_command_logs_record ON command_logs(record_id, seq)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		blotter_id TEXT NOT NULL UNIQUE REFERENCES blotters(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		summary TEXT NOT NULL,
		city TEXT,
		county TEXT NOT NULL,
		agency_type TEXT NOT NULL DEFAULT 'other',
		agency_name TEXT,
		incident_type TEXT,
		incident_date TEXT,
		incident_day TEXT,
		source TEXT NOT NULL,
		failure_reason TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_county ON posts(county)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_day ON posts(incident_day)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at)`,
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Error("failed to apply schema", "error", err)
			return dbErr("migrate", err)
		}
	}
	s.logger.Info("database schema ready", "dialect", s.dialect)
	return nil
}
