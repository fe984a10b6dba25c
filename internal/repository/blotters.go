package repository

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/blotter-tracker/constants"
	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

// BatchMeta describes where a parse result came from.
type BatchMeta struct {
	Filename    string
	SourcePath  string
	SourceType  string
	ContentHash []byte
	SenderEmail *string
	// County overrides the detected county when set.
	County string
}

const batchColumns = `id, filename, county, format, incident_count, source_path, source_type,
	content_hash, sender_email, status, created_at, processed_at`

// SaveParseResult stores the batch with every record and command log in one
// transaction. Nothing is written when any insert fails.
func (s *Store) SaveParseResult(ctx context.Context, meta BatchMeta, res entity.ParseResult) (*entity.Batch, error) {
	county := res.County
	if meta.County != "" {
		county = meta.County
	}
	if county == "" {
		county = constants.UnknownCounty
	}
	now := time.Now().UTC()
	b := &entity.Batch{
		ID:            uuid.New(),
		Filename:      meta.Filename,
		County:        county,
		Format:        string(res.Format),
		IncidentCount: len(res.Incidents),
		SourcePath:    meta.SourcePath,
		SourceType:    meta.SourceType,
		ContentHash:   meta.ContentHash,
		SenderEmail:   meta.SenderEmail,
		Status:        string(constants.BatchStatusParsed),
		CreatedAt:     now,
		ProcessedAt:   &now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var hash sql.NullString
	if len(meta.ContentHash) > 0 {
		hash = sql.NullString{String: hex.EncodeToString(meta.ContentHash), Valid: true}
	}
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO blotters (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		b.ID.String(), b.Filename, b.County, b.Format, b.IncidentCount, b.SourcePath, b.SourceType,
		hash, nullString(b.SenderEmail), b.Status, formatTS(now), formatTS(now),
	)
	if err != nil {
		s.logger.Error("failed to insert blotter", "filename", b.Filename, "error", err)
		return nil, dbErr("insert blotter", err)
	}

	recStmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO records
		(id, blotter_id, seq, cfs_number, date, time, incident_type, location, details, county, officer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return nil, dbErr("prepare records", err)
	}
	defer recStmt.Close()
	logStmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO command_logs
		(id, record_id, seq, timestamp, officer, entry) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return nil, dbErr("prepare command logs", err)
	}
	defer logStmt.Close()

	for i, inc := range res.Incidents {
		recID := uuid.New().String()
		if _, err := recStmt.ExecContext(ctx,
			recID, b.ID.String(), i, nullString(inc.CaseNumber), inc.Date, nullString(inc.Time),
			inc.IncidentType, inc.Location, inc.Details, county, nullString(inc.Officer), formatTS(now),
		); err != nil {
			s.logger.Error("failed to insert record", "batch_id", b.ID, "seq", i, "error", err)
			return nil, dbErr("insert record", err)
		}
		for j, l := range inc.CommandLogs {
			if _, err := logStmt.ExecContext(ctx, uuid.New().String(), recID, j, l.Timestamp, l.Officer, l.Entry); err != nil {
				s.logger.Error("failed to insert command log", "batch_id", b.ID, "seq", i, "error", err)
				return nil, dbErr("insert command log", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, dbErr("commit", err)
	}
	s.logger.Info("blotter saved", "batch_id", b.ID, "county", county, "format", b.Format, "incidents", b.IncidentCount)
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(r rowScanner) (*entity.Batch, error) {
	var (
		b                 entity.Batch
		id, created       string
		sourcePath, hash  sql.NullString
		sender, processed sql.NullString
	)
	if err := r.Scan(&id, &b.Filename, &b.County, &b.Format, &b.IncidentCount, &sourcePath, &b.SourceType,
		&hash, &sender, &b.Status, &created, &processed); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad batch id %q: %w", id, err)
	}
	b.ID = parsed
	b.SourcePath = sourcePath.String
	if hash.Valid {
		b.ContentHash, _ = hex.DecodeString(hash.String)
	}
	b.SenderEmail = stringPtr(sender)
	b.CreatedAt = parseTS(created)
	if processed.Valid {
		t := parseTS(processed.String)
		b.ProcessedAt = &t
	}
	return &b, nil
}

// GetBatch returns common.ErrNotFound when no batch has the id.
func (s *Store) GetBatch(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+batchColumns+` FROM blotters WHERE id = ?`), id.String())
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		s.logger.Error("failed to get batch", "batch_id", id, "error", err)
		return nil, dbErr("get batch", err)
	}
	return b, nil
}

// FindBatchByHash looks up a previously ingested document by content hash.
func (s *Store) FindBatchByHash(ctx context.Context, hash []byte) (*entity.Batch, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+batchColumns+` FROM blotters WHERE content_hash = ?`), hex.EncodeToString(hash))
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch with hash %x: %w", hash, common.ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("find batch by hash", err)
	}
	return b, nil
}

// ListBatches returns the newest batches first.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]*entity.Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+batchColumns+` FROM blotters ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, dbErr("list batches", err)
	}
	defer rows.Close()
	var out []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, dbErr("scan batch", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list batches", err)
	}
	return out, nil
}

// SetBatchStatus moves a batch to a new lifecycle state.
func (s *Store) SetBatchStatus(ctx context.Context, id uuid.UUID, status constants.BatchStatus) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE blotters SET status = ?, processed_at = ? WHERE id = ?`),
		string(status), formatTS(time.Now()), id.String())
	if err != nil {
		return dbErr("set batch status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("batch %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// DeleteBatch removes a batch with its records, logs and post.
func (s *Store) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	// explicit child deletes; sqlite only cascades with foreign_keys enabled
	stmts := []string{
		`DELETE FROM command_logs WHERE record_id IN (SELECT id FROM records WHERE blotter_id = ?)`,
		`DELETE FROM records WHERE blotter_id = ?`,
		`DELETE FROM posts WHERE blotter_id = ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, s.rebind(q), id.String()); err != nil {
			return dbErr("delete batch children", err)
		}
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM blotters WHERE id = ?`), id.String())
	if err != nil {
		return dbErr("delete batch", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("batch %s: %w", id, common.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return dbErr("commit", err)
	}
	return nil
}
