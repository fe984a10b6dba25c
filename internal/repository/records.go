package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

// ListRecords returns a batch's incidents in source order with their command logs.
func (s *Store) ListRecords(ctx context.Context, batchID uuid.UUID) ([]entity.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, seq, cfs_number, date, time, incident_type,
		location, details, county, officer, created_at
		FROM records WHERE blotter_id = ? ORDER BY seq`), batchID.String())
	if err != nil {
		s.logger.Error("failed to list records", "batch_id", batchID, "error", err)
		return nil, dbErr("list records", err)
	}

	var (
		out   []entity.Record
		index = map[string]int{}
	)
	for rows.Next() {
		var (
			r                        entity.Record
			id, created              string
			cfs, tm, officer         sql.NullString
			itype, location, details sql.NullString
		)
		if err := rows.Scan(&id, &r.Seq, &cfs, &r.Date, &tm, &itype, &location, &details, &r.County, &officer, &created); err != nil {
			rows.Close()
			return nil, dbErr("scan record", err)
		}
		r.ID, _ = uuid.Parse(id)
		r.BatchID = batchID
		r.CaseNumber = stringPtr(cfs)
		r.Time = stringPtr(tm)
		r.Officer = stringPtr(officer)
		r.IncidentType = itype.String
		r.Location = location.String
		r.Details = details.String
		r.CreatedAt = parseTS(created)
		index[id] = len(out)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, dbErr("list records", err)
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}

	// logs are read after the record cursor is closed; sqlite runs on one connection
	logRows, err := s.db.QueryContext(ctx, s.rebind(`SELECT l.record_id, l.timestamp, l.officer, l.entry
		FROM command_logs l JOIN records r ON r.id = l.record_id
		WHERE r.blotter_id = ? ORDER BY r.seq, l.seq`), batchID.String())
	if err != nil {
		return nil, dbErr("list command logs", err)
	}
	defer logRows.Close()
	for logRows.Next() {
		var (
			recID                  string
			ts, officer, entryText sql.NullString
		)
		if err := logRows.Scan(&recID, &ts, &officer, &entryText); err != nil {
			return nil, dbErr("scan command log", err)
		}
		i, ok := index[recID]
		if !ok {
			continue
		}
		out[i].CommandLogs = append(out[i].CommandLogs, entity.LogEntry{
			Timestamp: ts.String,
			Officer:   officer.String,
			Entry:     entryText.String,
		})
	}
	if err := logRows.Err(); err != nil {
		return nil, dbErr("list command logs", err)
	}
	return out, nil
}

// CountRecords returns the number of stored incidents across all batches.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, dbErr("count records", err)
	}
	return n, nil
}
