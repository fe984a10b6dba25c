package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/normalize"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

const postColumns = `id, blotter_id, title, summary, city, county, agency_type, agency_name,
	incident_type, incident_date, source, failure_reason, created_at`

const dayLayout = "2006-01-02"

// CreatePost stores the digest for a batch. A batch holds at most one post;
// a second one returns common.ErrConflict.
func (s *Store) CreatePost(ctx context.Context, p *entity.Post) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM posts WHERE blotter_id = ?`), p.BatchID.String()).Scan(&exists)
	if err != nil {
		return dbErr("check post", err)
	}
	if exists > 0 {
		return fmt.Errorf("post for batch %s: %w", p.BatchID, common.ErrConflict)
	}

	var day sql.NullString
	if t, ok := normalize.ParseDate(p.IncidentDate); ok {
		day = sql.NullString{String: t.Format(dayLayout), Valid: true}
	}
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO posts (`+postColumns+`, incident_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID.String(), p.BatchID.String(), p.Title, p.Summary, p.City, p.County, p.AgencyType, p.AgencyName,
		p.IncidentType, p.IncidentDate, p.Source, nullString(p.FailureReason), formatTS(p.CreatedAt), day,
	)
	if err != nil {
		s.logger.Error("failed to insert post", "batch_id", p.BatchID, "error", err)
		return dbErr("insert post", err)
	}
	if err := tx.Commit(); err != nil {
		return dbErr("commit", err)
	}
	s.logger.Info("post saved", "post_id", p.ID, "batch_id", p.BatchID, "source", p.Source)
	return nil
}

func scanPost(r rowScanner) (*entity.Post, error) {
	var (
		p                       entity.Post
		id, batchID, created    string
		city, agencyName, itype sql.NullString
		idate, failure          sql.NullString
	)
	if err := r.Scan(&id, &batchID, &p.Title, &p.Summary, &city, &p.County, &p.AgencyType, &agencyName,
		&itype, &idate, &p.Source, &failure, &created); err != nil {
		return nil, err
	}
	p.ID, _ = uuid.Parse(id)
	p.BatchID, _ = uuid.Parse(batchID)
	p.City = city.String
	p.AgencyName = agencyName.String
	p.IncidentType = itype.String
	p.IncidentDate = idate.String
	p.FailureReason = stringPtr(failure)
	p.CreatedAt = parseTS(created)
	return &p, nil
}

// GetPost returns common.ErrNotFound when no post has the id.
func (s *Store) GetPost(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	return s.onePost(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
}

// PostForBatch returns the digest of a batch, or common.ErrNotFound.
func (s *Store) PostForBatch(ctx context.Context, batchID uuid.UUID) (*entity.Post, error) {
	return s.onePost(ctx, `SELECT `+postColumns+` FROM posts WHERE blotter_id = ?`, batchID)
}

func (s *Store) onePost(ctx context.Context, q string, id uuid.UUID) (*entity.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, s.rebind(q), id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		s.logger.Error("failed to get post", "id", id, "error", err)
		return nil, dbErr("get post", err)
	}
	return p, nil
}

func (s *Store) postWhere(f entity.PostFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.County != "" {
		where = append(where, "county = ?")
		args = append(args, f.County)
	}
	if f.AgencyType != "" {
		where = append(where, "agency_type = ?")
		args = append(args, f.AgencyType)
	}
	if f.DateFrom != nil {
		where = append(where, "incident_day >= ?")
		args = append(args, f.DateFrom.Format(dayLayout))
	}
	if f.DateTo != nil {
		where = append(where, "incident_day <= ?")
		args = append(args, f.DateTo.Format(dayLayout))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(summary) LIKE ?)")
		args = append(args, like, like)
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListPosts returns one page of posts, newest first, and the total match count.
func (s *Store) ListPosts(ctx context.Context, f entity.PostFilter) ([]*entity.Post, int, error) {
	clause, args := s.postWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM posts`+clause), args...).Scan(&total); err != nil {
		s.logger.Error("failed to count posts", "error", err)
		return nil, 0, dbErr("count posts", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	pageArgs := append(append([]any{}, args...), limit, offset)
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+postColumns+` FROM posts`+clause+
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`), pageArgs...)
	if err != nil {
		s.logger.Error("failed to list posts", "error", err)
		return nil, 0, dbErr("list posts", err)
	}
	defer rows.Close()

	posts := make([]*entity.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, dbErr("scan post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbErr("list posts", err)
	}
	return posts, total, nil
}

// Counties lists counties with posts, busiest first.
func (s *Store) Counties(ctx context.Context) ([]entity.CountyCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(p.county, 'Unknown') AS county,
		COUNT(DISTINCT p.id) AS post_count,
		COUNT(DISTINCT r.id) AS record_count
		FROM posts p LEFT JOIN records r ON r.county = p.county
		GROUP BY p.county ORDER BY post_count DESC, county`)
	if err != nil {
		return nil, dbErr("list counties", err)
	}
	defer rows.Close()
	var out []entity.CountyCount
	for rows.Next() {
		var c entity.CountyCount
		if err := rows.Scan(&c.County, &c.PostCount, &c.RecordCount); err != nil {
			return nil, dbErr("scan county", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Agencies lists named agencies with their post totals, busiest first.
func (s *Store) Agencies(ctx context.Context) ([]entity.AgencyCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT agency_name, agency_type, county,
		COUNT(*) AS post_count, COALESCE(MAX(incident_day), '') AS last_report
		FROM posts WHERE agency_name IS NOT NULL AND agency_name <> ''
		GROUP BY agency_name, agency_type, county
		ORDER BY post_count DESC, agency_name`)
	if err != nil {
		return nil, dbErr("list agencies", err)
	}
	defer rows.Close()
	var out []entity.AgencyCount
	for rows.Next() {
		var a entity.AgencyCount
		if err := rows.Scan(&a.AgencyName, &a.AgencyType, &a.County, &a.PostCount, &a.LastReport); err != nil {
			return nil, dbErr("scan agency", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
