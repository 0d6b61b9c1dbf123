// Package postgres provides the Postgres-backed report repository.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/placelens/placelens/internal/report"
)

// DB is the slice of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// ReportStore persists stores and reports.
//
// Expected schema (see schema.sql):
//
//	CREATE TABLE store (
//	    store_id    BIGSERIAL PRIMARY KEY,
//	    place_id    TEXT,
//	    name        TEXT NOT NULL UNIQUE,
//	    address     TEXT,
//	    category    TEXT,
//	    store_image TEXT,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
//	CREATE TABLE report (
//	    report_id           BIGSERIAL PRIMARY KEY,
//	    request_member_id   BIGINT NOT NULL DEFAULT 0,
//	    store_id            BIGINT NOT NULL REFERENCES store (store_id),
//	    status              TEXT NOT NULL DEFAULT 'PROGRESS',
//	    total_review_count  INT NOT NULL DEFAULT 0,
//	    average_review_rate DOUBLE PRECISION,
//	    popular_keywords    JSONB,
//	    analytics_result    JSONB,
//	    created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type ReportStore struct {
	db DB
}

// NewReportStore connects a pool using the provided config.
func NewReportStore(ctx context.Context, cfg Config) (*ReportStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ReportStore{db: pool}, nil
}

// NewReportStoreWithDB constructs a store from an existing pool (primarily
// for testing).
func NewReportStoreWithDB(db DB) (*ReportStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &ReportStore{db: db}, nil
}

// Close releases the underlying pool resources.
func (s *ReportStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// CreateStoreIfAbsent returns the store row for name, inserting it first if
// missing. The no-op conflict update makes RETURNING yield the existing row.
func (s *ReportStore) CreateStoreIfAbsent(ctx context.Context, name string) (report.Store, error) {
	if name == "" {
		return report.Store{}, fmt.Errorf("store name is required")
	}
	query := `
INSERT INTO store (name)
VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING store_id, COALESCE(place_id, ''), name, created_at, updated_at`
	var st report.Store
	err := s.db.QueryRow(ctx, query, name).Scan(
		&st.ID,
		&st.PlaceID,
		&st.Name,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return report.Store{}, fmt.Errorf("upsert store: %w", err)
	}
	return st, nil
}

// CreateReport inserts a report in PROGRESS with zero counts.
func (s *ReportStore) CreateReport(ctx context.Context, memberID, storeID int64) (report.Report, error) {
	query := `
INSERT INTO report (request_member_id, store_id, status)
VALUES ($1, $2, $3)
RETURNING report_id, created_at`
	rp := report.Report{
		MemberID: memberID,
		StoreID:  storeID,
		Status:   report.StatusProgress,
	}
	err := s.db.QueryRow(ctx, query, memberID, storeID, report.StatusProgress).
		Scan(&rp.ID, &rp.CreatedAt)
	if err != nil {
		return report.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return rp, nil
}

// AttachPlaceID records the resolved place id on the report's store row.
// Deliberately outside any larger transaction so the resolution survives a
// later stage failure.
func (s *ReportStore) AttachPlaceID(ctx context.Context, reportID int64, placeID string) error {
	query := `
UPDATE store
SET place_id = $2, updated_at = now()
WHERE store_id = (SELECT store_id FROM report WHERE report_id = $1)`
	tag, err := s.db.Exec(ctx, query, reportID, placeID)
	if err != nil {
		return fmt.Errorf("attach place id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attach place id for report %d: %w", reportID, report.ErrNotFound)
	}
	return nil
}

// CompleteReport writes the terminal success state in one transaction: the
// store's place id, the summary fields, and the COMPLETED status. The
// status predicate keeps transitions monotonic.
func (s *ReportStore) CompleteReport(
	ctx context.Context,
	reportID int64,
	placeID string,
	analysis report.Analysis,
) error {
	keywordsJSON, err := json.Marshal(nonNilKeywords(analysis.Keywords))
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin complete report: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	attach := `
UPDATE store
SET place_id = $2, updated_at = now()
WHERE store_id = (SELECT store_id FROM report WHERE report_id = $1)`
	if _, err := tx.Exec(ctx, attach, reportID, placeID); err != nil {
		return fmt.Errorf("complete report: attach place id: %w", err)
	}

	finalize := `
UPDATE report
SET total_review_count = $2,
    average_review_rate = $3,
    popular_keywords = $4,
    analytics_result = $5,
    status = $6
WHERE report_id = $1 AND status = $7`
	tag, err := tx.Exec(ctx, finalize,
		reportID,
		analysis.TotalReviews,
		analysis.AverageRating,
		keywordsJSON,
		analysisJSON,
		report.StatusCompleted,
		report.StatusProgress,
	)
	if err != nil {
		return fmt.Errorf("complete report: finalize: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete report %d not in progress: %w", reportID, report.ErrNotFound)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit complete report: %w", err)
	}
	return nil
}

// UpdateStatus moves an in-progress report to the given status.
func (s *ReportStore) UpdateStatus(ctx context.Context, reportID int64, status report.Status) error {
	query := `UPDATE report SET status = $2 WHERE report_id = $1 AND status = $3`
	tag, err := s.db.Exec(ctx, query, reportID, status, report.StatusProgress)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update status of report %d: %w", reportID, report.ErrNotFound)
	}
	return nil
}

const reportColumns = `report_id, request_member_id, store_id, status,
total_review_count, COALESCE(average_review_rate, 0), popular_keywords,
analytics_result, created_at`

// GetReport returns report.ErrNotFound when no row matches.
func (s *ReportStore) GetReport(ctx context.Context, reportID int64) (report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM report WHERE report_id = $1`
	rp, err := scanReport(s.db.QueryRow(ctx, query, reportID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return report.Report{}, report.ErrNotFound
		}
		return report.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rp, nil
}

// ListByMember returns the member's reports, newest first. Anonymous
// reports are excluded by contract, so member id 0 short-circuits.
func (s *ReportStore) ListByMember(ctx context.Context, memberID int64) ([]report.Report, error) {
	if memberID == report.AnonymousMember {
		return []report.Report{}, nil
	}
	query := `SELECT ` + reportColumns + `
FROM report
WHERE request_member_id = $1
ORDER BY created_at DESC, report_id DESC`
	rows, err := s.db.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := []report.Report{}
	for rows.Next() {
		rp, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		reports = append(reports, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return reports, nil
}

func scanReport(row pgx.Row) (report.Report, error) {
	var (
		rp           report.Report
		keywordsJSON []byte
		analysisJSON []byte
	)
	err := row.Scan(
		&rp.ID,
		&rp.MemberID,
		&rp.StoreID,
		&rp.Status,
		&rp.TotalReviewCount,
		&rp.AverageReviewRate,
		&keywordsJSON,
		&analysisJSON,
		&rp.CreatedAt,
	)
	if err != nil {
		return report.Report{}, err
	}
	if len(keywordsJSON) > 0 {
		if err := json.Unmarshal(keywordsJSON, &rp.PopularKeywords); err != nil {
			return report.Report{}, fmt.Errorf("unmarshal keywords: %w", err)
		}
	}
	if len(analysisJSON) > 0 {
		var analysis report.Analysis
		if err := json.Unmarshal(analysisJSON, &analysis); err != nil {
			return report.Report{}, fmt.Errorf("unmarshal analysis: %w", err)
		}
		rp.AnalyticsResult = &analysis
	}
	return rp, nil
}

func nonNilKeywords(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
