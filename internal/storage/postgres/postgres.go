// Package postgres implements the report store on PostgreSQL using a pgx
// connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dailyreports/importer/internal/config"
	"github.com/dailyreports/importer/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaLockKey serializes concurrent EnsureSchema calls from parallel
// importers; CREATE ... IF NOT EXISTS alone races on the catalog.
const schemaLockKey = "daily_reports_schema"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS daily_reports (
		id               BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		report_date      DATE NOT NULL,
		employee         TEXT NOT NULL,
		start_at         TIME,
		end_at           TIME,
		overtime_minutes INTEGER,
		midnight_minutes INTEGER,
		in_time          TIME,
		out_time         TIME,
		elapsed_minutes  INTEGER,
		destination      TEXT,
		work_content     TEXT,
		companion        TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_reports_date ON daily_reports (report_date)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_reports_employee_date ON daily_reports (employee, report_date)`,
	`CREATE OR REPLACE FUNCTION daily_reports_touch_updated_at() RETURNS trigger AS $$
	BEGIN
		NEW.updated_at = now();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM pg_trigger WHERE tgname = 'trg_daily_reports_updated_at'
		) THEN
			CREATE TRIGGER trg_daily_reports_updated_at
				BEFORE UPDATE ON daily_reports
				FOR EACH ROW EXECUTE FUNCTION daily_reports_touch_updated_at();
		END IF;
	END
	$$`,
}

const insertReportSQL = `INSERT INTO daily_reports (
	report_date, employee, start_at, end_at, overtime_minutes, midnight_minutes,
	in_time, out_time, elapsed_minutes, destination, work_content, companion
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id`

const listReportsSQL = `SELECT
	id, report_date, employee, start_at, end_at, overtime_minutes, midnight_minutes,
	in_time, out_time, elapsed_minutes, destination, work_content, companion,
	created_at, updated_at
FROM daily_reports
ORDER BY report_date DESC, id ASC
LIMIT $1`

// Store is a core.Store backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// Open connects a pool using cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, classify(fmt.Errorf("connect to database: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify(fmt.Errorf("ping database: %w", err))
	}

	return &Store{pool: pool}, nil
}

// EnsureSchema creates the table, indexes and updated_at trigger under an
// advisory lock.
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, schemaLockKey); err != nil {
		return classify(fmt.Errorf("schema lock: %w", err))
	}
	for i, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return classify(fmt.Errorf("schema statement %d: %w", i, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit schema: %w", err))
	}
	return nil
}

// Truncate empties the table and restarts its identity.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE daily_reports RESTART IDENTITY`); err != nil {
		return classify(fmt.Errorf("truncate: %w", err))
	}
	return nil
}

// WithinTx runs fn in a transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx core.ReportWriter) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &writer{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// ListReports returns up to limit reports, newest report_date first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]core.Report, error) {
	rows, err := s.pool.Query(ctx, listReportsSQL, limit)
	if err != nil {
		return nil, classify(fmt.Errorf("query reports: %w", err))
	}

	reports, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Report, error) {
		var r core.Report
		err := row.Scan(
			&r.ID, &r.ReportDate, &r.Employee, &r.StartAt, &r.EndAt,
			&r.OvertimeMinutes, &r.MidnightMinutes, &r.InTime, &r.OutTime,
			&r.ElapsedMinutes, &r.Destination, &r.WorkContent, &r.Companion,
			&r.CreatedAt, &r.UpdatedAt,
		)
		return r, err
	})
	if err != nil {
		return nil, classify(fmt.Errorf("scan reports: %w", err))
	}
	return reports, nil
}

// Ping round-trips SELECT 1.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return classify(fmt.Errorf("select 1: %w", err))
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type writer struct {
	tx pgx.Tx
}

func (w *writer) InsertReport(ctx context.Context, r core.Report) (int64, error) {
	var id int64
	err := w.tx.QueryRow(ctx, insertReportSQL,
		r.ReportDate,
		r.Employee,
		r.StartAt,
		r.EndAt,
		r.OvertimeMinutes,
		r.MidnightMinutes,
		r.InTime,
		r.OutTime,
		r.ElapsedMinutes,
		r.Destination,
		r.WorkContent,
		r.Companion,
	).Scan(&id)
	if err != nil {
		return 0, classify(fmt.Errorf("insert daily report: %w", err))
	}
	return id, nil
}

// transientCodes are SQLSTATEs worth retrying. Class 08 (connection
// exception) is matched by prefix.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P01": true, // admin_shutdown
	"57P03": true, // cannot_connect_now
}

// classify wraps err in core.TransientError when a retry may succeed. An
// expired or cancelled caller context is left permanent.
func classify(err error) error {
	if err == nil || core.IsTransient(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if transientCodes[pgErr.Code] || strings.HasPrefix(pgErr.Code, "08") {
			return &core.TransientError{Err: err}
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return &core.TransientError{Err: err}
	}
	return err
}
