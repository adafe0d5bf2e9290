// Package sqlite implements the report store on SQLite (modernc.org/sqlite,
// no cgo). It backs local runs and the test suites; dates and times are
// stored as ISO text so they sort and round-trip without driver
// conversions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dailyreports/importer/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const timestampDefault = `(strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`

var schema = []string{
	`CREATE TABLE IF NOT EXISTS daily_reports (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		report_date      TEXT NOT NULL,
		employee         TEXT NOT NULL,
		start_at         TEXT,
		end_at           TEXT,
		overtime_minutes INTEGER,
		midnight_minutes INTEGER,
		in_time          TEXT,
		out_time         TEXT,
		elapsed_minutes  INTEGER,
		destination      TEXT,
		work_content     TEXT,
		companion        TEXT,
		created_at       TEXT NOT NULL DEFAULT ` + timestampDefault + `,
		updated_at       TEXT NOT NULL DEFAULT ` + timestampDefault + `
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_reports_date ON daily_reports (report_date)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_reports_employee_date ON daily_reports (employee, report_date)`,
	`CREATE TRIGGER IF NOT EXISTS trg_daily_reports_updated_at
		AFTER UPDATE ON daily_reports
		FOR EACH ROW WHEN NEW.updated_at = OLD.updated_at
	BEGIN
		UPDATE daily_reports SET updated_at = ` + timestampDefault + ` WHERE id = NEW.id;
	END`,
}

const insertReportSQL = `INSERT INTO daily_reports (
	report_date, employee, start_at, end_at, overtime_minutes, midnight_minutes,
	in_time, out_time, elapsed_minutes, destination, work_content, companion
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const listReportsSQL = `SELECT
	id, report_date, employee, start_at, end_at, overtime_minutes, midnight_minutes,
	in_time, out_time, elapsed_minutes, destination, work_content, companion,
	created_at, updated_at
FROM daily_reports
ORDER BY report_date DESC, id ASC
LIMIT ?`

// Store is a core.Store backed by a SQLite database file.
type Store struct {
	db *sql.DB
}

var _ core.Store = (*Store)(nil)

// Open opens (creating if needed) the SQLite database at path. ":memory:"
// gives a private in-memory database.
//
// The pool is limited to one connection: SQLite serializes writers anyway,
// and an in-memory database exists only on the connection that created it.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &Store{db: db}, nil
}

// EnsureSchema creates the table, indexes and updated_at trigger.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return classify(fmt.Errorf("schema statement %d: %w", i, err))
		}
	}
	return nil
}

// Truncate deletes every report and resets the AUTOINCREMENT counter, the
// SQLite equivalent of TRUNCATE ... RESTART IDENTITY.
func (s *Store) Truncate(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_reports`); err != nil {
			return classify(fmt.Errorf("delete reports: %w", err))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'daily_reports'`); err != nil {
			return classify(fmt.Errorf("reset sequence: %w", err))
		}
		return nil
	})
}

// WithinTx runs fn in a transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx core.ReportWriter) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(ctx, &writer{tx: tx})
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("beginning transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// ListReports returns up to limit reports, newest report_date first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]core.Report, error) {
	rows, err := s.db.QueryContext(ctx, listReportsSQL, limit)
	if err != nil {
		return nil, classify(fmt.Errorf("query reports: %w", err))
	}
	defer rows.Close()

	var reports []core.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate reports: %w", err))
	}
	return reports, nil
}

// Ping round-trips SELECT 1.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return classify(fmt.Errorf("select 1: %w", err))
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type writer struct {
	tx *sql.Tx
}

func (w *writer) InsertReport(ctx context.Context, r core.Report) (int64, error) {
	res, err := w.tx.ExecContext(ctx, insertReportSQL,
		nullString(core.FormatDate(r.ReportDate)),
		r.Employee,
		nullString(core.FormatTime(r.StartAt)),
		nullString(core.FormatTime(r.EndAt)),
		nullInt(r.OvertimeMinutes),
		nullInt(r.MidnightMinutes),
		nullString(core.FormatTime(r.InTime)),
		nullString(core.FormatTime(r.OutTime)),
		nullInt(r.ElapsedMinutes),
		nullText(r.Destination),
		nullText(r.WorkContent),
		nullText(r.Companion),
	)
	if err != nil {
		return 0, classify(fmt.Errorf("insert daily report: %w", err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}
	return id, nil
}

func scanReport(rows *sql.Rows) (core.Report, error) {
	var (
		r                                   core.Report
		reportDate, createdAt, updatedAt    string
		startAt, endAt, inTime, outTime     sql.NullString
		overtime, midnight, elapsed         sql.NullInt64
		destination, workContent, companion sql.NullString
	)

	err := rows.Scan(
		&r.ID, &reportDate, &r.Employee, &startAt, &endAt, &overtime, &midnight,
		&inTime, &outTime, &elapsed, &destination, &workContent, &companion,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return r, fmt.Errorf("scan report: %w", err)
	}

	d, err := time.Parse("2006-01-02", reportDate)
	if err != nil {
		return r, fmt.Errorf("report %d: report_date %q: %w", r.ID, reportDate, err)
	}
	r.ReportDate = pgtype.Date{Time: d, Valid: true}

	for _, f := range []struct {
		src sql.NullString
		dst *pgtype.Time
	}{
		{startAt, &r.StartAt},
		{endAt, &r.EndAt},
		{inTime, &r.InTime},
		{outTime, &r.OutTime},
	} {
		if *f.dst, err = core.ParseTime(f.src.String); err != nil {
			return r, fmt.Errorf("report %d: %w", r.ID, err)
		}
	}

	r.OvertimeMinutes = toInt4(overtime)
	r.MidnightMinutes = toInt4(midnight)
	r.ElapsedMinutes = toInt4(elapsed)
	r.Destination = pgtype.Text{String: destination.String, Valid: destination.Valid}
	r.WorkContent = pgtype.Text{String: workContent.String, Valid: workContent.Valid}
	r.Companion = pgtype.Text{String: companion.String, Valid: companion.Valid}

	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return r, fmt.Errorf("report %d: created_at: %w", r.ID, err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return r, fmt.Errorf("report %d: updated_at: %w", r.ID, err)
	}

	return r, nil
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(v pgtype.Int4) any {
	if !v.Valid {
		return nil
	}
	return int64(v.Int32)
}

func nullText(v pgtype.Text) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

func toInt4(v sql.NullInt64) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(v.Int64), Valid: v.Valid}
}

// classify marks SQLITE_BUSY and SQLITE_LOCKED (including their extended
// codes) as transient.
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return &core.TransientError{Err: err}
		}
		return err
	}
	if strings.Contains(err.Error(), "database is locked") {
		return &core.TransientError{Err: err}
	}
	return err
}
