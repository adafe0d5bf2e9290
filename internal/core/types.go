package core

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TableName is the relation every gateway stores reports in.
const TableName = "daily_reports"

// Report is the canonical daily report record.
//
// Optional fields use pgtype values with Valid=false for absent, so they map
// directly onto NULL columns.
type Report struct {
	ID         int64
	ReportDate pgtype.Date
	Employee   string

	StartAt pgtype.Time
	EndAt   pgtype.Time

	OvertimeMinutes pgtype.Int4
	MidnightMinutes pgtype.Int4

	InTime         pgtype.Time
	OutTime        pgtype.Time
	ElapsedMinutes pgtype.Int4

	Destination pgtype.Text
	WorkContent pgtype.Text
	Companion   pgtype.Text

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RawRow is one CSV data row keyed by header name.
type RawRow map[string]string

// Reason classifies why a row was not persisted.
type Reason string

const (
	ReasonMissingDate     Reason = "missing_report_date"
	ReasonMissingEmployee Reason = "missing_employee"
	ReasonParse           Reason = "parse_error"
	ReasonStorage         Reason = "storage_error"
)

// RowResult is the outcome of one data row. Reason is empty when the row was
// inserted, in which case ID holds the assigned identity.
type RowResult struct {
	Line   int
	ID     int64
	Reason Reason
	Err    error
}

// Inserted reports whether the row was committed.
func (r RowResult) Inserted() bool {
	return r.Reason == ""
}

// Summary aggregates the row results of one import run.
// Inserted + Skipped always equals Total.
type Summary struct {
	ImportID  string
	Encoding  Encoding
	Truncated bool
	Total     int
	Inserted  int
	Skipped   int
	Reasons   map[Reason]int
	Duration  time.Duration
}

// Add folds a row result into the summary.
func (s *Summary) Add(r RowResult) {
	s.Total++
	if r.Inserted() {
		s.Inserted++
		return
	}
	s.Skipped++
	if s.Reasons == nil {
		s.Reasons = make(map[Reason]int)
	}
	s.Reasons[r.Reason]++
}

// ImportOptions controls a single import run.
type ImportOptions struct {
	// Truncate empties the table and restarts the identity sequence
	// before the first row is read. Destructive; never implied.
	Truncate bool

	// FileName is used for logging only.
	FileName string
}
