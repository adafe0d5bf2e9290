package core

import "context"

// Store is the storage gateway behind the importer and the read API.
// Implementations live in internal/storage.
type Store interface {
	// EnsureSchema creates the reports table and its indexes if missing.
	EnsureSchema(ctx context.Context) error

	// Truncate deletes every report and restarts the identity sequence.
	Truncate(ctx context.Context) error

	// WithinTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx ReportWriter) error) error

	// ListReports returns up to limit reports, newest report_date first.
	ListReports(ctx context.Context, limit int) ([]Report, error)

	// Ping round-trips a no-op query.
	Ping(ctx context.Context) error

	Close() error
}

// ReportWriter inserts reports inside a transaction.
type ReportWriter interface {
	// InsertReport stores r and returns the assigned id. ID, CreatedAt and
	// UpdatedAt on r are ignored.
	InsertReport(ctx context.Context, r Report) (int64, error)
}
