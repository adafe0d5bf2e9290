package testutil

import (
	"context"
	"sync/atomic"

	"github.com/dailyreports/importer/internal/core"
)

// FailingStore wraps a core.Store and injects Err into InsertReport calls.
//
// Calls are counted starting at 1. When FailOn is set only that call fails;
// otherwise the first FailFirst calls fail. Reads and schema operations
// pass through.
type FailingStore struct {
	core.Store
	FailOn    int32
	FailFirst int32
	Err       error

	calls atomic.Int32
}

// Calls returns how many InsertReport calls were attempted.
func (s *FailingStore) Calls() int {
	return int(s.calls.Load())
}

func (s *FailingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx core.ReportWriter) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx core.ReportWriter) error {
		return fn(ctx, &failingWriter{ReportWriter: tx, store: s})
	})
}

type failingWriter struct {
	core.ReportWriter
	store *FailingStore
}

func (w *failingWriter) InsertReport(ctx context.Context, r core.Report) (int64, error) {
	n := w.store.calls.Add(1)
	if n == w.store.FailOn || (w.store.FailOn == 0 && n <= w.store.FailFirst) {
		return 0, w.store.Err
	}
	return w.ReportWriter.InsertReport(ctx, r)
}
