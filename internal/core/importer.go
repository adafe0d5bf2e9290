package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dailyreports/importer/internal/logging"
	"github.com/google/uuid"
)

// Import reads a CSV document from src and stores one report per valid row.
//
// The document is read and decoded in full before storage is touched, so an
// oversized or undecodable file changes nothing. Rows are then processed in
// file order, each in its own transaction. Row failures are counted and
// skipped; only file-level problems are returned as errors, together with
// the summary of rows handled so far.
func (s *Service) Import(ctx context.Context, src io.Reader, opts ImportOptions) (Summary, error) {
	start := time.Now()
	summary := Summary{ImportID: uuid.New().String()}

	logger := logging.WithFields(ctx, "import_id", summary.ImportID, "file", opts.FileName)
	ctx = logging.WithLogger(ctx, logger)

	raw, err := io.ReadAll(io.LimitReader(src, s.maxFileSize+1))
	if err != nil {
		return summary, fmt.Errorf("read csv: %w", err)
	}
	if int64(len(raw)) > s.maxFileSize {
		return summary, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, s.maxFileSize)
	}

	decoded, enc, err := Decode(raw)
	summary.Encoding = enc
	if err != nil {
		return summary, err
	}

	if err := s.store.EnsureSchema(ctx); err != nil {
		return summary, fmt.Errorf("ensure schema: %w", err)
	}
	if opts.Truncate {
		if err := s.Truncate(ctx); err != nil {
			return summary, err
		}
		summary.Truncated = true
	}

	logger.Info("import started", "encoding", enc, "bytes", len(raw), "truncate", opts.Truncate)

	err = s.importRows(ctx, decoded, &summary)
	summary.Duration = time.Since(start)

	attrs := []any{
		"total", summary.Total,
		"inserted", summary.Inserted,
		"skipped", summary.Skipped,
		"duration_ms", summary.Duration.Milliseconds(),
	}
	if err != nil {
		logger.Error("import aborted", append(attrs, "error", err)...)
		return summary, err
	}
	logger.Info("import finished", attrs...)
	return summary, nil
}

// importRows tokenizes the decoded document and imports every data row.
func (s *Service) importRows(ctx context.Context, decoded io.Reader, summary *Summary) error {
	logger := logging.FromContext(ctx)

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		logger.Warn("csv has no header row")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: header: %v", ErrMalformedCSV, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}

		line, _ := reader.FieldPos(0)
		res := s.importRow(ctx, line, makeRawRow(header, record))
		summary.Add(res)

		if !res.Inserted() {
			logger.Debug("row skipped", "line", res.Line, "reason", res.Reason, "error", res.Err)
		}
	}
}

// importRow normalizes and stores a single row. It never returns an error;
// the outcome is carried in the RowResult.
func (s *Service) importRow(ctx context.Context, line int, row RawRow) RowResult {
	res := RowResult{Line: line}

	report, err := Normalize(row)
	if err != nil {
		res.Reason = ReasonParse
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			res.Reason = rowErr.Reason
		}
		res.Err = err
		return res
	}

	id, err := s.insert(ctx, report)
	if err != nil {
		res.Reason = ReasonStorage
		res.Err = err
		return res
	}

	res.ID = id
	return res
}

// insert stores report in its own transaction, retrying failures the
// gateway classified as transient.
func (s *Service) insert(ctx context.Context, report Report) (int64, error) {
	for attempt := 1; ; attempt++ {
		var id int64
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx ReportWriter) error {
			var err error
			id, err = tx.InsertReport(ctx, report)
			return err
		})
		if err == nil {
			return id, nil
		}
		if !IsTransient(err) || attempt > s.storageRetries {
			return 0, err
		}

		logging.FromContext(ctx).Warn("retrying row after transient storage failure",
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(s.retryBackoff * time.Duration(attempt)):
		}
	}
}

// makeRawRow pairs header names with cell values. Cells beyond the header
// are dropped and missing trailing cells are absent. With duplicate
// headers the rightmost column wins.
func makeRawRow(header, record []string) RawRow {
	row := make(RawRow, len(header))
	for i, name := range header {
		if i >= len(record) {
			break
		}
		row[name] = record[i]
	}
	return row
}
