package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "file too large",
			err:      fmt.Errorf("%w: exceeds 10 bytes", ErrFileTooLarge),
			wantCode: "FILE001",
		},
		{
			name:     "malformed csv",
			err:      fmt.Errorf("%w: bare quote", ErrMalformedCSV),
			wantCode: "FILE002",
		},
		{
			name:     "encoding",
			err:      fmt.Errorf("%w: decode as shift_jis", ErrEncoding),
			wantCode: "FILE003",
		},
		{
			name:     "file not found",
			err:      fmt.Errorf("%w: /tmp/x.csv", ErrFileNotFound),
			wantCode: "FILE004",
		},
		{
			name:     "row error unwraps to invalid time",
			err:      &RowError{Reason: ReasonParse, Field: "start_at", Err: ErrInvalidTime},
			wantCode: "VAL001",
		},
		{
			name:     "missing employee",
			err:      &RowError{Reason: ReasonMissingEmployee, Err: ErrMissingEmployee},
			wantCode: "VAL004",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("list reports: %w", context.DeadlineExceeded),
			wantCode: "UPL005",
		},
		{
			name:     "cancelled",
			err:      context.Canceled,
			wantCode: "UPL004",
		},
		{
			name:     "transient storage",
			err:      &TransientError{Err: errors.New("connection reset")},
			wantCode: "DB004",
		},
		{
			name:     "unknown storage failure",
			err:      errors.New("relation does not exist"),
			wantCode: "DB000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError(%v) = %+v, want message and action", tt.err, got)
			}
		})
	}
}

func TestRowError_Error(t *testing.T) {
	err := &RowError{Reason: ReasonParse, Field: "start_at", Err: fmt.Errorf("%w: %q", ErrInvalidTime, "8.25")}
	want := `parse_error: start_at: invalid time: "8.25"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noField := &RowError{Reason: ReasonStorage, Err: errors.New("boom")}
	if got := noField.Error(); got != "storage_error: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsTransient(t *testing.T) {
	base := errors.New("busy")
	if !IsTransient(fmt.Errorf("insert: %w", &TransientError{Err: base})) {
		t.Error("wrapped TransientError not detected")
	}
	if IsTransient(base) {
		t.Error("plain error reported as transient")
	}
	if !errors.Is(&TransientError{Err: base}, base) {
		t.Error("TransientError does not unwrap")
	}
}

func TestSummary_Add(t *testing.T) {
	var s Summary
	s.Add(RowResult{Line: 2, ID: 1})
	s.Add(RowResult{Line: 3, Reason: ReasonParse})
	s.Add(RowResult{Line: 4, Reason: ReasonParse})
	s.Add(RowResult{Line: 5, Reason: ReasonMissingEmployee})
	s.Add(RowResult{Line: 6, ID: 2})

	if s.Total != 5 || s.Inserted != 2 || s.Skipped != 3 {
		t.Errorf("counts = total %d inserted %d skipped %d, want 5/2/3", s.Total, s.Inserted, s.Skipped)
	}
	if s.Reasons[ReasonParse] != 2 || s.Reasons[ReasonMissingEmployee] != 1 {
		t.Errorf("Reasons = %v", s.Reasons)
	}
	if s.Inserted+s.Skipped != s.Total {
		t.Error("inserted + skipped != total")
	}
}
