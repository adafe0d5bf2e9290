package core

// errors.go defines the import error taxonomy and maps errors to
// user-facing messages with codes for support reference.
//
// Fatal errors abort a run before or during file handling:
//
//	FILE001 - File too large        (ErrFileTooLarge)
//	FILE002 - Invalid CSV           (ErrMalformedCSV)
//	FILE003 - Encoding error        (ErrEncoding)
//	FILE004 - File not found        (ErrFileNotFound)
//
// Row-local errors only ever reach the summary counters:
//
//	VAL001 - Invalid time           (ErrInvalidTime)
//	VAL002 - Invalid minutes        (ErrInvalidMinutes)
//	VAL003 - Missing report date    (ErrMissingReportDate)
//	VAL004 - Missing employee       (ErrMissingEmployee)
//
// Storage errors:
//
//	DB004 - Storage unavailable     (TransientError)
//	DB000 - Storage failure         (anything else from a gateway)

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrFileNotFound = errors.New("csv file not found")
	ErrFileTooLarge = errors.New("file too large")
	ErrEncoding     = errors.New("encoding error")
	ErrMalformedCSV = errors.New("invalid csv")

	ErrInvalidTime       = errors.New("invalid time")
	ErrInvalidMinutes    = errors.New("invalid minutes")
	ErrMissingReportDate = errors.New("missing report date")
	ErrMissingEmployee   = errors.New("missing employee")
)

// RowError explains why the normalizer rejected a row.
type RowError struct {
	Reason Reason
	Field  string
	Err    error
}

func (e *RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Reason, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// TransientError marks a storage failure that may succeed if retried, such
// as a dropped connection, a deadlock or a busy database file. Gateways wrap
// errors they classify as transient; everything else is permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient storage failure: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// UserMessage is a user-friendly rendering of an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorMapping struct {
	target error
	msg    UserMessage
}

var errorMappings = []errorMapping{
	{ErrFileTooLarge, UserMessage{"File exceeds the maximum import size", "Split the file into smaller chunks", "FILE001"}},
	{ErrMalformedCSV, UserMessage{"File is not a valid CSV", "Check quoting and that the first row holds the column headers", "FILE002"}},
	{ErrEncoding, UserMessage{"File could not be decoded", "Save the file as UTF-8 or Shift-JIS", "FILE003"}},
	{ErrFileNotFound, UserMessage{"CSV file not found", "Check the file path", "FILE004"}},
	{ErrInvalidTime, UserMessage{"Invalid time format detected", "Use HH:MM or HH:MM:SS", "VAL001"}},
	{ErrInvalidMinutes, UserMessage{"Invalid minute count detected", "Use whole minutes (30, 30分) or H:MM", "VAL002"}},
	{ErrMissingReportDate, UserMessage{"Report date is missing or unreadable", "Use YYYY-MM-DD, YYYY/MM/DD, YYYY.MM.DD or YYYY年MM月DD日", "VAL003"}},
	{ErrMissingEmployee, UserMessage{"Employee is missing", "Fill in the 社員 or 氏名 column", "VAL004"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Please try again", "UPL005"}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
}

// MapError converts an error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}

	if IsTransient(err) {
		return UserMessage{
			Message: "Unable to reach the database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		}
	}

	return UserMessage{
		Message: "An unexpected storage error occurred",
		Action:  "Please try again or contact support",
		Code:    "DB000",
	}
}
