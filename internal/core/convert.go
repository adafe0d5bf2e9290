package core

// convert.go turns raw CSV cells into typed report values.
//
// Every parser narrows full-width characters ("３０", "８：３０") and trims the
// cell first, and treats a blank cell as absent (Valid=false), never as an
// error. Formats are tried in list order and the
// first match wins; add a layout to the list to accept a new format.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/width"
)

// dateLayouts are tried in order. Go's non-padded month/day verbs also accept
// zero-padded input, so "2024-1-5" and "2024-01-05" both parse.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
}

// timeLayouts are tried in order. The non-padded minute and second verbs
// accept "8:5" as well as "08:05". Fractional hours ("8.25") are not
// supported.
var timeLayouts = []string{
	"15:4:5",
	"15:4",
}

// minuteSuffixes are unit markers stripped from the end of a minute count.
var minuteSuffixes = []string{"分"}

// cell folds full-width digits, colons and signs to ASCII and trims spaces.
func cell(s string) string {
	return strings.TrimSpace(width.Narrow.String(s))
}

// ParseDate parses a calendar date. An unrecognized value is absent rather
// than an error; callers decide whether absence is fatal for the row.
func ParseDate(s string) pgtype.Date {
	s = cell(s)
	if s == "" {
		return pgtype.Date{}
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{}
}

// ParseTime parses a time of day. A non-blank value matching no layout is an
// error wrapping ErrInvalidTime.
func ParseTime(s string) (pgtype.Time, error) {
	s = cell(s)
	if s == "" {
		return pgtype.Time{}, nil
	}

	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return TimeOfDay(t.Hour(), t.Minute(), t.Second()), nil
		}
	}

	return pgtype.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

// ParseMinutes parses a duration in whole minutes: "15", "30分" or "1:30".
//
// H:MM values that do not convert are absent, not an error. Plain values
// that are not integers (including fractions like "1.5") wrap
// ErrInvalidMinutes.
func ParseMinutes(s string) (pgtype.Int4, error) {
	s = cell(s)
	if s == "" {
		return pgtype.Int4{}, nil
	}

	for _, suffix := range minuteSuffixes {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}

	if hours, mins, ok := strings.Cut(s, ":"); ok {
		h, errH := strconv.Atoi(strings.TrimSpace(hours))
		m, errM := strconv.Atoi(strings.TrimSpace(mins))
		total := int64(h)*60 + int64(m)
		if errH != nil || errM != nil || total > math.MaxInt32 || total < math.MinInt32 {
			return pgtype.Int4{}, nil
		}
		return pgtype.Int4{Int32: int32(total), Valid: true}, nil
	}

	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return pgtype.Int4{}, fmt.Errorf("%w: %q", ErrInvalidMinutes, s)
	}
	return pgtype.Int4{Int32: int32(n), Valid: true}, nil
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// TimeOfDay builds a valid pgtype.Time.
func TimeOfDay(hour, minute, second int) pgtype.Time {
	us := (int64(hour)*3600 + int64(minute)*60 + int64(second)) * int64(time.Second/time.Microsecond)
	return pgtype.Time{Microseconds: us, Valid: true}
}

// FormatDate renders a date as YYYY-MM-DD, or nil when absent.
func FormatDate(d pgtype.Date) *string {
	if !d.Valid {
		return nil
	}
	s := d.Time.Format("2006-01-02")
	return &s
}

// FormatTime renders a time of day as HH:MM:SS, or nil when absent.
func FormatTime(t pgtype.Time) *string {
	if !t.Valid {
		return nil
	}
	secs := t.Microseconds / int64(time.Second/time.Microsecond)
	s := fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	return &s
}

// Lookup returns the value of the first column in keys that is present and
// not blank. The value is returned as found, untrimmed.
func Lookup(row RawRow, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := row[k]
		if ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}
