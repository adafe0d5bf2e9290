package core

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Column lists the CSV headers accepted for one report field, in priority
// order.
type Column struct {
	Field   string
	Aliases []string
}

// Columns is the header alias table. The first alias is the preferred
// header and is what the import template uses.
var Columns = []Column{
	{Field: "report_date", Aliases: []string{"日付", "報告日"}},
	{Field: "employee", Aliases: []string{"社員", "氏名"}},
	{Field: "start_at", Aliases: []string{"開始", "開始時刻"}},
	{Field: "end_at", Aliases: []string{"終了", "終了時刻"}},
	{Field: "overtime_minutes", Aliases: []string{"残業"}},
	{Field: "midnight_minutes", Aliases: []string{"深夜"}},
	{Field: "in_time", Aliases: []string{"入時間", "開始時間"}},
	{Field: "out_time", Aliases: []string{"終了時間", "退勤時間"}},
	{Field: "elapsed_minutes", Aliases: []string{"経過時間"}},
	{Field: "destination", Aliases: []string{"行先", "行き先"}},
	{Field: "work_content", Aliases: []string{"作業内容", "業務内容"}},
	{Field: "companion", Aliases: []string{"同行者"}},
}

var aliasIndex = func() map[string][]string {
	idx := make(map[string][]string, len(Columns))
	for _, c := range Columns {
		idx[c.Field] = c.Aliases
	}
	return idx
}()

// Aliases returns the accepted headers for a report field.
func Aliases(field string) []string {
	return aliasIndex[field]
}

// TemplateHeader returns the preferred header of every field, in table order.
func TemplateHeader() []string {
	header := make([]string, len(Columns))
	for i, c := range Columns {
		header[i] = c.Aliases[0]
	}
	return header
}

// Normalize maps one raw CSV row onto a Report.
//
// All fields are parsed before the required-field check, so a malformed
// time is reported as a parse error even when the date is also missing.
// The returned error is always a *RowError.
func Normalize(row RawRow) (Report, error) {
	var (
		r   Report
		err error
	)

	r.ReportDate = ParseDate(rowCell(row, "report_date"))
	r.Employee = strings.TrimSpace(rowCell(row, "employee"))

	if r.StartAt, err = timeField(row, "start_at"); err != nil {
		return Report{}, err
	}
	if r.EndAt, err = timeField(row, "end_at"); err != nil {
		return Report{}, err
	}
	if r.OvertimeMinutes, err = minutesField(row, "overtime_minutes"); err != nil {
		return Report{}, err
	}
	if r.MidnightMinutes, err = minutesField(row, "midnight_minutes"); err != nil {
		return Report{}, err
	}
	if r.InTime, err = timeField(row, "in_time"); err != nil {
		return Report{}, err
	}
	if r.OutTime, err = timeField(row, "out_time"); err != nil {
		return Report{}, err
	}
	if r.ElapsedMinutes, err = minutesField(row, "elapsed_minutes"); err != nil {
		return Report{}, err
	}

	r.Destination = ToPgText(rowCell(row, "destination"))
	r.WorkContent = ToPgText(rowCell(row, "work_content"))
	r.Companion = ToPgText(rowCell(row, "companion"))

	if !r.ReportDate.Valid {
		return Report{}, &RowError{Reason: ReasonMissingDate, Field: "report_date", Err: ErrMissingReportDate}
	}
	if r.Employee == "" {
		return Report{}, &RowError{Reason: ReasonMissingEmployee, Field: "employee", Err: ErrMissingEmployee}
	}

	return r, nil
}

func rowCell(row RawRow, field string) string {
	v, _ := Lookup(row, Aliases(field)...)
	return v
}

func timeField(row RawRow, field string) (pgtype.Time, error) {
	t, err := ParseTime(rowCell(row, field))
	if err != nil {
		return t, &RowError{Reason: ReasonParse, Field: field, Err: err}
	}
	return t, nil
}

func minutesField(row RawRow, field string) (pgtype.Int4, error) {
	n, err := ParseMinutes(rowCell(row, field))
	if err != nil {
		return n, &RowError{Reason: ReasonParse, Field: field, Err: err}
	}
	return n, nil
}
