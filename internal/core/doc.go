// Package core provides the business logic for importing daily work reports.
//
// This package has no transport dependencies. The CLI and the read API both
// drive it through [Service]; storage sits behind the [Store] interface with
// PostgreSQL and SQLite implementations in internal/storage.
//
// # Import Pipeline
//
// One run of [Service.Import] is:
//
//  1. Read the whole file (bounded by the configured maximum size)
//  2. Pick a decoding once with [DetectEncoding]: UTF-8 with BOM, UTF-8,
//     or Shift-JIS
//  3. Ensure the schema, and truncate only when asked
//  4. Tokenize with encoding/csv; the first row names the columns
//  5. Map each row with [Normalize], then insert it in its own transaction
//
// A rejected or failed row is counted in the [Summary] and the run moves on.
// Only file-level problems stop a run.
//
// # Column Aliases
//
// Headers are matched through [Columns]: each report field accepts a short
// list of Japanese headers, the first non-blank one wins.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE004: File errors (size, format, encoding, not found)
//   - VAL001-VAL004: Row errors (time, minutes, missing date or employee)
//   - DB000, DB004: Storage errors (permanent, transient)
//   - UPL004, UPL005: Cancelled or timed out
package core
