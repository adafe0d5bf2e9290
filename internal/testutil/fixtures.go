package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
)

// Header is the preferred header line of the import template.
const Header = "日付,社員,開始,終了,残業,深夜,入時間,終了時間,経過時間,行先,作業内容,同行者"

// CSV joins lines with CRLF, the way Excel writes them, and adds a trailing
// line break.
func CSV(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

// WithBOM prefixes s with a UTF-8 byte order mark.
func WithBOM(s string) []byte {
	return append([]byte{0xEF, 0xBB, 0xBF}, s...)
}

// ShiftJIS encodes s as Shift-JIS.
func ShiftJIS(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatalf("encoding fixture as shift_jis: %v", err)
	}
	return b
}

// WriteFile writes data to name inside a per-test temporary directory and
// returns the full path.
func WriteFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}
