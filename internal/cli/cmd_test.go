package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dailyreports/importer/internal/config"
	"github.com/dailyreports/importer/internal/core"
	"github.com/dailyreports/importer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp wires an App backed by an in-memory store shared across commands.
func testApp(t *testing.T) (*App, core.Store) {
	t.Helper()
	store := testutil.NewTestStore(t)

	cfg := &config.Config{
		Import: config.ImportConfig{StorageRetries: 2, RetryBackoff: time.Millisecond, MaxFileSize: 1 << 20},
		API:    config.APIConfig{DefaultLimit: 50, MaxLimit: 1000},
	}
	app := &App{
		Config: cfg,
		OpenStore: func(ctx context.Context) (core.Store, error) {
			return nopCloser{store}, nil
		},
	}
	return app, store
}

// nopCloser keeps the shared test store open across command runs.
type nopCloser struct{ core.Store }

func (nopCloser) Close() error { return nil }

func execute(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(app)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func countRows(t *testing.T, store core.Store) int {
	t.Helper()
	reports, err := store.ListReports(context.Background(), 1000)
	require.NoError(t, err)
	return len(reports)
}

func TestImportCmd(t *testing.T) {
	app, store := testApp(t)
	path := testutil.WriteFile(t, "reports.csv", []byte(testutil.CSV(
		"日付,社員,開始",
		"2024-01-05,山田,08:30",
		"2024-01-06,佐藤,8.25",
		"2024-01-07,鈴木,09:00",
	)))

	out, err := execute(t, app, "import", "--file", path)
	require.NoError(t, err)
	assert.Equal(t, "Imported: inserted=2, skipped=1\n", out)
	assert.Equal(t, 2, countRows(t, store))
}

func TestImportCmd_TwiceDoublesRows(t *testing.T) {
	app, store := testApp(t)
	path := testutil.WriteFile(t, "reports.csv", testutil.ShiftJIS(t, testutil.CSV(testutil.Header, "2024/01/05,山田")))

	_, err := execute(t, app, "import", "--file", path)
	require.NoError(t, err)
	_, err = execute(t, app, "import", "--file", path)
	require.NoError(t, err)

	assert.Equal(t, 2, countRows(t, store))
}

func TestImportCmd_Truncate(t *testing.T) {
	app, store := testApp(t)
	path := testutil.WriteFile(t, "reports.csv", testutil.WithBOM(testutil.CSV(testutil.Header, "2024-01-05,山田", "2024-01-06,佐藤")))

	_, err := execute(t, app, "import", "--file", path)
	require.NoError(t, err)

	out, err := execute(t, app, "import", "--file", path, "--truncate")
	require.NoError(t, err)
	assert.Equal(t, "[daily_reports] truncated (restart identity)\nImported: inserted=2, skipped=0\n", out)

	reports, err := store.ListReports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.ElementsMatch(t, []int64{1, 2}, []int64{reports[0].ID, reports[1].ID})
}

func TestImportCmd_FileNotFound(t *testing.T) {
	app, _ := testApp(t)
	opened := false
	app.OpenStore = func(ctx context.Context) (core.Store, error) {
		opened = true
		return nil, assert.AnError
	}

	missing := filepath.Join(t.TempDir(), "missing.csv")
	_, err := execute(t, app, "import", "--file", missing)
	require.Error(t, err)
	assert.Equal(t, "CSV not found: "+missing, err.Error())
	assert.False(t, opened, "store must not be opened for a missing file")
}

func TestImportCmd_FileFlagRequired(t *testing.T) {
	app, _ := testApp(t)
	_, err := execute(t, app, "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestImportCmd_UndecodableFile(t *testing.T) {
	app, store := testApp(t)
	path := testutil.WriteFile(t, "bad.csv", []byte{0x93, 0xFA, 0xFF, 0xFF, '\n'})

	_, err := execute(t, app, "import", "--file", path, "--truncate")
	require.ErrorIs(t, err, core.ErrEncoding)
	assert.Equal(t, 0, countRows(t, store))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	store, err := OpenStore(ctx, config.DatabaseConfig{
		Driver: config.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "nested", "reports.db"),
	})
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(ctx))

	_, err = OpenStore(ctx, config.DatabaseConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}
