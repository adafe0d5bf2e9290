package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dailyreports/importer/internal/config"
	"github.com/dailyreports/importer/internal/core"
	"github.com/dailyreports/importer/internal/testutil"
	"github.com/dailyreports/importer/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{MaxFileSize: 1 << 20, RetryBackoff: time.Millisecond},
		API:    config.APIConfig{DefaultLimit: 50, MaxLimit: 1000},
	}
}

func newTestServer(t *testing.T, rows ...string) *web.Server {
	t.Helper()
	store := testutil.NewTestStore(t)
	cfg := testConfig()
	svc := core.NewService(store, cfg)

	if len(rows) > 0 {
		body := testutil.CSV(append([]string{testutil.Header}, rows...)...)
		_, err := svc.Import(context.Background(), strings.NewReader(body), core.ImportOptions{})
		require.NoError(t, err)
	}
	return web.NewServer(svc, cfg)
}

func get(t *testing.T, s *web.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRoot(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Daily Reports API"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthz_StorageDown(t *testing.T) {
	store := testutil.NewTestStore(t)
	cfg := testConfig()
	s := web.NewServer(core.NewService(store, cfg), cfg)
	require.NoError(t, store.Close())

	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body web.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestListReports(t *testing.T) {
	s := newTestServer(t,
		"2024-01-05,山田,08:30,17:00,30分,,,,1:30,本社,点検,",
		"2024/01/07,佐藤",
	)

	rec := get(t, s, "/daily-reports")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body struct {
		Items []map[string]any `json:"items"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	require.Len(t, body.Items, 2)

	newest := body.Items[0]
	assert.Equal(t, "2024-01-07", newest["report_date"])
	assert.Equal(t, "佐藤", newest["employee"])
	assert.Contains(t, newest, "start_at", "absent values are null, not omitted")
	assert.Nil(t, newest["start_at"])
	assert.Nil(t, newest["overtime_minutes"])
	assert.Nil(t, newest["companion"])

	older := body.Items[1]
	assert.Equal(t, "2024-01-05", older["report_date"])
	assert.Equal(t, "08:30:00", older["start_at"])
	assert.Equal(t, "17:00:00", older["end_at"])
	assert.EqualValues(t, 30, older["overtime_minutes"])
	assert.EqualValues(t, 90, older["elapsed_minutes"])
	assert.Equal(t, "本社", older["destination"])
	assert.Equal(t, "点検", older["work_content"])
	assert.NotEmpty(t, older["created_at"])
}

func TestListReports_Limit(t *testing.T) {
	s := newTestServer(t, "2024-01-01,a", "2024-01-02,b", "2024-01-03,c")

	tests := []struct {
		query string
		want  int
	}{
		{"?limit=2", 2},
		{"?limit=0", 3},
		{"?limit=-5", 3},
		{"?limit=abc", 3},
		{"", 3},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := get(t, s, "/daily-reports"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var body web.ListReportsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Count)
		})
	}
}

func TestListReports_V1Alias(t *testing.T) {
	s := newTestServer(t, "2024-01-01,a")

	rec := get(t, s, "/v1/daily-reports?limit=50")
	require.Equal(t, http.StatusOK, rec.Code)

	var body web.ListReportsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestListReports_EmptyIsArray(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/daily-reports")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"count":0}`, rec.Body.String())
}

func TestDownloadTemplate(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/daily-reports/template.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "daily_reports_template.csv")

	body := rec.Body.Bytes()
	require.True(t, core.HasBOM(body))
	assert.Equal(t, testutil.Header+"\r\n", string(body[3:]))
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body web.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "HTTP404", body.Code)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
