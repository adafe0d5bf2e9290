package web

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/dailyreports/importer/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
)

// ReportResponse is the JSON rendering of a daily report. Absent optional
// values are encoded as null, never omitted.
type ReportResponse struct {
	ID              int64     `json:"id"`
	ReportDate      *string   `json:"report_date"`
	Employee        string    `json:"employee"`
	StartAt         *string   `json:"start_at"`
	EndAt           *string   `json:"end_at"`
	OvertimeMinutes *int32    `json:"overtime_minutes"`
	MidnightMinutes *int32    `json:"midnight_minutes"`
	InTime          *string   `json:"in_time"`
	OutTime         *string   `json:"out_time"`
	ElapsedMinutes  *int32    `json:"elapsed_minutes"`
	Destination     *string   `json:"destination"`
	WorkContent     *string   `json:"work_content"`
	Companion       *string   `json:"companion"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListReportsResponse wraps a page of reports.
type ListReportsResponse struct {
	Items []ReportResponse `json:"items"`
	Count int              `json:"count"`
}

// handleRoot identifies the API.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Daily Reports API"})
}

// handleHealth round-trips a no-op query against storage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Health(r.Context()); err != nil {
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListReports returns the newest reports. ?limit is optional; bad or
// non-positive values fall back to the default.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 0)

	reports, err := s.service.ListReports(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	resp := ListReportsResponse{
		Items: make([]ReportResponse, 0, len(reports)),
		Count: len(reports),
	}
	for _, rep := range reports {
		resp.Items = append(resp.Items, toResponse(rep))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDownloadTemplate returns an empty import file: the preferred header
// of every column, UTF-8 with a BOM so Excel opens it correctly.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.TableName+`_template.csv"`)

	w.Write([]byte{0xEF, 0xBB, 0xBF})
	csvWriter := csv.NewWriter(w)
	csvWriter.UseCRLF = true
	csvWriter.Write(core.TemplateHeader())
	csvWriter.Flush()
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func toResponse(r core.Report) ReportResponse {
	return ReportResponse{
		ID:              r.ID,
		ReportDate:      core.FormatDate(r.ReportDate),
		Employee:        r.Employee,
		StartAt:         core.FormatTime(r.StartAt),
		EndAt:           core.FormatTime(r.EndAt),
		OvertimeMinutes: int4Ptr(r.OvertimeMinutes),
		MidnightMinutes: int4Ptr(r.MidnightMinutes),
		InTime:          core.FormatTime(r.InTime),
		OutTime:         core.FormatTime(r.OutTime),
		ElapsedMinutes:  int4Ptr(r.ElapsedMinutes),
		Destination:     textPtr(r.Destination),
		WorkContent:     textPtr(r.WorkContent),
		Companion:       textPtr(r.Companion),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func int4Ptr(v pgtype.Int4) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}

func textPtr(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
