package apihttp

import (
	"fmt"
	"net/http"

	"energy-balance/internal/export"
	"energy-balance/internal/interval/application"
	"energy-balance/internal/interval/domain"
	market "energy-balance/internal/market/application"
)

// ExportBalanceHandler serves day balance reports in CSV, XLSX or PDF.
// The format is taken from the path suffix (balance.csv, balance.xlsx,
// balance.pdf).
type ExportBalanceHandler struct {
	repo       domain.Repository
	reconciler *application.Reconciler
	projector  *market.Projector
	format     string
}

// NewExportBalanceHandler constructs a handler for one export format.
func NewExportBalanceHandler(repo domain.Repository, reconciler *application.Reconciler, projector *market.Projector, format string) *ExportBalanceHandler {
	return &ExportBalanceHandler{repo: repo, reconciler: reconciler, projector: projector, format: format}
}

// ServeHTTP handles GET /api/v1/exports/balance.{csv,xlsx,pdf}.
func (h *ExportBalanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.repo == nil || h.reconciler == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	day, err := parseDayQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := listDayRecords(r.Context(), h.repo, day)
	if err != nil {
		http.Error(w, "query intervals error", http.StatusInternalServerError)
		return
	}
	gaps, err := h.reconciler.FindGaps(r.Context(), day)
	if err != nil {
		http.Error(w, "gap scan error", http.StatusInternalServerError)
		return
	}
	report, err := export.NewDayReport(day, records, gaps, nil)
	if err != nil {
		http.Error(w, "report error", http.StatusInternalServerError)
		return
	}
	if h.projector != nil {
		volumes, err := h.projector.ListDay(r.Context(), day)
		if err != nil {
			http.Error(w, "query imbalance error", http.StatusInternalServerError)
			return
		}
		report.Volumes = volumes
	}

	filename := fmt.Sprintf("balance-%s.%s", day.Format(dayLayout), h.format)
	var payload []byte
	var contentType string
	switch h.format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		payload, err = report.BuildCSV()
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		payload, err = report.BuildXLSX()
	case "pdf":
		contentType = "application/pdf"
		payload, err = report.BuildPDF()
	default:
		http.Error(w, "unsupported format", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(payload)
}
