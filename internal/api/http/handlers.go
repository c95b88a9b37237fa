package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"energy-balance/internal/interval/application"
	"energy-balance/internal/interval/domain"
	market "energy-balance/internal/market/application"
)

const dayLayout = "2006-01-02"

// IntervalsHandler serves canonical interval record queries.
type IntervalsHandler struct {
	repo domain.Repository
}

// NewIntervalsHandler constructs an IntervalsHandler.
func NewIntervalsHandler(repo domain.Repository) *IntervalsHandler {
	return &IntervalsHandler{repo: repo}
}

// ServeHTTP handles GET /api/v1/intervals.
func (h *IntervalsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.repo == nil {
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

	rows := make([]recordRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, toRecordRow(record))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// GapsHandler serves day gap scans.
type GapsHandler struct {
	reconciler *application.Reconciler
}

// NewGapsHandler constructs a GapsHandler.
func NewGapsHandler(reconciler *application.Reconciler) *GapsHandler {
	return &GapsHandler{reconciler: reconciler}
}

// ServeHTTP handles GET /api/v1/intervals/gaps.
func (h *GapsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.reconciler == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	day, err := parseDayQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	gaps, err := h.reconciler.FindGaps(r.Context(), day)
	if err != nil {
		http.Error(w, "gap scan error", http.StatusInternalServerError)
		return
	}

	missing := make([]string, 0, len(gaps))
	for _, gap := range gaps {
		missing = append(missing, gap.Format(time.RFC3339))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(gapsResponse{
		Day:      day.Format(dayLayout),
		Expected: domain.SlotsPerDay,
		Missing:  missing,
	})
}

// ImbalanceHandler serves day imbalance volume queries.
type ImbalanceHandler struct {
	projector *market.Projector
}

// NewImbalanceHandler constructs an ImbalanceHandler.
func NewImbalanceHandler(projector *market.Projector) *ImbalanceHandler {
	return &ImbalanceHandler{projector: projector}
}

// ServeHTTP handles GET /api/v1/imbalance.
func (h *ImbalanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.projector == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	day, err := parseDayQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	volumes, err := h.projector.ListDay(r.Context(), day)
	if err != nil {
		http.Error(w, "query imbalance error", http.StatusInternalServerError)
		return
	}

	rows := make([]volumeRow, 0, len(volumes))
	for _, volume := range volumes {
		rows = append(rows, volumeRow{
			Slot:      volume.Slot,
			ImportMW:  volume.Import,
			ExportMW:  volume.Export,
			NetMW:     volume.Net,
			Status:    string(volume.Status),
			UpdatedAt: volume.UpdatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

type recordRow struct {
	Slot             time.Time `json:"slot"`
	TotalProduction  float64   `json:"total_production"`
	TotalConsumption float64   `json:"total_consumption"`
	Imports          float64   `json:"imports"`
	Exports          float64   `json:"exports"`
	NetBalance       float64   `json:"net_balance"`
	Nuclear          float64   `json:"nuclear"`
	Coal             float64   `json:"coal"`
	Gas              float64   `json:"gas"`
	Wind             float64   `json:"wind"`
	Hydro            float64   `json:"hydro"`
	Solar            float64   `json:"solar"`
	Other            float64   `json:"other"`
	FlowDataComplete bool      `json:"flow_data_complete"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type volumeRow struct {
	Slot      time.Time `json:"slot"`
	ImportMW  float64   `json:"import_mw"`
	ExportMW  float64   `json:"export_mw"`
	NetMW     float64   `json:"net_mw"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type gapsResponse struct {
	Day      string   `json:"day"`
	Expected int      `json:"expected_slots"`
	Missing  []string `json:"missing"`
}

func toRecordRow(record *domain.Record) recordRow {
	return recordRow{
		Slot:             record.Timestamp,
		TotalProduction:  record.TotalProduction,
		TotalConsumption: record.TotalConsumption,
		Imports:          record.Imports,
		Exports:          record.Exports,
		NetBalance:       record.NetBalance,
		Nuclear:          record.Generation.Nuclear,
		Coal:             record.Generation.Coal,
		Gas:              record.Generation.Gas,
		Wind:             record.Generation.Wind,
		Hydro:            record.Generation.Hydro,
		Solar:            record.Generation.Solar,
		Other:            record.Generation.Other,
		FlowDataComplete: record.FlowDataComplete,
		UpdatedAt:        record.UpdatedAt,
	}
}

func listDayRecords(ctx context.Context, repo domain.Repository, day time.Time) ([]*domain.Record, error) {
	start := domain.DayStart(day)
	slots, err := repo.ListSlots(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	records := make([]*domain.Record, 0, len(slots))
	for _, slot := range slots {
		record, err := repo.Get(ctx, slot)
		if errors.Is(err, domain.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func parseDayQuery(r *http.Request) (time.Time, error) {
	value := r.URL.Query().Get("day")
	if value == "" {
		return time.Time{}, errors.New("day is required")
	}
	day, err := time.ParseInLocation(dayLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, errors.New("day must be YYYY-MM-DD")
	}
	return day, nil
}
