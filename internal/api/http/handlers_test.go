package apihttp

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"energy-balance/internal/audit"
	"energy-balance/internal/border"
	"energy-balance/internal/feed"
	"energy-balance/internal/interval/application"
	"energy-balance/internal/interval/domain"
	"energy-balance/internal/interval/infrastructure/memory"
	market "energy-balance/internal/market/application"
	marketmemory "energy-balance/internal/market/infrastructure/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type memoryAuditor struct {
	entries []audit.Entry
}

func (m *memoryAuditor) Log(_ context.Context, entry audit.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

type mapSource struct {
	snapshots map[time.Time]feed.Snapshot
}

func (s *mapSource) At(_ context.Context, slot time.Time) (feed.Snapshot, error) {
	snapshot, ok := s.snapshots[slot.UTC()]
	if !ok {
		return feed.Snapshot{}, feed.ErrUnavailable
	}
	return snapshot, nil
}

func seedRecord(t *testing.T, repo *memory.Repository, slot time.Time) *domain.Record {
	t.Helper()
	record, err := domain.NewRecord(slot, 6500, 7100, 188, 72, domain.GenerationMix{Nuclear: 1413}, true, slot.Add(time.Minute))
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if err := repo.Upsert(context.Background(), record); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return record
}

func newTestReconciler(t *testing.T, repo *memory.Repository) *application.Reconciler {
	t.Helper()
	clock := fixedClock{now: time.Date(2025, 8, 18, 23, 0, 0, 0, time.UTC)}
	reconciler, err := application.NewReconciler(repo, border.DefaultRoster(), clock, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("reconciler: %v", err)
	}
	return reconciler
}

func TestIntervalsHandler_ListsDay(t *testing.T) {
	repo := memory.NewRepository()
	slot := time.Date(2025, 8, 18, 16, 0, 0, 0, time.UTC)
	seedRecord(t, repo, slot)
	seedRecord(t, repo, slot.Add(15*time.Minute))

	handler := NewIntervalsHandler(repo)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/intervals?day=2025-08-18", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var rows []recordRow
	if err := json.Unmarshal(resp.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].NetBalance != -600 {
		t.Fatalf("expected net balance -600, got %v", rows[0].NetBalance)
	}
}

func TestIntervalsHandler_RequiresDay(t *testing.T) {
	handler := NewIntervalsHandler(memory.NewRepository())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/intervals", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGapsHandler_ReportsMissing(t *testing.T) {
	repo := memory.NewRepository()
	day := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)
	slots, err := domain.DaySlots(day)
	if err != nil {
		t.Fatalf("day slots: %v", err)
	}
	for _, slot := range slots {
		if slot.Hour() == 14 && slot.Minute() == 45 {
			continue
		}
		seedRecord(t, repo, slot)
	}

	handler := NewGapsHandler(newTestReconciler(t, repo))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/intervals/gaps?day=2025-08-18", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body gapsResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Missing) != 1 || body.Missing[0] != "2025-08-18T14:45:00Z" {
		t.Fatalf("unexpected missing %v", body.Missing)
	}
}

func TestRederiveHandler_AppliesAndAudits(t *testing.T) {
	repo := memory.NewRepository()
	reconciler := newTestReconciler(t, repo)
	auditor := &memoryAuditor{}

	slot := time.Date(2025, 8, 18, 16, 0, 0, 0, time.UTC)
	source := &mapSource{snapshots: map[time.Time]feed.Snapshot{
		slot: {
			Timestamp:        slot.Add(7 * time.Minute),
			TotalProduction:  6500,
			TotalConsumption: 7100,
			HasTotals:        true,
			Readings:         []border.Reading{{UnitID: "MUKA", Value: 188}},
		},
	}}

	handler, err := NewRederiveHandler(reconciler, source, auditor, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	body := `{"start":"2025-08-18T16:00:00Z","end":"2025-08-18T16:30:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intervals/rederive", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var report rederiveResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Applied != 1 || report.Rejected != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != audit.ActionRederiveRange {
		t.Fatalf("unexpected audit entries %+v", auditor.entries)
	}
}

func TestRederiveHandler_RejectsBadRange(t *testing.T) {
	repo := memory.NewRepository()
	handler, err := NewRederiveHandler(newTestReconciler(t, repo), &mapSource{}, nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	body := `{"start":"2025-08-18T16:00:00Z","end":"2025-08-18T15:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intervals/rederive", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestPurgeHandler_DeletesAndAudits(t *testing.T) {
	repo := memory.NewRepository()
	slot := time.Date(2025, 8, 18, 16, 0, 0, 0, time.UTC)
	seedRecord(t, repo, slot)
	auditor := &memoryAuditor{}

	handler, err := NewPurgeHandler(repo, auditor, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/intervals/20250818T1600", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if _, err := repo.Get(context.Background(), slot); err == nil {
		t.Fatal("expected record purged")
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != audit.ActionPurgeInterval {
		t.Fatalf("unexpected audit entries %+v", auditor.entries)
	}
}

func TestPurgeHandler_NotFound(t *testing.T) {
	handler, err := NewPurgeHandler(memory.NewRepository(), nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/intervals/20250818T1600", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestExportBalanceHandler_CSV(t *testing.T) {
	repo := memory.NewRepository()
	slot := time.Date(2025, 8, 18, 16, 0, 0, 0, time.UTC)
	record := seedRecord(t, repo, slot)

	marketRepo := marketmemory.NewRepository()
	projector, err := market.NewProjector(marketRepo, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("projector: %v", err)
	}
	if err := projector.ProjectRecord(context.Background(), record); err != nil {
		t.Fatalf("project: %v", err)
	}

	handler := NewExportBalanceHandler(repo, newTestReconciler(t, repo), projector, "csv")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/balance.csv?day=2025-08-18", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(resp.Body.String(), "2025-08-18T16:00:00Z") {
		t.Fatalf("expected slot row in csv, got %q", resp.Body.String())
	}
}
