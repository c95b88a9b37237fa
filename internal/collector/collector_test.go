package collector

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"energy-balance/internal/border"
	"energy-balance/internal/feed"
	"energy-balance/internal/interval/application"
	"energy-balance/internal/interval/infrastructure/memory"
	market "energy-balance/internal/market/application"
	marketmemory "energy-balance/internal/market/infrastructure/memory"
)

type stubSource struct {
	snapshot feed.Snapshot
	err      error
}

func (s *stubSource) Fetch(context.Context) (feed.Snapshot, error) {
	return s.snapshot, s.err
}

type memoryRawStore struct {
	saved [][]byte
}

func (m *memoryRawStore) Save(_ context.Context, _ time.Time, payload []byte) error {
	m.saved = append(m.saved, payload)
	return nil
}

func (m *memoryRawStore) Latest(context.Context, time.Time, time.Time) ([]byte, error) {
	return nil, errors.New("not implemented")
}

type memoryCycleLog struct {
	entries []Entry
}

func (m *memoryCycleLog) Record(_ context.Context, entry Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func liveSnapshot() feed.Snapshot {
	return feed.Snapshot{
		Timestamp:        time.Date(2025, 8, 18, 16, 7, 0, 0, time.UTC),
		TotalProduction:  6500,
		TotalConsumption: 7100,
		HasTotals:        true,
		Readings: []border.Reading{
			{UnitID: "MUKA", Value: 188},
			{UnitID: "DOBR", Value: -72},
		},
		Raw: []byte(`[{"PROD":"6,500"}]`),
	}
}

func newTestCollector(t *testing.T, source feed.LiveSource, rawStore *memoryRawStore, cycleLog *memoryCycleLog) (*Collector, *memory.Repository, *marketmemory.Repository) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	clock := fixedClock{now: time.Date(2025, 8, 18, 16, 8, 0, 0, time.UTC)}

	roster := border.DefaultRoster()
	repo := memory.NewRepository()
	reconciler, err := application.NewReconciler(repo, roster, clock, logger)
	if err != nil {
		t.Fatalf("reconciler: %v", err)
	}

	marketRepo := marketmemory.NewRepository()
	projector, err := market.NewProjector(marketRepo, logger)
	if err != nil {
		t.Fatalf("projector: %v", err)
	}

	c, err := NewCollector(source, reconciler, rawStore, projector, cycleLog, clock, logger)
	if err != nil {
		t.Fatalf("collector: %v", err)
	}
	return c, repo, marketRepo
}

func TestCollectOnce_AppliesAndLogs(t *testing.T) {
	rawStore := &memoryRawStore{}
	cycleLog := &memoryCycleLog{}
	c, repo, marketRepo := newTestCollector(t, &stubSource{snapshot: liveSnapshot()}, rawStore, cycleLog)

	result, err := c.CollectOnce(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !result.Applied {
		t.Fatalf("expected applied, got reason %q", result.Reason)
	}

	slot := time.Date(2025, 8, 18, 16, 0, 0, 0, time.UTC)
	if _, err := repo.Get(context.Background(), slot); err != nil {
		t.Fatalf("expected record persisted: %v", err)
	}
	volumes, err := marketRepo.ListDay(context.Background(), slot)
	if err != nil {
		t.Fatalf("list volumes: %v", err)
	}
	if len(volumes) != 1 {
		t.Fatalf("expected 1 projected volume, got %d", len(volumes))
	}
	if len(rawStore.saved) != 1 {
		t.Fatalf("expected 1 raw payload saved, got %d", len(rawStore.saved))
	}
	if len(cycleLog.entries) != 1 || !cycleLog.entries[0].Success || cycleLog.entries[0].RecordsSaved != 1 {
		t.Fatalf("unexpected cycle log %+v", cycleLog.entries)
	}
}

func TestCollectOnce_RejectionLoggedNotFatal(t *testing.T) {
	snapshot := liveSnapshot()
	snapshot.HasTotals = false
	rawStore := &memoryRawStore{}
	cycleLog := &memoryCycleLog{}
	c, repo, _ := newTestCollector(t, &stubSource{snapshot: snapshot}, rawStore, cycleLog)

	result, err := c.CollectOnce(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if result.Applied {
		t.Fatal("expected rejection")
	}

	// Raw payload is saved even for rejected cycles so they stay replayable.
	if len(rawStore.saved) != 1 {
		t.Fatalf("expected raw payload saved, got %d", len(rawStore.saved))
	}
	if len(cycleLog.entries) != 1 || cycleLog.entries[0].Success || cycleLog.entries[0].ErrorMessage == "" {
		t.Fatalf("unexpected cycle log %+v", cycleLog.entries)
	}

	slot := time.Date(2025, 8, 18, 16, 0, 0, 0, time.UTC)
	if _, err := repo.Get(context.Background(), slot); err == nil {
		t.Fatal("expected no record persisted")
	}
}

func TestCollectOnce_FetchErrorLogged(t *testing.T) {
	cycleLog := &memoryCycleLog{}
	c, _, _ := newTestCollector(t, &stubSource{err: errors.New("upstream down")}, &memoryRawStore{}, cycleLog)

	if _, err := c.CollectOnce(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if len(cycleLog.entries) != 1 || cycleLog.entries[0].Success {
		t.Fatalf("unexpected cycle log %+v", cycleLog.entries)
	}
}
