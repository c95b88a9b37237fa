package domain

import (
	"testing"
	"time"

	interval "energy-balance/internal/interval/domain"
)

func TestNewImbalanceVolume_Status(t *testing.T) {
	slot := time.Date(2025, 8, 18, 16, 0, 0, 0, time.UTC)
	now := time.Date(2025, 8, 18, 16, 1, 0, 0, time.UTC)

	cases := []struct {
		name       string
		importMW   float64
		exportMW   float64
		wantNet    float64
		wantStatus BalanceStatus
	}{
		{"surplus", 188, 72, 116, StatusSurplus},
		{"deficit", 40, 150, -110, StatusDeficit},
		{"balanced", 90, 90, 0, StatusBalanced},
		{"inside band", 92, 90, 2, StatusBalanced},
		{"band edge", 95, 90, 5, StatusSurplus},
		{"negative band edge", 90, 95, -5, StatusDeficit},
		{"isolated", 0, 0, 0, StatusBalanced},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			volume, err := NewImbalanceVolume(slot, tc.importMW, tc.exportMW, now)
			if err != nil {
				t.Fatalf("new volume: %v", err)
			}
			if volume.Net != tc.wantNet {
				t.Fatalf("net: got %v, want %v", volume.Net, tc.wantNet)
			}
			if volume.Status != tc.wantStatus {
				t.Fatalf("status: got %v, want %v", volume.Status, tc.wantStatus)
			}
		})
	}
}

func TestNewImbalanceVolume_CanonicalizesSlot(t *testing.T) {
	raw := time.Date(2025, 8, 18, 16, 11, 42, 0, time.UTC)
	volume, err := NewImbalanceVolume(raw, 10, 5, raw)
	if err != nil {
		t.Fatalf("new volume: %v", err)
	}
	want := time.Date(2025, 8, 18, 16, 0, 0, 0, time.UTC)
	if !volume.Slot.Equal(want) {
		t.Fatalf("slot: got %v, want %v", volume.Slot, want)
	}
}

func TestNewImbalanceVolume_RejectsNegative(t *testing.T) {
	slot := time.Date(2025, 8, 18, 16, 0, 0, 0, time.UTC)
	if _, err := NewImbalanceVolume(slot, -1, 0, slot); err != ErrNegativeVolume {
		t.Fatalf("expected ErrNegativeVolume, got %v", err)
	}
	if _, err := NewImbalanceVolume(slot, 0, -1, slot); err != ErrNegativeVolume {
		t.Fatalf("expected ErrNegativeVolume, got %v", err)
	}
}

func TestFromRecord(t *testing.T) {
	record, err := interval.NewRecord(
		time.Date(2025, 8, 18, 16, 7, 0, 0, time.UTC),
		6500, 7100, 188, 72,
		interval.GenerationMix{},
		true,
		time.Date(2025, 8, 18, 16, 8, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	volume, err := FromRecord(record)
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	if volume.Net != 116 || volume.Status != StatusSurplus {
		t.Fatalf("unexpected volume %+v", volume)
	}
	if _, err := FromRecord(nil); err == nil {
		t.Fatal("expected error for nil record")
	}
}
