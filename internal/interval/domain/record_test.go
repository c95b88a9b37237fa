package domain

import (
	"testing"
	"time"
)

func TestNewRecord_ComputesNetBalance(t *testing.T) {
	now := time.Now().UTC()
	record, err := NewRecord(
		time.Date(2025, 8, 18, 14, 3, 0, 0, time.UTC),
		6500, 7100, 188, 72, GenerationMix{}, true, now,
	)
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if record.NetBalance != -600 {
		t.Fatalf("expected net balance -600, got %v", record.NetBalance)
	}
	if !record.Timestamp.Equal(time.Date(2025, 8, 18, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp not canonicalized: %v", record.Timestamp)
	}
}

func TestNewRecord_RejectsNegativeTotals(t *testing.T) {
	now := time.Now().UTC()
	if _, err := NewRecord(now, -5, 100, 0, 0, GenerationMix{}, false, now); err != ErrNegativeTotal {
		t.Fatalf("expected ErrNegativeTotal, got %v", err)
	}
	if _, err := NewRecord(now, 100, -5, 0, 0, GenerationMix{}, false, now); err != ErrNegativeTotal {
		t.Fatalf("expected ErrNegativeTotal, got %v", err)
	}
}

func TestNewRecord_RejectsNegativeFlows(t *testing.T) {
	now := time.Now().UTC()
	if _, err := NewRecord(now, 100, 100, -1, 0, GenerationMix{}, false, now); err != ErrNegativeFlow {
		t.Fatalf("expected ErrNegativeFlow, got %v", err)
	}
}

func TestGenerationMix_DerivedOther(t *testing.T) {
	mix := GenerationMix{Nuclear: 1400, Hydro: 2000, Wind: 500}
	derived := mix.WithDerivedOther(4500)
	if derived.Other != 600 {
		t.Fatalf("expected other 600, got %v", derived.Other)
	}

	// Named sources exceeding total production floor at zero.
	derived = mix.WithDerivedOther(3000)
	if derived.Other != 0 {
		t.Fatalf("expected other 0, got %v", derived.Other)
	}
}

func TestRecord_SameValuesIgnoresUpdatedAt(t *testing.T) {
	ts := time.Date(2025, 8, 18, 10, 15, 0, 0, time.UTC)
	a, err := NewRecord(ts, 100, 90, 5, 3, GenerationMix{Wind: 40}, true, ts)
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	b, err := NewRecord(ts, 100, 90, 5, 3, GenerationMix{Wind: 40}, true, ts.Add(time.Hour))
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if !a.SameValues(b) {
		t.Fatal("records with identical inputs must have equal values")
	}

	b.Imports = 6
	if a.SameValues(b) {
		t.Fatal("differing imports must not compare equal")
	}
}
