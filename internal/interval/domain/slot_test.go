package domain

import (
	"testing"
	"time"
)

func TestCanonicalSlot_TruncatesToQuarter(t *testing.T) {
	cases := []struct {
		raw  time.Time
		want time.Time
	}{
		{
			raw:  time.Date(2025, 8, 18, 13, 58, 22, 0, time.UTC),
			want: time.Date(2025, 8, 18, 13, 45, 0, 0, time.UTC),
		},
		{
			raw:  time.Date(2025, 8, 18, 14, 0, 0, 0, time.UTC),
			want: time.Date(2025, 8, 18, 14, 0, 0, 0, time.UTC),
		},
		{
			raw:  time.Date(2025, 8, 18, 14, 14, 59, 999, time.UTC),
			want: time.Date(2025, 8, 18, 14, 0, 0, 0, time.UTC),
		},
		{
			raw:  time.Date(2025, 8, 18, 23, 59, 59, 0, time.UTC),
			want: time.Date(2025, 8, 18, 23, 45, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		got, err := CanonicalSlot(tc.raw)
		if err != nil {
			t.Fatalf("canonical slot %v: %v", tc.raw, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("canonical slot %v: got %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestCanonicalSlot_NormalizesZone(t *testing.T) {
	bucharest := time.FixedZone("EET", 2*60*60)
	raw := time.Date(2025, 8, 18, 16, 7, 0, 0, bucharest)
	got, err := CanonicalSlot(raw)
	if err != nil {
		t.Fatalf("canonical slot: %v", err)
	}
	want := time.Date(2025, 8, 18, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCanonicalSlot_ZeroTimeRejected(t *testing.T) {
	if _, err := CanonicalSlot(time.Time{}); err != ErrMalformedTimestamp {
		t.Fatalf("expected ErrMalformedTimestamp, got %v", err)
	}
}

func TestNewSlotKey(t *testing.T) {
	key, err := NewSlotKey(time.Date(2025, 8, 18, 14, 58, 3, 0, time.UTC))
	if err != nil {
		t.Fatalf("new slot key: %v", err)
	}
	if key.String() != "20250818T1445" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestDaySlots(t *testing.T) {
	day := time.Date(2025, 8, 18, 9, 30, 0, 0, time.UTC)
	slots, err := DaySlots(day)
	if err != nil {
		t.Fatalf("day slots: %v", err)
	}
	if len(slots) != SlotsPerDay {
		t.Fatalf("expected %d slots, got %d", SlotsPerDay, len(slots))
	}
	if !slots[0].Equal(time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first slot %v", slots[0])
	}
	if !slots[95].Equal(time.Date(2025, 8, 18, 23, 45, 0, 0, time.UTC)) {
		t.Fatalf("unexpected last slot %v", slots[95])
	}
}
