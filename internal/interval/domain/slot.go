package domain

import "time"

// SlotWidth is the fixed interval width of the canonical grid.
const SlotWidth = 15 * time.Minute

// SlotsPerDay is the fixed number of canonical slots per calendar day.
const SlotsPerDay = 96

// SlotKey is the persisted representation of a canonical slot boundary.
// It is the natural key of an interval record.
type SlotKey string

const slotKeyLayout = "20060102T1504"

// CanonicalSlot truncates a raw timestamp to the 15-minute boundary at or
// before it, in UTC. Two raw readings whose truncated timestamps coincide
// are the same logical interval regardless of sub-slot differences.
func CanonicalSlot(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrMalformedTimestamp
	}
	t = t.UTC()
	minute := t.Minute() - t.Minute()%15
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, time.UTC), nil
}

// NewSlotKey builds the storage key for a canonical slot.
func NewSlotKey(slot time.Time) (SlotKey, error) {
	canonical, err := CanonicalSlot(slot)
	if err != nil {
		return "", err
	}
	return SlotKey(canonical.Format(slotKeyLayout)), nil
}

// String returns the raw key for storage.
func (k SlotKey) String() string { return string(k) }

// DayStart truncates a timestamp to its UTC calendar day boundary.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaySlots returns the full expected slot set for a calendar day:
// every 15 minutes from 00:00 to 23:45 inclusive.
func DaySlots(day time.Time) ([]time.Time, error) {
	if day.IsZero() {
		return nil, ErrInvalidDay
	}
	start := DayStart(day)
	slots := make([]time.Time, 0, SlotsPerDay)
	for i := 0; i < SlotsPerDay; i++ {
		slots = append(slots, start.Add(time.Duration(i)*SlotWidth))
	}
	return slots, nil
}
