package domain

import "time"

// FindGaps computes the ordered set of expected slots for the day that have
// no persisted record: expected minus present. Purely read-only; backfill
// is an external, best-effort operation that may legitimately fail for slots
// whose source window has passed.
func FindGaps(day time.Time, present []time.Time) ([]time.Time, error) {
	expected, err := DaySlots(day)
	if err != nil {
		return nil, err
	}

	have := make(map[time.Time]struct{}, len(present))
	for _, t := range present {
		slot, err := CanonicalSlot(t)
		if err != nil {
			continue
		}
		have[slot] = struct{}{}
	}

	missing := make([]time.Time, 0)
	for _, slot := range expected {
		if _, ok := have[slot]; !ok {
			missing = append(missing, slot)
		}
	}
	return missing, nil
}
