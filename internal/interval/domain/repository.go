package domain

import (
	"context"
	"time"
)

// DuplicateConflict describes two or more persisted rows that map to the
// same canonical slot. New writes cannot produce this, but legacy rows keyed
// by raw timestamps can; resolution keeps the most-recently-updated row.
type DuplicateConflict struct {
	Slot  time.Time
	Count int
}

// Repository is the durable store port, keyed by canonical slot.
type Repository interface {
	// Get loads the record for a canonical slot; ErrRecordNotFound when absent.
	Get(ctx context.Context, slot time.Time) (*Record, error)
	// Upsert inserts or replaces the record for its canonical slot.
	Upsert(ctx context.Context, record *Record) error
	// ListSlots returns the canonical slots persisted in [start, end), ordered.
	ListSlots(ctx context.Context, startInclusive, endExclusive time.Time) ([]time.Time, error)
	// Delete removes the record for a slot. Administrative only.
	Delete(ctx context.Context, slot time.Time) error
	// FindDuplicateSlots scans for slots holding more than one row.
	FindDuplicateSlots(ctx context.Context) ([]DuplicateConflict, error)
	// ResolveDuplicate drops all rows for the slot except the most recently
	// updated one and returns how many rows were removed.
	ResolveDuplicate(ctx context.Context, slot time.Time) (int, error)
}
