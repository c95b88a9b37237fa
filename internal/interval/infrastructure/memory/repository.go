package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"energy-balance/internal/interval/domain"
)

// Repository is an in-memory interval store for demo/testing. Rows are held
// per canonical slot; InsertRaw can seed unresolved duplicate rows the way
// legacy data could, so the duplicate sweep is testable.
type Repository struct {
	mu   sync.RWMutex
	rows map[domain.SlotKey][]*domain.Record
}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{rows: make(map[domain.SlotKey][]*domain.Record)}
}

// Get loads the record for a canonical slot.
func (r *Repository) Get(ctx context.Context, slot time.Time) (*domain.Record, error) {
	_ = ctx
	key, err := domain.NewSlotKey(slot)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.rows[key]
	if len(rows) == 0 {
		return nil, domain.ErrRecordNotFound
	}
	return latestOf(rows), nil
}

// Upsert replaces the slot's rows with the given record.
func (r *Repository) Upsert(ctx context.Context, record *domain.Record) error {
	_ = ctx
	if record == nil {
		return errors.New("memory interval repo: nil record")
	}
	key, err := record.SlotKey()
	if err != nil {
		return err
	}

	copied := *record
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[key] = []*domain.Record{&copied}
	return nil
}

// InsertRaw appends a row without slot resolution. Test seam only.
func (r *Repository) InsertRaw(record *domain.Record) error {
	if record == nil {
		return errors.New("memory interval repo: nil record")
	}
	key, err := record.SlotKey()
	if err != nil {
		return err
	}
	copied := *record
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[key] = append(r.rows[key], &copied)
	return nil
}

// ListSlots returns the canonical slots persisted in [start, end), ordered.
func (r *Repository) ListSlots(ctx context.Context, startInclusive, endExclusive time.Time) ([]time.Time, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var slots []time.Time
	for _, rows := range r.rows {
		if len(rows) == 0 {
			continue
		}
		slot := rows[0].Timestamp
		if slot.Before(startInclusive) || !slot.Before(endExclusive) {
			continue
		}
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots, nil
}

// Delete removes the record for a slot.
func (r *Repository) Delete(ctx context.Context, slot time.Time) error {
	_ = ctx
	key, err := domain.NewSlotKey(slot)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[key]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(r.rows, key)
	return nil
}

// FindDuplicateSlots scans for slots holding more than one row.
func (r *Repository) FindDuplicateSlots(ctx context.Context) ([]domain.DuplicateConflict, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conflicts []domain.DuplicateConflict
	for _, rows := range r.rows {
		if len(rows) > 1 {
			conflicts = append(conflicts, domain.DuplicateConflict{
				Slot:  rows[0].Timestamp,
				Count: len(rows),
			})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Slot.Before(conflicts[j].Slot) })
	return conflicts, nil
}

// ResolveDuplicate keeps the most-recently-updated row for the slot.
func (r *Repository) ResolveDuplicate(ctx context.Context, slot time.Time) (int, error) {
	_ = ctx
	key, err := domain.NewSlotKey(slot)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.rows[key]
	if len(rows) <= 1 {
		return 0, nil
	}
	winner := latestOf(rows)
	r.rows[key] = []*domain.Record{winner}
	return len(rows) - 1, nil
}

func latestOf(rows []*domain.Record) *domain.Record {
	latest := rows[0]
	for _, row := range rows[1:] {
		if row.UpdatedAt.After(latest.UpdatedAt) {
			latest = row
		}
	}
	return latest
}
