// Package memory provides an in-memory imbalance volume store for tests
// and local runs without Postgres.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	interval "energy-balance/internal/interval/domain"
	"energy-balance/internal/market/domain"
)

// Repository stores imbalance volumes keyed by canonical slot.
type Repository struct {
	mu      sync.RWMutex
	volumes map[time.Time]domain.ImbalanceVolume
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{volumes: make(map[time.Time]domain.ImbalanceVolume)}
}

// Upsert inserts or replaces the volume for its slot.
func (r *Repository) Upsert(_ context.Context, volume *domain.ImbalanceVolume) error {
	if volume == nil {
		return errors.New("market repo: nil volume")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.volumes[volume.Slot] = *volume
	return nil
}

// ListDay returns the day's volumes ordered by slot.
func (r *Repository) ListDay(_ context.Context, day time.Time) ([]domain.ImbalanceVolume, error) {
	start := interval.DayStart(day)
	end := start.AddDate(0, 0, 1)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var volumes []domain.ImbalanceVolume
	for slot, volume := range r.volumes {
		if slot.Before(start) || !slot.Before(end) {
			continue
		}
		volumes = append(volumes, volume)
	}
	sort.Slice(volumes, func(i, j int) bool { return volumes[i].Slot.Before(volumes[j].Slot) })
	return volumes, nil
}
