// Package feed defines the reading-source ports the engine consumes.
// Fetching, retries and timeouts belong to the concrete clients; the engine
// only sees snapshots.
package feed

import (
	"context"
	"errors"
	"time"

	"energy-balance/internal/border"
	"energy-balance/internal/interval/domain"
)

// ErrUnavailable is returned by a historical source for slots whose upstream
// retention window has expired. It is a legitimate outcome, not a fault.
var ErrUnavailable = errors.New("feed: data unavailable")

// Snapshot is one interval's worth of raw inputs as delivered by a source.
// Readings may include unit identifiers outside the recognized roster; the
// classifier filters them.
type Snapshot struct {
	Timestamp        time.Time
	TotalProduction  float64
	TotalConsumption float64
	// HasTotals is false when the feed omitted production/consumption.
	// The engine rejects such snapshots rather than storing fabricated zeros.
	HasTotals bool

	Readings   []border.Reading
	Generation domain.GenerationMix

	// Raw is the original upstream payload, persisted so historical
	// re-derivation can replay it.
	Raw []byte
}

// LiveSource provides the current snapshot on demand.
type LiveSource interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// HistoricalSource provides the snapshot for a past canonical slot when
// available; ErrUnavailable otherwise.
type HistoricalSource interface {
	At(ctx context.Context, slot time.Time) (Snapshot, error)
}
