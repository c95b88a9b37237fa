// Package replay serves historical feed snapshots from the raw payloads
// persisted at collection time. Re-derivation replays the exact bytes the
// live collector saw, so a fixed parser or classifier produces corrected
// records without needing the upstream to still hold the data.
package replay

import (
	"context"
	"errors"
	"time"

	"energy-balance/internal/feed"
	"energy-balance/internal/interval/domain"
)

// RawStore persists and retrieves raw feed payloads keyed by capture time.
type RawStore interface {
	// Save persists a raw payload captured at the given time.
	Save(ctx context.Context, capturedAt time.Time, payload []byte) error
	// Latest returns the most recently captured payload in
	// [startInclusive, endExclusive), or domain.ErrRecordNotFound.
	Latest(ctx context.Context, startInclusive, endExclusive time.Time) ([]byte, error)
}

// ParseFunc turns a stored raw payload back into a snapshot.
type ParseFunc func(raw []byte) (feed.Snapshot, error)

// Source replays stored raw payloads as a feed.HistoricalSource.
type Source struct {
	store RawStore
	parse ParseFunc
}

// NewSource constructs a replay source.
func NewSource(store RawStore, parse ParseFunc) (*Source, error) {
	if store == nil {
		return nil, errors.New("replay: nil store")
	}
	if parse == nil {
		return nil, errors.New("replay: nil parse func")
	}
	return &Source{store: store, parse: parse}, nil
}

// At returns the snapshot for a slot by replaying the latest raw payload
// captured inside it. Slots with no stored payload report
// feed.ErrUnavailable; re-derivation counts them as rejected and moves on.
func (s *Source) At(ctx context.Context, slot time.Time) (feed.Snapshot, error) {
	canonical, err := domain.CanonicalSlot(slot)
	if err != nil {
		return feed.Snapshot{}, err
	}

	payload, err := s.store.Latest(ctx, canonical, canonical.Add(domain.SlotWidth))
	if errors.Is(err, domain.ErrRecordNotFound) {
		return feed.Snapshot{}, feed.ErrUnavailable
	}
	if err != nil {
		return feed.Snapshot{}, err
	}

	return s.parse(payload)
}
