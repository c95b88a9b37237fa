package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"energy-balance/internal/border"
	"energy-balance/internal/feed"
	"energy-balance/internal/interval/domain"
	"energy-balance/internal/observability/metrics"
)

// Clock provides time for the reconciler.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// RejectReason identifies why an interval's raw inputs were not applied.
type RejectReason string

const (
	ReasonMalformedTimestamp RejectReason = "malformed_timestamp"
	ReasonNegativeTotals     RejectReason = "negative_totals"
	ReasonMissingTotals      RejectReason = "missing_totals"
	ReasonSourceUnavailable  RejectReason = "source_unavailable"
)

// Input is one interval's worth of raw inputs.
type Input struct {
	Timestamp        time.Time
	TotalProduction  float64
	TotalConsumption float64
	HasTotals        bool
	Readings         []border.Reading
	Generation       domain.GenerationMix
}

// InputFromSnapshot adapts a feed snapshot to reconciler input.
func InputFromSnapshot(s feed.Snapshot) Input {
	return Input{
		Timestamp:        s.Timestamp,
		TotalProduction:  s.TotalProduction,
		TotalConsumption: s.TotalConsumption,
		HasTotals:        s.HasTotals,
		Readings:         s.Readings,
		Generation:       s.Generation,
	}
}

// Result reports the outcome of one reconciliation.
type Result struct {
	Applied bool
	Reason  RejectReason
	Record  *domain.Record
}

// Reconciler drives classification, aggregation, balance calculation and
// slot resolution over a batch of raw readings. It applies the same
// calculation rules regardless of whether data came from the live path or
// the historical path, which is what keeps re-derivation safe to re-run.
type Reconciler struct {
	repo   domain.Repository
	roster border.Roster
	clock  Clock
	logger *log.Logger

	locks slotLocks
}

// NewReconciler constructs a reconciler.
func NewReconciler(repo domain.Repository, roster border.Roster, clock Clock, logger *log.Logger) (*Reconciler, error) {
	if repo == nil {
		return nil, errors.New("reconciler: nil repository")
	}
	if roster.Size() == 0 {
		return nil, border.ErrEmptyRoster
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		repo:   repo,
		roster: roster,
		clock:  clock,
		logger: logger,
	}, nil
}

// Reconcile runs the full pipeline for one interval and either applies the
// resulting record or rejects the input with a reason. A rejection never
// mutates stored state. Store errors propagate; the engine does not retry.
func (r *Reconciler) Reconcile(ctx context.Context, input Input) (Result, error) {
	start := time.Now()

	slot, err := domain.CanonicalSlot(input.Timestamp)
	if err != nil {
		metrics.ObserveReconcile(string(ReasonMalformedTimestamp), time.Since(start))
		return Result{Reason: ReasonMalformedTimestamp}, nil
	}
	if !input.HasTotals {
		metrics.ObserveReconcile(string(ReasonMissingTotals), time.Since(start))
		return Result{Reason: ReasonMissingTotals}, nil
	}
	if input.TotalProduction < 0 || input.TotalConsumption < 0 {
		metrics.ObserveReconcile(string(ReasonNegativeTotals), time.Since(start))
		return Result{Reason: ReasonNegativeTotals}, nil
	}

	contributions := border.ClassifyAll(input.Readings, r.roster)
	flows := border.Aggregate(contributions)
	flowDataComplete := len(contributions) > 0

	candidate, err := domain.NewRecord(
		input.Timestamp,
		input.TotalProduction,
		input.TotalConsumption,
		flows.Imports,
		flows.Exports,
		input.Generation,
		flowDataComplete,
		r.clock.Now(),
	)
	if err != nil {
		return Result{}, err
	}

	// Serialize the read-modify-write per canonical slot: a live-path
	// reconciliation and a historical re-derivation touching the same slot
	// must not interleave, or last-writer-wins breaks.
	unlock := r.locks.lock(slot)
	defer unlock()

	existing, err := r.repo.Get(ctx, slot)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		metrics.ObserveReconcile(metrics.ResultError, time.Since(start))
		return Result{}, err
	}
	if existing != nil && existing.UpdatedAt.After(candidate.UpdatedAt) {
		// A concurrent writer already produced a newer record; it wins.
		metrics.ObserveReconcile(metrics.ResultSuccess, time.Since(start))
		return Result{Applied: true, Record: existing}, nil
	}

	if err := r.repo.Upsert(ctx, candidate); err != nil {
		metrics.ObserveReconcile(metrics.ResultError, time.Since(start))
		return Result{}, err
	}
	metrics.ObserveReconcile(metrics.ResultSuccess, time.Since(start))
	return Result{Applied: true, Record: candidate}, nil
}

// FindGaps reports the expected slots of the day with no persisted record.
func (r *Reconciler) FindGaps(ctx context.Context, day time.Time) ([]time.Time, error) {
	dayStart := domain.DayStart(day)
	present, err := r.repo.ListSlots(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	gaps, err := domain.FindGaps(day, present)
	if err != nil {
		return nil, err
	}
	metrics.ObserveGapScan(len(gaps))
	return gaps, nil
}

// SweepDuplicates resolves persisted rows that map to the same canonical
// slot, keeping the most-recently-updated row. Conflicts are
// logged as anomalies for operator visibility, never escalated.
func (r *Reconciler) SweepDuplicates(ctx context.Context) (int, error) {
	conflicts, err := r.repo.FindDuplicateSlots(ctx)
	if err != nil {
		return 0, err
	}
	dropped := 0
	for _, conflict := range conflicts {
		unlock := r.locks.lock(conflict.Slot)
		removed, err := r.repo.ResolveDuplicate(ctx, conflict.Slot)
		unlock()
		if err != nil {
			return dropped, err
		}
		dropped += removed
		metrics.IncDuplicateConflict()
		r.logger.Printf("interval: duplicate slot conflict resolved slot=%s rows_dropped=%d",
			conflict.Slot.Format(time.RFC3339), removed)
	}
	return dropped, nil
}

// slotLocks serializes access per canonical slot key. Entries are
// refcounted and evicted on the final unlock, so a long rederive over
// months of history does not accumulate one mutex per slot forever.
type slotLocks struct {
	mu    sync.Mutex
	slots map[string]*slotLock
}

type slotLock struct {
	mu   sync.Mutex
	refs int
}

func (l *slotLocks) lock(slot time.Time) func() {
	key := slot.UTC().Format("20060102T1504")
	l.mu.Lock()
	if l.slots == nil {
		l.slots = make(map[string]*slotLock)
	}
	entry, ok := l.slots[key]
	if !ok {
		entry = &slotLock{}
		l.slots[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.slots, key)
		}
		l.mu.Unlock()
	}
}
