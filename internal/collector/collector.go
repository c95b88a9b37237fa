// Package collector drives live feed collection: fetch a snapshot, persist
// the raw payload, reconcile it into the interval store and project the
// market volume, logging every cycle whether it applied or not.
package collector

import (
	"context"
	"errors"
	"log"
	"time"

	"energy-balance/internal/feed"
	"energy-balance/internal/feed/replay"
	"energy-balance/internal/interval/application"
	market "energy-balance/internal/market/application"
	"energy-balance/internal/observability/metrics"
)

// CycleTypeLive marks entries produced by the scheduled live collector.
const CycleTypeLive = "live"

// Entry is one collection cycle's outcome for the collection log.
type Entry struct {
	CycleType    string
	StartedAt    time.Time
	CompletedAt  time.Time
	RecordsSaved int
	Success      bool
	ErrorMessage string
}

// CycleLog persists collection cycle outcomes.
type CycleLog interface {
	Record(ctx context.Context, entry Entry) error
}

// Collector runs live collection cycles.
type Collector struct {
	source     feed.LiveSource
	reconciler *application.Reconciler
	rawStore   replay.RawStore
	projector  *market.Projector
	cycleLog   CycleLog
	clock      application.Clock
	logger     *log.Logger
}

// NewCollector constructs a collector. rawStore, projector and cycleLog are
// optional; a nil value skips that side effect.
func NewCollector(
	source feed.LiveSource,
	reconciler *application.Reconciler,
	rawStore replay.RawStore,
	projector *market.Projector,
	cycleLog CycleLog,
	clock application.Clock,
	logger *log.Logger,
) (*Collector, error) {
	if source == nil {
		return nil, errors.New("collector: nil source")
	}
	if reconciler == nil {
		return nil, errors.New("collector: nil reconciler")
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Collector{
		source:     source,
		reconciler: reconciler,
		rawStore:   rawStore,
		projector:  projector,
		cycleLog:   cycleLog,
		clock:      clock,
		logger:     logger,
	}, nil
}

// CollectOnce runs a single cycle and returns the reconciliation result.
// The raw payload is persisted before reconciliation so rejected cycles
// stay replayable once the defect that rejected them is fixed.
func (c *Collector) CollectOnce(ctx context.Context) (application.Result, error) {
	startedAt := c.clock.Now().UTC()
	result, err := c.collect(ctx)
	completedAt := c.clock.Now().UTC()

	entry := Entry{
		CycleType:   CycleTypeLive,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Success:     err == nil && result.Applied,
	}
	if result.Applied {
		entry.RecordsSaved = 1
	}
	switch {
	case err != nil:
		entry.ErrorMessage = err.Error()
	case !result.Applied:
		entry.ErrorMessage = string(result.Reason)
	}

	if c.cycleLog != nil {
		if logErr := c.cycleLog.Record(ctx, entry); logErr != nil {
			c.logger.Printf("collector: cycle log write failed: %v", logErr)
		}
	}

	outcome := metrics.ResultSuccess
	if err != nil || !result.Applied {
		outcome = metrics.ResultError
	}
	metrics.ObserveCollectionCycle(outcome, completedAt.Sub(startedAt))
	return result, err
}

func (c *Collector) collect(ctx context.Context) (application.Result, error) {
	snapshot, err := c.source.Fetch(ctx)
	if err != nil {
		return application.Result{}, err
	}

	if c.rawStore != nil && len(snapshot.Raw) > 0 {
		if err := c.rawStore.Save(ctx, snapshot.Timestamp, snapshot.Raw); err != nil {
			c.logger.Printf("collector: raw payload save failed: %v", err)
		}
	}

	result, err := c.reconciler.Reconcile(ctx, application.InputFromSnapshot(snapshot))
	if err != nil {
		return result, err
	}
	if !result.Applied {
		c.logger.Printf("collector: cycle rejected: %s", result.Reason)
		return result, nil
	}

	if c.projector != nil {
		if err := c.projector.ProjectRecord(ctx, result.Record); err != nil {
			c.logger.Printf("collector: market projection failed: %v", err)
		}
	}
	return result, nil
}
