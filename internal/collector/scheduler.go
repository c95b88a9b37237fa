package collector

import (
	"context"
	"log"
	"time"
)

const defaultInterval = time.Minute

// Scheduler runs collection cycles on a fixed cadence. The upstream feed
// refreshes roughly once a minute; sub-slot samples land in the same
// canonical slot and the latest one wins.
type Scheduler struct {
	collector *Collector
	interval  time.Duration
	logger    *log.Logger
}

// NewScheduler constructs a scheduler. A non-positive interval falls back
// to the default cadence.
func NewScheduler(collector *Collector, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{collector: collector, interval: interval, logger: logger}
}

// Start begins the scheduler loop. It blocks until the context is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.collector == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.collector.CollectOnce(ctx); err != nil {
				s.logger.Printf("collector: cycle error: %v", err)
			}
		}
	}
}
