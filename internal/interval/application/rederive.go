package application

import (
	"context"
	"errors"
	"time"

	"energy-balance/internal/feed"
	"energy-balance/internal/interval/domain"
	"energy-balance/internal/observability/metrics"
)

// RederiveReport summarizes a bulk re-derivation run.
type RederiveReport struct {
	Applied  int
	Rejected int
}

// RederiveRange re-runs reconciliation for every canonical slot in
// [start, end), pulling inputs from the historical source. Slots the source
// reports unavailable count as rejected; the prior record, if any, stays
// untouched. Running the same range twice produces no net change the second
// time.
func (r *Reconciler) RederiveRange(ctx context.Context, source feed.HistoricalSource, start, end time.Time) (RederiveReport, error) {
	if source == nil {
		return RederiveReport{}, errors.New("reconciler: nil historical source")
	}
	first, err := domain.CanonicalSlot(start)
	if err != nil {
		return RederiveReport{}, err
	}
	last, err := domain.CanonicalSlot(end)
	if err != nil {
		return RederiveReport{}, err
	}

	var report RederiveReport
	for slot := first; slot.Before(last); slot = slot.Add(domain.SlotWidth) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		snapshot, err := source.At(ctx, slot)
		if errors.Is(err, feed.ErrUnavailable) {
			report.Rejected++
			continue
		}
		if err != nil {
			return report, err
		}

		result, err := r.Reconcile(ctx, InputFromSnapshot(snapshot))
		if err != nil {
			return report, err
		}
		if result.Applied {
			report.Applied++
		} else {
			report.Rejected++
			r.logger.Printf("interval: rederive rejected slot=%s reason=%s",
				slot.Format(time.RFC3339), result.Reason)
		}
	}

	metrics.ObserveRederive(report.Applied, report.Rejected)
	return report, nil
}
