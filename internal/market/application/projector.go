package application

import (
	"context"
	"errors"
	"log"
	"time"

	interval "energy-balance/internal/interval/domain"
	"energy-balance/internal/market/domain"
)

// Repository persists imbalance volumes per slot.
type Repository interface {
	Upsert(ctx context.Context, volume *domain.ImbalanceVolume) error
	ListDay(ctx context.Context, day time.Time) ([]domain.ImbalanceVolume, error)
}

// Projector keeps the imbalance volume projection in step with applied
// interval records. It runs after every successful reconciliation; the
// projection is derived data and can always be rebuilt from the records.
type Projector struct {
	repo   Repository
	logger *log.Logger
}

// NewProjector constructs a projector.
func NewProjector(repo Repository, logger *log.Logger) (*Projector, error) {
	if repo == nil {
		return nil, errors.New("market projector: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Projector{repo: repo, logger: logger}, nil
}

// ProjectRecord derives and upserts the volume for an applied record.
func (p *Projector) ProjectRecord(ctx context.Context, record *interval.Record) error {
	volume, err := domain.FromRecord(record)
	if err != nil {
		return err
	}
	if err := p.repo.Upsert(ctx, volume); err != nil {
		return err
	}
	p.logger.Printf("market: projected slot=%s net=%.1f status=%s",
		volume.Slot.Format(time.RFC3339), volume.Net, volume.Status)
	return nil
}

// ListDay returns the day's volumes ordered by slot.
func (p *Projector) ListDay(ctx context.Context, day time.Time) ([]domain.ImbalanceVolume, error) {
	return p.repo.ListDay(ctx, day)
}
