package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	interval "energy-balance/internal/interval/domain"
	"energy-balance/internal/market/domain"
)

const defaultVolumesTable = "imbalance_volumes"

// Repository persists imbalance volumes, one row per canonical slot.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository creates a repository using the default table name.
func NewRepository(db *sql.DB, opts ...RepositoryOption) *Repository {
	repo := &Repository{db: db, table: defaultVolumesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*Repository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *Repository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Upsert inserts or replaces the volume for its slot.
func (r *Repository) Upsert(ctx context.Context, volume *domain.ImbalanceVolume) error {
	if volume == nil {
		return errors.New("market repo: nil volume")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (slot, import_mw, export_mw, net_mw, status, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (slot)
DO UPDATE SET
	import_mw = EXCLUDED.import_mw,
	export_mw = EXCLUDED.export_mw,
	net_mw = EXCLUDED.net_mw,
	status = EXCLUDED.status,
	updated_at = EXCLUDED.updated_at`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		volume.Slot,
		volume.Import,
		volume.Export,
		volume.Net,
		string(volume.Status),
		volume.UpdatedAt,
	)
	return err
}

// ListDay returns the day's volumes ordered by slot.
func (r *Repository) ListDay(ctx context.Context, day time.Time) ([]domain.ImbalanceVolume, error) {
	start := interval.DayStart(day)
	end := start.AddDate(0, 0, 1)

	query := fmt.Sprintf(`
SELECT slot, import_mw, export_mw, net_mw, status, updated_at
FROM %s
WHERE slot >= $1 AND slot < $2
ORDER BY slot ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var volumes []domain.ImbalanceVolume
	for rows.Next() {
		var volume domain.ImbalanceVolume
		var status string
		if err := rows.Scan(&volume.Slot, &volume.Import, &volume.Export, &volume.Net, &status, &volume.UpdatedAt); err != nil {
			return nil, err
		}
		volume.Slot = volume.Slot.UTC()
		volume.UpdatedAt = volume.UpdatedAt.UTC()
		volume.Status = domain.BalanceStatus(status)
		volumes = append(volumes, volume)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return volumes, nil
}
