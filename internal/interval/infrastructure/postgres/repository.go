package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"energy-balance/internal/interval/domain"
)

const defaultIntervalTable = "interval_records"

// Repository is the Postgres interval store. Rows are keyed by timestamp;
// new writes always use the canonical slot boundary, but the table may hold
// legacy rows persisted at raw timestamps, so the duplicate scan groups rows
// by their 15-minute bucket instead of trusting the stored key.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository creates a repository using the default table name.
func NewRepository(db *sql.DB, opts ...RepositoryOption) *Repository {
	repo := &Repository{db: db, table: defaultIntervalTable}
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

// Get loads the record for a canonical slot. When legacy duplicates exist
// in the slot's bucket, the most recently updated row is returned.
func (r *Repository) Get(ctx context.Context, slot time.Time) (*domain.Record, error) {
	canonical, err := domain.CanonicalSlot(slot)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT
	timestamp,
	total_production,
	total_consumption,
	imports,
	exports,
	net_balance,
	nuclear, coal, gas, wind, hydro, solar, other,
	flow_data_complete,
	updated_at
FROM %s
WHERE timestamp >= $1 AND timestamp < $2
ORDER BY updated_at DESC
LIMIT 1`, r.table)

	row := r.db.QueryRowContext(ctx, query, canonical, canonical.Add(domain.SlotWidth))
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Upsert inserts or replaces the record for its canonical slot.
func (r *Repository) Upsert(ctx context.Context, record *domain.Record) error {
	if record == nil {
		return errors.New("interval repo: nil record")
	}
	canonical, err := domain.CanonicalSlot(record.Timestamp)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	timestamp,
	total_production,
	total_consumption,
	imports,
	exports,
	net_balance,
	nuclear, coal, gas, wind, hydro, solar, other,
	flow_data_complete,
	updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
)
ON CONFLICT (timestamp)
DO UPDATE SET
	total_production = EXCLUDED.total_production,
	total_consumption = EXCLUDED.total_consumption,
	imports = EXCLUDED.imports,
	exports = EXCLUDED.exports,
	net_balance = EXCLUDED.net_balance,
	nuclear = EXCLUDED.nuclear,
	coal = EXCLUDED.coal,
	gas = EXCLUDED.gas,
	wind = EXCLUDED.wind,
	hydro = EXCLUDED.hydro,
	solar = EXCLUDED.solar,
	other = EXCLUDED.other,
	flow_data_complete = EXCLUDED.flow_data_complete,
	updated_at = EXCLUDED.updated_at`, r.table)

	_, err = r.db.ExecContext(
		ctx,
		query,
		canonical,
		record.TotalProduction,
		record.TotalConsumption,
		record.Imports,
		record.Exports,
		record.NetBalance,
		record.Generation.Nuclear,
		record.Generation.Coal,
		record.Generation.Gas,
		record.Generation.Wind,
		record.Generation.Hydro,
		record.Generation.Solar,
		record.Generation.Other,
		record.FlowDataComplete,
		record.UpdatedAt,
	)
	return err
}

// ListSlots returns the canonical slots persisted in [start, end), ordered.
// Legacy raw timestamps are canonicalized and deduplicated on the way out.
func (r *Repository) ListSlots(ctx context.Context, startInclusive, endExclusive time.Time) ([]time.Time, error) {
	query := fmt.Sprintf(`
SELECT timestamp
FROM %s
WHERE timestamp >= $1 AND timestamp < $2
ORDER BY timestamp ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, startInclusive.UTC(), endExclusive.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []time.Time
	seen := make(map[time.Time]struct{})
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		slot, err := domain.CanonicalSlot(ts)
		if err != nil {
			continue
		}
		if _, ok := seen[slot]; ok {
			continue
		}
		seen[slot] = struct{}{}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// Delete removes all rows in the slot's bucket. Administrative only.
func (r *Repository) Delete(ctx context.Context, slot time.Time) error {
	canonical, err := domain.CanonicalSlot(slot)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE timestamp >= $1 AND timestamp < $2`, r.table)
	result, err := r.db.ExecContext(ctx, query, canonical, canonical.Add(domain.SlotWidth))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// FindDuplicateSlots scans for 15-minute buckets holding more than one row.
func (r *Repository) FindDuplicateSlots(ctx context.Context) ([]domain.DuplicateConflict, error) {
	query := fmt.Sprintf(`
SELECT to_timestamp(floor(extract(epoch FROM timestamp) / 900) * 900) AS slot, COUNT(*)
FROM %s
GROUP BY slot
HAVING COUNT(*) > 1
ORDER BY slot ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []domain.DuplicateConflict
	for rows.Next() {
		var conflict domain.DuplicateConflict
		if err := rows.Scan(&conflict.Slot, &conflict.Count); err != nil {
			return nil, err
		}
		conflict.Slot = conflict.Slot.UTC()
		conflicts = append(conflicts, conflict)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conflicts, nil
}

// ResolveDuplicate drops all rows in the slot's bucket except the most
// recently updated one. Ties on updated_at are broken by ctid so exactly
// one row survives and the conflict cannot re-surface on the next sweep.
func (r *Repository) ResolveDuplicate(ctx context.Context, slot time.Time) (int, error) {
	canonical, err := domain.CanonicalSlot(slot)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
DELETE FROM %s
WHERE timestamp >= $1 AND timestamp < $2
	AND ctid <> (
		SELECT ctid FROM %s
		WHERE timestamp >= $1 AND timestamp < $2
		ORDER BY updated_at DESC, ctid DESC
		LIMIT 1
	)`, r.table, r.table)

	result, err := r.db.ExecContext(ctx, query, canonical, canonical.Add(domain.SlotWidth))
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*domain.Record, error) {
	var (
		ts               time.Time
		totalProduction  float64
		totalConsumption float64
		imports          float64
		exports          float64
		netBalance       float64
		mix              domain.GenerationMix
		flowDataComplete bool
		updatedAt        time.Time
	)

	if err := scanner.Scan(
		&ts,
		&totalProduction,
		&totalConsumption,
		&imports,
		&exports,
		&netBalance,
		&mix.Nuclear, &mix.Coal, &mix.Gas, &mix.Wind, &mix.Hydro, &mix.Solar, &mix.Other,
		&flowDataComplete,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	// Stored net_balance is scanned but not trusted: NewRecord recomputes
	// the invariant, which is how historical sign errors surface.
	_ = netBalance
	return domain.NewRecord(ts, totalProduction, totalConsumption, imports, exports, mix, flowDataComplete, updatedAt)
}
