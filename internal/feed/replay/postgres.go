package replay

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"energy-balance/internal/interval/domain"
)

const defaultSnapshotTable = "raw_feed_snapshots"

// PostgresStore keeps raw feed payloads in Postgres, one row per capture.
// Every live collection cycle appends here regardless of whether the
// reconciliation was applied, so rejected cycles stay replayable too.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore creates a store using the default table name.
func NewPostgresStore(db *sql.DB, opts ...PostgresStoreOption) *PostgresStore {
	store := &PostgresStore{db: db, table: defaultSnapshotTable}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// PostgresStoreOption configures the store.
type PostgresStoreOption func(*PostgresStore)

// WithSnapshotTable overrides the default table name.
func WithSnapshotTable(table string) PostgresStoreOption {
	return func(store *PostgresStore) {
		if table != "" {
			store.table = table
		}
	}
}

// Save appends a raw payload captured at the given time.
func (s *PostgresStore) Save(ctx context.Context, capturedAt time.Time, payload []byte) error {
	query := fmt.Sprintf(`
INSERT INTO %s (captured_at, payload, created_at)
VALUES ($1, $2, NOW())`, s.table)

	_, err := s.db.ExecContext(ctx, query, capturedAt.UTC(), payload)
	return err
}

// Latest returns the most recently captured payload in the window.
func (s *PostgresStore) Latest(ctx context.Context, startInclusive, endExclusive time.Time) ([]byte, error) {
	query := fmt.Sprintf(`
SELECT payload
FROM %s
WHERE captured_at >= $1 AND captured_at < $2
ORDER BY captured_at DESC
LIMIT 1`, s.table)

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, startInclusive.UTC(), endExclusive.UTC()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Prune deletes payloads captured before the cutoff and reports how many
// rows were removed. Raw payloads dominate table growth, so operators run
// this on a retention schedule.
func (s *PostgresStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE captured_at < $1`, s.table)
	result, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
