package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"energy-balance/internal/collector"
)

const defaultLogTable = "data_collection_logs"

// CycleLog persists collection cycle outcomes, append-only.
type CycleLog struct {
	db    *sql.DB
	table string
}

// NewCycleLog creates a log using the default table name.
func NewCycleLog(db *sql.DB, opts ...CycleLogOption) *CycleLog {
	cycleLog := &CycleLog{db: db, table: defaultLogTable}
	for _, opt := range opts {
		opt(cycleLog)
	}
	return cycleLog
}

// CycleLogOption configures the log.
type CycleLogOption func(*CycleLog)

// WithLogTable overrides the default table name.
func WithLogTable(table string) CycleLogOption {
	return func(cycleLog *CycleLog) {
		if table != "" {
			cycleLog.table = table
		}
	}
}

// Record appends a cycle entry.
func (l *CycleLog) Record(ctx context.Context, entry collector.Entry) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	collection_type, started_at, completed_at, records_collected, success, error_message
) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`, l.table)

	_, err := l.db.ExecContext(
		ctx,
		query,
		entry.CycleType,
		entry.StartedAt,
		entry.CompletedAt,
		entry.RecordsSaved,
		entry.Success,
		entry.ErrorMessage,
	)
	return err
}
