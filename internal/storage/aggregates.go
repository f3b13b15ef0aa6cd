package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/tmarsden/scanpulse/internal/domain/models"
)

// AggregateRepository defines the contract for aggregate-history DB
// operations. (metric_date, metric_name) is unique: writing a pair twice
// replaces the value, never duplicates the row.
type AggregateRepository interface {
	// Upsert writes the rows and returns how many were actually changed
	// (inserted, or updated to a different value). Re-writing identical
	// values reports zero changes.
	Upsert(ctx context.Context, rows []models.AggregateRow) (int64, error)

	// Range returns one metric's rows between start and end inclusive,
	// ascending by date.
	Range(ctx context.Context, metric string, start, end time.Time) ([]models.AggregateRow, error)

	// LastBefore returns up to n rows of one metric dated strictly
	// before the given date, ascending by date.
	LastBefore(ctx context.Context, metric string, before time.Time, n int) ([]models.AggregateRow, error)

	// HasDate reports whether every named metric already has a row for
	// the date. Backfills consult it to skip completed dates.
	HasDate(ctx context.Context, date time.Time, metrics []string) (bool, error)

	// DeleteDate removes all rows for a date so it can be recomputed.
	DeleteDate(ctx context.Context, date time.Time) error

	// ScanStoreBytes returns the on-disk size of the scan store's
	// tables, indexes included.
	ScanStoreBytes(ctx context.Context) (int64, error)
}

type aggregateRepository struct {
	db *sql.DB
}

func NewAggregateRepository(db *sql.DB) AggregateRepository {
	return &aggregateRepository{db: db}
}

// Upsert writes all rows in one statement inside a transaction, so a
// date's metrics land atomically or not at all.
func (r *aggregateRepository) Upsert(ctx context.Context, rows []models.AggregateRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	// Build positional placeholders: ($1,$2,$3), ($4,$5,$6), ...
	placeholders := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*3)
	for i, row := range rows {
		base := i * 3
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3))
		args = append(args, row.Date, row.MetricName, row.Value)
	}

	// The WHERE guard keeps no-op rewrites out of RowsAffected, which is
	// what makes the changed count meaningful for idempotence checks.
	query := fmt.Sprintf(`
		INSERT INTO aggregate_history (metric_date, metric_name, value)
		VALUES %s
		ON CONFLICT (metric_date, metric_name)
		DO UPDATE SET value = EXCLUDED.value,
					  computed_at = NOW()
		WHERE aggregate_history.value IS DISTINCT FROM EXCLUDED.value
	`, strings.Join(placeholders, ", "))

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	changed, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return changed, nil
}

// Range returns one metric's ascending history over an inclusive window.
func (r *aggregateRepository) Range(ctx context.Context, metric string, start, end time.Time) ([]models.AggregateRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT metric_date, metric_name, value
		FROM aggregate_history
		WHERE metric_name = $1 AND metric_date >= $2 AND metric_date <= $3
		ORDER BY metric_date ASC
	`, metric, start, end)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRows(rows)
}

// LastBefore returns the newest n rows dated strictly before the given
// date, reordered ascending for callers that fold them chronologically.
func (r *aggregateRepository) LastBefore(ctx context.Context, metric string, before time.Time, n int) ([]models.AggregateRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT metric_date, metric_name, value
		FROM aggregate_history
		WHERE metric_name = $1 AND metric_date < $2
		ORDER BY metric_date DESC
		LIMIT $3
	`, metric, before, n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// HasDate checks the date for complete coverage of the named metrics.
func (r *aggregateRepository) HasDate(ctx context.Context, date time.Time, metrics []string) (bool, error) {
	if len(metrics) == 0 {
		return false, nil
	}
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT metric_name)
		FROM aggregate_history
		WHERE metric_date = $1 AND metric_name = ANY($2)
	`, date, pq.Array(metrics)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == len(metrics), nil
}

// DeleteDate removes all aggregate rows for a given trading date.
func (r *aggregateRepository) DeleteDate(ctx context.Context, date time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM aggregate_history WHERE metric_date = $1`, date)
	return err
}

// ScanStoreBytes sums the relation sizes of every ordinary table in the
// public schema, which is the whole footprint of this store.
func (r *aggregateRepository) ScanStoreBytes(ctx context.Context) (int64, error) {
	var bytes int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(pg_total_relation_size(c.oid)), 0)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = 'public' AND c.relkind = 'r'
	`).Scan(&bytes)
	if err != nil {
		return 0, err
	}
	return bytes, nil
}

func scanRows(rows *sql.Rows) ([]models.AggregateRow, error) {
	var out []models.AggregateRow
	for rows.Next() {
		var row models.AggregateRow
		if err := rows.Scan(&row.Date, &row.MetricName, &row.Value); err != nil {
			return nil, err
		}
		row.Date = row.Date.UTC()
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
