package pricing

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresParameterRepository stores pricing parameters in the
// pricing_parameters table, one row per category/item/param.
type PostgresParameterRepository struct {
	db *sql.DB
}

// NewPostgresParameterRepository creates a repository over an open
// database handle.
func NewPostgresParameterRepository(db *sql.DB) *PostgresParameterRepository {
	return &PostgresParameterRepository{db: db}
}

// Snapshot returns the full table as a read-only copy.
func (r *PostgresParameterRepository) Snapshot(ctx context.Context) (ParameterTable, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, item, param, value FROM pricing_parameters`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing parameters: %w", err)
	}
	defer rows.Close()

	table := make(ParameterTable)
	for rows.Next() {
		var category, item, param string
		var value float64
		if err := rows.Scan(&category, &item, &param, &value); err != nil {
			return nil, fmt.Errorf("failed to scan pricing parameter: %w", err)
		}
		table.Set(category, item, param, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pricing parameters: %w", err)
	}
	return table, nil
}

// Upsert creates or replaces one parameter value.
func (r *PostgresParameterRepository) Upsert(ctx context.Context, category, item, param string, value float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pricing_parameters (category, item, param, value, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (category, item, param)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		category, item, param, value)
	if err != nil {
		return fmt.Errorf("failed to upsert pricing parameter: %w", err)
	}
	return nil
}

// Delete removes one parameter value.
func (r *PostgresParameterRepository) Delete(ctx context.Context, category, item, param string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pricing_parameters WHERE category = $1 AND item = $2 AND param = $3`,
		category, item, param)
	if err != nil {
		return fmt.Errorf("failed to delete pricing parameter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrParameterNotFound
	}
	return nil
}
