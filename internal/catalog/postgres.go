package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepository reads the catalog from the finishes and samples
// tables.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository over an open database
// handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Finishes lists all available finishes.
func (r *PostgresRepository) Finishes(ctx context.Context) ([]Finish, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, name, price_per_m2 FROM finishes ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query finishes: %w", err)
	}
	defer rows.Close()

	var out []Finish
	for rows.Next() {
		var f Finish
		if err := rows.Scan(&f.Key, &f.Name, &f.PricePerM2); err != nil {
			return nil, fmt.Errorf("failed to scan finish: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read finishes: %w", err)
	}
	return out, nil
}

// SamplesByFinish lists the samples of one finish.
func (r *PostgresRepository) SamplesByFinish(ctx context.Context, finishKey string) ([]Sample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, finish_key, name, hex, COALESCE(texture_url, ''), surcharge_per_m2, surcharge_per_unit
		 FROM samples WHERE finish_key = $1 ORDER BY name`, finishKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.FinishKey, &s.Name, &s.Hex, &s.TextureURL,
			&s.SurchargePerM2, &s.SurchargePerUnit); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	return out, nil
}

// SampleByID resolves one sample.
func (r *PostgresRepository) SampleByID(ctx context.Context, id string) (*Sample, error) {
	var s Sample
	err := r.db.QueryRowContext(ctx,
		`SELECT id, finish_key, name, hex, COALESCE(texture_url, ''), surcharge_per_m2, surcharge_per_unit
		 FROM samples WHERE id = $1`, id).
		Scan(&s.ID, &s.FinishKey, &s.Name, &s.Hex, &s.TextureURL, &s.SurchargePerM2, &s.SurchargePerUnit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSampleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sample: %w", err)
	}
	return &s, nil
}
