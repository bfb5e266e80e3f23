package configsave

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository over an open database
// handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const configColumns = `id, name, owner_id, template_id, prompt,
	width, height, depth, finish_key, COALESCE(sample_id, ''), price,
	COALESCE(asset_url, ''), COALESCE(cut_file_url, ''),
	created_at, updated_at, deleted_at`

// Create inserts a new configuration with a generated UUID.
func (r *PostgresRepository) Create(ctx context.Context, cfg *Configuration) error {
	if err := ValidateName(cfg.Name); err != nil {
		return err
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	cfg.DeletedAt = nil

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO saved_configurations
			(id, name, owner_id, template_id, prompt,
			 width, height, depth, finish_key, sample_id, price,
			 asset_url, cut_file_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11,
			NULLIF($12, ''), NULLIF($13, ''), $14, $15)`,
		cfg.ID, cfg.Name, cfg.OwnerID, cfg.TemplateID, cfg.Prompt,
		cfg.Width, cfg.Height, cfg.Depth, cfg.FinishKey, cfg.SampleID, cfg.Price,
		cfg.AssetURL, cfg.CutFileURL, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert configuration: %w", err)
	}
	return nil
}

// Update updates an existing, non-deleted configuration.
func (r *PostgresRepository) Update(ctx context.Context, cfg *Configuration) error {
	if err := ValidateName(cfg.Name); err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, `
		UPDATE saved_configurations
		SET name = $2, prompt = $3, width = $4, height = $5, depth = $6,
			finish_key = $7, sample_id = NULLIF($8, ''), price = $9,
			asset_url = NULLIF($10, ''), cut_file_url = NULLIF($11, ''),
			updated_at = $12
		WHERE id = $1 AND deleted_at IS NULL`,
		cfg.ID, cfg.Name, cfg.Prompt, cfg.Width, cfg.Height, cfg.Depth,
		cfg.FinishKey, cfg.SampleID, cfg.Price,
		cfg.AssetURL, cfg.CutFileURL, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update configuration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return ErrConfigurationNotFound
	}
	return nil
}

// Delete soft-deletes a configuration by setting deleted_at.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE saved_configurations
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete configuration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return ErrConfigurationNotFound
	}
	return nil
}

// GetByID retrieves a configuration, excluding soft-deleted ones.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Configuration, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+configColumns+`
		FROM saved_configurations
		WHERE id = $1 AND deleted_at IS NULL`, id)

	cfg, err := scanConfiguration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigurationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query configuration: %w", err)
	}
	return cfg, nil
}

// ListByOwner retrieves an owner's configurations ordered by updated_at
// DESC, excluding soft-deleted ones.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Configuration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+configColumns+`
		FROM saved_configurations
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query configurations: %w", err)
	}
	defer rows.Close()

	var out []*Configuration
	for rows.Next() {
		cfg, err := scanConfiguration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read configurations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfiguration(row rowScanner) (*Configuration, error) {
	var cfg Configuration
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.OwnerID, &cfg.TemplateID, &cfg.Prompt,
		&cfg.Width, &cfg.Height, &cfg.Depth, &cfg.FinishKey, &cfg.SampleID, &cfg.Price,
		&cfg.AssetURL, &cfg.CutFileURL, &cfg.CreatedAt, &cfg.UpdatedAt, &cfg.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
