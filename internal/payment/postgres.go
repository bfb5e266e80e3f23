package payment

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository over an open database handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const checkoutColumns = `id, session_id, status, amount, config_id, owner_id, created_at, updated_at`

// Insert stores a new checkout record.
func (r *PostgresRepository) Insert(record *CheckoutRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}

	_, err := r.db.Exec(`
		INSERT INTO checkout_records
			(id, session_id, status, amount, config_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.SessionID, record.Status, record.Amount,
		record.ConfigID, record.OwnerID, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert checkout record: %w", err)
	}
	return nil
}

// GetByID retrieves a checkout record by its id.
func (r *PostgresRepository) GetByID(id string) (*CheckoutRecord, error) {
	return r.scanOne(r.db.QueryRow(
		`SELECT `+checkoutColumns+` FROM checkout_records WHERE id = $1`, id))
}

// GetBySessionID retrieves a checkout record by its Stripe session id.
func (r *PostgresRepository) GetBySessionID(sessionID string) (*CheckoutRecord, error) {
	return r.scanOne(r.db.QueryRow(
		`SELECT `+checkoutColumns+` FROM checkout_records WHERE session_id = $1`, sessionID))
}

// Update rewrites the mutable fields of an existing record.
func (r *PostgresRepository) Update(record *CheckoutRecord) error {
	now := time.Now()
	record.UpdatedAt = &now

	result, err := r.db.Exec(`
		UPDATE checkout_records
		SET status = $2, amount = $3, updated_at = $4
		WHERE id = $1`,
		record.ID, record.Status, record.Amount, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update checkout record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrCheckoutRecordNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*CheckoutRecord, error) {
	var record CheckoutRecord
	err := row.Scan(&record.ID, &record.SessionID, &record.Status, &record.Amount,
		&record.ConfigID, &record.OwnerID, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckoutRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan checkout record: %w", err)
	}
	return &record, nil
}

// PostgresWebhookRepository implements WebhookRepository using PostgreSQL.
// The unique constraint on event_id makes duplicate detection atomic
// across API instances.
type PostgresWebhookRepository struct {
	db *sql.DB
}

// NewPostgresWebhookRepository creates a webhook event repository over an
// open database handle.
func NewPostgresWebhookRepository(db *sql.DB) *PostgresWebhookRepository {
	return &PostgresWebhookRepository{db: db}
}

// RecordEvent records a webhook event as processed. A duplicate event_id
// returns ErrEventAlreadyProcessed.
func (r *PostgresWebhookRepository) RecordEvent(eventID, eventType string) error {
	_, err := r.db.Exec(`
		INSERT INTO webhook_events (id, event_id, event_type, processed_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), eventID, eventType, time.Now())
	if err != nil {
		var pqErr *pq.Error
		// 23505 is unique_violation
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEventAlreadyProcessed
		}
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}

// HasProcessed checks if an event has already been processed.
func (r *PostgresWebhookRepository) HasProcessed(eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM webhook_events WHERE event_id = $1)`,
		eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check webhook event: %w", err)
	}
	return exists, nil
}
