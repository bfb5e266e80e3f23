package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository implements Repository using PostgreSQL. The hash chain
// is serialized through a row lock on the newest entry, so concurrent
// appends never fork the chain.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository over an open database handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const auditColumns = `id, user_id, entity_type, entity_id, action, outcome, created_at, request_id, ip_address, user_agent, previous_hash`

// LogAccess records an access event to the audit log.
func (r *PostgresRepository) LogAccess(entry LogEntry) (*AuditLog, error) {
	outcome := entry.Outcome
	if outcome == "" {
		outcome = OutcomeSuccess
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer tx.Rollback()

	var lastHash string
	err = tx.QueryRow(
		`SELECT chain_hash FROM audit_logs ORDER BY seq DESC LIMIT 1 FOR UPDATE`,
	).Scan(&lastHash)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read audit chain head: %w", err)
	}

	log := &AuditLog{
		ID:           uuid.New().String(),
		UserID:       entry.UserID,
		EntityType:   entry.EntityType,
		EntityID:     entry.EntityID,
		Action:       entry.Action,
		Outcome:      outcome,
		CreatedAt:    time.Now().UTC(),
		RequestID:    entry.RequestID,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		PreviousHash: lastHash,
	}

	_, err = tx.Exec(`
		INSERT INTO audit_logs
			(id, user_id, entity_type, entity_id, action, outcome, created_at, request_id, ip_address, user_agent, previous_hash, chain_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		log.ID, log.UserID, log.EntityType, log.EntityID, log.Action,
		log.Outcome, log.CreatedAt, log.RequestID, log.IPAddress,
		log.UserAgent, log.PreviousHash, computeHash(log))
	if err != nil {
		return nil, fmt.Errorf("failed to insert audit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit audit log: %w", err)
	}
	return log, nil
}

// GetLastHash returns the chain hash of the most recent entry, or the empty
// string when the log is empty.
func (r *PostgresRepository) GetLastHash() (string, error) {
	var hash string
	err := r.db.QueryRow(
		`SELECT chain_hash FROM audit_logs ORDER BY seq DESC LIMIT 1`,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read audit chain head: %w", err)
	}
	return hash, nil
}

// VerifyHashChain recomputes the chain over every stored entry in append
// order and checks both the per-entry links and the stored chain hashes.
func (r *PostgresRepository) VerifyHashChain() (bool, error) {
	rows, err := r.db.Query(
		`SELECT ` + auditColumns + `, chain_hash FROM audit_logs ORDER BY seq ASC`)
	if err != nil {
		return false, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	running := ""
	for rows.Next() {
		var log AuditLog
		var chainHash string
		if err := rows.Scan(
			&log.ID, &log.UserID, &log.EntityType, &log.EntityID, &log.Action,
			&log.Outcome, &log.CreatedAt, &log.RequestID, &log.IPAddress,
			&log.UserAgent, &log.PreviousHash, &chainHash,
		); err != nil {
			return false, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if log.PreviousHash != running {
			return false, nil
		}
		running = computeHash(&log)
		if running != chainHash {
			return false, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to iterate audit logs: %w", err)
	}
	return true, nil
}

// QueryByEntity retrieves audit logs for a specific entity, newest first.
func (r *PostgresRepository) QueryByEntity(entityType, entityID string, limit int) ([]*AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2 ORDER BY seq DESC`
	args := []any{entityType, entityID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return r.queryLogs(query, args...)
}

// QueryByUser retrieves audit logs for a specific user, newest first.
func (r *PostgresRepository) QueryByUser(userID string, limit int) ([]*AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs
		WHERE user_id = $1 ORDER BY seq DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.queryLogs(query, args...)
}

func (r *PostgresRepository) queryLogs(query string, args ...any) ([]*AuditLog, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var results []*AuditLog
	for rows.Next() {
		var log AuditLog
		if err := rows.Scan(
			&log.ID, &log.UserID, &log.EntityType, &log.EntityID, &log.Action,
			&log.Outcome, &log.CreatedAt, &log.RequestID, &log.IPAddress,
			&log.UserAgent, &log.PreviousHash,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		results = append(results, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit logs: %w", err)
	}
	return results, nil
}
