package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for audit log operations.
type Repository interface {
	// LogAccess records an access event to the audit log.
	// Returns the created audit log entry.
	LogAccess(entry LogEntry) (*AuditLog, error)

	// QueryByEntity retrieves audit logs for a specific entity, sorted by time (newest first).
	// Limit specifies the maximum number of entries to return (0 = no limit).
	QueryByEntity(entityType, entityID string, limit int) ([]*AuditLog, error)

	// QueryByUser retrieves audit logs for a specific user, sorted by time (newest first).
	// Limit specifies the maximum number of entries to return (0 = no limit).
	QueryByUser(userID string, limit int) ([]*AuditLog, error)
}

// computeHash derives the chain hash of an audit log entry. Every field that
// matters for tamper detection participates, including the previous hash, so
// a change to any historical entry breaks the chain from that point on.
func computeHash(log *AuditLog) string {
	h := sha256.New()
	fmt.Fprint(h, log.PreviousHash, "\x1f",
		log.ID, "\x1f",
		log.UserID, "\x1f",
		log.EntityType, "\x1f",
		log.EntityID, "\x1f",
		log.Action, "\x1f",
		log.Outcome, "\x1f",
		strconv.FormatInt(log.CreatedAt.UnixNano(), 10), "\x1f",
		log.RequestID, "\x1f",
		log.IPAddress, "\x1f",
		log.UserAgent)
	return hex.EncodeToString(h.Sum(nil))
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu   sync.RWMutex
	logs map[string]*AuditLog
	// Maintain insertion order for queries and chain verification
	order []string
	// Hash of the most recent entry
	lastHash string
}

// NewInMemoryRepository creates a new in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		logs:  make(map[string]*AuditLog),
		order: make([]string, 0),
	}
}

// LogAccess records an access event to the audit log.
func (r *InMemoryRepository) LogAccess(entry LogEntry) (*AuditLog, error) {
	outcome := entry.Outcome
	if outcome == "" {
		outcome = OutcomeSuccess
	}

	r.mu.Lock()
	defer r.mu.Unlock()

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
		PreviousHash: r.lastHash,
	}

	r.logs[log.ID] = log
	r.order = append(r.order, log.ID)
	r.lastHash = computeHash(log)

	// Return a copy to prevent external modification
	logCopy := *log
	return &logCopy, nil
}

// GetLastHash returns the chain hash of the most recent entry, or the empty
// string when no entries have been recorded.
func (r *InMemoryRepository) GetLastHash() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastHash, nil
}

// VerifyHashChain walks every entry in insertion order and recomputes the
// chain. Returns false if any entry's PreviousHash does not match the hash
// of its predecessor.
func (r *InMemoryRepository) VerifyHashChain() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	running := ""
	for _, id := range r.order {
		log := r.logs[id]
		if log.PreviousHash != running {
			return false, nil
		}
		running = computeHash(log)
	}
	return true, nil
}

// QueryByEntity retrieves audit logs for a specific entity, sorted by time (newest first).
func (r *InMemoryRepository) QueryByEntity(entityType, entityID string, limit int) ([]*AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*AuditLog

	// Iterate in reverse order (newest first)
	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		log := r.logs[id]

		if log.EntityType == entityType && log.EntityID == entityID {
			// Create a copy to prevent external modification
			logCopy := *log
			results = append(results, &logCopy)

			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results, nil
}

// QueryByUser retrieves audit logs for a specific user, sorted by time (newest first).
func (r *InMemoryRepository) QueryByUser(userID string, limit int) ([]*AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*AuditLog

	// Iterate in reverse order (newest first)
	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		log := r.logs[id]

		if log.UserID == userID {
			// Create a copy to prevent external modification
			logCopy := *log
			results = append(results, &logCopy)

			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results, nil
}
