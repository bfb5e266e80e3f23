package payment

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrCheckoutRecordNotFound is returned when a checkout record is not found.
var ErrCheckoutRecordNotFound = errors.New("checkout record not found")

// Repository defines methods for checkout record persistence.
type Repository interface {
	Insert(record *CheckoutRecord) error
	GetByID(id string) (*CheckoutRecord, error)
	GetBySessionID(sessionID string) (*CheckoutRecord, error)
	Update(record *CheckoutRecord) error
}

// InMemoryRepository implements Repository with in-memory storage.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*CheckoutRecord
}

// NewInMemoryRepository creates a new in-memory checkout repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*CheckoutRecord),
	}
}

// Insert adds a new checkout record.
func (r *InMemoryRepository) Insert(record *CheckoutRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}

	// Deep copy to prevent external mutation
	copied := *record
	r.records[record.ID] = &copied

	return nil
}

// GetByID retrieves a checkout record by ID.
func (r *InMemoryRepository) GetByID(id string) (*CheckoutRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrCheckoutRecordNotFound
	}

	copied := *record
	return &copied, nil
}

// GetBySessionID retrieves a checkout record by Stripe session ID.
func (r *InMemoryRepository) GetBySessionID(sessionID string) (*CheckoutRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, record := range r.records {
		if record.SessionID == sessionID {
			copied := *record
			return &copied, nil
		}
	}

	return nil, ErrCheckoutRecordNotFound
}

// Update updates an existing checkout record.
func (r *InMemoryRepository) Update(record *CheckoutRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[record.ID]; !ok {
		return ErrCheckoutRecordNotFound
	}

	now := time.Now()
	record.UpdatedAt = &now

	copied := *record
	r.records[record.ID] = &copied

	return nil
}
