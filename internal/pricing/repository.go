package pricing

import (
	"context"
	"errors"
	"sync"
)

// Repository errors.
var (
	// ErrParameterNotFound is returned when deleting or updating a
	// parameter that does not exist.
	ErrParameterNotFound = errors.New("pricing parameter not found")
)

// ParameterRepository is the admin-managed store of pricing parameters.
// The engine only ever sees immutable snapshots.
type ParameterRepository interface {
	// Snapshot returns the full table as a read-only copy.
	Snapshot(ctx context.Context) (ParameterTable, error)

	// Upsert creates or replaces one parameter value.
	Upsert(ctx context.Context, category, item, param string, value float64) error

	// Delete removes one parameter value.
	Delete(ctx context.Context, category, item, param string) error
}

// InMemoryParameterRepository is an in-memory implementation of
// ParameterRepository. Used for testing and development.
type InMemoryParameterRepository struct {
	mu    sync.RWMutex
	table ParameterTable
}

// NewInMemoryParameterRepository creates an empty in-memory repository.
func NewInMemoryParameterRepository() *InMemoryParameterRepository {
	return &InMemoryParameterRepository{table: make(ParameterTable)}
}

// Snapshot returns a deep copy of the current table.
func (r *InMemoryParameterRepository) Snapshot(ctx context.Context) (ParameterTable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.Clone(), nil
}

// Upsert creates or replaces one parameter value.
func (r *InMemoryParameterRepository) Upsert(ctx context.Context, category, item, param string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table.Set(category, item, param, value)
	return nil
}

// Delete removes one parameter value.
func (r *InMemoryParameterRepository) Delete(ctx context.Context, category, item, param string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.table.Lookup(category, item, param); !ok {
		return ErrParameterNotFound
	}
	delete(r.table[category][item], param)
	return nil
}
