package configsave

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines data operations for saved configurations.
type Repository interface {
	// Create inserts a new configuration with a generated UUID.
	Create(ctx context.Context, cfg *Configuration) error

	// Update updates an existing, non-deleted configuration.
	Update(ctx context.Context, cfg *Configuration) error

	// Delete soft-deletes a configuration by setting deleted_at.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a configuration, excluding soft-deleted ones.
	GetByID(ctx context.Context, id string) (*Configuration, error)

	// ListByOwner retrieves an owner's configurations ordered by
	// updated_at DESC, excluding soft-deleted ones.
	ListByOwner(ctx context.Context, ownerID string) ([]*Configuration, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	configs map[string]*Configuration
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{configs: make(map[string]*Configuration)}
}

// Create inserts a new configuration with a generated UUID.
func (r *InMemoryRepository) Create(ctx context.Context, cfg *Configuration) error {
	if err := ValidateName(cfg.Name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	cfg.DeletedAt = nil

	cp := *cfg
	r.configs[cfg.ID] = &cp
	return nil
}

// Update updates an existing, non-deleted configuration.
func (r *InMemoryRepository) Update(ctx context.Context, cfg *Configuration) error {
	if err := ValidateName(cfg.Name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.configs[cfg.ID]
	if !ok {
		return ErrConfigurationNotFound
	}
	if existing.DeletedAt != nil {
		return ErrConfigurationDeleted
	}

	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = time.Now()
	cfg.DeletedAt = nil

	cp := *cfg
	r.configs[cfg.ID] = &cp
	return nil
}

// Delete soft-deletes a configuration by setting deleted_at.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.configs[id]
	if !ok {
		return ErrConfigurationNotFound
	}
	if existing.DeletedAt != nil {
		return ErrConfigurationDeleted
	}
	now := time.Now()
	existing.DeletedAt = &now
	return nil
}

// GetByID retrieves a configuration, excluding soft-deleted ones.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Configuration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	existing, ok := r.configs[id]
	if !ok {
		return nil, ErrConfigurationNotFound
	}
	if existing.DeletedAt != nil {
		return nil, ErrConfigurationDeleted
	}
	cp := *existing
	return &cp, nil
}

// ListByOwner retrieves an owner's configurations ordered by updated_at
// DESC, excluding soft-deleted ones.
func (r *InMemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Configuration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Configuration
	for _, cfg := range r.configs {
		if cfg.OwnerID != ownerID || cfg.DeletedAt != nil {
			continue
		}
		cp := *cfg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
