package catalog

import (
	"context"
	"sync"
)

// Repository is the read surface of the catalog. Admin writes happen in
// a separate back office; this service only lists and resolves.
type Repository interface {
	// Finishes lists all available finishes.
	Finishes(ctx context.Context) ([]Finish, error)

	// SamplesByFinish lists the samples of one finish.
	SamplesByFinish(ctx context.Context, finishKey string) ([]Sample, error)

	// SampleByID resolves one sample.
	SampleByID(ctx context.Context, id string) (*Sample, error)
}

// SampleSet is an immutable sample index resolving the pricing engine's
// surcharge lookups. It implements pricing.SampleSource.
type SampleSet struct {
	byID map[string]Sample
}

// NewSampleSet builds a sample index from a slice of samples.
func NewSampleSet(samples []Sample) *SampleSet {
	byID := make(map[string]Sample, len(samples))
	for _, s := range samples {
		byID[s.ID] = s
	}
	return &SampleSet{byID: byID}
}

// Surcharge returns the per-m² and per-unit surcharges of a sample.
// Unknown sample ids return (0, 0).
func (s *SampleSet) Surcharge(sampleID string) (perM2, perUnit float64) {
	sample, ok := s.byID[sampleID]
	if !ok {
		return 0, 0
	}
	return sample.SurchargePerM2, sample.SurchargePerUnit
}

// LoadSampleSet assembles a SampleSet over every sample in the
// repository, for handing to the pricing engine.
func LoadSampleSet(ctx context.Context, repo Repository) (*SampleSet, error) {
	finishes, err := repo.Finishes(ctx)
	if err != nil {
		return nil, err
	}
	var all []Sample
	for _, f := range finishes {
		samples, err := repo.SamplesByFinish(ctx, f.Key)
		if err != nil {
			return nil, err
		}
		all = append(all, samples...)
	}
	return NewSampleSet(all), nil
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	finishes map[string]Finish
	samples  map[string]Sample
}

// NewInMemoryRepository creates an empty in-memory catalog.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		finishes: make(map[string]Finish),
		samples:  make(map[string]Sample),
	}
}

// PutFinish stores a finish. Test/seed helper.
func (r *InMemoryRepository) PutFinish(f Finish) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishes[f.Key] = f
}

// PutSample stores a sample. Test/seed helper.
func (r *InMemoryRepository) PutSample(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[s.ID] = s
}

// Finishes lists all available finishes.
func (r *InMemoryRepository) Finishes(ctx context.Context) ([]Finish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Finish, 0, len(r.finishes))
	for _, f := range r.finishes {
		out = append(out, f)
	}
	return out, nil
}

// SamplesByFinish lists the samples of one finish.
func (r *InMemoryRepository) SamplesByFinish(ctx context.Context, finishKey string) ([]Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.finishes[finishKey]; !ok {
		return nil, ErrFinishNotFound
	}
	var out []Sample
	for _, s := range r.samples {
		if s.FinishKey == finishKey {
			out = append(out, s)
		}
	}
	return out, nil
}

// SampleByID resolves one sample.
func (r *InMemoryRepository) SampleByID(ctx context.Context, id string) (*Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.samples[id]
	if !ok {
		return nil, ErrSampleNotFound
	}
	cp := s
	return &cp, nil
}
