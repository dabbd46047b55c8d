package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/shared/models"
)

// MemoryInstanceRepository is an in-memory InstanceRepository for tests and
// local development
type MemoryInstanceRepository struct {
	mu        sync.RWMutex
	instances map[models.ID]domain.OrchestrationInstance
}

// NewMemoryInstanceRepository creates a new MemoryInstanceRepository
func NewMemoryInstanceRepository() *MemoryInstanceRepository {
	return &MemoryInstanceRepository{
		instances: make(map[models.ID]domain.OrchestrationInstance),
	}
}

// Save stores a copy of the instance
func (r *MemoryInstanceRepository) Save(ctx context.Context, instance *domain.OrchestrationInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *instance
	stored.ClearEvents()
	r.instances[instance.ID] = stored
	return nil
}

// FindByID returns a copy of the stored instance or nil when absent
func (r *MemoryInstanceRepository) FindByID(ctx context.Context, id models.ID) (*domain.OrchestrationInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.instances[id]
	if !ok {
		return nil, nil
	}
	return &stored, nil
}

// FindRunningBefore returns running instances last updated before the cutoff
func (r *MemoryInstanceRepository) FindRunningBefore(ctx context.Context, cutoff time.Time) ([]*domain.OrchestrationInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []*domain.OrchestrationInstance
	for _, stored := range r.instances {
		if stored.Status == domain.InstanceStatusRunning && stored.Timestamps.UpdatedAt.Before(cutoff) {
			instance := stored
			stale = append(stale, &instance)
		}
	}
	return stale, nil
}

// MemoryHistoryStore is an in-memory HistoryStore for tests and local
// development
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	entries map[models.ID][]*domain.HistoryEntry
}

// NewMemoryHistoryStore creates a new MemoryHistoryStore
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{
		entries: make(map[models.ID][]*domain.HistoryEntry),
	}
}

// Append appends entries to the instance history
func (s *MemoryHistoryStore) Append(ctx context.Context, instanceID models.ID, entries ...*domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[instanceID] = append(s.entries[instanceID], entries...)
	return nil
}

// Load retrieves the instance history in append order
func (s *MemoryHistoryStore) Load(ctx context.Context, instanceID models.ID) ([]*domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.entries[instanceID]
	entries := make([]*domain.HistoryEntry, len(stored))
	copy(entries, stored)
	return entries, nil
}
