package memory

import (
	"context"
	"sync"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/storage"
)

// PlayerAggregateStore is an in-memory implementation of storage.PlayerAggregateStore.
type PlayerAggregateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PlayerAggregate // keyed by puuid
}

// NewPlayerAggregateStore creates a new in-memory player aggregate store.
func NewPlayerAggregateStore() *PlayerAggregateStore {
	return &PlayerAggregateStore{
		data: make(map[string]*domain.PlayerAggregate),
	}
}

// Get retrieves an aggregate by PUUID. Returns ErrNotFound if not exists.
func (s *PlayerAggregateStore) Get(_ context.Context, puuid string) (*domain.PlayerAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[puuid]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return a.Clone(), nil
}

// Create adds a new aggregate. Returns ErrDuplicateKey if puuid exists.
func (s *PlayerAggregateStore) Create(_ context.Context, a *domain.PlayerAggregate) error {
	if a == nil || a.PUUID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.PUUID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[a.PUUID] = a.Clone()
	return nil
}

// Update replaces an existing aggregate. Returns ErrNotFound if not exists.
func (s *PlayerAggregateStore) Update(_ context.Context, a *domain.PlayerAggregate) error {
	if a == nil || a.PUUID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.PUUID]; !exists {
		return storage.ErrNotFound
	}
	s.data[a.PUUID] = a.Clone()
	return nil
}

// Upsert creates or replaces the aggregate.
func (s *PlayerAggregateStore) Upsert(_ context.Context, a *domain.PlayerAggregate) error {
	if a == nil || a.PUUID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[a.PUUID] = a.Clone()
	return nil
}

// AttachInsight sets the insight on an aggregate.
func (s *PlayerAggregateStore) AttachInsight(_ context.Context, puuid string, insight *domain.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[puuid]
	if !exists {
		return storage.ErrNotFound
	}
	a.Insight = insight.Clone()
	return nil
}

// Verify interface compliance at compile time.
var (
	_ storage.PlayerAggregateStore    = (*PlayerAggregateStore)(nil)
	_ storage.PlayerAggregateUpserter = (*PlayerAggregateStore)(nil)
)
