package memory

import (
	"context"
	"sort"
	"sync"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/storage"
)

// ParticipantIndexStore is an in-memory implementation of storage.ParticipantIndexStore.
type ParticipantIndexStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.ParticipantIndexEntry // puuid -> match_id -> entry
}

// NewParticipantIndexStore creates a new in-memory participant index store.
func NewParticipantIndexStore() *ParticipantIndexStore {
	return &ParticipantIndexStore{
		data: make(map[string]map[string]*domain.ParticipantIndexEntry),
	}
}

// Create adds a new entry. Returns ErrDuplicateKey if (puuid, match_id) exists.
func (s *ParticipantIndexStore) Create(_ context.Context, e *domain.ParticipantIndexEntry) error {
	if e == nil || e.PUUID == "" || e.MatchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byMatch, ok := s.data[e.PUUID]
	if !ok {
		byMatch = make(map[string]*domain.ParticipantIndexEntry)
		s.data[e.PUUID] = byMatch
	}
	if _, exists := byMatch[e.MatchID]; exists {
		return storage.ErrDuplicateKey
	}

	byMatch[e.MatchID] = e.Clone()
	return nil
}

// Get retrieves one entry. Returns ErrNotFound if not exists.
func (s *ParticipantIndexStore) Get(_ context.Context, puuid, matchID string) (*domain.ParticipantIndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[puuid][matchID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return e.Clone(), nil
}

// ListByPUUID retrieves entries for a player, newest first.
func (s *ParticipantIndexStore) ListByPUUID(_ context.Context, puuid string, limit int) ([]*domain.ParticipantIndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMatch := s.data[puuid]
	result := make([]*domain.ParticipantIndexEntry, 0, len(byMatch))
	for _, e := range byMatch {
		result = append(result, e.Clone())
	}

	// Sort by game_creation DESC, match_id DESC
	sort.Slice(result, func(i, j int) bool {
		if result[i].GameCreation != result[j].GameCreation {
			return result[i].GameCreation > result[j].GameCreation
		}
		return result[i].MatchID > result[j].MatchID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountByPUUID returns the number of entries for a player.
func (s *ParticipantIndexStore) CountByPUUID(_ context.Context, puuid string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[puuid]), nil
}

// AttachInsight sets the insight on one entry.
func (s *ParticipantIndexStore) AttachInsight(_ context.Context, puuid, matchID string, insight *domain.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[puuid][matchID]
	if !exists {
		return storage.ErrNotFound
	}
	e.Insight = insight.Clone()
	return nil
}

// Verify interface compliance at compile time.
var _ storage.ParticipantIndexStore = (*ParticipantIndexStore)(nil)
