package memory

import (
	"context"
	"encoding/json"
	"sync"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/storage"
)

// MatchRecordStore is an in-memory implementation of storage.MatchRecordStore.
type MatchRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MatchRecord // keyed by match_id
}

// NewMatchRecordStore creates a new in-memory match record store.
func NewMatchRecordStore() *MatchRecordStore {
	return &MatchRecordStore{
		data: make(map[string]*domain.MatchRecord),
	}
}

// Create adds a new match record. Returns ErrDuplicateKey if match_id exists.
func (s *MatchRecordStore) Create(_ context.Context, m *domain.MatchRecord) error {
	if m == nil || m.MatchID == "" || len(m.MatchData) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.MatchID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[m.MatchID] = m.Clone()
	return nil
}

// Get retrieves a match record by ID. Returns ErrNotFound if not exists.
func (s *MatchRecordStore) Get(_ context.Context, matchID string) (*domain.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[matchID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return m.Clone(), nil
}

// Touch refreshes processed_at and expires_at.
func (s *MatchRecordStore) Touch(_ context.Context, matchID string, processedAt, expiresAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[matchID]
	if !exists {
		return storage.ErrNotFound
	}
	m.ProcessedAt = processedAt
	m.ExpiresAt = expiresAt
	return nil
}

// AttachTimeline stores the timeline if none is stored yet.
func (s *MatchRecordStore) AttachTimeline(_ context.Context, matchID string, timeline json.RawMessage) error {
	if len(timeline) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[matchID]
	if !exists {
		return storage.ErrNotFound
	}
	if len(m.TimelineData) == 0 {
		m.TimelineData = append(json.RawMessage(nil), timeline...)
	}
	return nil
}

// AttachInsight sets the insight on a match record.
func (s *MatchRecordStore) AttachInsight(_ context.Context, matchID string, insight *domain.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.data[matchID]
	if !exists {
		return storage.ErrNotFound
	}
	m.Insight = insight.Clone()
	return nil
}

// Len returns the number of stored records.
func (s *MatchRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Verify interface compliance at compile time.
var _ storage.MatchRecordStore = (*MatchRecordStore)(nil)
