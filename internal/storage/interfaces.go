package storage

import (
	"context"
	"encoding/json"

	"rift-stats-lab/internal/domain"
)

// MatchRecordStore provides access to match_records storage.
type MatchRecordStore interface {
	// Create adds a new match record. Returns ErrDuplicateKey if match_id exists.
	Create(ctx context.Context, m *domain.MatchRecord) error

	// Get retrieves a match record by ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, matchID string) (*domain.MatchRecord, error)

	// Touch refreshes processed_at and expires_at without rewriting match data.
	// Returns ErrNotFound if not exists.
	Touch(ctx context.Context, matchID string, processedAt, expiresAt int64) error

	// AttachTimeline stores the timeline if none is stored yet.
	// Returns ErrNotFound if the match does not exist.
	AttachTimeline(ctx context.Context, matchID string, timeline json.RawMessage) error

	// AttachInsight sets the insight. Returns ErrNotFound if not exists.
	AttachInsight(ctx context.Context, matchID string, insight *domain.Insight) error
}

// ParticipantIndexStore provides access to participant_index storage.
type ParticipantIndexStore interface {
	// Create adds a new entry. Returns ErrDuplicateKey if (puuid, match_id) exists.
	Create(ctx context.Context, e *domain.ParticipantIndexEntry) error

	// Get retrieves one entry. Returns ErrNotFound if not exists.
	Get(ctx context.Context, puuid, matchID string) (*domain.ParticipantIndexEntry, error)

	// ListByPUUID retrieves entries for a player ordered by game_creation DESC, match_id DESC.
	// limit <= 0 returns the full history.
	ListByPUUID(ctx context.Context, puuid string, limit int) ([]*domain.ParticipantIndexEntry, error)

	// CountByPUUID returns the number of entries for a player.
	CountByPUUID(ctx context.Context, puuid string) (int, error)

	// AttachInsight sets the insight on one entry. Returns ErrNotFound if not exists.
	AttachInsight(ctx context.Context, puuid, matchID string, insight *domain.Insight) error
}

// PlayerAggregateStore provides access to player_aggregates storage.
type PlayerAggregateStore interface {
	// Get retrieves an aggregate by PUUID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, puuid string) (*domain.PlayerAggregate, error)

	// Create adds a new aggregate. Returns ErrDuplicateKey if puuid exists.
	Create(ctx context.Context, a *domain.PlayerAggregate) error

	// Update replaces an existing aggregate. Returns ErrNotFound if not exists.
	Update(ctx context.Context, a *domain.PlayerAggregate) error

	// AttachInsight sets the insight. Returns ErrNotFound if not exists.
	AttachInsight(ctx context.Context, puuid string, insight *domain.Insight) error
}

// PlayerAggregateUpserter is implemented by aggregate stores that can create
// or replace an aggregate in one conditional write.
type PlayerAggregateUpserter interface {
	Upsert(ctx context.Context, a *domain.PlayerAggregate) error
}
