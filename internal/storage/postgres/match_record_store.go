package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/storage"
)

// MatchRecordStore implements storage.MatchRecordStore using PostgreSQL.
type MatchRecordStore struct {
	pool *Pool
}

// NewMatchRecordStore creates a new MatchRecordStore.
func NewMatchRecordStore(pool *Pool) *MatchRecordStore {
	return &MatchRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MatchRecordStore = (*MatchRecordStore)(nil)

// Create adds a new match record. Returns ErrDuplicateKey if match_id exists.
func (s *MatchRecordStore) Create(ctx context.Context, m *domain.MatchRecord) error {
	if m == nil || m.MatchID == "" || len(m.MatchData) == 0 {
		return storage.ErrInvalidInput
	}

	insight, err := jsonOrNull(m.Insight)
	if err != nil {
		return fmt.Errorf("encode insight: %w", err)
	}

	var timeline []byte
	if len(m.TimelineData) > 0 {
		timeline = m.TimelineData
	}

	query := `
		INSERT INTO match_records (
			match_id, game_creation, match_data, timeline_data, expires_at, processed_at, insight
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		m.MatchID,
		m.GameCreation,
		[]byte(m.MatchData),
		timeline,
		m.ExpiresAt,
		m.ProcessedAt,
		insight,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert match record: %w", err)
	}
	return nil
}

// Get retrieves a match record by ID. Returns ErrNotFound if not exists.
func (s *MatchRecordStore) Get(ctx context.Context, matchID string) (*domain.MatchRecord, error) {
	query := `
		SELECT match_id, game_creation, match_data, timeline_data, expires_at, processed_at, insight
		FROM match_records
		WHERE match_id = $1
	`

	m, err := scanMatchRecord(s.pool.QueryRow(ctx, query, matchID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get match record: %w", err)
	}
	return m, nil
}

// Touch refreshes processed_at and expires_at without rewriting content.
func (s *MatchRecordStore) Touch(ctx context.Context, matchID string, processedAt, expiresAt int64) error {
	query := `
		UPDATE match_records
		SET processed_at = $2, expires_at = $3
		WHERE match_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, matchID, processedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("touch match record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AttachTimeline stores the timeline if none is stored yet.
func (s *MatchRecordStore) AttachTimeline(ctx context.Context, matchID string, timeline json.RawMessage) error {
	if len(timeline) == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE match_records
		SET timeline_data = COALESCE(timeline_data, $2)
		WHERE match_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, matchID, []byte(timeline))
	if err != nil {
		return fmt.Errorf("attach timeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AttachInsight sets the insight on a match record.
func (s *MatchRecordStore) AttachInsight(ctx context.Context, matchID string, insight *domain.Insight) error {
	raw, err := jsonOrNull(insight)
	if err != nil {
		return fmt.Errorf("encode insight: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `UPDATE match_records SET insight = $2 WHERE match_id = $1`, matchID, raw)
	if err != nil {
		return fmt.Errorf("attach match insight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanMatchRecord(row pgx.Row) (*domain.MatchRecord, error) {
	var m domain.MatchRecord
	var matchData, timeline, insight []byte

	err := row.Scan(
		&m.MatchID,
		&m.GameCreation,
		&matchData,
		&timeline,
		&m.ExpiresAt,
		&m.ProcessedAt,
		&insight,
	)
	if err != nil {
		return nil, err
	}

	m.MatchData = json.RawMessage(matchData)
	if len(timeline) > 0 {
		m.TimelineData = json.RawMessage(timeline)
	}
	if m.Insight, err = decodeNullable[domain.Insight](insight); err != nil {
		return nil, fmt.Errorf("decode insight: %w", err)
	}
	return &m, nil
}
