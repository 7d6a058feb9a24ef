package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/storage"
)

// ParticipantIndexStore implements storage.ParticipantIndexStore using PostgreSQL.
type ParticipantIndexStore struct {
	pool *Pool
}

// NewParticipantIndexStore creates a new ParticipantIndexStore.
func NewParticipantIndexStore(pool *Pool) *ParticipantIndexStore {
	return &ParticipantIndexStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ParticipantIndexStore = (*ParticipantIndexStore)(nil)

const participantColumns = `
	id, puuid, match_id, platform_id, game_creation, game_duration, queue_id, game_mode,
	win, kills, deaths, assists, kda,
	champion_id, champion_name, lane, role, team_position, team_id,
	total_damage_dealt, total_damage_dealt_to_champions, total_minions_killed, neutral_minions_killed,
	vision_score, gold_earned, gold_spent, time_played, total_time_spent_dead,
	processed_at, insight
`

// Create adds a new entry. Returns ErrDuplicateKey if (puuid, match_id) exists.
func (s *ParticipantIndexStore) Create(ctx context.Context, e *domain.ParticipantIndexEntry) error {
	if e == nil || e.PUUID == "" || e.MatchID == "" {
		return storage.ErrInvalidInput
	}

	insight, err := jsonOrNull(e.Insight)
	if err != nil {
		return fmt.Errorf("encode insight: %w", err)
	}

	query := `
		INSERT INTO participant_index (` + participantColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23,
			$24, $25, $26, $27, $28,
			$29, $30
		)
	`

	_, err = s.pool.Exec(ctx, query,
		e.ID, e.PUUID, e.MatchID, e.PlatformID, e.GameCreation, e.GameDuration, e.QueueID, e.GameMode,
		e.Win, e.Kills, e.Deaths, e.Assists, e.KDA,
		e.ChampionID, e.ChampionName, e.Lane, e.Role, e.TeamPosition, e.TeamID,
		e.TotalDamageDealt, e.TotalDamageDealtToChampions, e.TotalMinionsKilled, e.NeutralMinionsKilled,
		e.VisionScore, e.GoldEarned, e.GoldSpent, e.TimePlayed, e.TotalTimeSpentDead,
		e.ProcessedAt, insight,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert participant entry: %w", err)
	}
	return nil
}

// Get retrieves one entry. Returns ErrNotFound if not exists.
func (s *ParticipantIndexStore) Get(ctx context.Context, puuid, matchID string) (*domain.ParticipantIndexEntry, error) {
	query := `SELECT ` + participantColumns + ` FROM participant_index WHERE puuid = $1 AND match_id = $2`

	e, err := scanParticipant(s.pool.QueryRow(ctx, query, puuid, matchID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get participant entry: %w", err)
	}
	return e, nil
}

// ListByPUUID retrieves entries for a player, newest first. limit <= 0 returns all.
func (s *ParticipantIndexStore) ListByPUUID(ctx context.Context, puuid string, limit int) ([]*domain.ParticipantIndexEntry, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM participant_index
		WHERE puuid = $1
		ORDER BY game_creation DESC, match_id DESC
	`
	args := []any{puuid}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list participant entries: %w", err)
	}
	defer rows.Close()

	return scanParticipants(rows)
}

// CountByPUUID returns the number of entries for a player.
func (s *ParticipantIndexStore) CountByPUUID(ctx context.Context, puuid string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM participant_index WHERE puuid = $1`, puuid).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participant entries: %w", err)
	}
	return count, nil
}

// AttachInsight sets the insight on one entry.
func (s *ParticipantIndexStore) AttachInsight(ctx context.Context, puuid, matchID string, insight *domain.Insight) error {
	raw, err := jsonOrNull(insight)
	if err != nil {
		return fmt.Errorf("encode insight: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE participant_index SET insight = $3 WHERE puuid = $1 AND match_id = $2`,
		puuid, matchID, raw,
	)
	if err != nil {
		return fmt.Errorf("attach participant insight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanParticipant(row pgx.Row) (*domain.ParticipantIndexEntry, error) {
	var e domain.ParticipantIndexEntry
	var insight []byte

	err := row.Scan(
		&e.ID, &e.PUUID, &e.MatchID, &e.PlatformID, &e.GameCreation, &e.GameDuration, &e.QueueID, &e.GameMode,
		&e.Win, &e.Kills, &e.Deaths, &e.Assists, &e.KDA,
		&e.ChampionID, &e.ChampionName, &e.Lane, &e.Role, &e.TeamPosition, &e.TeamID,
		&e.TotalDamageDealt, &e.TotalDamageDealtToChampions, &e.TotalMinionsKilled, &e.NeutralMinionsKilled,
		&e.VisionScore, &e.GoldEarned, &e.GoldSpent, &e.TimePlayed, &e.TotalTimeSpentDead,
		&e.ProcessedAt, &insight,
	)
	if err != nil {
		return nil, err
	}

	if e.Insight, err = decodeNullable[domain.Insight](insight); err != nil {
		return nil, fmt.Errorf("decode insight: %w", err)
	}
	return &e, nil
}

func scanParticipants(rows pgx.Rows) ([]*domain.ParticipantIndexEntry, error) {
	var result []*domain.ParticipantIndexEntry
	for rows.Next() {
		e, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participant entries: %w", err)
	}
	return result, nil
}
