package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/storage"
)

// ParticipantIndexStore implements storage.ParticipantIndexStore using ClickHouse.
// Rows live in a ReplacingMergeTree keyed by (puuid, match_id); reads use FINAL.
type ParticipantIndexStore struct {
	conn *Conn
	now  func() time.Time
}

// NewParticipantIndexStore creates a new ParticipantIndexStore.
func NewParticipantIndexStore(conn *Conn) *ParticipantIndexStore {
	return &ParticipantIndexStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.ParticipantIndexStore = (*ParticipantIndexStore)(nil)

const participantSelect = `
	SELECT
		id, puuid, match_id, platform_id, game_creation, game_duration, queue_id, game_mode,
		win, kills, deaths, assists, kda,
		champion_id, champion_name, lane, role, team_position, team_id,
		total_damage_dealt, total_damage_dealt_to_champions, total_minions_killed, neutral_minions_killed,
		vision_score, gold_earned, gold_spent, time_played, total_time_spent_dead,
		processed_at, insight
	FROM participant_index FINAL
`

// createdVersion is the row version written by Create. Any insight row
// carries a strictly greater version, so a late duplicate create collapses
// under it during merges instead of dropping the insight.
const createdVersion uint64 = 0

// Create adds a new entry. Returns ErrDuplicateKey if (puuid, match_id) exists.
// The existence check and the insert are not atomic: two concurrent creates
// of the same key may both succeed, leaving one row after FINAL.
func (s *ParticipantIndexStore) Create(ctx context.Context, e *domain.ParticipantIndexEntry) error {
	if e == nil || e.PUUID == "" || e.MatchID == "" {
		return storage.ErrInvalidInput
	}

	// ReplacingMergeTree would silently replace; keep create-once semantics
	exists, err := s.exists(ctx, e.PUUID, e.MatchID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	if err := s.insert(ctx, e, createdVersion); err != nil {
		return fmt.Errorf("insert participant entry: %w", err)
	}
	return nil
}

// Get retrieves one entry. Returns ErrNotFound if not exists.
func (s *ParticipantIndexStore) Get(ctx context.Context, puuid, matchID string) (*domain.ParticipantIndexEntry, error) {
	rows, err := s.conn.Query(ctx, participantSelect+` WHERE puuid = ? AND match_id = ? LIMIT 1`, puuid, matchID)
	if err != nil {
		return nil, fmt.Errorf("query participant entry: %w", err)
	}
	defer rows.Close()

	entries, err := scanParticipants(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, storage.ErrNotFound
	}
	return entries[0], nil
}

// ListByPUUID retrieves entries for a player, newest first. limit <= 0 returns all.
func (s *ParticipantIndexStore) ListByPUUID(ctx context.Context, puuid string, limit int) ([]*domain.ParticipantIndexEntry, error) {
	query := participantSelect + ` WHERE puuid = ? ORDER BY game_creation DESC, match_id DESC`
	args := []any{puuid}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query participant entries: %w", err)
	}
	defer rows.Close()

	return scanParticipants(rows)
}

// CountByPUUID returns the number of entries for a player.
func (s *ParticipantIndexStore) CountByPUUID(ctx context.Context, puuid string) (int, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM participant_index FINAL WHERE puuid = ?`, puuid).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participant entries: %w", err)
	}
	return int(count), nil
}

// AttachInsight writes a newer version of the row carrying the insight.
func (s *ParticipantIndexStore) AttachInsight(ctx context.Context, puuid, matchID string, insight *domain.Insight) error {
	e, err := s.Get(ctx, puuid, matchID)
	if err != nil {
		return err
	}
	e.Insight = insight.Clone()

	version := uint64(s.now().UnixNano())
	if version <= createdVersion {
		version = createdVersion + 1
	}
	if err := s.insert(ctx, e, version); err != nil {
		return fmt.Errorf("attach participant insight: %w", err)
	}
	return nil
}

func (s *ParticipantIndexStore) insert(ctx context.Context, e *domain.ParticipantIndexEntry, version uint64) error {
	var insight *string
	if e.Insight != nil {
		raw, err := json.Marshal(e.Insight)
		if err != nil {
			return fmt.Errorf("encode insight: %w", err)
		}
		str := string(raw)
		insight = &str
	}

	query := `
		INSERT INTO participant_index (
			id, puuid, match_id, platform_id, game_creation, game_duration, queue_id, game_mode,
			win, kills, deaths, assists, kda,
			champion_id, champion_name, lane, role, team_position, team_id,
			total_damage_dealt, total_damage_dealt_to_champions, total_minions_killed, neutral_minions_killed,
			vision_score, gold_earned, gold_spent, time_played, total_time_spent_dead,
			processed_at, insight, version
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?
		)
	`

	return s.conn.Exec(ctx, query,
		e.ID, e.PUUID, e.MatchID, e.PlatformID, e.GameCreation, e.GameDuration, int32(e.QueueID), e.GameMode,
		e.Win, int32(e.Kills), int32(e.Deaths), int32(e.Assists), e.KDA,
		int32(e.ChampionID), e.ChampionName, e.Lane, e.Role, e.TeamPosition, int32(e.TeamID),
		e.TotalDamageDealt, e.TotalDamageDealtToChampions, int32(e.TotalMinionsKilled), int32(e.NeutralMinionsKilled),
		int32(e.VisionScore), int32(e.GoldEarned), int32(e.GoldSpent), int32(e.TimePlayed), int32(e.TotalTimeSpentDead),
		e.ProcessedAt, insight, version,
	)
}

func (s *ParticipantIndexStore) exists(ctx context.Context, puuid, matchID string) (bool, error) {
	query := `
		SELECT count(*) FROM participant_index FINAL
		WHERE puuid = ? AND match_id = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, puuid, matchID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanParticipants scans multiple rows into a slice.
func scanParticipants(rows chRows) ([]*domain.ParticipantIndexEntry, error) {
	var entries []*domain.ParticipantIndexEntry

	for rows.Next() {
		var e domain.ParticipantIndexEntry
		var queueID, kills, deaths, assists, championID, teamID int32
		var minions, neutral, vision, goldEarned, goldSpent, timePlayed, timeDead int32
		var insight *string

		err := rows.Scan(
			&e.ID, &e.PUUID, &e.MatchID, &e.PlatformID, &e.GameCreation, &e.GameDuration, &queueID, &e.GameMode,
			&e.Win, &kills, &deaths, &assists, &e.KDA,
			&championID, &e.ChampionName, &e.Lane, &e.Role, &e.TeamPosition, &teamID,
			&e.TotalDamageDealt, &e.TotalDamageDealtToChampions, &minions, &neutral,
			&vision, &goldEarned, &goldSpent, &timePlayed, &timeDead,
			&e.ProcessedAt, &insight,
		)
		if err != nil {
			return nil, fmt.Errorf("scan participant row: %w", err)
		}

		e.QueueID = int(queueID)
		e.Kills, e.Deaths, e.Assists = int(kills), int(deaths), int(assists)
		e.ChampionID, e.TeamID = int(championID), int(teamID)
		e.TotalMinionsKilled, e.NeutralMinionsKilled = int(minions), int(neutral)
		e.VisionScore, e.GoldEarned, e.GoldSpent = int(vision), int(goldEarned), int(goldSpent)
		e.TimePlayed, e.TotalTimeSpentDead = int(timePlayed), int(timeDead)

		if insight != nil && *insight != "" {
			var in domain.Insight
			if err := json.Unmarshal([]byte(*insight), &in); err != nil {
				return nil, fmt.Errorf("decode insight: %w", err)
			}
			e.Insight = &in
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participant rows: %w", err)
	}
	return entries, nil
}
