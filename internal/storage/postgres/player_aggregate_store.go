package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/storage"
)

// PlayerAggregateStore implements storage.PlayerAggregateStore using PostgreSQL.
type PlayerAggregateStore struct {
	pool *Pool
}

// NewPlayerAggregateStore creates a new PlayerAggregateStore.
func NewPlayerAggregateStore(pool *Pool) *PlayerAggregateStore {
	return &PlayerAggregateStore{pool: pool}
}

// Compile-time interface check.
var (
	_ storage.PlayerAggregateStore    = (*PlayerAggregateStore)(nil)
	_ storage.PlayerAggregateUpserter = (*PlayerAggregateStore)(nil)
)

const aggregateColumns = `
	puuid, game_name, tag_line, total_matches, wins, losses, win_rate,
	avg_kda, avg_cs, avg_damage, avg_vision_score,
	champion_stats, role_stats, last_updated, last_match_fetched, insight
`

// aggregateRow holds the JSONB-encoded columns of an aggregate.
type aggregateRow struct {
	avgKDA    []byte
	champions []byte
	roles     []byte
	insight   []byte
}

func encodeAggregate(a *domain.PlayerAggregate) (*aggregateRow, error) {
	var r aggregateRow
	var err error

	if r.avgKDA, err = json.Marshal(a.AvgKDA); err != nil {
		return nil, fmt.Errorf("encode avg kda: %w", err)
	}
	champions := a.ChampionStats
	if champions == nil {
		champions = map[string]domain.ChampionStats{}
	}
	if r.champions, err = json.Marshal(champions); err != nil {
		return nil, fmt.Errorf("encode champion stats: %w", err)
	}
	roles := a.RoleStats
	if roles == nil {
		roles = map[string]domain.RoleStats{}
	}
	if r.roles, err = json.Marshal(roles); err != nil {
		return nil, fmt.Errorf("encode role stats: %w", err)
	}
	if r.insight, err = jsonOrNull(a.Insight); err != nil {
		return nil, fmt.Errorf("encode insight: %w", err)
	}
	return &r, nil
}

func aggregateArgs(a *domain.PlayerAggregate, r *aggregateRow) []any {
	return []any{
		a.PUUID, a.GameName, a.TagLine, a.TotalMatches, a.Wins, a.Losses, a.WinRate,
		r.avgKDA, a.AvgCS, a.AvgDamage, a.AvgVisionScore,
		r.champions, r.roles, a.LastUpdated, a.LastMatchFetched, r.insight,
	}
}

// Get retrieves an aggregate by PUUID. Returns ErrNotFound if not exists.
func (s *PlayerAggregateStore) Get(ctx context.Context, puuid string) (*domain.PlayerAggregate, error) {
	query := `SELECT ` + aggregateColumns + ` FROM player_aggregates WHERE puuid = $1`

	a, err := scanAggregate(s.pool.QueryRow(ctx, query, puuid))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get player aggregate: %w", err)
	}
	return a, nil
}

// Create adds a new aggregate. Returns ErrDuplicateKey if puuid exists.
func (s *PlayerAggregateStore) Create(ctx context.Context, a *domain.PlayerAggregate) error {
	if a == nil || a.PUUID == "" {
		return storage.ErrInvalidInput
	}
	r, err := encodeAggregate(a)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO player_aggregates (` + aggregateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	if _, err := s.pool.Exec(ctx, query, aggregateArgs(a, r)...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert player aggregate: %w", err)
	}
	return nil
}

// Update replaces an existing aggregate. Returns ErrNotFound if not exists.
func (s *PlayerAggregateStore) Update(ctx context.Context, a *domain.PlayerAggregate) error {
	if a == nil || a.PUUID == "" {
		return storage.ErrInvalidInput
	}
	r, err := encodeAggregate(a)
	if err != nil {
		return err
	}

	query := `
		UPDATE player_aggregates SET
			game_name = $2, tag_line = $3, total_matches = $4, wins = $5, losses = $6, win_rate = $7,
			avg_kda = $8, avg_cs = $9, avg_damage = $10, avg_vision_score = $11,
			champion_stats = $12, role_stats = $13, last_updated = $14, last_match_fetched = $15, insight = $16
		WHERE puuid = $1
	`

	tag, err := s.pool.Exec(ctx, query, aggregateArgs(a, r)...)
	if err != nil {
		return fmt.Errorf("update player aggregate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Upsert creates or replaces the aggregate in a single statement.
func (s *PlayerAggregateStore) Upsert(ctx context.Context, a *domain.PlayerAggregate) error {
	if a == nil || a.PUUID == "" {
		return storage.ErrInvalidInput
	}
	r, err := encodeAggregate(a)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO player_aggregates (` + aggregateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (puuid) DO UPDATE SET
			game_name = EXCLUDED.game_name,
			tag_line = EXCLUDED.tag_line,
			total_matches = EXCLUDED.total_matches,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			win_rate = EXCLUDED.win_rate,
			avg_kda = EXCLUDED.avg_kda,
			avg_cs = EXCLUDED.avg_cs,
			avg_damage = EXCLUDED.avg_damage,
			avg_vision_score = EXCLUDED.avg_vision_score,
			champion_stats = EXCLUDED.champion_stats,
			role_stats = EXCLUDED.role_stats,
			last_updated = EXCLUDED.last_updated,
			last_match_fetched = EXCLUDED.last_match_fetched,
			insight = EXCLUDED.insight
	`

	if _, err := s.pool.Exec(ctx, query, aggregateArgs(a, r)...); err != nil {
		return fmt.Errorf("upsert player aggregate: %w", err)
	}
	return nil
}

// AttachInsight sets the insight on an aggregate.
func (s *PlayerAggregateStore) AttachInsight(ctx context.Context, puuid string, insight *domain.Insight) error {
	raw, err := jsonOrNull(insight)
	if err != nil {
		return fmt.Errorf("encode insight: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `UPDATE player_aggregates SET insight = $2 WHERE puuid = $1`, puuid, raw)
	if err != nil {
		return fmt.Errorf("attach aggregate insight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanAggregate(row pgx.Row) (*domain.PlayerAggregate, error) {
	var a domain.PlayerAggregate
	var r aggregateRow

	err := row.Scan(
		&a.PUUID, &a.GameName, &a.TagLine, &a.TotalMatches, &a.Wins, &a.Losses, &a.WinRate,
		&r.avgKDA, &a.AvgCS, &a.AvgDamage, &a.AvgVisionScore,
		&r.champions, &r.roles, &a.LastUpdated, &a.LastMatchFetched, &r.insight,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(r.avgKDA, &a.AvgKDA); err != nil {
		return nil, fmt.Errorf("decode avg kda: %w", err)
	}
	if err := json.Unmarshal(r.champions, &a.ChampionStats); err != nil {
		return nil, fmt.Errorf("decode champion stats: %w", err)
	}
	if err := json.Unmarshal(r.roles, &a.RoleStats); err != nil {
		return nil, fmt.Errorf("decode role stats: %w", err)
	}
	if a.Insight, err = decodeNullable[domain.Insight](r.insight); err != nil {
		return nil, fmt.Errorf("decode insight: %w", err)
	}
	return &a, nil
}
