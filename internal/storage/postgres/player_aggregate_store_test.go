package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/storage"
)

func testAggregate(puuid string, total int) *domain.PlayerAggregate {
	return &domain.PlayerAggregate{
		PUUID:        puuid,
		GameName:     "Faker",
		TagLine:      "KR1",
		TotalMatches: total,
		Wins:         total,
		WinRate:      1,
		AvgKDA:       domain.KDAStats{Kills: 5, Deaths: 0, Assists: 3, Ratio: 8},
		AvgCS:        192,
		AvgDamage:    25000,
		ChampionStats: map[string]domain.ChampionStats{
			"99": {ChampionName: "Lux", Games: total, Wins: total, Kills: 5, Assists: 3, KDA: 8},
		},
		RoleStats: map[string]domain.RoleStats{
			"MIDDLE": {Games: total, Wins: total},
		},
		LastUpdated:      1700000000000,
		LastMatchFetched: 1000,
	}
}

func TestPlayerAggregateStore_CreateUpdate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPlayerAggregateStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Update(ctx, testAggregate("p1", 1)), storage.ErrNotFound)

	require.NoError(t, store.Create(ctx, testAggregate("p1", 1)))
	assert.ErrorIs(t, store.Create(ctx, testAggregate("p1", 1)), storage.ErrDuplicateKey)

	require.NoError(t, store.Update(ctx, testAggregate("p1", 2)))

	got, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, testAggregate("p1", 2), got)

	_, err = store.Get(ctx, "p2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPlayerAggregateStore_UpsertAndInsight(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPlayerAggregateStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testAggregate("p1", 1)))
	require.NoError(t, store.Upsert(ctx, testAggregate("p1", 4)))

	require.NoError(t, store.AttachInsight(ctx, "p1", &domain.Insight{Severity: domain.SeverityNoIssue, Summary: "steady"}))

	got, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalMatches)
	assert.Equal(t, 4, got.ChampionStats["99"].Games)
	require.NotNil(t, got.Insight)
	assert.Equal(t, "steady", got.Insight.Summary)
}
