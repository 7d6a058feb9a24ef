package metrics

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"rift-stats-lab/internal/domain"
)

const epsilon = 1e-9

func makeEntry(matchID string, gameCreation int64, championID int, win bool, k, d, a int) *domain.ParticipantIndexEntry {
	return &domain.ParticipantIndexEntry{
		PUUID:        "P1",
		MatchID:      matchID,
		GameCreation: gameCreation,
		ChampionID:   championID,
		Win:          win,
		Kills:        k,
		Deaths:       d,
		Assists:      a,
		KDA:          domain.ComputeKDA(k, d, a),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestComputeAggregate_SingleMatch(t *testing.T) {
	now := time.UnixMilli(5000)
	e := makeEntry("NA1_1", 1000, 99, true, 10, 2, 5)
	e.ChampionName = "Lux"
	e.TeamPosition = "MIDDLE"

	agg := ComputeAggregate("P1", []*domain.ParticipantIndexEntry{e}, now)

	if agg.TotalMatches != 1 || agg.Wins != 1 || agg.Losses != 0 {
		t.Errorf("counts mismatch: total=%d wins=%d losses=%d", agg.TotalMatches, agg.Wins, agg.Losses)
	}
	if !almostEqual(agg.WinRate, 1.0) {
		t.Errorf("WinRate: got %f, want 1.0", agg.WinRate)
	}

	champ, ok := agg.ChampionStats["99"]
	if !ok {
		t.Fatalf("expected championStats[\"99\"], got %v", agg.ChampionStats)
	}
	if champ.Games != 1 || champ.Wins != 1 || champ.Losses != 0 {
		t.Errorf("champion counts mismatch: %+v", champ)
	}
	if !almostEqual(champ.KDA, 7.5) {
		t.Errorf("champion KDA: got %f, want 7.5", champ.KDA)
	}
	if champ.ChampionName != "Lux" {
		t.Errorf("ChampionName: got %q", champ.ChampionName)
	}

	if agg.RoleStats["MIDDLE"].Games != 1 {
		t.Errorf("expected MIDDLE role bucket, got %v", agg.RoleStats)
	}
	if agg.LastMatchFetched != 1000 {
		t.Errorf("LastMatchFetched: got %d, want 1000", agg.LastMatchFetched)
	}
	if agg.LastUpdated != 5000 {
		t.Errorf("LastUpdated: got %d, want 5000", agg.LastUpdated)
	}
}

func TestComputeAggregate_Averages(t *testing.T) {
	entries := []*domain.ParticipantIndexEntry{
		makeEntry("NA1_1", 1000, 1, true, 4, 2, 6),
		makeEntry("NA1_2", 2000, 1, false, 2, 4, 2),
	}
	entries[0].TotalMinionsKilled, entries[0].NeutralMinionsKilled = 150, 10
	entries[1].TotalMinionsKilled = 100
	entries[0].TotalDamageDealtToChampions = 20000
	entries[1].TotalDamageDealtToChampions = 10000
	entries[0].VisionScore, entries[1].VisionScore = 30, 10

	agg := ComputeAggregate("P1", entries, time.UnixMilli(0))

	if !almostEqual(agg.AvgKDA.Kills, 3) || !almostEqual(agg.AvgKDA.Deaths, 3) || !almostEqual(agg.AvgKDA.Assists, 4) {
		t.Errorf("AvgKDA mismatch: %+v", agg.AvgKDA)
	}
	if !almostEqual(agg.AvgKDA.Ratio, 7.0/3.0) {
		t.Errorf("AvgKDA.Ratio: got %f, want %f", agg.AvgKDA.Ratio, 7.0/3.0)
	}
	if !almostEqual(agg.AvgCS, 130) {
		t.Errorf("AvgCS: got %f, want 130", agg.AvgCS)
	}
	if !almostEqual(agg.AvgDamage, 15000) {
		t.Errorf("AvgDamage: got %f, want 15000", agg.AvgDamage)
	}
	if !almostEqual(agg.AvgVisionScore, 20) {
		t.Errorf("AvgVisionScore: got %f, want 20", agg.AvgVisionScore)
	}
	if !almostEqual(agg.WinRate, 0.5) {
		t.Errorf("WinRate: got %f, want 0.5", agg.WinRate)
	}
	if !almostEqual(agg.ChampionStats["1"].KDA, 14.0/6.0) {
		t.Errorf("champion KDA: got %f", agg.ChampionStats["1"].KDA)
	}
}

func TestComputeAggregate_DeathlessRatio(t *testing.T) {
	agg := ComputeAggregate("P1", []*domain.ParticipantIndexEntry{
		makeEntry("NA1_1", 1000, 1, true, 5, 0, 3),
	}, time.UnixMilli(0))

	if !almostEqual(agg.AvgKDA.Ratio, 8) {
		t.Errorf("AvgKDA.Ratio: got %f, want 8", agg.AvgKDA.Ratio)
	}
	if !almostEqual(agg.ChampionStats["1"].KDA, 8) {
		t.Errorf("champion KDA: got %f, want 8", agg.ChampionStats["1"].KDA)
	}
}

func TestComputeAggregate_Empty(t *testing.T) {
	now := time.UnixMilli(42)
	agg := ComputeAggregate("P1", nil, now)

	if agg.TotalMatches != 0 || agg.WinRate != 0 || agg.AvgKDA.Ratio != 0 {
		t.Errorf("expected zero aggregate, got %+v", agg)
	}
	if agg.LastMatchFetched != 42 {
		t.Errorf("LastMatchFetched: got %d, want now", agg.LastMatchFetched)
	}
	if len(agg.ChampionStats) != 0 || len(agg.RoleStats) != 0 {
		t.Error("expected empty buckets")
	}
}

func TestComputeAggregate_SkipsInvalidEntries(t *testing.T) {
	entries := []*domain.ParticipantIndexEntry{
		makeEntry("NA1_1", 1000, 1, true, 1, 1, 1),
		makeEntry("", 2000, 1, true, 1, 1, 1),
		makeEntry("NA1_3", 0, 1, true, 1, 1, 1),
		nil,
	}

	agg := ComputeAggregate("P1", entries, time.UnixMilli(0))
	if agg.TotalMatches != 1 {
		t.Errorf("expected 1 valid match, got %d", agg.TotalMatches)
	}
}

func TestComputeAggregate_RoleFallback(t *testing.T) {
	withPosition := makeEntry("NA1_1", 1000, 1, true, 1, 1, 1)
	withPosition.TeamPosition = "JUNGLE"
	withPosition.Role = "NONE"
	withRole := makeEntry("NA1_2", 2000, 1, false, 1, 1, 1)
	withRole.Role = "SUPPORT"
	bare := makeEntry("NA1_3", 3000, 1, true, 1, 1, 1)

	agg := ComputeAggregate("P1", []*domain.ParticipantIndexEntry{withPosition, withRole, bare}, time.UnixMilli(0))

	want := map[string]domain.RoleStats{
		"JUNGLE":           {Games: 1, Wins: 1},
		"SUPPORT":          {Games: 1, Losses: 1},
		domain.UnknownRole: {Games: 1, Wins: 1},
	}
	if !reflect.DeepEqual(agg.RoleStats, want) {
		t.Errorf("RoleStats mismatch:\ngot  %+v\nwant %+v", agg.RoleStats, want)
	}
}

func TestComputeAggregate_Deterministic(t *testing.T) {
	var entries []*domain.ParticipantIndexEntry
	for i := 0; i < 20; i++ {
		e := makeEntry("NA1_"+string(rune('a'+i)), int64(1000+i*10), i%4, i%3 == 0, i%7, i%5, i%6)
		e.VisionScore = i * 3
		e.TotalDamageDealtToChampions = int64(i * 1111)
		entries = append(entries, e)
	}
	now := time.UnixMilli(99999)
	want := ComputeAggregate("P1", entries, now)

	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 5; run++ {
		shuffled := make([]*domain.ParticipantIndexEntry, len(entries))
		copy(shuffled, entries)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := ComputeAggregate("P1", shuffled, now)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: aggregate differs for permuted input", run)
		}
	}
}
