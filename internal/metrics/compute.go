package metrics

import (
	"sort"
	"strconv"
	"time"

	"rift-stats-lab/internal/domain"
)

// ComputeAggregate folds a player's participant entries into a PlayerAggregate.
// Entries without a match ID or game creation time are skipped.
// Entries are folded in (gameCreation ASC, matchId ASC) order so the result is
// identical for any permutation of the input.
// Identity and insight fields are left empty; the caller fills them.
func ComputeAggregate(puuid string, entries []*domain.ParticipantIndexEntry, now time.Time) *domain.PlayerAggregate {
	valid := make([]*domain.ParticipantIndexEntry, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.MatchID == "" || e.GameCreation == 0 {
			continue
		}
		valid = append(valid, e)
	}
	sort.Slice(valid, func(i, j int) bool {
		if valid[i].GameCreation != valid[j].GameCreation {
			return valid[i].GameCreation < valid[j].GameCreation
		}
		return valid[i].MatchID < valid[j].MatchID
	})

	agg := &domain.PlayerAggregate{
		PUUID:         puuid,
		ChampionStats: make(map[string]domain.ChampionStats),
		RoleStats:     make(map[string]domain.RoleStats),
		LastUpdated:   now.UnixMilli(),
	}

	var (
		kills, deaths, assists int
		cs                     int
		damage                 int64
		vision                 int
		lastMatch              int64
	)

	for _, e := range valid {
		agg.TotalMatches++
		if e.Win {
			agg.Wins++
		} else {
			agg.Losses++
		}

		kills += e.Kills
		deaths += e.Deaths
		assists += e.Assists
		cs += e.CreepScore()
		damage += e.TotalDamageDealtToChampions
		vision += e.VisionScore

		if e.GameCreation > lastMatch {
			lastMatch = e.GameCreation
		}

		champKey := strconv.Itoa(e.ChampionID)
		champ := agg.ChampionStats[champKey]
		champ.Games++
		if e.Win {
			champ.Wins++
		} else {
			champ.Losses++
		}
		champ.Kills += e.Kills
		champ.Deaths += e.Deaths
		champ.Assists += e.Assists
		if e.ChampionName != "" {
			champ.ChampionName = e.ChampionName
		}
		agg.ChampionStats[champKey] = champ

		roleKey := RoleKey(e)
		role := agg.RoleStats[roleKey]
		role.Games++
		if e.Win {
			role.Wins++
		} else {
			role.Losses++
		}
		agg.RoleStats[roleKey] = role
	}

	for k, champ := range agg.ChampionStats {
		champ.KDA = domain.ComputeKDA(champ.Kills, champ.Deaths, champ.Assists)
		agg.ChampionStats[k] = champ
	}

	n := agg.TotalMatches
	agg.WinRate = safeDiv(float64(agg.Wins), n)
	agg.AvgKDA = domain.KDAStats{
		Kills:   safeDiv(float64(kills), n),
		Deaths:  safeDiv(float64(deaths), n),
		Assists: safeDiv(float64(assists), n),
	}
	agg.AvgKDA.Ratio = kdaRatio(agg.AvgKDA)
	agg.AvgCS = safeDiv(float64(cs), n)
	agg.AvgDamage = safeDiv(float64(damage), n)
	agg.AvgVisionScore = safeDiv(float64(vision), n)

	if lastMatch == 0 {
		lastMatch = now.UnixMilli()
	}
	agg.LastMatchFetched = lastMatch

	return agg
}

// RoleKey returns the bucket for an entry: teamPosition, then role, then UNKNOWN.
func RoleKey(e *domain.ParticipantIndexEntry) string {
	switch {
	case e.TeamPosition != "":
		return e.TeamPosition
	case e.Role != "":
		return e.Role
	default:
		return domain.UnknownRole
	}
}

func kdaRatio(k domain.KDAStats) float64 {
	if k.Deaths > 0 {
		return (k.Kills + k.Assists) / k.Deaths
	}
	return k.Kills + k.Assists
}

func safeDiv(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
