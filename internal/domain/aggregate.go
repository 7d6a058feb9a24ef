package domain

// PlayerAggregate holds rollup statistics for one player.
// It is a pure function of the player's ParticipantIndexEntry set and is
// replaced wholesale on every recompute.
type PlayerAggregate struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName,omitempty"`
	TagLine  string `json:"tagLine,omitempty"`

	TotalMatches int     `json:"totalMatches"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"winRate"`

	AvgKDA         KDAStats `json:"avgKDA"`
	AvgCS          float64  `json:"avgCS"`
	AvgDamage      float64  `json:"avgDamage"`
	AvgVisionScore float64  `json:"avgVisionScore"`

	ChampionStats map[string]ChampionStats `json:"championStats"` // keyed by champion ID
	RoleStats     map[string]RoleStats     `json:"roleStats"`     // keyed by position

	LastUpdated      int64    `json:"lastUpdated"`      // epoch ms of last recompute
	LastMatchFetched int64    `json:"lastMatchFetched"` // max gameCreation folded in
	Insight          *Insight `json:"insight,omitempty"`
}

// KDAStats holds average kills, deaths and assists plus the derived ratio.
type KDAStats struct {
	Kills   float64 `json:"kills"`
	Deaths  float64 `json:"deaths"`
	Assists float64 `json:"assists"`
	Ratio   float64 `json:"ratio"`
}

// ChampionStats accumulates per-champion totals.
type ChampionStats struct {
	ChampionName string  `json:"championName,omitempty"`
	Games        int     `json:"games"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Kills        int     `json:"kills"`
	Deaths       int     `json:"deaths"`
	Assists      int     `json:"assists"`
	KDA          float64 `json:"kda"`
}

// RoleStats accumulates per-position totals.
type RoleStats struct {
	Games  int `json:"games"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// UnknownRole is the role key used when neither teamPosition nor role is set.
const UnknownRole = "UNKNOWN"

// Clone returns a deep copy of the aggregate.
func (a *PlayerAggregate) Clone() *PlayerAggregate {
	if a == nil {
		return nil
	}
	c := *a
	if a.ChampionStats != nil {
		c.ChampionStats = make(map[string]ChampionStats, len(a.ChampionStats))
		for k, v := range a.ChampionStats {
			c.ChampionStats[k] = v
		}
	}
	if a.RoleStats != nil {
		c.RoleStats = make(map[string]RoleStats, len(a.RoleStats))
		for k, v := range a.RoleStats {
			c.RoleStats[k] = v
		}
	}
	c.Insight = a.Insight.Clone()
	return &c
}
