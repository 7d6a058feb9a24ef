package domain

// ParticipantIndexEntry is the denormalized view of one player in one match.
// Corresponds to participant_index table. Exactly one entry exists per
// (PUUID, MatchID); entries are append-only apart from Insight.
type ParticipantIndexEntry struct {
	ID           string `json:"id"` // deterministic hash of (puuid, matchId)
	PUUID        string `json:"puuid"`
	MatchID      string `json:"matchId"`
	PlatformID   string `json:"platformId,omitempty"`
	GameCreation int64  `json:"gameCreation"` // epoch milliseconds
	GameDuration int64  `json:"gameDuration"` // seconds
	QueueID      int    `json:"queueId"`
	GameMode     string `json:"gameMode"`

	Win     bool    `json:"win"`
	Kills   int     `json:"kills"`
	Deaths  int     `json:"deaths"`
	Assists int     `json:"assists"`
	KDA     float64 `json:"kda"`

	ChampionID   int    `json:"championId"`
	ChampionName string `json:"championName"`
	Lane         string `json:"lane,omitempty"`
	Role         string `json:"role,omitempty"`
	TeamPosition string `json:"teamPosition,omitempty"`
	TeamID       int    `json:"teamId"`

	TotalDamageDealt            int64 `json:"totalDamageDealt"`
	TotalDamageDealtToChampions int64 `json:"totalDamageDealtToChampions"`
	TotalMinionsKilled          int   `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int   `json:"neutralMinionsKilled"`
	VisionScore                 int   `json:"visionScore"`
	GoldEarned                  int   `json:"goldEarned"`
	GoldSpent                   int   `json:"goldSpent"`
	TimePlayed                  int   `json:"timePlayed"`
	TotalTimeSpentDead          int   `json:"totalTimeSpentDead"`

	ProcessedAt int64    `json:"processedAt"` // epoch milliseconds
	Insight     *Insight `json:"insight,omitempty"`
}

// CreepScore returns lane minions plus neutral monsters.
func (e *ParticipantIndexEntry) CreepScore() int {
	return e.TotalMinionsKilled + e.NeutralMinionsKilled
}

// Clone returns a deep copy of the entry.
func (e *ParticipantIndexEntry) Clone() *ParticipantIndexEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Insight = e.Insight.Clone()
	return &c
}

// ComputeKDA returns (kills+assists)/deaths, or kills+assists when deaths is zero.
func ComputeKDA(kills, deaths, assists int) float64 {
	if deaths > 0 {
		return float64(kills+assists) / float64(deaths)
	}
	return float64(kills + assists)
}
