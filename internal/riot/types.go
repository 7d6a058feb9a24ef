package riot

// AccountDto is the account-v1 response.
type AccountDto struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// MatchDto is the subset of match-v5 read by ingestion.
type MatchDto struct {
	Metadata MatchMetadataDto `json:"metadata"`
	Info     MatchInfoDto     `json:"info"`
}

// MatchMetadataDto holds match identifiers.
type MatchMetadataDto struct {
	DataVersion  string   `json:"dataVersion"`
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

// MatchInfoDto holds match-level fields and the participant list.
type MatchInfoDto struct {
	GameCreation int64            `json:"gameCreation"`
	GameDuration int64            `json:"gameDuration"`
	GameMode     string           `json:"gameMode"`
	GameVersion  string           `json:"gameVersion"`
	PlatformID   string           `json:"platformId"`
	QueueID      int              `json:"queueId"`
	Participants []ParticipantDto `json:"participants"`
}

// ParticipantDto is one player's line in a match.
type ParticipantDto struct {
	PUUID                       string `json:"puuid"`
	RiotIDGameName              string `json:"riotIdGameName"`
	RiotIDTagline               string `json:"riotIdTagline"`
	ChampionID                  int    `json:"championId"`
	ChampionName                string `json:"championName"`
	TeamID                      int    `json:"teamId"`
	TeamPosition                string `json:"teamPosition"`
	Lane                        string `json:"lane"`
	Role                        string `json:"role"`
	Win                         bool   `json:"win"`
	Kills                       int    `json:"kills"`
	Deaths                      int    `json:"deaths"`
	Assists                     int    `json:"assists"`
	TotalDamageDealt            int64  `json:"totalDamageDealt"`
	TotalDamageDealtToChampions int64  `json:"totalDamageDealtToChampions"`
	TotalMinionsKilled          int    `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int    `json:"neutralMinionsKilled"`
	VisionScore                 int    `json:"visionScore"`
	GoldEarned                  int    `json:"goldEarned"`
	GoldSpent                   int    `json:"goldSpent"`
	TimePlayed                  int    `json:"timePlayed"`
	TotalTimeSpentDead          int    `json:"totalTimeSpentDead"`
}

// TimelineDto is the subset of the match timeline used for shape checks.
type TimelineDto struct {
	Metadata MatchMetadataDto `json:"metadata"`
	Info     TimelineInfoDto  `json:"info"`
}

// TimelineInfoDto holds timeline frames.
type TimelineInfoDto struct {
	FrameInterval int64              `json:"frameInterval"`
	Frames        []TimelineFrameDto `json:"frames"`
}

// TimelineFrameDto is one timeline frame; events are kept opaque.
type TimelineFrameDto struct {
	Timestamp int64            `json:"timestamp"`
	Events    []map[string]any `json:"events"`
}

// MatchListOptions are the query parameters for match-id listing.
// Zero values are omitted from the request.
type MatchListOptions struct {
	Start     int
	Count     int
	StartTime int64 // epoch seconds
	EndTime   int64 // epoch seconds
	Queue     int
	Type      string
}
