package ingestion

import (
	"encoding/json"
	"time"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/idhash"
	"rift-stats-lab/internal/orchestrator"
	"rift-stats-lab/internal/riot"
)

// Processed is the storage-ready form of one match payload.
type Processed struct {
	Record  *domain.MatchRecord
	Entries []*domain.ParticipantIndexEntry

	// MissingID counts participants skipped for lack of a puuid.
	MissingID int
}

// ProcessMatchData parses a raw match payload into one MatchRecord and one
// ParticipantIndexEntry per identified participant. It has no side effects.
func ProcessMatchData(raw json.RawMessage, now time.Time) (*Processed, error) {
	const op = "ingestion.ProcessMatchData"

	var m riot.MatchDto
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, domain.Errorf(domain.KindInvalidMatchData, op, "decode: %v", err)
	}
	matchID := m.Metadata.MatchID
	switch {
	case matchID == "":
		return nil, domain.Errorf(domain.KindInvalidMatchData, op, "missing metadata.matchId")
	case m.Info.GameCreation == 0:
		return nil, domain.Errorf(domain.KindInvalidMatchData, op, "%s: missing info.gameCreation", matchID)
	case len(m.Info.Participants) == 0:
		return nil, domain.Errorf(domain.KindInvalidMatchData, op, "%s: no participants", matchID)
	}

	p := &Processed{
		Record: orchestrator.NewMatchRecord(matchID, raw, now, orchestrator.DefaultRecordTTL),
	}
	p.Record.GameCreation = m.Info.GameCreation

	processedAt := now.UnixMilli()
	for _, part := range m.Info.Participants {
		if part.PUUID == "" {
			p.MissingID++
			continue
		}
		p.Entries = append(p.Entries, newEntry(matchID, &m.Info, &part, processedAt))
	}
	return p, nil
}

func newEntry(matchID string, info *riot.MatchInfoDto, part *riot.ParticipantDto, processedAt int64) *domain.ParticipantIndexEntry {
	return &domain.ParticipantIndexEntry{
		ID:           idhash.ComputeParticipantEntryID(part.PUUID, matchID),
		PUUID:        part.PUUID,
		MatchID:      matchID,
		PlatformID:   info.PlatformID,
		GameCreation: info.GameCreation,
		GameDuration: info.GameDuration,
		QueueID:      info.QueueID,
		GameMode:     info.GameMode,

		Win:     part.Win,
		Kills:   part.Kills,
		Deaths:  part.Deaths,
		Assists: part.Assists,
		KDA:     domain.ComputeKDA(part.Kills, part.Deaths, part.Assists),

		ChampionID:   part.ChampionID,
		ChampionName: part.ChampionName,
		Lane:         part.Lane,
		Role:         part.Role,
		TeamPosition: part.TeamPosition,
		TeamID:       part.TeamID,

		TotalDamageDealt:            part.TotalDamageDealt,
		TotalDamageDealtToChampions: part.TotalDamageDealtToChampions,
		TotalMinionsKilled:          part.TotalMinionsKilled,
		NeutralMinionsKilled:        part.NeutralMinionsKilled,
		VisionScore:                 part.VisionScore,
		GoldEarned:                  part.GoldEarned,
		GoldSpent:                   part.GoldSpent,
		TimePlayed:                  part.TimePlayed,
		TotalTimeSpentDead:          part.TotalTimeSpentDead,

		ProcessedAt: processedAt,
	}
}
