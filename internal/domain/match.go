package domain

import "encoding/json"

// MatchRecord is one immutable match blob keyed by match ID.
// Corresponds to match_records table in PostgreSQL.
//
// MatchID and GameCreation never change once MatchData is written. Only
// ProcessedAt, ExpiresAt, TimelineData and Insight may be refreshed.
type MatchRecord struct {
	MatchID      string          `json:"matchId"`                // PRIMARY KEY, assigned upstream
	GameCreation int64           `json:"gameCreation"`           // epoch milliseconds
	MatchData    json.RawMessage `json:"matchData"`              // full upstream match payload
	TimelineData json.RawMessage `json:"timelineData,omitempty"` // optional timeline payload
	ExpiresAt    int64           `json:"expiresAt"`              // epoch seconds, freshness marker only
	ProcessedAt  int64           `json:"processedAt"`            // epoch milliseconds of last write
	Insight      *Insight        `json:"insight,omitempty"`
}

// IsStale reports whether the freshness marker has passed.
// A stale record is still served; it is only eligible for re-verification.
func (m *MatchRecord) IsStale(nowSeconds int64) bool {
	return m.ExpiresAt == 0 || m.ExpiresAt <= nowSeconds
}

// Clone returns a deep copy of the record.
func (m *MatchRecord) Clone() *MatchRecord {
	if m == nil {
		return nil
	}
	c := *m
	c.MatchData = cloneRaw(m.MatchData)
	c.TimelineData = cloneRaw(m.TimelineData)
	c.Insight = m.Insight.Clone()
	return &c
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
