package cache

// MatchKey returns the object key for a match payload.
func MatchKey(matchID string) string {
	return "matches/" + matchID + ".json"
}

// TimelineKey returns the object key for a timeline payload.
func TimelineKey(matchID string) string {
	return "timelines/" + matchID + ".json"
}
