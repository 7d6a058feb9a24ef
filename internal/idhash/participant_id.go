package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeParticipantEntryID computes a deterministic participant entry id.
// Formula: SHA256(puuid|match_id), base58-encoded.
func ComputeParticipantEntryID(puuid, matchID string) string {
	data := fmt.Sprintf("%s|%s", puuid, matchID)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
