package domain

// PlayerViewState is the materialization state of a player's history view.
type PlayerViewState string

const (
	// PlayerStateNoData means no participant entries exist for the player.
	PlayerStateNoData PlayerViewState = "NO_DATA"
	// PlayerStateIngesting means an ingestion run is in flight.
	PlayerStateIngesting PlayerViewState = "INGESTING"
	// PlayerStateReady means entries and aggregate exist; reads are pure.
	PlayerStateReady PlayerViewState = "READY"
)
