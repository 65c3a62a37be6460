package dtos

type ServerStatusResponse struct {
	ActiveMatches int `json:"active_matches"`
	QueuedPlayers int `json:"queued_players"`
}
