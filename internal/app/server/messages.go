package server

import (
	"github.com/tugochat/tugochat/internal/domains/dtos"
)

// payload is the envelope for every message a client sends over the push
// channel.
type payload struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	RoomId string `json:"room_id,omitempty"`
}

// noticeResponse covers the type-only notices: queue_joined, queue_left and
// game_started.
type noticeResponse struct {
	Type string `json:"type"`
}

type matchFoundResponse struct {
	Type     string              `json:"type"`
	RoomId   string              `json:"room_id"`
	Opponent dtos.PlayerSnapshot `json:"opponent"`
}

type gameUpdateResponse struct {
	Type              string  `json:"type"`
	RopePosition      float64 `json:"rope_position"`
	Player1Score      int     `json:"player1_score"`
	Player2Score      int     `json:"player2_score"`
	Player1Engagement float64 `json:"player1_engagement"`
	Player2Engagement float64 `json:"player2_engagement"`
	TimeRemaining     int     `json:"time_remaining"`
}

type gameEndedResponse struct {
	Type   string        `json:"type"`
	Winner *string       `json:"winner"`
	Stats  gameEndedStat `json:"stats"`
}

type gameEndedStat struct {
	Reason            string  `json:"reason"`
	RopePosition      float64 `json:"rope_position"`
	DurationSeconds   int     `json:"duration_seconds"`
	Player1Score      int     `json:"player1_score"`
	Player2Score      int     `json:"player2_score"`
	Player1Engagement float64 `json:"player1_engagement"`
	Player2Engagement float64 `json:"player2_engagement"`
}

type errorResponse struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
