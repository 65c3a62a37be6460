package servertest

import (
	"encoding/json"
	"fmt"

	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

// Handler for every message the server pushes to this client.
func (c *client) handleMessage(messageType string, message []byte) {
	switch messageType {
	case "queue_joined":
		logging.Info("queue joined", zap.String("player", c.player.Username))
	case "queue_left":
		logging.Info("queue left", zap.String("player", c.player.Username))
	case "match_found":
		c.handleMatchFound(message)
	case "game_started":
		logging.Info("game started", zap.String("player", c.player.Username))
	case "game_update":
		c.handleGameUpdate(message)
	case "game_ended":
		c.handleGameEnded(message)
	case "error":
		c.handleError(message)
	default:
		logging.Info("invalid payload type:", zap.String("type", messageType))
	}
}

// Handler for match_found: log the opponent and ack readiness right away.
func (c *client) handleMatchFound(message []byte) {
	var found matchFoundMessage
	if err := json.Unmarshal(message, &found); err != nil {
		c.finish(fmt.Errorf("failed to decode match_found: %w", err))
		return
	}
	logging.Info("match found",
		zap.String("player", c.player.Username),
		zap.String("room_id", found.RoomId),
		zap.String("opponent", found.Opponent.Username),
		zap.Int("opponent_viewers", found.Opponent.ViewerCount),
	)
	if err := c.conn.WriteJSON(payload{Type: "game_ready", RoomId: found.RoomId}); err != nil {
		c.finish(fmt.Errorf("failed to send ready ack: %w", err))
	}
}

func (c *client) handleGameUpdate(message []byte) {
	var update gameUpdateMessage
	if err := json.Unmarshal(message, &update); err != nil {
		c.finish(fmt.Errorf("failed to decode game_update: %w", err))
		return
	}
	logging.Info("game update",
		zap.String("player", c.player.Username),
		zap.Float64("rope_position", update.RopePosition),
		zap.Int("player1_score", update.Player1Score),
		zap.Int("player2_score", update.Player2Score),
		zap.Int("time_remaining", update.TimeRemaining),
	)
}

// Handler for game_ended: the scripted run for this client is over.
func (c *client) handleGameEnded(message []byte) {
	var ended gameEndedMessage
	if err := json.Unmarshal(message, &ended); err != nil {
		c.finish(fmt.Errorf("failed to decode game_ended: %w", err))
		return
	}
	winner := "draw"
	if ended.Winner != nil {
		winner = *ended.Winner
	}
	logging.Info("game ended",
		zap.String("player", c.player.Username),
		zap.String("winner", winner),
		zap.String("reason", ended.Stats.Reason),
		zap.Float64("rope_position", ended.Stats.RopePosition),
		zap.Int("duration_seconds", ended.Stats.DurationSeconds),
	)
	c.finish(nil)
}

func (c *client) handleError(message []byte) {
	var serverError errorMessage
	if err := json.Unmarshal(message, &serverError); err != nil {
		c.finish(fmt.Errorf("failed to decode error: %w", err))
		return
	}
	c.finish(fmt.Errorf("server rejected client: %s", serverError.Error))
}
