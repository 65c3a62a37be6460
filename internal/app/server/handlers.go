package server

import (
	"time"

	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

// Handler for every message a client sends on the push channel.
func (s *server) handleWebSocketMessage(sessionId string, payload payload) {
	switch payload.Type {
	case "join_queue":
		s.handleJoinQueue(sessionId, payload.Token)
	case "leave_queue":
		s.handleLeaveQueue(sessionId)
	case "game_ready":
		s.handleGameReady(sessionId)
	default:
		logging.Info("invalid payload type:", zap.String("type", payload.Type))
	}
}

// Handler for join_queue: verifies the identity token, binds the player to
// the session and enqueues them.
func (s *server) handleJoinQueue(sessionId, token string) {
	player, err := s.auth.ParseIdentity(token)
	if err != nil {
		logging.Info("rejected identity token",
			zap.String("session_id", sessionId),
			zap.Error(err),
		)
		s.sessions.Send(sessionId, errorResponse{
			Type:  "error",
			Error: ErrStatusInvalidIdentity,
		})
		return
	}
	if err := s.sessions.AttachPlayer(sessionId, player); err != nil {
		logging.Error("failed to attach player",
			zap.String("session_id", sessionId),
			zap.Error(err),
		)
		return
	}
	if err := s.queue.Enqueue(sessionId, player); err != nil {
		logging.Info("enqueue rejected",
			zap.String("player_id", player.Id),
			zap.Error(err),
		)
		s.sessions.Send(sessionId, errorResponse{
			Type:  "error",
			Error: ErrStatusAlreadyQueued,
		})
	}
}

func (s *server) handleLeaveQueue(sessionId string) {
	player, exist := s.sessions.Player(sessionId)
	if !exist {
		return
	}
	s.queue.Dequeue(player.Id)
}

// Handler for game_ready: acknowledges readiness and starts following the
// player's chat so pulls flow in by the time the game begins.
func (s *server) handleGameReady(sessionId string) {
	if err := s.matches.RouteReady(sessionId); err != nil {
		logging.Info("dropped ready ack",
			zap.String("session_id", sessionId),
			zap.Error(err),
		)
		return
	}
	player, exist := s.sessions.Player(sessionId)
	if !exist {
		return
	}
	s.chat.Watch(sessionId, player, s.handleChatPull)
}

// Handler for a pull command seen in chat. A pull for a channel without a
// live match is dropped without a word to anyone.
func (s *server) handleChatPull(channel, viewerId string, at time.Time) {
	if err := s.matches.RouteChatPull(channel, viewerId, at); err != nil {
		logging.Debug("dropped pull",
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}

// Handler for when a client connection closes.
func (s *server) handleClientGone(sessionId string) {
	player, attached := s.sessions.Player(sessionId)
	s.sessions.Unregister(sessionId)
	s.chat.Stop(sessionId)

	if attached {
		s.queue.Dequeue(player.Id)
	}
	if err := s.matches.RouteDisconnect(sessionId); err != nil {
		logging.Debug("no match for closed session",
			zap.String("session_id", sessionId),
			zap.Error(err),
		)
	}
}

// Handler for when a match reaches a terminal state: the chat monitors for
// both sides stop so their sockets don't outlive the game.
func (s *server) handleEndGame(match *Match) {
	for _, side := range match.sides {
		s.chat.Stop(side.SessionId)
	}
}
