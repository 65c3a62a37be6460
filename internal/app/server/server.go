package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tugochat/tugochat/internal/app/twitch"
	"github.com/tugochat/tugochat/internal/domains/dtos"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

type server struct {
	address  string
	upgrader websocket.Upgrader

	config   Config
	sessions *sessionRegistry
	queue    *matchmakingQueue
	matches  *matchRegistry
	auth     *twitch.Auth
	chat     *twitch.ChatManager
}

func NewServer() *server {
	cfg := NewConfig()
	twitchCfg, err := twitch.LoadConfig()
	if err != nil {
		panic(err)
	}

	sessions := newSessionRegistry()
	matches := newMatchRegistry(sessions, MatchConfig{
		MatchDuration: cfg.MatchDuration,
		TickInterval:  cfg.TickInterval,
		ReadyTimeout:  cfg.ReadyTimeout,
		PullWindow:    cfg.PullWindow,
		BaseStrength:  cfg.BaseStrength,
		TickScale:     cfg.TickScale,
	})
	srv := &server{
		address: "0.0.0.0:" + cfg.Port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		config:   cfg,
		sessions: sessions,
		queue:    newMatchmakingQueue(sessions, matches),
		matches:  matches,
		auth:     twitch.NewAuth(twitchCfg),
		chat:     twitch.NewChatManager(twitchCfg, cfg.PullCooldown),
	}

	// An undeliverable session counts as disconnected for its match.
	sessions.sendFailureHandler = func(sessionId string) {
		if err := matches.RouteDisconnect(sessionId); err != nil {
			logging.Debug("no match for undeliverable session",
				zap.String("session_id", sessionId),
				zap.Error(err),
			)
		}
	}
	matches.endGameHandler = srv.handleEndGame

	return srv
}

// Start method    starts the game server
func (s *server) Start() error {
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error(
				"failed to upgrade connection",
				zap.String("error", err.Error()),
			)
			return
		}
		defer conn.Close()

		sessionId := uuid.NewString()
		s.sessions.Register(sessionId, conn)
		logging.Info("session connected",
			zap.String("session_id", sessionId),
			zap.String("remote_address", conn.RemoteAddr().String()),
		)

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				logging.Info(
					"connection closed",
					zap.String("session_id", sessionId),
					zap.Error(err),
				)
				s.handleClientGone(sessionId)
				break
			}

			payload := payload{}
			if err := json.Unmarshal(message, &payload); err != nil {
				logging.Info("dropped malformed message",
					zap.String("session_id", sessionId),
				)
				continue
			}
			s.handleWebSocketMessage(sessionId, payload)
		}
	})
	http.HandleFunc("/status", s.handleStatus)
	s.auth.Register(http.DefaultServeMux)

	logging.Info("websocket server started", zap.String("port", s.config.Port))
	return http.ListenAndServe(s.address, nil)
}

// Handler for the status probe.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := dtos.ServerStatusResponse{
		ActiveMatches: s.matches.liveMatches(),
		QueuedPlayers: s.queue.size(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logging.Error("failed to encode response", zap.Error(err))
	}
}
