package server

import (
	"fmt"
	"sync"

	"github.com/tugochat/tugochat/internal/domains/entities"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

// sender pushes one JSON message to one session. The match engine and the
// queue only ever see this narrow surface.
type sender interface {
	Send(sessionId string, msg interface{}) error
}

// conn is the outbound half of a client connection. Satisfied by
// *websocket.Conn.
type conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type session struct {
	id     string
	conn   conn
	player *entities.Player

	mu *sync.Mutex
}

func newSession(id string, conn conn) *session {
	return &session{
		id:   id,
		conn: conn,
		mu:   new(sync.Mutex),
	}
}

// writeJson serializes writes per session since the websocket connection
// supports only one concurrent writer.
func (s *session) writeJson(msg interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrDeliveryFailed
	}
	return s.conn.WriteJSON(msg)
}

// sessionRegistry tracks live connections and the player identity attached
// to each. It is the single implementation of sender in the server.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session

	// sendFailureHandler runs in its own goroutine when a delivery fails,
	// so disconnect routing never re-enters the caller.
	sendFailureHandler func(sessionId string)
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*session),
	}
}

func (r *sessionRegistry) Register(sessionId string, conn conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionId] = newSession(sessionId, conn)
}

func (r *sessionRegistry) Unregister(sessionId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionId)
}

// AttachPlayer binds a verified player identity to a session. Later joins
// overwrite earlier ones; the queue and registry guard against duplicates.
func (r *sessionRegistry) AttachPlayer(sessionId string, player entities.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, exist := r.sessions[sessionId]
	if !exist {
		return ErrUnknownSession
	}
	session.player = &player
	return nil
}

func (r *sessionRegistry) Player(sessionId string) (entities.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, exist := r.sessions[sessionId]
	if !exist || session.player == nil {
		return entities.Player{}, false
	}
	return *session.player, true
}

// Send delivers one message to one session. A failed delivery is reported
// through the send failure handler and surfaced as ErrDeliveryFailed.
func (r *sessionRegistry) Send(sessionId string, msg interface{}) error {
	r.mu.Lock()
	session, exist := r.sessions[sessionId]
	handler := r.sendFailureHandler
	r.mu.Unlock()
	if !exist {
		return ErrUnknownSession
	}

	if err := session.writeJson(msg); err != nil {
		logging.Error("failed to deliver message",
			zap.String("session_id", sessionId),
			zap.Error(err),
		)
		if handler != nil {
			go handler(sessionId)
		}
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}
