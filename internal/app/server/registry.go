package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tugochat/tugochat/internal/domains/entities"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

// channelRoute maps a streamer's chat channel to the match side it powers.
type channelRoute struct {
	matchId string
	side    Side
}

// matchRegistry owns every live match and the indexes that route inbound
// signals to the right one. Terminal matches drop out of every index right
// after their final broadcast.
type matchRegistry struct {
	mu       sync.Mutex
	matches  map[string]*Match
	sessions map[string]string       // session id -> match id
	players  map[string]string       // player id -> match id
	channels map[string]channelRoute // channel name -> match side

	sender sender
	config MatchConfig

	// endGameHandler, when set, runs after a terminal match left the
	// registry.
	endGameHandler func(*Match)
}

func newMatchRegistry(sender sender, config MatchConfig) *matchRegistry {
	return &matchRegistry{
		matches:  make(map[string]*Match),
		sessions: make(map[string]string),
		players:  make(map[string]string),
		channels: make(map[string]channelRoute),
		sender:   sender,
		config:   config,
	}
}

// CreateMatch binds two players into a new match, indexes it and starts its
// goroutine. The first player passed takes side A.
func (r *matchRegistry) CreateMatch(
	playerA entities.Player,
	sessionA string,
	playerB entities.Player,
	sessionB string,
) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, live := r.players[playerA.Id]; live {
		return nil, ErrDuplicateParticipant
	}
	if _, live := r.players[playerB.Id]; live {
		return nil, ErrDuplicateParticipant
	}

	match := newMatch(
		uuid.NewString(),
		playerA,
		sessionA,
		playerB,
		sessionB,
		r.config,
		r.sender,
		r.handleMatchEnd,
	)
	r.matches[match.id] = match
	r.sessions[sessionA] = match.id
	r.sessions[sessionB] = match.id
	r.players[playerA.Id] = match.id
	r.players[playerB.Id] = match.id
	r.channels[playerA.ChannelName] = channelRoute{matchId: match.id, side: SIDE_A}
	r.channels[playerB.ChannelName] = channelRoute{matchId: match.id, side: SIDE_B}

	go match.start()
	logging.Info("match created",
		zap.String("match_id", match.id),
		zap.String("player_a", playerA.Id),
		zap.String("player_b", playerB.Id),
	)
	return match, nil
}

func (r *matchRegistry) HasLiveMatch(playerId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, live := r.players[playerId]
	return live
}

func (r *matchRegistry) liveMatches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matches)
}

// RouteReady forwards a readiness ack to the session's match.
func (r *matchRegistry) RouteReady(sessionId string) error {
	match, err := r.matchBySession(sessionId)
	if err != nil {
		return err
	}
	match.Ready(sessionId)
	return nil
}

// RoutePull records one viewer pull against one side of a live match.
func (r *matchRegistry) RoutePull(matchId string, side Side, viewerId string, at time.Time) error {
	r.mu.Lock()
	match, exist := r.matches[matchId]
	r.mu.Unlock()
	if !exist {
		return ErrUnknownMatch
	}
	match.Pull(side, viewerId, at)
	return nil
}

// RouteChatPull resolves the channel mapping populated at match creation
// and forwards the pull. A pull for an unmapped channel is a silent no-op
// for players; only the caller sees the error.
func (r *matchRegistry) RouteChatPull(channelName, viewerId string, at time.Time) error {
	r.mu.Lock()
	route, exist := r.channels[channelName]
	r.mu.Unlock()
	if !exist {
		return ErrUnknownMatch
	}
	return r.RoutePull(route.matchId, route.side, viewerId, at)
}

// RouteDisconnect forwards a dropped session to its match, if it has one.
func (r *matchRegistry) RouteDisconnect(sessionId string) error {
	match, err := r.matchBySession(sessionId)
	if err != nil {
		return err
	}
	match.Disconnect(sessionId)
	return nil
}

func (r *matchRegistry) matchBySession(sessionId string) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matchId, exist := r.sessions[sessionId]
	if !exist {
		return nil, ErrUnknownSession
	}
	match, exist := r.matches[matchId]
	if !exist {
		return nil, ErrUnknownMatch
	}
	return match, nil
}

// handleMatchEnd drops every index entry for a terminal match. It runs on
// the match goroutine after the final broadcast, inside the same critical
// section that guards CreateMatch, so a player can requeue the moment it
// returns.
func (r *matchRegistry) handleMatchEnd(match *Match) {
	r.mu.Lock()
	delete(r.matches, match.id)
	for _, side := range match.sides {
		delete(r.sessions, side.SessionId)
		delete(r.players, side.Player.Id)
		delete(r.channels, side.Player.ChannelName)
	}
	handler := r.endGameHandler
	r.mu.Unlock()

	logging.Info("match removed", zap.String("match_id", match.id))
	if handler != nil {
		handler(match)
	}
}
