package server

import (
	"time"

	"github.com/tugochat/tugochat/internal/domains/entities"
	"github.com/tugochat/tugochat/pkg/logging"
	"github.com/tugochat/tugochat/pkg/utils"
	"go.uber.org/zap"
)

type Match struct {
	id    string
	sides [2]*side

	state        MatchState
	reason       EndReason
	winnerId     string // empty while running and on a draw
	ropePosition float64
	startedAt    time.Time
	config       MatchConfig

	eventCh    chan event
	readyTimer *time.Timer
	ticker     *time.Ticker
	done       chan struct{}

	sender         sender
	endGameHandler func(*Match)
}

type MatchConfig struct {
	MatchDuration time.Duration
	TickInterval  time.Duration
	ReadyTimeout  time.Duration
	PullWindow    time.Duration
	BaseStrength  float64
	TickScale     float64
}

type eventKind uint8

const (
	READY eventKind = iota
	PULL
	DISCONNECT
)

// event is one inbound signal for the match goroutine.
type event struct {
	kind      eventKind
	sessionId string
	side      Side
	viewerId  string
	at        time.Time
}

func newMatch(
	id string,
	playerA entities.Player,
	sessionA string,
	playerB entities.Player,
	sessionB string,
	config MatchConfig,
	sender sender,
	endGameHandler func(*Match),
) *Match {
	return &Match{
		id: id,
		sides: [2]*side{
			newSide(playerA, sessionA, config.PullWindow),
			newSide(playerB, sessionB, config.PullWindow),
		},
		state:          PENDING_READY,
		config:         config,
		eventCh:        make(chan event, 256),
		done:           make(chan struct{}),
		sender:         sender,
		endGameHandler: endGameHandler,
	}
}

// Ready acknowledges game_ready from one of the match's sessions.
func (m *Match) Ready(sessionId string) {
	m.post(event{kind: READY, sessionId: sessionId})
}

// Pull records one viewer pull for a side.
func (m *Match) Pull(side Side, viewerId string, at time.Time) {
	m.post(event{kind: PULL, side: side, viewerId: viewerId, at: at})
}

// Disconnect reports that a session's connection is gone.
func (m *Match) Disconnect(sessionId string) {
	m.post(event{kind: DISCONNECT, sessionId: sessionId})
}

// post hands an event to the match goroutine. Events posted to a terminal
// match are dropped.
func (m *Match) post(ev event) {
	select {
	case m.eventCh <- ev:
	case <-m.done:
	}
}

// start is the match goroutine. It serializes every mutation of the rope,
// the pull windows and the state, so the engine needs no locks.
func (m *Match) start() {
	m.readyTimer = time.NewTimer(m.config.ReadyTimeout)
	defer m.readyTimer.Stop()

	for {
		select {
		case ev := <-m.eventCh:
			m.handleEvent(ev)
		case <-m.readyTimer.C:
			// Treat a non-responsive side as ready rather than stall the
			// opponent indefinitely.
			if m.state == PENDING_READY {
				logging.Info("ready timeout expired", zap.String("match_id", m.id))
				m.begin()
			}
		case <-m.tickC():
			m.tick(time.Now())
		case <-m.done:
			return
		}
	}
}

// tickC keeps the tick arm of the select dormant until begin() arms the
// ticker: a receive from a nil channel blocks forever.
func (m *Match) tickC() <-chan time.Time {
	if m.ticker == nil {
		return nil
	}
	return m.ticker.C
}

func (m *Match) handleEvent(ev event) {
	switch ev.kind {
	case READY:
		m.handleReady(ev.sessionId)
	case PULL:
		m.handlePull(ev.side, ev.viewerId, ev.at)
	case DISCONNECT:
		m.handleDisconnect(ev.sessionId)
	}
}

func (m *Match) handleReady(sessionId string) {
	if m.state != PENDING_READY {
		return
	}
	side, exist := m.getSideWithSessionId(sessionId)
	if !exist {
		return
	}
	side.Ready = true
	logging.Info("side ready",
		zap.String("match_id", m.id),
		zap.String("player_id", side.Player.Id),
	)
	if m.sides[SIDE_A].Ready && m.sides[SIDE_B].Ready {
		m.begin()
	}
}

func (m *Match) handlePull(s Side, viewerId string, at time.Time) {
	if m.state != IN_PROGRESS {
		return
	}
	side := m.sides[s]
	side.Window.Record(viewerId, at)
	side.Score++
}

func (m *Match) handleDisconnect(sessionId string) {
	side, exist := m.getSideWithSessionId(sessionId)
	if !exist || side.Gone {
		return
	}
	side.Gone = true
	logging.Info("side disconnected",
		zap.String("match_id", m.id),
		zap.String("player_id", side.Player.Id),
	)

	switch m.state {
	case IN_PROGRESS:
		m.finish(OPPONENT_DISCONNECTED, m.survivorId())
	case PENDING_READY:
		// Dropping while pending only forfeits readiness; begin() settles
		// the outcome when the ready timeout expires. With nobody left to
		// wait for, end right away.
		if m.sides[SIDE_A].Gone && m.sides[SIDE_B].Gone {
			m.finish(OPPONENT_DISCONNECTED, "")
		}
	}
}

// begin moves the match to IN_PROGRESS, arms the tick loop and announces the
// start. A side that dropped while pending forfeits on the spot.
func (m *Match) begin() {
	if m.state != PENDING_READY {
		return
	}
	m.readyTimer.Stop()

	m.state = IN_PROGRESS
	m.startedAt = time.Now()
	m.ropePosition = 0
	m.ticker = time.NewTicker(m.config.TickInterval)
	m.notifySides(noticeResponse{Type: "game_started"})
	logging.Info("game started",
		zap.String("match_id", m.id),
		zap.String("player_a", m.sides[SIDE_A].Player.Id),
		zap.String("player_b", m.sides[SIDE_B].Player.Id),
	)

	if m.sides[SIDE_A].Gone || m.sides[SIDE_B].Gone {
		m.finish(OPPONENT_DISCONNECTED, m.survivorId())
	}
}

// tick advances the rope by one interval and settles any terminal
// condition. rope_position is mutated here and nowhere else.
func (m *Match) tick(now time.Time) {
	if m.state != IN_PROGRESS {
		return
	}

	a, b := m.sides[SIDE_A], m.sides[SIDE_B]
	a.refresh(now, m.config.BaseStrength)
	b.refresh(now, m.config.BaseStrength)

	m.ropePosition += (a.Power - b.Power) * m.config.TickScale
	m.ropePosition = utils.Clamp(m.ropePosition, -ROPE_LIMIT, ROPE_LIMIT)

	switch {
	case m.ropePosition >= ROPE_LIMIT:
		m.finish(ROPE_REACHED_BOUNDARY, a.Player.Id)
	case m.ropePosition <= -ROPE_LIMIT:
		m.finish(ROPE_REACHED_BOUNDARY, b.Player.Id)
	case now.Sub(m.startedAt) >= m.config.MatchDuration:
		m.finish(TIME_EXPIRED, m.leaderId())
	default:
		m.notifySides(m.updateResponse(now))
	}
}

// finish makes the match terminal, pushes the final update and game_ended
// pair, and hands the match to the end game handler.
func (m *Match) finish(reason EndReason, winnerId string) {
	if m.state == ENDED {
		return
	}
	elapsed := time.Duration(0)
	if !m.startedAt.IsZero() {
		elapsed = time.Since(m.startedAt)
	}
	m.state = ENDED
	m.reason = reason
	m.winnerId = winnerId
	if m.ticker != nil {
		m.ticker.Stop()
	}

	m.notifySides(m.updateResponse(time.Now()))
	m.notifySides(m.endedResponse(elapsed))
	logging.Info("game ended",
		zap.String("match_id", m.id),
		zap.String("reason", reason.String()),
		zap.String("winner_id", winnerId),
	)

	m.endGameHandler(m)
	close(m.done)
}

// survivorId returns the player id of the only side still connected, or
// empty when neither remains.
func (m *Match) survivorId() string {
	var id string
	left := 0
	for _, s := range m.sides {
		if !s.Gone {
			id = s.Player.Id
			left++
		}
	}
	if left == 1 {
		return id
	}
	return ""
}

// leaderId picks the side the rope currently favors. Dead even is a draw.
func (m *Match) leaderId() string {
	switch {
	case m.ropePosition > 0:
		return m.sides[SIDE_A].Player.Id
	case m.ropePosition < 0:
		return m.sides[SIDE_B].Player.Id
	}
	return ""
}

func (m *Match) notifySides(resp interface{}) {
	for _, side := range m.sides {
		if side.Gone {
			continue
		}
		if err := m.sender.Send(side.SessionId, resp); err != nil {
			logging.Error("couldn't notify side: ",
				zap.String("match_id", m.id),
				zap.String("player_id", side.Player.Id),
			)
		}
	}
}

func (m *Match) getSideWithSessionId(sessionId string) (*side, bool) {
	for _, side := range m.sides {
		if side.SessionId == sessionId {
			return side, true
		}
	}
	return nil, false
}

func (m *Match) updateResponse(now time.Time) gameUpdateResponse {
	a, b := m.sides[SIDE_A], m.sides[SIDE_B]
	return gameUpdateResponse{
		Type:              "game_update",
		RopePosition:      m.ropePosition,
		Player1Score:      a.Score,
		Player2Score:      b.Score,
		Player1Engagement: a.Rate,
		Player2Engagement: b.Rate,
		TimeRemaining:     m.timeRemaining(now),
	}
}

func (m *Match) endedResponse(elapsed time.Duration) gameEndedResponse {
	a, b := m.sides[SIDE_A], m.sides[SIDE_B]
	var winner *string
	if m.winnerId != "" {
		id := m.winnerId
		winner = &id
	}
	return gameEndedResponse{
		Type:   "game_ended",
		Winner: winner,
		Stats: gameEndedStat{
			Reason:            m.reason.String(),
			RopePosition:      m.ropePosition,
			DurationSeconds:   int(elapsed.Seconds()),
			Player1Score:      a.Score,
			Player2Score:      b.Score,
			Player1Engagement: a.Rate,
			Player2Engagement: b.Rate,
		},
	}
}

// timeRemaining derives the clock from startedAt so tick jitter never
// accumulates into the reported time.
func (m *Match) timeRemaining(now time.Time) int {
	if m.startedAt.IsZero() {
		return int(m.config.MatchDuration.Seconds())
	}
	remaining := m.config.MatchDuration - now.Sub(m.startedAt)
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining.Seconds())
}
