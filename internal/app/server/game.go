package server

import (
	"time"

	"github.com/tugochat/tugochat/internal/domains/entities"
	"github.com/tugochat/tugochat/pkg/utils"
)

type (
	MatchState uint8
	EndReason  uint8
	Side       uint8
)

const (
	PENDING_READY MatchState = iota
	IN_PROGRESS
	ENDED

	SIDE_A Side = 0
	SIDE_B Side = 1

	ROPE_REACHED_BOUNDARY EndReason = iota
	TIME_EXPIRED
	OPPONENT_DISCONNECTED
)

// ROPE_LIMIT is the rope displacement magnitude that ends a match outright.
// Side A wins at +ROPE_LIMIT, side B at -ROPE_LIMIT.
const ROPE_LIMIT = 100.0

func (s MatchState) String() string {
	switch s {
	case PENDING_READY:
		return "PENDING_READY"
	case IN_PROGRESS:
		return "IN_PROGRESS"
	case ENDED:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

func (r EndReason) String() string {
	switch r {
	case ROPE_REACHED_BOUNDARY:
		return "ROPE_REACHED_BOUNDARY"
	case TIME_EXPIRED:
		return "TIME_EXPIRED"
	case OPPONENT_DISCONNECTED:
		return "OPPONENT_DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

func (s Side) String() string {
	if s == SIDE_A {
		return "A"
	}
	return "B"
}

// side is one participant's live match state. Every field is owned by the
// match goroutine once the match starts.
type side struct {
	Player    entities.Player
	SessionId string
	Ready     bool
	Gone      bool
	Window    *pullWindow

	Score  int     // pulls recorded for this side over the whole match
	Unique int     // unique pullers as of the last tick
	Rate   float64 // engagement rate as of the last tick
	Power  float64 // pull power as of the last tick
}

func newSide(player entities.Player, sessionId string, window time.Duration) *side {
	return &side{
		Player:    player,
		SessionId: sessionId,
		Window:    newPullWindow(window),
	}
}

// refresh recomputes the side's engagement numbers against the trailing
// pull window ending at now.
func (s *side) refresh(now time.Time, baseStrength float64) {
	s.Unique = s.Window.UniquePullers(now)
	s.Rate = s.Window.EngagementRate(now, s.Player.ViewerCount)
	s.Power = utils.PullPower(s.Rate, s.Unique, baseStrength)
}
