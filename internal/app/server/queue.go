package server

import (
	"sync"
	"time"

	"github.com/tugochat/tugochat/internal/domains/dtos"
	"github.com/tugochat/tugochat/internal/domains/entities"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

type queueEntry struct {
	player    entities.Player
	sessionId string
	joinedAt  time.Time
}

// matchmakingQueue pairs waiting players first-come first-served. One mutex
// guards the whole queue; pairing happens inside Enqueue whenever two or
// more players wait.
type matchmakingQueue struct {
	mu      sync.Mutex
	entries []queueEntry

	sender  sender
	matches *matchRegistry
}

func newMatchmakingQueue(sender sender, matches *matchRegistry) *matchmakingQueue {
	return &matchmakingQueue{
		sender:  sender,
		matches: matches,
	}
}

// Enqueue adds a player and pairs the two oldest entries once the queue
// holds at least two. The queue_joined notice always goes out before any
// match_found produced by the same call.
func (q *matchmakingQueue) Enqueue(sessionId string, player entities.Player) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, entry := range q.entries {
		if entry.player.Id == player.Id {
			return ErrAlreadyQueued
		}
	}
	if q.matches.HasLiveMatch(player.Id) {
		return ErrAlreadyQueued
	}

	q.entries = append(q.entries, queueEntry{
		player:    player,
		sessionId: sessionId,
		joinedAt:  time.Now(),
	})
	logging.Info("player joined queue",
		zap.String("player_id", player.Id),
		zap.String("username", player.Username),
		zap.Int("queue_size", len(q.entries)),
	)
	q.sender.Send(sessionId, noticeResponse{Type: "queue_joined"})

	q.pair()
	return nil
}

// Dequeue removes a player if queued. Removing an absent player is a no-op
// and sends nothing.
func (q *matchmakingQueue) Dequeue(playerId string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, entry := range q.entries {
		if entry.player.Id == playerId {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			logging.Info("player left queue", zap.String("player_id", playerId))
			q.sender.Send(entry.sessionId, noticeResponse{Type: "queue_left"})
			return
		}
	}
}

func (q *matchmakingQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// pair pops the two oldest entries and hands them to the match registry
// until fewer than two players wait. The first player queued takes side A.
// Callers must hold q.mu.
func (q *matchmakingQueue) pair() {
	for len(q.entries) >= 2 {
		a, b := q.entries[0], q.entries[1]
		q.entries = q.entries[2:]

		match, err := q.matches.CreateMatch(a.player, a.sessionId, b.player, b.sessionId)
		if err != nil {
			logging.Error("failed to create match",
				zap.String("player_a", a.player.Id),
				zap.String("player_b", b.player.Id),
				zap.Error(err),
			)
			q.requeue(a, b)
			return
		}
		logging.Info("match found",
			zap.String("match_id", match.id),
			zap.String("player_a", a.player.Id),
			zap.String("player_b", b.player.Id),
		)
		q.sender.Send(a.sessionId, matchFoundResponse{
			Type:     "match_found",
			RoomId:   match.id,
			Opponent: dtos.PlayerSnapshotFromEntity(b.player),
		})
		q.sender.Send(b.sessionId, matchFoundResponse{
			Type:     "match_found",
			RoomId:   match.id,
			Opponent: dtos.PlayerSnapshotFromEntity(a.player),
		})
	}
}

// requeue puts entries back at the front in their original order after a
// failed pairing, dropping any player who meanwhile holds a live match.
func (q *matchmakingQueue) requeue(entries ...queueEntry) {
	keep := make([]queueEntry, 0, len(entries))
	for _, entry := range entries {
		if !q.matches.HasLiveMatch(entry.player.Id) {
			keep = append(keep, entry)
		}
	}
	q.entries = append(keep, q.entries...)
}
