package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func (f *fakeSender) lastMatchFound(sessionId string) (matchFoundResponse, bool) {
	msgs := f.messages(sessionId)
	for i := len(msgs) - 1; i >= 0; i-- {
		if resp, ok := msgs[i].(matchFoundResponse); ok {
			return resp, true
		}
	}
	return matchFoundResponse{}, false
}

// A config that keeps queue-created matches pending for the whole test, so
// pairing state can be asserted without racing match teardown.
func pendingMatchConfig() MatchConfig {
	config := testMatchConfig()
	config.ReadyTimeout = time.Hour
	return config
}

func newTestQueue(sender sender) (*matchmakingQueue, *matchRegistry) {
	registry := newMatchRegistry(sender, pendingMatchConfig())
	return newMatchmakingQueue(sender, registry), registry
}

func TestEnqueueSinglePlayerWaits(t *testing.T) {
	req := require.New(t)
	sender := newFakeSender()
	queue, registry := newTestQueue(sender)

	req.NoError(queue.Enqueue("sess-a", testPlayer("player-a", "channel-a", 10)))
	req.Equal(1, queue.size())
	req.Equal(0, registry.liveMatches())
	req.True(sender.hasNotice("sess-a", "queue_joined"))
	_, found := sender.lastMatchFound("sess-a")
	req.False(found)
}

func TestEnqueuePairsTwoOldestPlayers(t *testing.T) {
	req := require.New(t)
	sender := newFakeSender()
	queue, registry := newTestQueue(sender)

	req.NoError(queue.Enqueue("sess-a", testPlayer("player-a", "channel-a", 10)))
	req.NoError(queue.Enqueue("sess-b", testPlayer("player-b", "channel-b", 500)))

	req.Equal(0, queue.size())
	req.Equal(1, registry.liveMatches())
	req.True(registry.HasLiveMatch("player-a"))
	req.True(registry.HasLiveMatch("player-b"))

	// queue_joined lands before the match_found produced by the same call.
	msgsA := sender.messages("sess-a")
	req.NotEmpty(msgsA)
	req.Equal(noticeResponse{Type: "queue_joined"}, msgsA[0])

	foundA, ok := sender.lastMatchFound("sess-a")
	req.True(ok)
	foundB, ok := sender.lastMatchFound("sess-b")
	req.True(ok)
	req.NotEmpty(foundA.RoomId)
	req.Equal(foundA.RoomId, foundB.RoomId)

	// Each player sees the other, never themselves.
	req.Equal("player-b", foundA.Opponent.Id)
	req.Equal(500, foundA.Opponent.ViewerCount)
	req.Equal("player-a", foundB.Opponent.Id)
}

func TestEnqueueRejectsQueuedPlayer(t *testing.T) {
	req := require.New(t)
	sender := newFakeSender()
	queue, _ := newTestQueue(sender)

	req.NoError(queue.Enqueue("sess-a", testPlayer("player-a", "channel-a", 10)))
	err := queue.Enqueue("sess-a2", testPlayer("player-a", "channel-a", 10))
	req.ErrorIs(err, ErrAlreadyQueued)
	req.Equal(1, queue.size())
}

func TestEnqueueRejectsPlayerWithLiveMatch(t *testing.T) {
	req := require.New(t)
	sender := newFakeSender()
	queue, _ := newTestQueue(sender)

	req.NoError(queue.Enqueue("sess-a", testPlayer("player-a", "channel-a", 10)))
	req.NoError(queue.Enqueue("sess-b", testPlayer("player-b", "channel-b", 10)))

	err := queue.Enqueue("sess-a", testPlayer("player-a", "channel-a", 10))
	req.ErrorIs(err, ErrAlreadyQueued)
	req.Equal(0, queue.size())
}

func TestThirdPlayerStaysQueued(t *testing.T) {
	req := require.New(t)
	sender := newFakeSender()
	queue, registry := newTestQueue(sender)

	req.NoError(queue.Enqueue("sess-a", testPlayer("player-a", "channel-a", 10)))
	req.NoError(queue.Enqueue("sess-b", testPlayer("player-b", "channel-b", 10)))
	req.NoError(queue.Enqueue("sess-c", testPlayer("player-c", "channel-c", 10)))

	req.Equal(1, queue.size())
	req.Equal(1, registry.liveMatches())
	req.True(sender.hasNotice("sess-c", "queue_joined"))
	_, found := sender.lastMatchFound("sess-c")
	req.False(found)
}

func TestDequeueSendsQueueLeft(t *testing.T) {
	req := require.New(t)
	sender := newFakeSender()
	queue, _ := newTestQueue(sender)

	req.NoError(queue.Enqueue("sess-a", testPlayer("player-a", "channel-a", 10)))
	queue.Dequeue("player-a")

	req.Equal(0, queue.size())
	req.True(sender.hasNotice("sess-a", "queue_left"))
}

func TestPairFailureRequeuesWaitingPlayer(t *testing.T) {
	req := require.New(t)
	sender := newFakeSender()
	queue, registry := newTestQueue(sender)

	req.NoError(queue.Enqueue("sess-a", testPlayer("player-a", "channel-a", 10)))

	// player-a lands in a match through another path while still queued, so
	// the next pairing pass fails on a duplicate participant.
	_, err := registry.CreateMatch(
		testPlayer("player-a", "channel-a", 10), "sess-a2",
		testPlayer("player-x", "channel-x", 10), "sess-x",
	)
	req.NoError(err)

	req.NoError(queue.Enqueue("sess-b", testPlayer("player-b", "channel-b", 10)))

	// The failed pairing drops player-a and keeps player-b waiting.
	req.Equal(1, queue.size())
	_, found := sender.lastMatchFound("sess-b")
	req.False(found)

	// The kept player pairs with the next arrival and holds the older seat.
	req.NoError(queue.Enqueue("sess-c", testPlayer("player-c", "channel-c", 10)))
	req.Equal(0, queue.size())

	foundB, ok := sender.lastMatchFound("sess-b")
	req.True(ok)
	req.Equal("player-c", foundB.Opponent.Id)

	match, err := registry.matchBySession("sess-b")
	req.NoError(err)
	req.Equal("player-b", match.sides[0].Player.Id)
}

func TestDequeueAbsentPlayerIsNoop(t *testing.T) {
	req := require.New(t)
	sender := newFakeSender()
	queue, _ := newTestQueue(sender)

	req.NoError(queue.Enqueue("sess-a", testPlayer("player-a", "channel-a", 10)))
	queue.Dequeue("player-ghost")

	req.Equal(1, queue.size())
	req.False(sender.hasNotice("sess-a", "queue_left"))
}
