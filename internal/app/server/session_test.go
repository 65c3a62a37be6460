package server

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	writes []interface{}
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) written() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, len(f.writes))
	copy(out, f.writes)
	return out
}

type brokenConn struct{}

func (brokenConn) WriteJSON(v interface{}) error { return errors.New("broken pipe") }
func (brokenConn) Close() error                  { return nil }

func TestSessionRegistrySendsToRegisteredSession(t *testing.T) {
	req := require.New(t)
	registry := newSessionRegistry()
	conn := &fakeConn{}
	registry.Register("sess-a", conn)

	req.NoError(registry.Send("sess-a", noticeResponse{Type: "queue_joined"}))
	writes := conn.written()
	req.Len(writes, 1)
	req.Equal(noticeResponse{Type: "queue_joined"}, writes[0])
}

func TestSessionRegistrySendToUnknownSession(t *testing.T) {
	req := require.New(t)
	registry := newSessionRegistry()

	req.ErrorIs(registry.Send("sess-ghost", noticeResponse{Type: "queue_joined"}), ErrUnknownSession)
}

func TestSessionRegistryUnregisterStopsDelivery(t *testing.T) {
	req := require.New(t)
	registry := newSessionRegistry()
	registry.Register("sess-a", &fakeConn{})
	registry.Unregister("sess-a")

	req.ErrorIs(registry.Send("sess-a", noticeResponse{Type: "queue_joined"}), ErrUnknownSession)
}

func TestSessionRegistryReportsDeliveryFailure(t *testing.T) {
	req := require.New(t)
	registry := newSessionRegistry()
	failed := make(chan string, 1)
	registry.sendFailureHandler = func(sessionId string) { failed <- sessionId }
	registry.Register("sess-a", brokenConn{})

	err := registry.Send("sess-a", noticeResponse{Type: "queue_joined"})
	req.ErrorIs(err, ErrDeliveryFailed)

	select {
	case sessionId := <-failed:
		req.Equal("sess-a", sessionId)
	case <-time.After(2 * time.Second):
		t.Fatal("send failure handler never ran")
	}
}

func TestSessionRegistryAttachesPlayer(t *testing.T) {
	req := require.New(t)
	registry := newSessionRegistry()

	err := registry.AttachPlayer("sess-ghost", testPlayer("player-a", "channel-a", 10))
	req.ErrorIs(err, ErrUnknownSession)

	registry.Register("sess-a", &fakeConn{})
	req.NoError(registry.AttachPlayer("sess-a", testPlayer("player-a", "channel-a", 10)))

	player, attached := registry.Player("sess-a")
	req.True(attached)
	req.Equal("player-a", player.Id)
	req.Equal("channel-a", player.ChannelName)

	_, attached = registry.Player("sess-b")
	req.False(attached)

	registry.Unregister("sess-a")
	_, attached = registry.Player("sess-a")
	req.False(attached)
}
