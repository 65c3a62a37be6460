package servertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tugochat/tugochat/internal/domains/entities"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

// payload is the envelope for every message the client sends to the server.
type payload struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	RoomId string `json:"room_id,omitempty"`
}

type opponentInfo struct {
	Username    string `json:"username"`
	ChannelName string `json:"channel_name"`
	ViewerCount int    `json:"viewer_count"`
}

type matchFoundMessage struct {
	RoomId   string       `json:"room_id"`
	Opponent opponentInfo `json:"opponent"`
}

type gameUpdateMessage struct {
	RopePosition  float64 `json:"rope_position"`
	Player1Score  int     `json:"player1_score"`
	Player2Score  int     `json:"player2_score"`
	TimeRemaining int     `json:"time_remaining"`
}

type gameEndedMessage struct {
	Winner *string `json:"winner"`
	Stats  struct {
		Reason          string  `json:"reason"`
		RopePosition    float64 `json:"rope_position"`
		DurationSeconds int     `json:"duration_seconds"`
	} `json:"stats"`
}

type errorMessage struct {
	Error string `json:"error"`
}

// client is one scripted player connection. It joins the queue, acks
// readiness as soon as a match is found and reads updates until the game
// ends.
type client struct {
	player entities.Player
	token  string
	conn   *websocket.Conn

	mu   sync.Mutex
	done chan struct{}
	err  error
}

func (h *Harness) newClient(ctx context.Context, player entities.Player) (*client, error) {
	token, err := h.auth.IssueIdentity(player)
	if err != nil {
		return nil, fmt.Errorf("failed to issue identity token: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, h.config.ServerUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial server: %w", err)
	}

	c := &client{
		player: player,
		token:  token,
		conn:   conn,
		done:   make(chan struct{}),
	}
	go c.listen()
	return c, nil
}

func (c *client) joinQueue() error {
	return c.conn.WriteJSON(payload{Type: "join_queue", Token: c.token})
}

func (c *client) close() {
	c.conn.Close()
}

// listen reads messages until the game ends or the connection drops.
func (c *client) listen() {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.finish(fmt.Errorf("connection dropped: %w", err))
			return
		}

		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &head); err != nil {
			logging.Info("dropped malformed message",
				zap.String("player", c.player.Username),
				zap.Error(err),
			)
			continue
		}
		c.handleMessage(head.Type, message)
	}
}

func (c *client) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
	default:
		c.err = err
		close(c.done)
	}
}

// wait blocks until the client saw game_ended, its connection dropped or
// the context ran out.
func (c *client) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.err
	}
}
