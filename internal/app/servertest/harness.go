package servertest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tugochat/tugochat/internal/app/twitch"
	"github.com/tugochat/tugochat/internal/domains/entities"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

// Harness drives one scripted game against a running server: two local
// players join the queue, ack readiness and sit through a full match. No
// chat pulls flow, so the run should end in a timed-out draw.
type Harness struct {
	config Config
	auth   *twitch.Auth
}

func NewHarness() *Harness {
	cfg, err := LoadConfig()
	if err != nil {
		logging.Fatal("couldn't load config", zap.Error(err))
	}
	return &Harness{
		config: cfg,
		auth:   twitch.NewAuth(twitch.Config{IdentitySecret: cfg.IdentitySecret}),
	}
}

// Start method    runs the scripted game until both clients saw it end
func (h *Harness) Start(ctx context.Context) error {
	playerOne := entities.Player{
		Id:          uuid.NewString(),
		Username:    "StreamerOne",
		ChannelName: "streamer_one",
		ViewerCount: 40,
	}
	playerTwo := entities.Player{
		Id:          uuid.NewString(),
		Username:    "StreamerTwo",
		ChannelName: "streamer_two",
		ViewerCount: 25,
	}

	clientOne, err := h.newClient(ctx, playerOne)
	if err != nil {
		return fmt.Errorf("failed to connect first client: %w", err)
	}
	defer clientOne.close()

	clientTwo, err := h.newClient(ctx, playerTwo)
	if err != nil {
		return fmt.Errorf("failed to connect second client: %w", err)
	}
	defer clientTwo.close()

	if err := clientOne.joinQueue(); err != nil {
		return fmt.Errorf("failed to join queue: %w", err)
	}
	if err := clientTwo.joinQueue(); err != nil {
		return fmt.Errorf("failed to join queue: %w", err)
	}
	logging.Info("both clients queued",
		zap.String("server_url", h.config.ServerUrl),
	)

	if err := clientOne.wait(ctx); err != nil {
		return fmt.Errorf("first client failed: %w", err)
	}
	if err := clientTwo.wait(ctx); err != nil {
		return fmt.Errorf("second client failed: %w", err)
	}
	return nil
}
