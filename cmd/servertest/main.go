package main

import (
	"context"
	"time"

	"github.com/tugochat/tugochat/internal/app/servertest"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	defer logging.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	if err := servertest.NewHarness().Start(ctx); err != nil {
		logging.Fatal("server test failed: ", zap.Error(err))
	}
	logging.Info("server test passed")
}
