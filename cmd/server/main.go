package main

import (
	"github.com/tugochat/tugochat/internal/app/server"
	"github.com/tugochat/tugochat/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	defer logging.Sync()

	logging.Fatal("Game server exited: ", zap.Error(
		server.NewServer().Start(),
	))
}
