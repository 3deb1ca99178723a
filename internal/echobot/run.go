package echobot

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/kiosk404/echobot/internal/echobot/config"
)

// Run builds the plugin application described by cfg and serves until
// SIGINT/SIGTERM or the end of console input.
func Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := createBotServer(ctx, cfg)
	if err != nil {
		return err
	}

	return server.PrepareRun().Run(ctx)
}
