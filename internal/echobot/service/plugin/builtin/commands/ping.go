// Package commands holds the built-in chat command plugins.
package commands

import (
	"context"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
)

const PingName = "ping"

// Ping answers "/ping" with "pong" and "/ping x" with "pong x".
type Ping struct {
	plugin.Base
}

func NewPing() *Ping { return &Ping{} }

func (*Ping) Meta() plugin.Metadata {
	m := plugin.NewMetadata(PingName, "Liveness check")
	m.Commands = []plugin.CommandInfo{{Name: "ping", Description: "reply with pong"}}
	return m
}

func (*Ping) Matches(ev *event.Context) bool {
	return isCommand(ev, "ping")
}

func (*Ping) Handle(_ context.Context, ev *event.Context) (*plugin.HandleResult, error) {
	cmd, _ := ev.Command()
	if cmd.Args != "" {
		return plugin.ReplyAndBlock("pong " + cmd.Args), nil
	}
	return plugin.ReplyAndBlock("pong"), nil
}

func isCommand(ev *event.Context, name string, aliases ...string) bool {
	cmd, ok := ev.Command()
	return ok && cmd.Is(name, aliases...)
}
