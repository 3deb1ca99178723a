package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
)

const (
	EchoName   = "echo"
	AddName    = "add"
	WhoamiName = "whoami"
)

// Echo repeats its argument.
type Echo struct{ plugin.Base }

func NewEcho() *Echo { return &Echo{} }

func (*Echo) Meta() plugin.Metadata {
	m := plugin.NewMetadata(EchoName, "Repeats your message")
	m.Commands = []plugin.CommandInfo{{Name: "echo", Description: "repeat a message", Aliases: []string{"say"}}}
	return m
}

func (*Echo) Matches(ev *event.Context) bool { return isCommand(ev, "echo", "say") }

func (*Echo) Handle(_ context.Context, ev *event.Context) (*plugin.HandleResult, error) {
	cmd, _ := ev.Command()
	if cmd.Args == "" {
		return plugin.ReplyAndBlock("Usage: /echo <text>"), nil
	}
	return plugin.ReplyAndBlock("Echo: " + cmd.Args), nil
}

// Add sums two integers.
type Add struct{ plugin.Base }

func NewAdd() *Add { return &Add{} }

func (*Add) Meta() plugin.Metadata {
	m := plugin.NewMetadata(AddName, "Adds two numbers")
	m.Commands = []plugin.CommandInfo{{Name: "add", Description: "add two integers"}}
	return m
}

func (*Add) Matches(ev *event.Context) bool { return isCommand(ev, "add") }

func (*Add) Handle(_ context.Context, ev *event.Context) (*plugin.HandleResult, error) {
	const usage = "Usage: /add <a> <b>"
	cmd, _ := ev.Command()
	fields := cmd.Fields()
	if len(fields) < 2 {
		return plugin.ReplyAndBlock(usage), nil
	}
	a, errA := strconv.ParseInt(fields[0], 10, 64)
	b, errB := strconv.ParseInt(fields[1], 10, 64)
	if errA != nil || errB != nil {
		return plugin.ReplyAndBlock(usage), nil
	}
	return plugin.ReplyAndBlock(fmt.Sprintf("%d + %d = %d", a, b, a+b)), nil
}

// Whoami describes the sender and the conversation.
type Whoami struct{ plugin.Base }

func NewWhoami() *Whoami { return &Whoami{} }

func (*Whoami) Meta() plugin.Metadata {
	m := plugin.NewMetadata(WhoamiName, "Shows user info")
	m.Commands = []plugin.CommandInfo{{Name: "whoami", Description: "show who you are"}}
	return m
}

func (*Whoami) Matches(ev *event.Context) bool { return isCommand(ev, "whoami") }

func (*Whoami) Handle(_ context.Context, ev *event.Context) (*plugin.HandleResult, error) {
	name := ev.SenderName
	if name == "" {
		name = "unknown"
	}
	msg := fmt.Sprintf("You are %s (%d)", name, ev.UserID)
	if ev.GroupID != nil {
		msg += fmt.Sprintf("\nIn Group: %d", *ev.GroupID)
	} else {
		msg += "\nIn Private Chat"
	}
	return plugin.ReplyAndBlock(msg), nil
}
