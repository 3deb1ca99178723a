package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
)

const HelpName = "help"

// Help lists the commands of every plugin in dispatch order, including
// those announced by external processes. The list is read when /help is
// handled, so plugins built after help are included.
type Help struct {
	plugin.Base
	app *plugin.App
}

func NewHelp() *Help { return &Help{} }

func (*Help) Meta() plugin.Metadata {
	m := plugin.NewMetadata(HelpName, "Lists available commands")
	m.Commands = []plugin.CommandInfo{{Name: "help", Description: "show this list"}}
	return m
}

func (h *Help) Finish(_ context.Context, app *plugin.App) error {
	h.app = app
	return nil
}

func (*Help) Matches(ev *event.Context) bool {
	return isCommand(ev, "help")
}

func (h *Help) Handle(context.Context, *event.Context) (*plugin.HandleResult, error) {
	return plugin.ReplyAndBlock(h.Text()), nil
}

// Text renders the command list. Commands announced twice are listed once.
func (h *Help) Text() string {
	var sb strings.Builder
	sb.WriteString("Available commands:")
	if h.app == nil {
		return sb.String()
	}
	seen := make(map[string]bool)
	for _, p := range h.app.Plugins() {
		for _, c := range p.Meta().Commands {
			if seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			fmt.Fprintf(&sb, "\n/%s - %s", c.Name, c.Description)
			if len(c.Aliases) > 0 {
				fmt.Fprintf(&sb, " (aliases: %s)", strings.Join(c.Aliases, ", "))
			}
		}
	}
	return sb.String()
}
