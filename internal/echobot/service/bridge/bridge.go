// Package bridge turns configured child processes into a single plugin.
// Each child speaks line-delimited JSON-RPC on stdin/stdout and is
// supervised with bounded automatic restarts.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/protocol"
	"github.com/kiosk404/echobot/internal/echobot/service/config"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/pkg/logger"
)

// Name is the bridge's plugin name.
const Name = "external-plugin-bridge"

// Bridge is the plugin fronting all external processes. It always matches;
// Handle asks each Serving child in configured order and forwards the event
// to the first that wants it.
type Bridge struct {
	plugin.Base
	table *Table
}

var _ plugin.Plugin = (*Bridge)(nil)

func New() *Bridge {
	return &Bridge{table: NewTable()}
}

// Table exposes the process table.
func (b *Bridge) Table() *Table { return b.table }

// Meta includes the commands reported by every child.
func (b *Bridge) Meta() plugin.Metadata {
	meta := plugin.NewMetadata(Name, "Runs external plugins as child processes")
	for _, p := range b.table.Processes() {
		m, ok := p.Meta()
		if !ok {
			continue
		}
		for _, c := range m.Commands {
			meta.Commands = append(meta.Commands, plugin.CommandInfo{
				Name:        c.Name,
				Description: c.Description,
				Aliases:     c.Aliases,
			})
		}
	}
	return meta
}

func (b *Bridge) Build(ctx context.Context, ab *plugin.AppBuilder) error {
	raw, err := config.Get[Config](ab.Config())
	if err != nil {
		return err
	}
	if errs := raw.Validate(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	cfg, err := raw.Complete()
	if err != nil {
		return err
	}

	plugin.Insert(ab.Resources(), b.table)
	ab.Lifecycle().OnBotConnect(Name, func(ctx context.Context, selfID int64) error {
		return b.table.Broadcast(ctx, protocol.BotConnect(selfID))
	})

	if !cfg.Enabled {
		logger.Info("[Bridge] disabled, no external plugins started")
		return nil
	}

	for _, name := range cfg.Names() {
		p := NewExternalProcess(name, *cfg.Plugins[name], cfg.Timeouts())
		if err := b.table.add(p); err != nil {
			return err
		}
		if err := p.Start(ctx); err != nil {
			logger.Warn("[Bridge] external plugin %q failed to start: %v", name, err)
		}
	}

	logger.Info("[Bridge] %d/%d external plugins serving", len(b.table.Serving()), b.table.Len())
	return nil
}

func (b *Bridge) Handle(ctx context.Context, ev *event.Context) (*plugin.HandleResult, error) {
	for _, p := range b.table.Serving() {
		if !p.Matches(ctx, ev) {
			continue
		}
		res, err := p.Handle(ctx, ev)
		if err != nil {
			return nil, fmt.Errorf("external plugin %q: %w", p.Name(), err)
		}
		return translate(res), nil
	}
	return nil, nil
}

func (b *Bridge) Cleanup(ctx context.Context, _ *plugin.App) error {
	return b.table.Shutdown(ctx)
}

func translate(res *protocol.HandleResult) *plugin.HandleResult {
	if res == nil {
		return nil
	}
	return &plugin.HandleResult{
		Handled: res.Handled,
		Block:   res.Block,
		Reply:   res.Reply,
		Actions: res.Actions,
	}
}
