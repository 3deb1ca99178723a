package plugin

import (
	"context"
	"fmt"

	"github.com/kiosk404/echobot/internal/echobot/service/config"
	"github.com/kiosk404/echobot/pkg/logger"
)

// AppBuilder accumulates plugins, configuration and resources. It is
// consumed exactly once by Build.
type AppBuilder struct {
	config    *config.Store
	resources *ResourceRegistry
	lifecycle *Lifecycle
	observer  DispatchObserver

	plugins []Plugin
	// names maps a registered name to whether any holder of it is unique.
	names map[string]bool

	consumed bool
}

// NewAppBuilder returns a builder with an empty config store.
func NewAppBuilder() *AppBuilder {
	return &AppBuilder{
		config:    config.New(),
		resources: NewResourceRegistry(),
		lifecycle: NewLifecycle(),
		names:     make(map[string]bool),
	}
}

// WithConfig replaces the config store.
func (b *AppBuilder) WithConfig(store *config.Store) *AppBuilder {
	if store != nil {
		b.config = store
	}
	return b
}

// Config returns the in-progress config store. It is mutable during Build.
func (b *AppBuilder) Config() *config.Store {
	return b.config
}

// Resources returns the in-progress resource registry.
func (b *AppBuilder) Resources() *ResourceRegistry {
	return b.resources
}

// Lifecycle returns the global hook lists that will be owned by the App.
func (b *AppBuilder) Lifecycle() *Lifecycle {
	return b.lifecycle
}

// SetDispatchObserver installs an observer notified of every handle call.
func (b *AppBuilder) SetDispatchObserver(o DispatchObserver) {
	b.observer = o
}

// AddPlugin registers p. It fails with a *DuplicatePluginError when p or an
// already registered plugin of the same name is unique.
func (b *AppBuilder) AddPlugin(p Plugin) error {
	if b.consumed {
		return ErrBuilderConsumed
	}
	meta := p.Meta()
	unique := p.IsUnique()
	if existingUnique, ok := b.names[meta.Name]; ok && (unique || existingUnique) {
		return &DuplicatePluginError{Name: meta.Name}
	}
	b.names[meta.Name] = b.names[meta.Name] || unique
	b.plugins = append(b.plugins, p)

	logger.Info("[Plugin] registered plugin %q v%s - %s", meta.Name, meta.Version, meta.Description)
	return nil
}

// AddPlugins registers a group of plugins.
func (b *AppBuilder) AddPlugins(g Group) error {
	return g.Build(b)
}

// Plugins returns the registered plugins in registration order.
func (b *AppBuilder) Plugins() []Plugin {
	out := make([]Plugin, len(b.plugins))
	copy(out, b.plugins)
	return out
}

// HasPlugin reports whether a plugin with name is registered.
func (b *AppBuilder) HasPlugin(name string) bool {
	_, ok := b.names[name]
	return ok
}

// Build resolves the plugin order and drives the build, ready and finish
// phases. On failure every plugin that was already built is cleaned up in
// reverse order. The returned App is Ready; call Start to run it.
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.consumed {
		return nil, ErrBuilderConsumed
	}
	b.consumed = true

	logger.Info("[Plugin] building application with %d plugins", len(b.plugins))

	idx, err := resolveOrder(b.plugins)
	if err != nil {
		return nil, err
	}
	ordered := make([]Plugin, len(idx))
	for i, j := range idx {
		ordered[i] = b.plugins[j]
	}
	logger.Info("[Plugin] load order: %v", pluginNames(ordered))

	for i, p := range ordered {
		logger.Debug("[Plugin] building plugin %q", p.Meta().Name)
		if err := p.Build(ctx, b); err != nil {
			rollback(ctx, b.newApp(ordered[:i]))
			return nil, fmt.Errorf("plugin %q build failed: %w", p.Meta().Name, err)
		}
	}

	app := b.newApp(ordered)

	var notReady []string
	for _, p := range ordered {
		if !p.Ready(app) {
			notReady = append(notReady, p.Meta().Name)
		}
	}
	if len(notReady) > 0 {
		rollback(ctx, app)
		return nil, &PluginNotReadyError{Plugins: notReady}
	}
	app.setState(StateReady)

	for _, p := range ordered {
		logger.Debug("[Plugin] finishing plugin %q", p.Meta().Name)
		if err := p.Finish(ctx, app); err != nil {
			rollback(ctx, app)
			return nil, fmt.Errorf("plugin %q finish failed: %w", p.Meta().Name, err)
		}
	}

	logger.Info("[Plugin] application built successfully (%d plugins)", len(ordered))
	return app, nil
}

func (b *AppBuilder) newApp(ordered []Plugin) *App {
	snap, err := b.config.Snapshot()
	if err != nil {
		logger.Warn("[Plugin] config snapshot failed, sharing builder config: %v", err)
		snap = b.config
	}
	app := &App{
		config:    snap,
		resources: b.resources,
		lifecycle: b.lifecycle,
		observer:  b.observer,
		plugins:   ordered,
		names:     pluginNames(ordered),
	}
	app.setState(StateBuilding)
	return app
}

// rollback cleans up already-built plugins, best effort.
func rollback(ctx context.Context, app *App) {
	for i := len(app.plugins) - 1; i >= 0; i-- {
		p := app.plugins[i]
		if err := p.Cleanup(ctx, app); err != nil {
			logger.Warn("[Plugin] rollback cleanup of %q failed: %v", p.Meta().Name, err)
		}
	}
	app.setState(StateStopped)
}

func pluginNames(plugins []Plugin) []string {
	out := make([]string, len(plugins))
	for i, p := range plugins {
		out[i] = p.Meta().Name
	}
	return out
}
