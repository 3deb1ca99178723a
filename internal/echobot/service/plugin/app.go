package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kiosk404/echobot/internal/echobot/service/config"
	"github.com/kiosk404/echobot/pkg/logger"
)

// App is a built application. Its plugin order is fixed for its lifetime.
type App struct {
	config    *config.Store
	resources *ResourceRegistry
	lifecycle *Lifecycle
	observer  DispatchObserver
	plugins   []Plugin
	// names mirrors plugins; Meta is not consulted per event.
	names []string

	state atomic.Int32

	shutdownOnce sync.Once
	shutdownErr  error
}

// State returns the current run state.
func (a *App) State() State {
	return State(a.state.Load())
}

func (a *App) setState(s State) {
	a.state.Store(int32(s))
}

// Config returns the configuration snapshot taken after the build phase.
func (a *App) Config() *config.Store {
	return a.config
}

// Resources returns the shared resource registry.
func (a *App) Resources() *ResourceRegistry {
	return a.resources
}

// Lifecycle returns the global hook lists.
func (a *App) Lifecycle() *Lifecycle {
	return a.lifecycle
}

// Plugins returns the plugins in resolved order.
func (a *App) Plugins() []Plugin {
	out := make([]Plugin, len(a.plugins))
	copy(out, a.plugins)
	return out
}

// PluginNames returns the plugin names in resolved order.
func (a *App) PluginNames() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Start fires the startup hooks and moves the App to Running. Hook failures
// are logged; the App runs regardless.
func (a *App) Start(ctx context.Context) error {
	if !a.state.CompareAndSwap(int32(StateReady), int32(StateRunning)) {
		return fmt.Errorf("cannot start app in state %s", a.State())
	}
	if err := a.lifecycle.fireStartup(ctx); err != nil {
		logger.Warn("[Plugin] startup hooks reported errors: %v", err)
	}
	logger.Info("[Plugin] application running")
	return nil
}

// NotifyBotConnect fires the bot-connect hooks.
func (a *App) NotifyBotConnect(ctx context.Context, selfID int64) error {
	if a.State() != StateRunning {
		return ErrNotRunning
	}
	logger.Info("[Plugin] bot %d connected", selfID)
	return a.lifecycle.fireBotConnect(ctx, selfID)
}

// Shutdown fires the shutdown hooks and then runs every plugin's cleanup in
// reverse order. Errors are collected and returned joined; none of them stops
// the remaining steps. Calling Shutdown again returns the first result.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown(ctx)
	})
	return a.shutdownErr
}

func (a *App) shutdown(ctx context.Context) error {
	logger.Info("[Plugin] shutting down application")
	a.setState(StateShuttingDown)

	var errs []error
	if err := a.lifecycle.fireShutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	for i := len(a.plugins) - 1; i >= 0; i-- {
		p := a.plugins[i]
		name := p.Meta().Name
		logger.Debug("[Plugin] cleaning up plugin %q", name)
		if err := safeCleanup(ctx, p, a); err != nil {
			logger.Warn("[Plugin] plugin %q cleanup error: %v", name, err)
			errs = append(errs, fmt.Errorf("plugin %q cleanup: %w", name, err))
		}
	}

	a.setState(StateStopped)
	logger.Info("[Plugin] application shutdown complete")
	return errors.Join(errs...)
}

func safeCleanup(ctx context.Context, p Plugin, a *App) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Cleanup(ctx, a)
}
