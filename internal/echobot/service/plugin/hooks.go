package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kiosk404/echobot/pkg/logger"
)

// HookFunc is a global startup or shutdown callback.
type HookFunc func(ctx context.Context) error

// BotConnectFunc is called each time the transport reports a bot connection.
type BotConnectFunc func(ctx context.Context, selfID int64) error

type hookEntry struct {
	name string
	fn   HookFunc
}

type botConnectEntry struct {
	name string
	fn   BotConnectFunc
}

// Lifecycle holds the global hook lists. One instance is created with the
// AppBuilder and owned by the App; there is no package-level state.
//
// Startup hooks fire once in registration order, shutdown hooks fire once in
// reverse registration order, bot-connect hooks fire in registration order on
// every connection. A failing hook is logged and never stops the others.
type Lifecycle struct {
	mu            sync.Mutex
	startup       []hookEntry
	shutdown      []hookEntry
	botConnect    []botConnectEntry
	startupFired  bool
	shutdownFired bool
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// OnStartup registers a startup hook.
func (l *Lifecycle) OnStartup(name string, fn HookFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startupFired {
		return fmt.Errorf("%w: startup hook %q", ErrHooksFired, name)
	}
	l.startup = append(l.startup, hookEntry{name: name, fn: fn})
	return nil
}

// OnShutdown registers a shutdown hook.
func (l *Lifecycle) OnShutdown(name string, fn HookFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shutdownFired {
		return fmt.Errorf("%w: shutdown hook %q", ErrHooksFired, name)
	}
	l.shutdown = append(l.shutdown, hookEntry{name: name, fn: fn})
	return nil
}

// OnBotConnect registers a bot-connect hook.
func (l *Lifecycle) OnBotConnect(name string, fn BotConnectFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.botConnect = append(l.botConnect, botConnectEntry{name: name, fn: fn})
}

// fireStartup runs the startup hooks. Later calls are no-ops.
func (l *Lifecycle) fireStartup(ctx context.Context) error {
	l.mu.Lock()
	if l.startupFired {
		l.mu.Unlock()
		return nil
	}
	l.startupFired = true
	hooks := append([]hookEntry(nil), l.startup...)
	l.mu.Unlock()

	var errs []error
	for _, h := range hooks {
		if err := runHook(ctx, h.fn); err != nil {
			logger.Warn("[Lifecycle] startup hook %q failed: %v", h.name, err)
			errs = append(errs, fmt.Errorf("startup hook %q: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}

// fireShutdown runs the shutdown hooks in reverse. Later calls are no-ops.
func (l *Lifecycle) fireShutdown(ctx context.Context) error {
	l.mu.Lock()
	if l.shutdownFired {
		l.mu.Unlock()
		return nil
	}
	l.shutdownFired = true
	hooks := append([]hookEntry(nil), l.shutdown...)
	l.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := runHook(ctx, h.fn); err != nil {
			logger.Warn("[Lifecycle] shutdown hook %q failed: %v", h.name, err)
			errs = append(errs, fmt.Errorf("shutdown hook %q: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}

func (l *Lifecycle) fireBotConnect(ctx context.Context, selfID int64) error {
	l.mu.Lock()
	hooks := append([]botConnectEntry(nil), l.botConnect...)
	l.mu.Unlock()

	var errs []error
	for _, h := range hooks {
		if err := runHook(ctx, func(ctx context.Context) error { return h.fn(ctx, selfID) }); err != nil {
			logger.Warn("[Lifecycle] bot-connect hook %q failed: %v", h.name, err)
			errs = append(errs, fmt.Errorf("bot-connect hook %q: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}

func runHook(ctx context.Context, fn HookFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
