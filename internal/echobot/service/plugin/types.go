package plugin

import (
	"context"

	"github.com/kiosk404/echobot/internal/echobot/event"
)

// Plugin is the capability interface every handler implements, whether it
// runs in-process or behind the external process bridge. The Dispatcher and
// the LifecycleDriver never distinguish between the two.
//
// Embed Base to inherit defaults for everything except Meta and Handle.
type Plugin interface {
	// Meta returns the plugin's identity. Meta().Name is the key used for
	// uniqueness checks and dependency resolution.
	Meta() Metadata

	// IsUnique reports whether at most one plugin with this name may be
	// registered.
	IsUnique() bool

	// Dependencies lists the plugins that must be built before this one.
	Dependencies() []Dependency

	// Build runs in dependency order with exclusive access to the builder.
	Build(ctx context.Context, b *AppBuilder) error

	// Ready is evaluated once after every plugin has been built.
	Ready(app *App) bool

	// Finish runs in dependency order once every plugin is ready.
	Finish(ctx context.Context, app *App) error

	// Cleanup runs in reverse dependency order at shutdown.
	Cleanup(ctx context.Context, app *App) error

	// Matches is a cheap synchronous predicate; it must not block.
	Matches(ev *event.Context) bool

	// Handle processes a matched event.
	Handle(ctx context.Context, ev *event.Context) (*HandleResult, error)
}

// Metadata identifies a plugin.
type Metadata struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Version     string        `json:"version"`
	Author      string        `json:"author,omitempty"`
	Commands    []CommandInfo `json:"commands,omitempty"`
}

// NewMetadata returns metadata with the default version.
func NewMetadata(name, description string) Metadata {
	return Metadata{Name: name, Description: description, Version: "0.0.0"}
}

// CommandInfo describes a command a plugin answers to.
type CommandInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Dependency references another plugin by name.
type Dependency struct {
	Name     string
	Optional bool
}

// Required declares a dependency that must be registered.
func Required(name string) Dependency {
	return Dependency{Name: name}
}

// Optional declares a dependency that is ordered before this plugin when
// present and ignored otherwise.
func Optional(name string) Dependency {
	return Dependency{Name: name, Optional: true}
}

// HandleResult is what a plugin reports after handling an event. A nil or
// zero result means the plugin did nothing.
type HandleResult struct {
	Handled bool
	// Block stops dispatch after this plugin.
	Block   bool
	Reply   *string
	Actions []event.Action
}

// Handled returns a non-blocking handled result.
func Handled() *HandleResult {
	return &HandleResult{Handled: true}
}

// Blocked returns a handled result that stops dispatch.
func Blocked() *HandleResult {
	return &HandleResult{Handled: true, Block: true}
}

// ReplyAndBlock returns a handled, blocking result carrying a text reply.
func ReplyAndBlock(text string) *HandleResult {
	return &HandleResult{Handled: true, Block: true, Reply: &text}
}

// Group adds several plugins at once.
type Group interface {
	Build(b *AppBuilder) error
}

// GroupFunc adapts a function to Group.
type GroupFunc func(b *AppBuilder) error

func (f GroupFunc) Build(b *AppBuilder) error { return f(b) }

// Base provides default implementations of the optional Plugin methods.
// Plugins embed it and implement Meta and Handle.
type Base struct{}

func (Base) IsUnique() bool { return true }
func (Base) Dependencies() []Dependency { return nil }
func (Base) Build(context.Context, *AppBuilder) error { return nil }
func (Base) Ready(*App) bool { return true }
func (Base) Finish(context.Context, *App) error { return nil }
func (Base) Cleanup(context.Context, *App) error { return nil }
func (Base) Matches(*event.Context) bool { return true }
