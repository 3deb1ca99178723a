package plugin

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicatePlugin   = errors.New("duplicate plugin")
	ErrMissingDependency = errors.New("missing dependency")
	ErrDependencyCycle   = errors.New("dependency cycle")
	ErrPluginNotReady    = errors.New("plugin not ready")
	ErrHandleFailure     = errors.New("plugin handle failed")

	ErrBuilderConsumed = errors.New("app builder already consumed")
	ErrNotRunning      = errors.New("app is not running")
	ErrHooksFired      = errors.New("lifecycle hooks already fired")

	ErrResourceNotFound     = errors.New("resource not found")
	ErrResourceTypeMismatch = errors.New("resource type mismatch")
)

// DuplicatePluginError reports a second unique plugin with a taken name.
type DuplicatePluginError struct {
	Name string
}

func (e *DuplicatePluginError) Error() string {
	return fmt.Sprintf("plugin %q is already registered", e.Name)
}

func (e *DuplicatePluginError) Is(target error) bool { return target == ErrDuplicatePlugin }

// MissingDependencyError reports a required dependency that is not registered.
type MissingDependencyError struct {
	Plugin     string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("plugin %q requires %q which is not registered", e.Plugin, e.Dependency)
}

func (e *MissingDependencyError) Is(target error) bool { return target == ErrMissingDependency }

// DependencyCycleError lists the plugins that could not be ordered.
type DependencyCycleError struct {
	Participants []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("circular dependency detected among plugins: [%s]", strings.Join(e.Participants, ", "))
}

func (e *DependencyCycleError) Is(target error) bool { return target == ErrDependencyCycle }

// PluginNotReadyError lists the plugins whose ready check failed.
type PluginNotReadyError struct {
	Plugins []string
}

func (e *PluginNotReadyError) Error() string {
	return fmt.Sprintf("plugins not ready: [%s]", strings.Join(e.Plugins, ", "))
}

func (e *PluginNotReadyError) Is(target error) bool { return target == ErrPluginNotReady }

// HandleError wraps a handle failure of one plugin for one event.
type HandleError struct {
	Plugin string
	Err    error
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("plugin %q handle failed: %v", e.Plugin, e.Err)
}

func (e *HandleError) Unwrap() error { return e.Err }

func (e *HandleError) Is(target error) bool { return target == ErrHandleFailure }
