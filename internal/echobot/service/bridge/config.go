package bridge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/gg/gptr"
	"github.com/jinzhu/copier"
)

// SectionKey is the configuration section read by the bridge.
const SectionKey = "external-plugin-bridge"

const (
	DefaultCallTimeout     = 10 * time.Second
	DefaultShutdownTimeout = 3 * time.Second
	DefaultGracePeriod     = 2 * time.Second
	DefaultMaxRestarts     = 3
)

// Config is the external-plugin-bridge section.
//
//	[external-plugin-bridge]
//	enabled = true
//	[external-plugin-bridge.plugins.weather]
//	command = "python3"
//	args = ["weather.py"]
//	auto_restart = true
type Config struct {
	Enabled         bool                      `json:"enabled" mapstructure:"enabled"`
	CallTimeout     time.Duration             `json:"call_timeout" mapstructure:"call_timeout"`
	ShutdownTimeout time.Duration             `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	GracePeriod     time.Duration             `json:"grace_period" mapstructure:"grace_period"`
	Plugins         map[string]*ProcessConfig `json:"plugins" mapstructure:"plugins"`
}

// ProcessConfig describes one external plugin.
type ProcessConfig struct {
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args" mapstructure:"args"`
	Cwd     string   `json:"cwd,omitempty" mapstructure:"cwd"`
	// Env overrides are appended to the parent environment. Names are
	// upper-cased since the config layer folds keys to lower case.
	Env         map[string]string `json:"env,omitempty" mapstructure:"env"`
	AutoRestart bool              `json:"auto_restart" mapstructure:"auto_restart"`
	// MaxRestarts defaults to DefaultMaxRestarts when unset.
	MaxRestarts *int `json:"max_restarts,omitempty" mapstructure:"max_restarts"`
}

func (Config) SectionKey() string { return SectionKey }

func (c *Config) SetDefaults() {
	c.CallTimeout = DefaultCallTimeout
	c.ShutdownTimeout = DefaultShutdownTimeout
	c.GracePeriod = DefaultGracePeriod
}

// Validate checks the section for obvious errors.
func (c *Config) Validate() []error {
	var errs []error
	if c.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s.call_timeout must be positive", SectionKey))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s.shutdown_timeout must be positive", SectionKey))
	}
	if c.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("%s.grace_period must not be negative", SectionKey))
	}
	for _, name := range c.Names() {
		pc := c.Plugins[name]
		if pc == nil || strings.TrimSpace(pc.Command) == "" {
			errs = append(errs, fmt.Errorf("%s.plugins.%s: command is required", SectionKey, name))
			continue
		}
		if pc.MaxRestarts != nil && *pc.MaxRestarts < 0 {
			errs = append(errs, fmt.Errorf("%s.plugins.%s: max_restarts must not be negative", SectionKey, name))
		}
	}
	return errs
}

// Names returns the configured plugin names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Plugins))
	for name := range c.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Complete returns a deep copy with per-plugin defaults filled in. The
// receiver is left untouched so the App's config snapshot stays as loaded.
func (c *Config) Complete() (*Config, error) {
	out := &Config{}
	if err := copier.CopyWithOption(out, c, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy %s config: %w", SectionKey, err)
	}
	if out.Plugins == nil {
		out.Plugins = make(map[string]*ProcessConfig)
	}
	for _, pc := range out.Plugins {
		if pc == nil {
			continue
		}
		if pc.MaxRestarts == nil {
			pc.MaxRestarts = gptr.Of(DefaultMaxRestarts)
		}
	}
	return out, nil
}

// Timeouts returns the bridge-level timeouts applied to every process.
func (c *Config) Timeouts() Timeouts {
	return Timeouts{Call: c.CallTimeout, Shutdown: c.ShutdownTimeout, Grace: c.GracePeriod}
}

// Limit is the effective restart budget.
func (pc *ProcessConfig) Limit() int {
	if pc.MaxRestarts == nil {
		return DefaultMaxRestarts
	}
	return *pc.MaxRestarts
}

// Environ returns the child environment: parent entries then overrides in
// key order. Keys arrive lower-cased when they come through a config file,
// so an all-lower-case key is upper-cased; any other key is kept as written.
func (pc *ProcessConfig) Environ(parent []string) []string {
	env := append([]string(nil), parent...)
	keys := make([]string, 0, len(pc.Env))
	for k := range pc.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, envKey(k)+"="+pc.Env[k])
	}
	return env
}

func envKey(k string) string {
	if k == strings.ToLower(k) {
		return strings.ToUpper(k)
	}
	return k
}

// Timeouts bounds a process's calls and its shutdown sequence.
type Timeouts struct {
	Call     time.Duration
	Shutdown time.Duration
	Grace    time.Duration
}

// DefaultTimeouts returns the bridge defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{Call: DefaultCallTimeout, Shutdown: DefaultShutdownTimeout, Grace: DefaultGracePeriod}
}
