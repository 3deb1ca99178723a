package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// PluginsOptions holds the top-level configuration for the built-in plugins.
// Aligned with the `plugins` section of the configuration file.
type PluginsOptions struct {
	// Enabled controls whether built-in plugins are loaded at all. (default: true)
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Allow lists the only built-in plugins that may be loaded. Empty means all.
	Allow []string `json:"allow" mapstructure:"allow"`
	// Deny lists built-in plugins that must not be loaded. Deny wins over Allow.
	Deny []string `json:"deny" mapstructure:"deny"`
	// Entries holds per-plugin configuration.
	// Key is the plugin name. (e.g. "guess", "timer")
	Entries map[string]PluginEntryConfig `json:"entries" mapstructure:"entries"`
}

// PluginEntryConfig holds per-plugin configuration.
type PluginEntryConfig struct {
	Enabled *bool                  `json:"enabled,omitempty" mapstructure:"enabled"`
	Config  map[string]interface{} `json:"config,omitempty" mapstructure:"config"`
}

// NewPluginsOptions returns a new instance of PluginsOptions.
func NewPluginsOptions() *PluginsOptions {
	return &PluginsOptions{
		Enabled: true,
		Allow:   []string{},
		Deny:    []string{},
		Entries: make(map[string]PluginEntryConfig),
	}
}

// IsEnabled reports whether the built-in plugin called name should be
// registered.
func (o *PluginsOptions) IsEnabled(name string) bool {
	if o == nil {
		return true
	}
	if !o.Enabled || contains(o.Deny, name) {
		return false
	}
	if len(o.Allow) > 0 && !contains(o.Allow, name) {
		return false
	}
	if entry, ok := o.Entries[name]; ok && entry.Enabled != nil {
		return *entry.Enabled
	}
	return true
}

// EntryConfig returns the free-form config of a plugin entry, or nil.
func (o *PluginsOptions) EntryConfig(name string) map[string]interface{} {
	if o == nil {
		return nil
	}
	return o.Entries[name].Config
}

// Validate checks PluginsOptions fields.
func (o *PluginsOptions) Validate() []error {
	var errs []error

	names := append(append([]string{}, o.Allow...), o.Deny...)
	for name := range o.Entries {
		names = append(names, name)
	}
	for _, name := range names {
		if err := validatePluginName(name); err != nil {
			errs = append(errs, err)
		}
	}
	for _, name := range o.Allow {
		if contains(o.Deny, name) {
			errs = append(errs, fmt.Errorf("plugin %q is both allowed and denied", name))
		}
	}

	return errs
}

// AddFlags adds flags for the plugins options.
// Only global-level switches are exposed as CLI flags.
// Per-plugin configuration is done via the configuration file.
func (o *PluginsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "plugins.enabled", o.Enabled, "Enable the built-in plugins.")
	fs.StringSliceVar(&o.Allow, "plugins.allow", o.Allow, "Only load these built-in plugins.")
	fs.StringSliceVar(&o.Deny, "plugins.deny", o.Deny, "Never load these built-in plugins.")
}

// Valid plugin names are DNS-compatible.
func validatePluginName(name string) error {
	if name == "" {
		return fmt.Errorf("empty plugin name")
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_') {
			return fmt.Errorf("invalid character %q in plugin name %q", c, name)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
