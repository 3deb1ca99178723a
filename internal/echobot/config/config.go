package config

import (
	"github.com/kiosk404/echobot/internal/echobot/options"
)

// Config is the running configuration structure of the echobot service.
type Config struct {
	*options.Options

	// ConfigFile is the file the options were read from, if any. The plugin
	// config store loads the same file.
	ConfigFile string
}

// CreateConfigFromOptions creates a running configuration instance based
// on the given options.
func CreateConfigFromOptions(opts *options.Options, configFile string) (*Config, error) {
	return &Config{Options: opts, ConfigFile: configFile}, nil
}
