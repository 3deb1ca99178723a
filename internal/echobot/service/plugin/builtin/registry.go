package builtin

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/kiosk404/echobot/internal/echobot/service/bridge"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin/builtin/commands"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin/builtin/infra"
	genericoptions "github.com/kiosk404/echobot/internal/pkg/options"
	"github.com/kiosk404/echobot/pkg/logger"
)

// Options carries the option groups the built-in plugins are configured
// from. Nil fields fall back to defaults.
type Options struct {
	Plugins *genericoptions.PluginsOptions
	Storage *genericoptions.StorageOptions
	Metrics *genericoptions.MetricsOptions
}

// NewInTreeRegistry creates the in-tree plugin registry. Plugins are
// registered in this order, which is also the dispatch order among
// plugins that do not depend on each other:
//   - session: routes follow-up messages to waiting conversations
//   - metrics, scheduler, storage: shared services
//   - ping, help, echo, add, whoami, guess, timer: chat commands
//   - external-plugin-bridge: plugins running as child processes
//
// Plugins rejected by the plugins allow/deny lists are skipped.
func NewInTreeRegistry(opts Options) *plugin.InTreeRegistry {
	registry := plugin.NewInTreeRegistry()
	register := func(name string, factory plugin.Factory) {
		if !opts.Plugins.IsEnabled(name) {
			logger.Info("[Builtin] plugin %q disabled by configuration", name)
			return
		}
		registry.Register(name, factory)
	}

	register(infra.SessionName, func() (plugin.Plugin, error) {
		return infra.NewSession(), nil
	})
	register(infra.MetricsName, func() (plugin.Plugin, error) {
		return infra.NewMetrics(resolveMetricsOptions(opts).ReportInterval), nil
	})
	register(infra.SchedulerName, func() (plugin.Plugin, error) {
		return infra.NewScheduler(), nil
	})
	register(infra.StorageName, func() (plugin.Plugin, error) {
		return infra.NewStorage(resolveStorageOptions(opts).Path), nil
	})
	register(commands.PingName, func() (plugin.Plugin, error) {
		return commands.NewPing(), nil
	})
	register(commands.HelpName, func() (plugin.Plugin, error) {
		return commands.NewHelp(), nil
	})
	register(commands.EchoName, func() (plugin.Plugin, error) {
		return commands.NewEcho(), nil
	})
	register(commands.AddName, func() (plugin.Plugin, error) {
		return commands.NewAdd(), nil
	})
	register(commands.WhoamiName, func() (plugin.Plugin, error) {
		return commands.NewWhoami(), nil
	})
	register(commands.GuessName, func() (plugin.Plugin, error) {
		cfg, err := resolveGuessConfig(opts.Plugins)
		if err != nil {
			return nil, err
		}
		return commands.NewGuess(cfg), nil
	})
	register(commands.TimerName, func() (plugin.Plugin, error) {
		return commands.NewTimer(), nil
	})
	register(bridge.Name, func() (plugin.Plugin, error) {
		return bridge.New(), nil
	})

	return registry
}

func resolveMetricsOptions(opts Options) *genericoptions.MetricsOptions {
	if opts.Metrics == nil {
		return genericoptions.NewMetricsOptions()
	}
	return opts.Metrics
}

func resolveStorageOptions(opts Options) *genericoptions.StorageOptions {
	if opts.Storage == nil {
		return genericoptions.NewStorageOptions()
	}
	return opts.Storage
}

// resolveGuessConfig reads plugins.entries.guess.config.
func resolveGuessConfig(opts *genericoptions.PluginsOptions) (commands.GuessConfig, error) {
	cfg := commands.GuessConfig{Timeout: commands.DefaultGuessTimeout}
	raw := opts.EntryConfig(commands.GuessName)
	if raw == nil {
		return cfg, nil
	}
	if v, ok := raw["secret"]; ok {
		secret, err := cast.ToIntE(v)
		if err != nil {
			return cfg, err
		}
		if secret < 0 || secret > 100 {
			return cfg, fmt.Errorf("guess: secret %d is outside 1..100", secret)
		}
		cfg.Secret = secret
	}
	if v, ok := raw["timeout"]; ok {
		timeout, err := cast.ToDurationE(v)
		if err != nil {
			return cfg, err
		}
		cfg.Timeout = timeout
	}
	return cfg, nil
}
