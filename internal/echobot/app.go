package echobot

import (
	"github.com/MakeNowJust/heredoc/v2"

	"github.com/kiosk404/echobot/internal/echobot/config"
	"github.com/kiosk404/echobot/internal/echobot/options"
	"github.com/kiosk404/echobot/pkg/app"
	"github.com/kiosk404/echobot/pkg/logger"
)

const (
	AppName = "echobot"
)

var description = heredoc.Doc(`
	echobot is a chat bot runtime built from plugins.

	Built-in plugins run in-process; external plugins run as child
	processes speaking line-delimited JSON-RPC on stdin/stdout and are
	configured in the [external-plugin-bridge] section of the config file.
	Messages are read from the console, and a status server reports the
	plugin order, external process states and dispatch metrics.`)

func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp(AppName,
		basename,
		app.WithOptions(opts),
		app.WithDescription(description),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		if err := logger.Configure(opts.LogOptions.ToLogger()); err != nil {
			return err
		}
		defer logger.FlushLog()

		cfg, err := config.CreateConfigFromOptions(opts, app.ConfigFile())
		if err != nil {
			return err
		}

		return Run(cfg)
	}
}
