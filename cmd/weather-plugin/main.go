// Command weather-plugin is a demo external plugin. Run it under the
// external-plugin-bridge:
//
//	[external-plugin-bridge.plugins.weather]
//	command = "weather-plugin"
//	args = ["--unit", "c"]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/protocol"
	"github.com/kiosk404/echobot/pkg/logger"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	h := &weather{unit: "c"}
	cmd := &cobra.Command{
		Use:           "weather-plugin",
		Short:         "Answers /weather <city> over the external plugin protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries protocol frames; logs go to stderr, which the
			// bridge forwards into the host log.
			logger.SetOutput(os.Stderr)
			if h.unit != "c" && h.unit != "f" {
				return fmt.Errorf("unknown unit %q (want c or f)", h.unit)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return protocol.Serve(ctx, os.Stdin, os.Stdout, h)
		},
	}
	cmd.Flags().StringVar(&h.unit, "unit", h.unit, "Temperature unit, c or f.")
	return cmd
}

type forecast struct {
	sky     string
	celsius int
}

var forecasts = map[string]forecast{
	"london": {sky: "rainy", celsius: 12},
	"tokyo":  {sky: "cloudy", celsius: 18},
}

var fallback = forecast{sky: "sunny", celsius: 20}

type weather struct {
	unit string
}

func (w *weather) Metadata(context.Context) (protocol.Metadata, error) {
	return protocol.Metadata{
		Name:        "weather",
		Description: "Reports the weather for a city",
		Version:     "1.0.0",
		Commands: []protocol.CommandInfo{
			{Name: "weather", Description: "Show the weather for a city", Aliases: []string{"w"}},
		},
	}, nil
}

func (w *weather) Matches(_ context.Context, p protocol.MatchesParams) (bool, error) {
	cmd, ok := event.ParseCommand(p.Text)
	return ok && cmd.Is("weather", "w"), nil
}

func (w *weather) Handle(_ context.Context, p protocol.HandleParams) (protocol.HandleResult, error) {
	cmd, ok := event.ParseCommand(p.Text)
	if !ok || !cmd.Is("weather", "w") {
		return protocol.Ignored(), nil
	}
	city := cmd.Args
	if city == "" {
		return protocol.Replied("Usage: /weather <city>"), nil
	}
	return protocol.Replied(city + ": " + w.report(city)), nil
}

func (w *weather) Lifecycle(_ context.Context, ev protocol.LifecycleEvent) (bool, error) {
	logger.Info("[Weather] lifecycle %s", ev)
	return true, nil
}

func (w *weather) report(city string) string {
	f, ok := forecasts[strings.ToLower(city)]
	if !ok {
		f = fallback
	}
	if w.unit == "f" {
		return fmt.Sprintf("%s, %dF", f.sky, f.celsius*9/5+32)
	}
	return fmt.Sprintf("%s, %dC", f.sky, f.celsius)
}
