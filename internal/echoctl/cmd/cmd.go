package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/kiosk404/echobot/internal/echoctl/cmd/call"
	"github.com/kiosk404/echobot/internal/echoctl/cmd/info"
	"github.com/kiosk404/echobot/internal/echoctl/cmd/probe"
	"github.com/kiosk404/echobot/internal/echoctl/cmd/status"
	cmdutil "github.com/kiosk404/echobot/internal/echoctl/cmd/util"
	"github.com/kiosk404/echobot/pkg/logger"
	"github.com/kiosk404/echobot/pkg/utils/cliflag"
)

// NewDefaultEchoCtlCommand creates the `echoctl` command with default arguments.
func NewDefaultEchoCtlCommand() *cobra.Command {
	return NewEchoCtlCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewEchoCtlCommand(in io.Reader, out, err io.Writer) *cobra.Command {
	logLevel := "warn"

	// Parent command to which all subcommands are added.
	cmds := &cobra.Command{
		Use:   "echoctl",
		Short: "echoctl probes external plugins and running echobot instances",
		Long: fmt.Sprintf("%s\n%s", Banner(), heredoc.Doc(`
			echoctl is the operator tool for echobot.

			It starts external plugin processes the same way the bot does, so a
			plugin can be checked before it is added to the config file, and it
			queries the status server of a running bot.`)),
		Run:           runHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			// The bridge logs process supervision; keep it on stderr and quiet
			// unless asked.
			return logger.Configure(logger.Options{Level: logLevel, Format: "text", OutputPath: "stderr"})
		},
	}
	cmds.SetIn(in)
	cmds.SetOut(out)
	cmds.SetErr(err)

	flags := cmds.PersistentFlags()
	flags.SetNormalizeFunc(cliflag.WordSepNormalizeFunc)
	flags.StringVar(&logLevel, "log-level", logLevel, "Log level of plugin supervision messages.")

	ioStreams := cmdutil.IOStreams{In: in, Out: out, ErrOut: err}

	cmds.AddGroup(
		&cobra.Group{ID: "plugin", Title: "Plugin Commands:"},
		&cobra.Group{ID: "diagnostic", Title: "Diagnostic Commands:"},
	)
	for _, c := range []*cobra.Command{probe.NewCmdProbe(ioStreams), call.NewCmdCall(ioStreams)} {
		c.GroupID = "plugin"
		cmds.AddCommand(c)
	}
	for _, c := range []*cobra.Command{status.NewCmdStatus(ioStreams), info.NewCmdInfo(ioStreams)} {
		c.GroupID = "diagnostic"
		cmds.AddCommand(c)
	}

	return cmds
}

func runHelp(cmd *cobra.Command, args []string) {
	_ = cmd.Help()
}
