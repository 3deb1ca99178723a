package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/kiosk404/echobot/internal/echobot/protocol"
	cmdutil "github.com/kiosk404/echobot/internal/echoctl/cmd/util"
)

var probeExample = heredoc.Doc(`
	# Start a plugin, print its metadata and stop it
	echoctl probe -- python3 weather.py

	# Pass environment and a working directory
	echoctl probe --cwd plugins --env API_KEY=xxx -- ./weather-plugin`)

// ProbeOptions is an options struct to support 'probe' sub command.
type ProbeOptions struct {
	Process *cmdutil.ProcessFlags
	Wide    bool

	argv []string
	cmdutil.IOStreams
}

// NewProbeOptions returns an initialized ProbeOptions instance.
func NewProbeOptions(ioStreams cmdutil.IOStreams) *ProbeOptions {
	return &ProbeOptions{
		Process:   cmdutil.NewProcessFlags(),
		IOStreams: ioStreams,
	}
}

// NewCmdProbe returns new initialized instance of 'probe' sub command.
func NewCmdProbe(ioStreams cmdutil.IOStreams) *cobra.Command {
	o := NewProbeOptions(ioStreams)

	cmd := &cobra.Command{
		Use:                   "probe [flags] -- COMMAND [ARGS...]",
		DisableFlagsInUseLine: true,
		Short:                 "Start an external plugin and print its metadata",
		Long: heredoc.Doc(`
			Start an external plugin the way the bot does, deliver the startup
			notice, query its metadata and shut it down again.

			The plugin is never restarted; a failed startup is reported as an error.`),
		Example: probeExample,
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Complete(cmd, args))
			cmdutil.CheckErr(o.Run(cmd.Context()))
		},
	}

	o.Process.AddFlags(cmd.Flags())
	cmd.Flags().BoolVar(&o.Wide, "wide", o.Wide, "Also print process details.")
	return cmd
}

// Complete extracts the plugin command line.
func (o *ProbeOptions) Complete(cmd *cobra.Command, args []string) error {
	argv, err := cmdutil.SplitCommand(cmd, args)
	if err != nil {
		return err
	}
	o.argv = argv
	return nil
}

// Run executes a probe sub command using the specified options.
func (o *ProbeOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := o.Process.Start(ctx, o.argv)
	if err != nil {
		return fmt.Errorf("start plugin: %w", err)
	}
	defer cmdutil.Stop(p)

	meta, ok := p.Meta()
	if !ok {
		if meta, err = p.Metadata(ctx); err != nil {
			return fmt.Errorf("query metadata: %w", err)
		}
	}

	fmt.Fprintf(o.Out, "%s %s\n\n", color.GreenString("✔"), "plugin answered startup and metadata")
	o.printMetadata(meta)
	if o.Wide {
		fmt.Fprintf(o.Out, "\n%-9s %d\n%-9s %s\n", "PID:", p.PID(), "State:", p.State())
	}
	return nil
}

func (o *ProbeOptions) printMetadata(meta protocol.Metadata) {
	info := uitable.New()
	info.MaxColWidth = 80
	info.Wrap = true
	info.AddRow("Name:", meta.Name)
	info.AddRow("Version:", meta.Version)
	info.AddRow("Description:", meta.Description)
	if meta.Author != "" {
		info.AddRow("Author:", meta.Author)
	}
	fmt.Fprintln(o.Out, info)

	if len(meta.Commands) == 0 {
		fmt.Fprintln(o.Out, "\nNo commands declared.")
		return
	}

	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("COMMAND", "ALIASES", "DESCRIPTION")
	for _, c := range meta.Commands {
		aliases := strings.Join(c.Aliases, ",")
		if aliases == "" {
			aliases = "-"
		}
		table.AddRow("/"+c.Name, aliases, c.Description)
	}
	fmt.Fprintf(o.Out, "\n%s\n", table)
}
