package call

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/bytedance/gg/gptr"
	"github.com/spf13/cobra"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/internal/echobot/protocol"
	cmdutil "github.com/kiosk404/echobot/internal/echoctl/cmd/util"
	"github.com/kiosk404/echobot/pkg/utils/json"
)

const (
	methodMatches  = "matches"
	methodHandle   = "handle"
	methodMetadata = "metadata"
)

var callExample = heredoc.Doc(`
	# Ask a plugin whether it wants a message
	echoctl call matches --text "/weather Paris" -- ./weather-plugin

	# Deliver a group message and print the plugin's result
	echoctl call handle --text "/weather Paris" --group 123 -- ./weather-plugin`)

// CallOptions is an options struct to support 'call' sub command.
type CallOptions struct {
	Process *cmdutil.ProcessFlags
	Text    string
	UserID  int64
	GroupID int64
	SelfID  int64

	method string
	argv   []string
	cmdutil.IOStreams
}

// NewCallOptions returns an initialized CallOptions instance.
func NewCallOptions(ioStreams cmdutil.IOStreams) *CallOptions {
	return &CallOptions{
		Process:   cmdutil.NewProcessFlags(),
		UserID:    10000,
		IOStreams: ioStreams,
	}
}

// NewCmdCall returns new initialized instance of 'call' sub command.
func NewCmdCall(ioStreams cmdutil.IOStreams) *cobra.Command {
	o := NewCallOptions(ioStreams)

	cmd := &cobra.Command{
		Use:                   "call (matches|handle|metadata) [flags] -- COMMAND [ARGS...]",
		DisableFlagsInUseLine: true,
		Short:                 "Send one request to an external plugin and print the result",
		Long: heredoc.Doc(`
			Start an external plugin, send a single matches, handle or metadata
			request built from the flags and print the decoded result as JSON.`),
		Example:   callExample,
		ValidArgs: []string{methodMatches, methodHandle, methodMetadata},
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Complete(cmd, args))
			cmdutil.CheckErr(o.Validate(cmd))
			cmdutil.CheckErr(o.Run(cmd.Context()))
		},
	}

	o.Process.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&o.Text, "text", o.Text, "Message text.")
	cmd.Flags().Int64Var(&o.UserID, "user", o.UserID, "Sender user id.")
	cmd.Flags().Int64Var(&o.GroupID, "group", o.GroupID, "Group id; 0 sends a private message.")
	cmd.Flags().Int64Var(&o.SelfID, "self", o.SelfID, "Bot account id; 0 leaves it unset.")
	return cmd
}

// Complete splits the method from the plugin command line.
func (o *CallOptions) Complete(cmd *cobra.Command, args []string) error {
	argv, err := cmdutil.SplitCommand(cmd, args)
	if err != nil {
		return err
	}
	if at := cmd.ArgsLenAtDash(); at != 1 {
		return cmdutil.UsageErrorf(cmd, "exactly one method is required before --")
	}
	o.method = args[0]
	o.argv = argv
	return nil
}

// Validate checks the method and the message flags.
func (o *CallOptions) Validate(cmd *cobra.Command) error {
	switch o.method {
	case methodMatches, methodHandle:
		if o.Text == "" {
			return cmdutil.UsageErrorf(cmd, "--text is required for %s", o.method)
		}
	case methodMetadata:
	default:
		return cmdutil.UsageErrorf(cmd, "unknown method %q", o.method)
	}
	return nil
}

// Run executes a call sub command using the specified options.
func (o *CallOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := o.Process.Start(ctx, o.argv)
	if err != nil {
		return fmt.Errorf("start plugin: %w", err)
	}
	defer cmdutil.Stop(p)

	var result interface{}
	switch o.method {
	case methodMatches:
		result = protocol.MatchesResult{Matches: p.Matches(ctx, o.event())}
	case methodHandle:
		res, err := p.Handle(ctx, o.event())
		if err != nil {
			return fmt.Errorf("handle: %w", err)
		}
		result = res
	case methodMetadata:
		meta, err := p.Metadata(ctx)
		if err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		result = meta
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(o.Out, string(out))
	return nil
}

func (o *CallOptions) event() *event.Context {
	msgType, groupID := event.MessageTypePrivate, (*int64)(nil)
	if o.GroupID != 0 {
		msgType, groupID = event.MessageTypeGroup, gptr.Of(o.GroupID)
	}
	ev := event.New(msgType, o.UserID, groupID, o.Text, nil)
	if o.SelfID != 0 {
		ev.SelfID = gptr.Of(o.SelfID)
	}
	return ev
}
