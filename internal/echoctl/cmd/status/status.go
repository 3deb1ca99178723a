package status

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	cmdutil "github.com/kiosk404/echobot/internal/echoctl/cmd/util"
)

var statusExample = heredoc.Doc(`
	# Show the state of a local bot
	echoctl status

	# Query a remote bot
	echoctl status --server http://10.0.0.5:8099 --token s3cret`)

// StatusOptions is an options struct to support 'status' sub command.
type StatusOptions struct {
	Server  string
	Token   string
	Timeout time.Duration

	client *http.Client
	cmdutil.IOStreams
}

// NewStatusOptions returns an initialized StatusOptions instance.
func NewStatusOptions(ioStreams cmdutil.IOStreams) *StatusOptions {
	return &StatusOptions{
		Server:    "http://127.0.0.1:8099",
		Timeout:   5 * time.Second,
		IOStreams: ioStreams,
	}
}

// NewCmdStatus returns new initialized instance of 'status' sub command.
func NewCmdStatus(ioStreams cmdutil.IOStreams) *cobra.Command {
	o := NewStatusOptions(ioStreams)

	cmd := &cobra.Command{
		Use:                   "status",
		DisableFlagsInUseLine: true,
		Short:                 "Show plugins and external processes of a running bot",
		Long:                  "Query the status server of a running echobot and print its plugins and external processes.",
		Example:               statusExample,
		Args:                  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&o.Server, "server", o.Server, "Base URL of the echobot status server.")
	cmd.Flags().StringVar(&o.Token, "token", o.Token, "Bearer token for non-loopback servers.")
	cmd.Flags().DurationVar(&o.Timeout, "request-timeout", o.Timeout, "Timeout of each request.")
	return cmd
}

// Run executes a status sub command using the specified options.
func (o *StatusOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: o.Timeout}
	}

	health, err := o.get(ctx, "/healthz")
	if err != nil {
		return err
	}
	state := health.Get("state").String()
	if state == "Running" {
		state = color.GreenString(state)
	} else {
		state = color.YellowString(state)
	}
	fmt.Fprintf(o.Out, "State: %s\n\n", state)

	plugins, err := o.get(ctx, "/plugins")
	if err != nil {
		return err
	}
	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("ORDER", "NAME", "VERSION", "DESCRIPTION")
	plugins.Get("items").ForEach(func(_, p gjson.Result) bool {
		table.AddRow(p.Get("order").Int(), p.Get("name").String(), p.Get("version").String(), p.Get("description").String())
		return true
	})
	fmt.Fprintln(o.Out, table)

	procs, err := o.get(ctx, "/processes")
	if err != nil {
		return err
	}
	if procs.Get("total").Int() == 0 {
		fmt.Fprintln(o.Out, "\nNo external processes.")
		return nil
	}
	table = uitable.New()
	table.MaxColWidth = 60
	table.AddRow("PROCESS", "STATE", "PID", "RESTARTS", "LAST ERROR")
	procs.Get("items").ForEach(func(_, p gjson.Result) bool {
		table.AddRow(p.Get("name").String(), p.Get("state").String(), p.Get("pid").Int(), p.Get("restarts").Int(), p.Get("last_error").String())
		return true
	})
	fmt.Fprintf(o.Out, "\n%s\n", table)
	return nil
}

// get fetches path and returns the parsed JSON body. /healthz answers 503
// while the bot is not running; that body is still returned.
func (o *StatusOptions) get(ctx context.Context, path string) (gjson.Result, error) {
	url := strings.TrimSuffix(o.Server, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	if o.Token != "" {
		req.Header.Set("Authorization", "Bearer "+o.Token)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("query %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s: %w", url, err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s answered %s with a non-JSON body", url, resp.Status)
	}
	parsed := gjson.ParseBytes(body)
	if resp.StatusCode != http.StatusOK && !(path == "/healthz" && resp.StatusCode == http.StatusServiceUnavailable) {
		return gjson.Result{}, fmt.Errorf("%s answered %s: %s", url, resp.Status, parsed.Get("error").String())
	}
	return parsed, nil
}
