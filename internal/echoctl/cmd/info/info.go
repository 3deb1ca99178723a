package info

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	hoststat "github.com/likexian/host-stat-go"
	"github.com/spf13/cobra"

	cmdutil "github.com/kiosk404/echobot/internal/echoctl/cmd/util"
)

var infoExample = heredoc.Doc(`
	# Print the host information
	echoctl info

	# Also check that plugin interpreters are on PATH
	echoctl info --check python3 --check node`)

// Info is an options struct to support 'info' sub command.
type Info struct {
	Check []string
	cmdutil.IOStreams
}

// NewInfoOptions returns an initialized InfoOptions instance.
func NewInfoOptions(ioStreams cmdutil.IOStreams) *Info {
	return &Info{
		IOStreams: ioStreams,
	}
}

// NewCmdInfo returns new initialized instance of 'info' sub command.
func NewCmdInfo(ioStreams cmdutil.IOStreams) *cobra.Command {
	o := NewInfoOptions(ioStreams)

	cmd := &cobra.Command{
		Use:                   "info",
		DisableFlagsInUseLine: true,
		Short:                 "Print the host information",
		Long:                  "Print the host information and check plugin interpreters.",
		Example:               infoExample,
		Args:                  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context()))
		},
	}
	cmd.Flags().StringSliceVar(&o.Check, "check", o.Check, "Executable to look up on PATH; may be repeated.")
	return cmd
}

// Run executes an info sub command using the specified options.
func (o *Info) Run(ctx context.Context) error {
	hostInfo, err := hoststat.GetHostInfo()
	if err != nil {
		return fmt.Errorf("get host info failed!error:%w", err)
	}
	memStat, err := hoststat.GetMemStat()
	if err != nil {
		return fmt.Errorf("get mem stat failed!error:%w", err)
	}
	cpuStat, err := hoststat.GetCPUInfo()
	if err != nil {
		return fmt.Errorf("get cpu stat failed!error:%w", err)
	}

	table := uitable.New()
	table.AddRow("HostName:", hostInfo.HostName)
	table.AddRow("IPAddress:", localIP())
	table.AddRow("OSRelease:", hostInfo.Release+" "+hostInfo.OSBit)
	table.AddRow("CPUCore:", cpuStat.CoreCount)
	table.AddRow("MemTotal:", strconv.FormatUint(memStat.MemTotal, 10)+"M")
	table.AddRow("MemFree:", strconv.FormatUint(memStat.MemFree, 10)+"M")
	table.AddRow("GoRuntime:", runtime.Version()+" "+runtime.GOOS+"/"+runtime.GOARCH)
	fmt.Fprintln(o.Out, table)

	if len(o.Check) == 0 {
		return nil
	}
	fmt.Fprintln(o.Out)
	missing := 0
	for _, name := range o.Check {
		path, err := exec.LookPath(name)
		if err != nil {
			missing++
			fmt.Fprintf(o.Out, "%s %s not found\n", color.RedString("✘"), name)
			continue
		}
		fmt.Fprintf(o.Out, "%s %s %s\n", color.GreenString("✔"), name, path)
	}
	if missing > 0 {
		return fmt.Errorf("%d executable(s) not found on PATH", missing)
	}
	return nil
}

// localIP returns the first non-loopback IPv4 address, or "".
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
