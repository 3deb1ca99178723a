// Package util holds helpers shared by echoctl sub commands.
package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// IOStreams provides the standard names for iostreams.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// ErrExit may be passed to CheckErr to exit with a non-zero code without
// printing anything.
var ErrExit = errors.New("exit")

var errorPrefix = color.RedString("error:")

var fatalErrHandler = fatal

// BehaviorOnFatal replaces the function invoked by CheckErr.
func BehaviorOnFatal(f func(string, int)) {
	fatalErrHandler = f
}

// DefaultBehaviorOnFatal restores the exiting behavior.
func DefaultBehaviorOnFatal() {
	fatalErrHandler = fatal
}

func fatal(msg string, code int) {
	if len(msg) > 0 {
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		fmt.Fprint(os.Stderr, msg)
	}
	os.Exit(code)
}

// CheckErr prints a user friendly error and exits with a non-zero code.
// A nil error is a no-op.
func CheckErr(err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrExit):
		fatalErrHandler("", 1)
	default:
		fatalErrHandler(fmt.Sprintf("%s %v", errorPrefix, err), 1)
	}
}

// UsageErrorf returns an error that points the user at the command's help.
func UsageErrorf(cmd *cobra.Command, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s\nSee '%s -h' for help and examples", msg, cmd.CommandPath())
}

// SplitCommand returns the child command line given after "--".
func SplitCommand(cmd *cobra.Command, args []string) ([]string, error) {
	at := cmd.ArgsLenAtDash()
	if at < 0 || at >= len(args) {
		return nil, UsageErrorf(cmd, "a plugin command is required after --")
	}
	return args[at:], nil
}
