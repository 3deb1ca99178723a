package main

import (
	"os"

	"github.com/kiosk404/echobot/internal/echoctl/cmd"
)

func main() {
	command := cmd.NewDefaultEchoCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
