package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kiosk404/echobot/internal/echobot"
)

func main() {
	echobot.NewApp("echobot").Run()
}
