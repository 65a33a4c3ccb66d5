package main

import (
	"os"

	"github.com/spherical/pdf-blackout/cmd/pdf-blackout/commands"
)

var version = "1.0.0"

func main() {
	commands.Version = version
	os.Exit(commands.Execute())
}
