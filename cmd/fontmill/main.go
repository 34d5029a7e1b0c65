package main

import (
	"os"

	"github.com/fontmill/fontmill/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
