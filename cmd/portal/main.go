package main

import (
	"os"

	"github.com/spec-kit/marketplace-portal/cmd/portal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
