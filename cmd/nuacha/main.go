package main

import (
	"os"

	"github.com/nuacha-app/nuacha/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
