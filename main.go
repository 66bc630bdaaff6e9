package main

import (
	"os"

	"github.com/stock-track/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}