package main

import (
	"os"

	"github.com/quantbt/mabot/cmd/mabot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
