package main

import (
	"fmt"
	"os"

	"lifx-monitor/cmd/lifx-monitor/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
