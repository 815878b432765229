package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "crunch",
		Short:   "Crunch a directory of replays into a Dolphin playback queue",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newRunCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
