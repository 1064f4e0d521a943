package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/clipforge/clipd/internal/config"
)

func main() {
	// Missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "clipd",
		Short:         "Turn a source video into short vertical clips",
		Long:          "clipd downloads a source video, cuts it into fixed-length vertical clips, and publishes them to blob storage. Run it as a long-lived HTTP service or as a one-shot CLI.",
		Version:       fmt.Sprintf("%s (built %s, commit %s)", config.Version, config.BuildTime, config.GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newClipCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
