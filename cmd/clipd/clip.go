package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipd/internal/clips"
	"github.com/clipforge/clipd/internal/config"
	"github.com/clipforge/clipd/internal/db"
	"github.com/clipforge/clipd/internal/logging"
)

func newClipCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clip <url>",
		Short: "Generate clips from a single source video and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClip(cmd.Context(), args[0])
		},
	}
}

func runClip(ctx context.Context, sourceURL string) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.WorkDir(), 0755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	orch := buildOrchestrator(runCtx, cfg, database, logger)

	job, err := orch.Submit(runCtx, sourceURL)
	if err != nil {
		return err
	}
	fmt.Printf("Job %s submitted.\n", job.ID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		res, err := orch.Poll(runCtx, job.ID)
		if err != nil {
			return fmt.Errorf("poll job %s: %w", job.ID, err)
		}

		for _, line := range res.Lines {
			fmt.Println(line)
		}
		if res.State == "idle" {
			continue
		}

		switch res.State {
		case clips.JobStatusCompleted:
			fmt.Printf("Done: %d clip(s) published.\n", len(res.URLs))
			for _, u := range res.URLs {
				fmt.Println("  " + u)
			}
			return nil
		default:
			return fmt.Errorf("job %s %s: %s", job.ID, res.State, res.Message)
		}
	}
	return nil
}
