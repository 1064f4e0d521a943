package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipd/internal/api"
	"github.com/clipforge/clipd/internal/clips"
	"github.com/clipforge/clipd/internal/config"
	"github.com/clipforge/clipd/internal/db"
	"github.com/clipforge/clipd/internal/logging"
	"github.com/clipforge/clipd/internal/media"
	"github.com/clipforge/clipd/internal/storage"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the clip generation HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	startTime := time.Now()

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
	logger.Info("starting clipd", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orch := buildOrchestrator(ctx, cfg, database, logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		Orchestrator: orch,
		Repository:   clips.NewRepository(database.Conn()),
		Logger:       logger,
		StartTime:    startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	// Stop the background run at its next segment boundary, then drain
	// in-flight HTTP requests.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func buildOrchestrator(ctx context.Context, cfg config.Config, database *db.DB, logger *slog.Logger) *clips.Orchestrator {
	acquirer := media.NewYtdlpAcquirer(cfg.YtdlpPath(), cfg.WorkDir(), cfg.AcquireTimeout(), logger)
	ffmpeg := media.NewFFmpegAdapter(cfg.FFmpegPath(), cfg.FFprobePath(), cfg.ProbeTimeout(), cfg.RenderTimeout(), logger)
	store := storage.NewBlobClient(cfg.BlobBaseURL(), cfg.BlobToken(), logger)

	return clips.NewOrchestrator(clips.OrchestratorConfig{
		Repository: clips.NewRepository(database.Conn()),
		Acquirer:   acquirer,
		Prober:     ffmpeg,
		Renderer:   clips.NewRenderer(ffmpeg, cfg.WorkDir(), logger),
		Publisher:  clips.NewPublisher(store, logger),
		Settings: clips.Settings{
			ClipWidth:    cfg.ClipWidth(),
			ClipHeight:   cfg.ClipHeight(),
			ClipDuration: cfg.ClipDuration(),
			ClipCount:    cfg.ClipCount(),
			VideoCodec:   cfg.VideoCodec(),
			AudioCodec:   cfg.AudioCodec(),
			FrameRate:    cfg.FrameRate(),
		},
		Logger:      logger,
		BaseContext: ctx,
	})
}
