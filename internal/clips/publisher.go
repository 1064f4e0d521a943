package clips

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/clipforge/clipd/internal/storage"
)

// Publisher moves one rendered artifact into durable storage. Upload success
// and local cleanup are one unit: the local file is deleted immediately after
// a successful upload, and retained on failure so the clip can be recovered
// by hand.
type Publisher struct {
	store  storage.Store
	logger *slog.Logger
}

func NewPublisher(store storage.Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("artifact missing before upload: %w", err)
	}

	url, err := p.store.Upload(ctx, localPath)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", localPath, err)
	}

	if rmErr := os.Remove(localPath); rmErr != nil && p.logger != nil {
		// The clip is already published; a stale temp file is log-only.
		p.logger.Warn("failed to delete local artifact after upload", "path", localPath, "error", rmErr)
	}

	if p.logger != nil {
		p.logger.Info("artifact published", "path", localPath, "url", url)
	}
	return url, nil
}
