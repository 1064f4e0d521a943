package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const ytdlpFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]"

// YtdlpAcquirer downloads a remote video into the work directory using the
// yt-dlp binary.
type YtdlpAcquirer struct {
	bin     string
	workDir string
	timeout time.Duration
	logger  *slog.Logger
}

func NewYtdlpAcquirer(binPath, workDir string, timeout time.Duration, logger *slog.Logger) *YtdlpAcquirer {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &YtdlpAcquirer{
		bin:     binPath,
		workDir: workDir,
		timeout: timeout,
		logger:  logger,
	}
}

func (a *YtdlpAcquirer) Acquire(ctx context.Context, sourceURL string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	stamp := time.Now().Format("20060102_150405")
	template := filepath.Join(a.workDir, "full_video_"+stamp+".%(ext)s")

	cmd := exec.CommandContext(ctx, a.bin,
		"-f", ytdlpFormat,
		"-o", template,
		"--no-part",
		sourceURL,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if a.logger != nil {
		a.logger.Info("downloading source video", "url", sourceURL, "work_dir", a.workDir)
	}

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp download: %w\n%s", err, tail(stderr.String(), 2048))
	}

	if path := destinationFromOutput(stdout.String(), a.workDir); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	// yt-dlp does not always print a usable destination line (merged
	// formats report intermediate names), so fall back to scanning the
	// work dir for this run's output.
	path, err := newestMatch(filepath.Join(a.workDir, "full_video_"+stamp+"*.mp4"))
	if err != nil {
		return "", fmt.Errorf("locate downloaded file: %w", err)
	}
	return path, nil
}

// destinationFromOutput extracts the download target from yt-dlp's
// "Destination:" progress line, resolved against the work dir.
func destinationFromOutput(output, workDir string) string {
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, "Destination:")
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[idx+len("Destination:"):])
		if name == "" {
			continue
		}
		return filepath.Join(workDir, filepath.Base(name))
	}
	return ""
}

func newestMatch(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no file matching %s", pattern)
	}

	sort.Slice(matches, func(i, j int) bool {
		fi, errI := os.Stat(matches[i])
		fj, errJ := os.Stat(matches[j])
		if errI != nil || errJ != nil {
			return matches[i] > matches[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})
	return matches[0], nil
}

var _ Acquirer = (*YtdlpAcquirer)(nil)
