package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFmpegAdapter implements Prober and Encoder on top of the ffmpeg and
// ffprobe binaries.
type FFmpegAdapter struct {
	ffmpeg        string
	ffprobe       string
	probeTimeout  time.Duration
	renderTimeout time.Duration
	logger        *slog.Logger
}

func NewFFmpegAdapter(ffmpegPath, ffprobePath string, probeTimeout, renderTimeout time.Duration, logger *slog.Logger) *FFmpegAdapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegAdapter{
		ffmpeg:        ffmpegPath,
		ffprobe:       ffprobePath,
		probeTimeout:  probeTimeout,
		renderTimeout: renderTimeout,
		logger:        logger,
	}
}

type ffprobeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (a *FFmpegAdapter) Probe(ctx context.Context, path string) (ProbeResult, error) {
	if a.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.probeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var out ffprobeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return ProbeResult{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return ProbeResult{}, fmt.Errorf("no video stream in %s", path)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}

	return ProbeResult{
		Duration: duration,
		Width:    out.Streams[0].Width,
		Height:   out.Streams[0].Height,
	}, nil
}

func (a *FFmpegAdapter) Encode(ctx context.Context, req EncodeRequest) error {
	if a.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.renderTimeout)
		defer cancel()
	}

	args := buildEncodeArgs(req)

	if a.logger != nil {
		a.logger.Debug("running ffmpeg", "args", args)
	}

	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg encode: %w\n%s", err, tail(string(b), 2048))
	}
	return nil
}

// buildEncodeArgs assembles the ffmpeg invocation for one clip: seek the
// sub-range, crop to the target aspect, then scale to the exact output size.
func buildEncodeArgs(req EncodeRequest) []string {
	args := []string{
		"-y",
		"-ss", fmtSeconds(req.Start),
		"-to", fmtSeconds(req.End),
		"-i", req.SourcePath,
	}

	if vf := buildFilter(req); vf != "" {
		args = append(args, "-vf", vf)
	}

	args = append(args,
		"-r", strconv.Itoa(req.FrameRate),
		"-c:v", req.VideoCodec,
		"-preset", "veryfast",
		"-c:a", req.AudioCodec,
		req.OutputPath,
	)
	return args
}

// buildFilter produces the crop/scale filter chain. Crop comes first; the
// two stages must not be reordered.
func buildFilter(req EncodeRequest) string {
	var stages []string
	if req.CropW > 0 && req.CropH > 0 {
		stages = append(stages, fmt.Sprintf("crop=%d:%d:%d:%d", req.CropW, req.CropH, req.CropX, req.CropY))
	}
	if req.ScaleW > 0 && req.ScaleH > 0 {
		stages = append(stages, fmt.Sprintf("scale=%d:%d", req.ScaleW, req.ScaleH))
	}
	return strings.Join(stages, ",")
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func tail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

var (
	_ Prober  = (*FFmpegAdapter)(nil)
	_ Encoder = (*FFmpegAdapter)(nil)
)
