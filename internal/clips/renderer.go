package clips

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/clipforge/clipd/internal/media"
)

// Renderer produces one local artifact per planned segment through the
// encoding backend. A failed segment is the caller's problem to skip, not
// the renderer's to retry.
type Renderer struct {
	encoder media.Encoder
	workDir string
	logger  *slog.Logger
}

// RenderParams fixes the output geometry and encoder settings for a job.
type RenderParams struct {
	Geometry   Geometry
	VideoCodec string
	AudioCodec string
	FrameRate  int
}

func NewRenderer(encoder media.Encoder, workDir string, logger *slog.Logger) *Renderer {
	return &Renderer{encoder: encoder, workDir: workDir, logger: logger}
}

// Render encodes the segment's sub-range into a fresh local path and returns
// it. Paths embed the segment index and a timestamp, so no two segments of a
// job collide.
func (r *Renderer) Render(ctx context.Context, sourcePath string, seg Segment, params RenderParams) (string, error) {
	outName := fmt.Sprintf("short_clip_%d_%s.mp4", seg.Index+1, time.Now().Format("20060102_150405"))
	outPath := filepath.Join(r.workDir, outName)

	req := media.EncodeRequest{
		SourcePath: sourcePath,
		OutputPath: outPath,
		Start:      seg.Start,
		End:        seg.End,
		ScaleW:     params.Geometry.ScaleW,
		ScaleH:     params.Geometry.ScaleH,
		VideoCodec: params.VideoCodec,
		AudioCodec: params.AudioCodec,
		FrameRate:  params.FrameRate,
	}
	if params.Geometry.Cropped {
		req.CropX = params.Geometry.Crop.X
		req.CropY = params.Geometry.Crop.Y
		req.CropW = params.Geometry.Crop.W
		req.CropH = params.Geometry.Crop.H
	}

	if err := r.encoder.Encode(ctx, req); err != nil {
		return "", fmt.Errorf("render segment %d [%0.2fs, %0.2fs): %w", seg.Index, seg.Start, seg.End, err)
	}

	if r.logger != nil {
		r.logger.Info("segment rendered",
			"index", seg.Index,
			"start_s", seg.Start,
			"end_s", seg.End,
			"output", outPath,
		)
	}
	return outPath, nil
}
