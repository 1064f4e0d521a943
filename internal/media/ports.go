// Package media defines the contracts to the external media collaborators
// (source download, stream probing, encoding) and their subprocess adapters.
package media

import "context"

// ProbeResult carries the stream facts the pipeline needs from a source file.
type ProbeResult struct {
	Duration float64 // seconds
	Width    int
	Height   int
}

// Acquirer fetches a remote source reference into a complete local media
// file. On failure no partial file is left behind for the caller to clean up.
type Acquirer interface {
	Acquire(ctx context.Context, sourceURL string) (string, error)
}

// Prober reads duration and frame geometry of a local media file.
type Prober interface {
	Probe(ctx context.Context, path string) (ProbeResult, error)
}

// EncodeRequest describes one sub-range encode: extract [Start, End) from
// SourcePath, crop, scale, and write OutputPath.
type EncodeRequest struct {
	SourcePath string
	OutputPath string
	Start      float64 // seconds
	End        float64 // seconds

	// Crop rectangle in source pixels. Ignored when CropW/CropH are zero.
	CropX int
	CropY int
	CropW int
	CropH int

	// Exact output resolution the cropped frame is stretched to.
	ScaleW int
	ScaleH int

	VideoCodec string
	AudioCodec string
	FrameRate  int
}

// Encoder renders one clip artifact from a source file.
type Encoder interface {
	Encode(ctx context.Context, req EncodeRequest) error
}
