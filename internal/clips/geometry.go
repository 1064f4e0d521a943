package clips

import "fmt"

// Rect is a crop rectangle in source pixel coordinates.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Geometry describes how a source frame is mapped onto the clip output:
// crop to the target aspect ratio first, then stretch the cropped frame to
// the exact output resolution. The ordering is deliberate; scaling before
// cropping produces different (wrong) framing.
type Geometry struct {
	Crop    Rect
	ScaleW  int
	ScaleH  int
	Cropped bool
}

// Fit computes the centered crop and resize target that convert a
// frameW x frameH source frame into a targetW x targetH output.
func Fit(frameW, frameH, targetW, targetH int) (Geometry, error) {
	if frameW < 1 || frameH < 1 {
		return Geometry{}, fmt.Errorf("invalid frame size %dx%d", frameW, frameH)
	}
	if targetW < 1 || targetH < 1 {
		return Geometry{}, fmt.Errorf("invalid target size %dx%d", targetW, targetH)
	}

	targetAspect := float64(targetW) / float64(targetH)
	srcAspect := float64(frameW) / float64(frameH)

	geo := Geometry{
		Crop:   Rect{X: 0, Y: 0, W: frameW, H: frameH},
		ScaleW: targetW,
		ScaleH: targetH,
	}

	switch {
	case srcAspect > targetAspect:
		// Source is wider than the target: crop horizontally, keep full height.
		// Tiny frames can floor the width to zero, which ffmpeg's crop
		// filter rejects, so hold it at one pixel.
		newW := max(int(float64(frameH)*targetAspect), 1)
		geo.Crop = Rect{X: (frameW - newW) / 2, Y: 0, W: newW, H: frameH}
		geo.Cropped = true
	case srcAspect < targetAspect:
		// Source is taller than the target: crop vertically, keep full width.
		newH := max(int(float64(frameW)/targetAspect), 1)
		geo.Crop = Rect{X: 0, Y: (frameH - newH) / 2, W: frameW, H: newH}
		geo.Cropped = true
	}

	return geo, nil
}
