package clips

import "fmt"

// PlanSegments divides the source timeline into at most clipCount consecutive
// windows of clipDuration seconds, starting at zero.
//
// A candidate whose start falls at or past the end of the source is never
// produced. The last window is clamped to the source duration; if the clamped
// window is shorter than half the nominal clip duration it is dropped and
// planning stops.
func PlanSegments(totalDuration, clipDuration float64, clipCount int) ([]Segment, error) {
	if totalDuration <= 0 {
		return nil, fmt.Errorf("total duration must be positive, got %v", totalDuration)
	}
	if clipDuration <= 0 {
		return nil, fmt.Errorf("clip duration must be positive, got %v", clipDuration)
	}
	if clipCount < 1 {
		return nil, fmt.Errorf("clip count must be at least 1, got %d", clipCount)
	}

	var segments []Segment
	for i := 0; i < clipCount; i++ {
		start := float64(i) * clipDuration
		if start >= totalDuration {
			break
		}

		end := start + clipDuration
		if end > totalDuration {
			end = totalDuration
			if end-start < clipDuration/2 {
				break
			}
		}

		segments = append(segments, Segment{Index: i, Start: start, End: end})
	}

	return segments, nil
}
