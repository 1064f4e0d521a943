package clips

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusErrored   = "errored"
)

// Job is one clip-generation run. It is created at submission and mutated
// only by the orchestrator goroutine that owns the run.
type Job struct {
	ID         string    `json:"id"`
	SourceURL  string    `json:"source_url"`
	Status     string    `json:"status"`
	ResultURLs []string  `json:"result_urls,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Segment is one planned time window of the source, in seconds.
type Segment struct {
	Index int
	Start float64
	End   float64
}

// Length returns the segment duration in seconds.
func (s Segment) Length() float64 {
	return s.End - s.Start
}

func IsTerminalStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusErrored:
		return true
	default:
		return false
	}
}

func NewID() string {
	return uuid.NewString()
}
