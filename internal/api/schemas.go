package api

import (
	"time"

	"github.com/clipforge/clipd/internal/clips"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type SubmitRequest struct {
	SourceURL string `json:"source_url"`
}

type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// ProgressResponse carries one poll of the job's progress channel. While the
// job runs, State is "idle" and Lines holds the text accumulated since the
// previous poll. Exactly one poll observes the terminal state instead.
type ProgressResponse struct {
	State   string   `json:"state"`
	Lines   []string `json:"lines"`
	URLs    []string `json:"urls,omitempty"`
	Message string   `json:"message,omitempty"`
}

type JobResponse struct {
	ID         string   `json:"id"`
	SourceURL  string   `json:"source_url"`
	Status     string   `json:"status"`
	ResultURLs []string `json:"result_urls,omitempty"`
	Error      string   `json:"error,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j *clips.Job) JobResponse {
	return JobResponse{
		ID:         j.ID,
		SourceURL:  j.SourceURL,
		Status:     j.Status,
		ResultURLs: j.ResultURLs,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  j.UpdatedAt.Format(time.RFC3339),
	}
}
