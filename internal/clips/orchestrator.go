package clips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clipforge/clipd/internal/media"
)

var (
	// ErrInvalidSource rejects a submission before any background work starts.
	ErrInvalidSource = errors.New("source url must be a non-empty absolute http or https url")

	// ErrJobRunning is returned while another job occupies the execution slot.
	ErrJobRunning = errors.New("a job is already running")

	// ErrJobNotFound is returned when polling an unknown job id.
	ErrJobNotFound = errors.New("job not found")
)

// Settings fixes the segmentation and output parameters for every job.
type Settings struct {
	ClipWidth    int
	ClipHeight   int
	ClipDuration float64 // seconds
	ClipCount    int
	VideoCodec   string
	AudioCodec   string
	FrameRate    int
}

// PollResult is one poll response: accumulated progress lines while the job
// runs, or the terminal outcome exactly once.
type PollResult struct {
	State   string
	Lines   []string
	URLs    []string
	Message string
}

// Orchestrator runs one clip-generation job at a time on a background
// goroutine and owns the per-job progress logs. Submission and polling are
// both non-blocking.
type Orchestrator struct {
	repo      Repository
	acquirer  media.Acquirer
	prober    media.Prober
	renderer  *Renderer
	publisher *Publisher
	settings  Settings
	logger    *slog.Logger

	// baseCtx bounds background job execution; it is the host's lifetime,
	// not any single request's.
	baseCtx context.Context

	active atomic.Bool

	mu   sync.Mutex
	logs map[string]*ProgressLog
}

type OrchestratorConfig struct {
	Repository  Repository
	Acquirer    media.Acquirer
	Prober      media.Prober
	Renderer    *Renderer
	Publisher   *Publisher
	Settings    Settings
	Logger      *slog.Logger
	BaseContext context.Context
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	baseCtx := cfg.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Orchestrator{
		repo:      cfg.Repository,
		acquirer:  cfg.Acquirer,
		prober:    cfg.Prober,
		renderer:  cfg.Renderer,
		publisher: cfg.Publisher,
		settings:  cfg.Settings,
		logger:    cfg.Logger,
		baseCtx:   baseCtx,
		logs:      make(map[string]*ProgressLog),
	}
}

// Submit validates the source reference, persists a pending job, and starts
// the run on a background goroutine. It returns without waiting for any
// pipeline work.
func (o *Orchestrator) Submit(ctx context.Context, sourceURL string) (*Job, error) {
	if err := validateSourceURL(sourceURL); err != nil {
		return nil, err
	}

	if !o.active.CompareAndSwap(false, true) {
		return nil, ErrJobRunning
	}

	now := time.Now()
	job := &Job{
		ID:        NewID(),
		SourceURL: sourceURL,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.repo.CreateJob(ctx, job); err != nil {
		o.active.Store(false)
		return nil, fmt.Errorf("create job: %w", err)
	}

	log := NewProgressLog()
	log.Append("Starting video processing...")
	log.Append("NOTE: Video processing is resource-intensive and may take time.")

	// Holding the slot means no other run is live, so any remaining log
	// with an undelivered outcome belongs to an abandoned job; reap them
	// rather than accrete one entry per never-polled submission. Their
	// terminal state stays readable through the job record.
	o.mu.Lock()
	for id, l := range o.logs {
		if l.Finished() {
			delete(o.logs, id)
		}
	}
	o.logs[job.ID] = log
	o.mu.Unlock()

	go o.run(o.baseCtx, job, log)

	if o.logger != nil {
		o.logger.Info("job submitted", "job_id", job.ID, "source_url", sourceURL)
	}
	return job, nil
}

// Poll drains the job's progress log without blocking. The terminal outcome
// is delivered at most once; polls after that report an idle, empty channel.
func (o *Orchestrator) Poll(ctx context.Context, jobID string) (PollResult, error) {
	o.mu.Lock()
	log := o.logs[jobID]
	o.mu.Unlock()

	if log == nil {
		// No in-memory channel: either an unknown id, or a job whose
		// terminal record was already delivered and reaped.
		job, err := o.repo.GetJob(ctx, jobID)
		if err != nil {
			return PollResult{}, err
		}
		if job == nil {
			return PollResult{}, ErrJobNotFound
		}
		return PollResult{State: "idle"}, nil
	}

	lines, outcome := log.Drain()
	if outcome == nil {
		return PollResult{State: "idle", Lines: lines}, nil
	}

	// The terminal record has been observed; the channel is done.
	o.mu.Lock()
	delete(o.logs, jobID)
	o.mu.Unlock()

	return PollResult{
		State:   outcome.Status,
		URLs:    outcome.URLs,
		Message: outcome.Message,
	}, nil
}

// GetJob returns the persisted job record.
func (o *Orchestrator) GetJob(ctx context.Context, jobID string) (*Job, error) {
	job, err := o.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// run executes one job end to end. It emits exactly one terminal record and
// frees the execution slot when it returns.
func (o *Orchestrator) run(ctx context.Context, job *Job, log *ProgressLog) {
	defer o.active.Store(false)

	finished := false
	finish := func(status, message string, urls []string) {
		finished = true
		// Terminal persistence must survive host cancellation.
		termCtx := context.WithoutCancel(ctx)
		o.repo.UpdateJobStatus(termCtx, job.ID, status, message)
		if len(urls) > 0 {
			o.repo.SetJobResults(termCtx, job.ID, urls)
		}
		log.Finish(Outcome{Status: status, Message: message, URLs: urls})
		if o.logger != nil {
			o.logger.Info("job finished", "job_id", job.ID, "status", status, "clips", len(urls))
		}
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("an unexpected error occurred: %v", r)
			if o.logger != nil {
				o.logger.Error("panic in job run", "job_id", job.ID, "panic", r)
			}
			finish(JobStatusErrored, msg, nil)
		} else if !finished {
			// A run path that returned without a terminal record is a bug;
			// never leave the poller hanging.
			finish(JobStatusErrored, "job ended without a terminal outcome", nil)
		}
	}()

	o.repo.UpdateJobStatus(ctx, job.ID, JobStatusRunning, "")

	sourcePath, err := o.acquirer.Acquire(ctx, job.SourceURL)
	if err != nil {
		log.Append(fmt.Sprintf("Error downloading video: %v", err))
		finish(JobStatusFailed, "failed to download the source video, cannot generate clips", nil)
		return
	}
	log.Append("Download complete.")

	// process owns the source copy's cleanup, so by the time its terminal
	// triple reaches finish the work dir is already settled. A panic
	// unwinds through the same cleanup before the recover above fires.
	status, message, urls := o.process(ctx, sourcePath, log)
	finish(status, message, urls)
}

// process runs the pipeline from a downloaded source to a terminal verdict.
// The source copy is deleted before it returns, whatever the outcome.
func (o *Orchestrator) process(ctx context.Context, sourcePath string, log *ProgressLog) (status, message string, urls []string) {
	// The source copy is temporary regardless of how the run ends.
	defer func() {
		if rmErr := os.Remove(sourcePath); rmErr != nil && o.logger != nil {
			o.logger.Warn("failed to delete downloaded source", "path", sourcePath, "error", rmErr)
		}
	}()

	probe, err := o.prober.Probe(ctx, sourcePath)
	if err != nil || probe.Duration <= 0 {
		if err != nil {
			log.Append(fmt.Sprintf("Error reading video: %v", err))
		}
		return JobStatusFailed, "source video is unreadable or has no duration", nil
	}
	log.Append(fmt.Sprintf("Full video duration: %.2f seconds.", probe.Duration))

	geo, err := Fit(probe.Width, probe.Height, o.settings.ClipWidth, o.settings.ClipHeight)
	if err != nil {
		return JobStatusErrored, fmt.Sprintf("an unexpected error occurred: %v", err), nil
	}

	segments, err := PlanSegments(probe.Duration, o.settings.ClipDuration, o.settings.ClipCount)
	if err != nil {
		return JobStatusErrored, fmt.Sprintf("an unexpected error occurred: %v", err), nil
	}
	if len(segments) == 0 {
		return JobStatusFailed, "source video is too short to produce any clip", nil
	}

	params := RenderParams{
		Geometry:   geo,
		VideoCodec: o.settings.VideoCodec,
		AudioCodec: o.settings.AudioCodec,
		FrameRate:  o.settings.FrameRate,
	}

	for _, seg := range segments {
		// Cooperative stop point between segments only; a render in
		// progress is never interrupted mid-artifact.
		select {
		case <-ctx.Done():
			log.Append("Processing stopped before remaining clips were rendered.")
			return verdictAfterStop(urls)
		default:
		}

		log.Append(fmt.Sprintf("Generating clip %d from %.2fs to %.2fs...", seg.Index+1, seg.Start, seg.End))

		localPath, err := o.renderer.Render(ctx, sourcePath, seg, params)
		if err != nil {
			log.Append(fmt.Sprintf("Error rendering clip %d: %v", seg.Index+1, err))
			continue
		}

		url, err := o.publisher.Publish(ctx, localPath)
		if err != nil {
			// The local artifact stays on disk for manual recovery.
			log.Append(fmt.Sprintf("Error uploading clip %d: %v", seg.Index+1, err))
			continue
		}

		log.Append(fmt.Sprintf("Clip %d published: %s", seg.Index+1, url))
		urls = append(urls, url)
	}

	if len(urls) == 0 {
		return JobStatusFailed, "no clips were generated or uploaded", nil
	}
	return JobStatusCompleted, "", urls
}

// verdictAfterStop resolves the terminal state after a host-level stop:
// clips already published stay published, and the job completes with the
// partial result set; with nothing published it is a failed run.
func verdictAfterStop(urls []string) (string, string, []string) {
	if len(urls) > 0 {
		return JobStatusCompleted, "", urls
	}
	return JobStatusFailed, "processing stopped before any clip was published", nil
}

func validateSourceURL(sourceURL string) error {
	if sourceURL == "" {
		return ErrInvalidSource
	}
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ErrInvalidSource
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSource
	}
	return nil
}
