package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clipforge/clipd/internal/clips"
	"github.com/clipforge/clipd/internal/media"
)

type stubRepo struct {
	mu   sync.Mutex
	jobs map[string]*clips.Job
	fail bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{jobs: make(map[string]*clips.Job)}
}

func (r *stubRepo) CreateJob(_ context.Context, j *clips.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *j
	r.jobs[j.ID] = &cp
	return nil
}

func (r *stubRepo) GetJob(_ context.Context, id string) (*clips.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (r *stubRepo) ListJobs(_ context.Context, _ int) ([]*clips.Job, error) {
	if r.fail {
		return nil, errors.New("db unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*clips.Job
	for _, j := range r.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (r *stubRepo) UpdateJobStatus(_ context.Context, id, status, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.Status = status
		j.Error = errorMsg
	}
	return nil
}

func (r *stubRepo) SetJobResults(_ context.Context, id string, urls []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.ResultURLs = urls
	}
	return nil
}

type stubAcquirer struct{ dir string }

func (a *stubAcquirer) Acquire(_ context.Context, _ string) (string, error) {
	path := filepath.Join(a.dir, "full_video_api.mp4")
	return path, os.WriteFile(path, []byte("source"), 0644)
}

type stubProber struct{}

func (stubProber) Probe(_ context.Context, _ string) (media.ProbeResult, error) {
	return media.ProbeResult{Duration: 60, Width: 1920, Height: 1080}, nil
}

type stubEncoder struct{}

func (stubEncoder) Encode(_ context.Context, req media.EncodeRequest) error {
	return os.WriteFile(req.OutputPath, []byte("clip"), 0644)
}

type stubStore struct{}

func (stubStore) Upload(_ context.Context, localPath string) (string, error) {
	return "https://cdn.example.com/clips/" + filepath.Base(localPath), nil
}

func newTestServerConfig(t *testing.T) (ServerConfig, *stubRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	workDir := t.TempDir()
	repo := newStubRepo()

	orch := clips.NewOrchestrator(clips.OrchestratorConfig{
		Repository: repo,
		Acquirer:   &stubAcquirer{dir: workDir},
		Prober:     stubProber{},
		Renderer:   clips.NewRenderer(stubEncoder{}, workDir, logger),
		Publisher:  clips.NewPublisher(stubStore{}, logger),
		Settings: clips.Settings{
			ClipWidth: 1080, ClipHeight: 1920,
			ClipDuration: 27, ClipCount: 5,
			VideoCodec: "libx264", AudioCodec: "aac", FrameRate: 24,
		},
		Logger:      logger,
		BaseContext: context.Background(),
	})

	return ServerConfig{
		Port:         0,
		Orchestrator: orch,
		Repository:   repo,
		Logger:       logger,
		StartTime:    time.Now(),
	}, repo
}

func doRequest(router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	cfg, _ := newTestServerConfig(t)
	router := NewRouter(cfg)

	rec := doRequest(router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestSubmitJob_Accepted(t *testing.T) {
	cfg, repo := newTestServerConfig(t)
	router := NewRouter(cfg)

	body, _ := json.Marshal(SubmitRequest{SourceURL: "https://example.com/watch?v=abc"})
	rec := doRequest(router, http.MethodPost, "/jobs", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /jobs = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var resp SubmitResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("job_id missing from response")
	}

	job, _ := repo.GetJob(context.Background(), resp.JobID)
	if job == nil {
		t.Fatal("submitted job was not persisted")
	}
}

func TestSubmitJob_InvalidSource(t *testing.T) {
	cfg, _ := newTestServerConfig(t)
	router := NewRouter(cfg)

	for _, body := range [][]byte{
		[]byte(`{"source_url": ""}`),
		[]byte(`{"source_url": "ftp://example.com/v.mp4"}`),
		[]byte(`{not json`),
	} {
		rec := doRequest(router, http.MethodPost, "/jobs", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("POST /jobs with %s = %d, want 400", body, rec.Code)
		}
	}
}

func TestSubmitJob_ConflictWhileRunning(t *testing.T) {
	cfg, _ := newTestServerConfig(t)
	router := NewRouter(cfg)

	body, _ := json.Marshal(SubmitRequest{SourceURL: "https://example.com/watch?v=abc"})
	first := doRequest(router, http.MethodPost, "/jobs", body)
	if first.Code != http.StatusAccepted {
		t.Fatalf("first POST /jobs = %d, want 202", first.Code)
	}

	// The stub pipeline takes long enough that an immediate second
	// submission can land while the slot is held; a 202 here just means
	// the first run already finished.
	second := doRequest(router, http.MethodPost, "/jobs", body)
	if second.Code != http.StatusConflict && second.Code != http.StatusAccepted {
		t.Errorf("second POST /jobs = %d, want 409 or 202", second.Code)
	}
	if second.Code == http.StatusConflict {
		var resp ErrorResponse
		if err := json.NewDecoder(second.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Code != "JOB_RUNNING" {
			t.Errorf("error code = %q, want JOB_RUNNING", resp.Code)
		}
	}
}

func TestGetJob(t *testing.T) {
	cfg, repo := newTestServerConfig(t)
	router := NewRouter(cfg)

	job := &clips.Job{
		ID:        clips.NewID(),
		SourceURL: "https://example.com/watch?v=abc",
		Status:    clips.JobStatusCompleted,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	repo.CreateJob(context.Background(), job)

	rec := doRequest(router, http.MethodGet, "/jobs/"+job.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /jobs/{id} = %d, want 200", rec.Code)
	}

	var resp JobResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != job.ID || resp.Status != clips.JobStatusCompleted {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	cfg, _ := newTestServerConfig(t)
	router := NewRouter(cfg)

	rec := doRequest(router, http.MethodGet, "/jobs/"+clips.NewID(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /jobs/{unknown} = %d, want 404", rec.Code)
	}
}

func TestListJobs(t *testing.T) {
	cfg, repo := newTestServerConfig(t)
	router := NewRouter(cfg)

	for i := 0; i < 2; i++ {
		repo.CreateJob(context.Background(), &clips.Job{
			ID:        clips.NewID(),
			SourceURL: "https://example.com/watch?v=abc",
			Status:    clips.JobStatusPending,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
	}

	rec := doRequest(router, http.MethodGet, "/jobs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /jobs = %d, want 200", rec.Code)
	}

	var resp JobsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jobs) != 2 {
		t.Errorf("jobs = %d, want 2", len(resp.Jobs))
	}
}

func TestListJobs_RepositoryError(t *testing.T) {
	cfg, repo := newTestServerConfig(t)
	repo.fail = true
	router := NewRouter(cfg)

	rec := doRequest(router, http.MethodGet, "/jobs", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("GET /jobs = %d, want 500", rec.Code)
	}
}

func TestProgress_UnknownJob(t *testing.T) {
	cfg, _ := newTestServerConfig(t)
	router := NewRouter(cfg)

	rec := doRequest(router, http.MethodGet, "/jobs/"+clips.NewID()+"/progress", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET progress for unknown job = %d, want 404", rec.Code)
	}
}

func TestProgress_Lifecycle(t *testing.T) {
	cfg, _ := newTestServerConfig(t)
	router := NewRouter(cfg)

	body, _ := json.Marshal(SubmitRequest{SourceURL: "https://example.com/watch?v=abc"})
	rec := doRequest(router, http.MethodPost, "/jobs", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /jobs = %d, want 202", rec.Code)
	}
	var submitted SubmitResponse
	json.NewDecoder(rec.Body).Decode(&submitted)

	progressPath := "/jobs/" + submitted.JobID + "/progress"

	// Poll until the terminal record appears.
	var terminal ProgressResponse
	deadline := time.After(5 * time.Second)
	for terminal.State == "" || terminal.State == "idle" {
		select {
		case <-deadline:
			t.Fatal("job never reached a terminal state")
		case <-time.After(10 * time.Millisecond):
		}

		poll := doRequest(router, http.MethodGet, progressPath, nil)
		if poll.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", progressPath, poll.Code)
		}
		if err := json.NewDecoder(poll.Body).Decode(&terminal); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if terminal.Lines == nil {
			t.Error("lines must decode to an array, not null")
		}
	}

	if terminal.State != clips.JobStatusCompleted {
		t.Fatalf("terminal state = %q (%s), want completed", terminal.State, terminal.Message)
	}
	// 60s at 27s nominal: [0,27) [27,54); the 6s tail is dropped.
	if len(terminal.URLs) != 2 {
		t.Errorf("urls = %d, want 2", len(terminal.URLs))
	}

	// The terminal record is consumed; the channel reports idle afterwards.
	after := doRequest(router, http.MethodGet, progressPath, nil)
	if after.Code != http.StatusOK {
		t.Fatalf("post-terminal poll = %d, want 200", after.Code)
	}
	var idle ProgressResponse
	json.NewDecoder(after.Body).Decode(&idle)
	if idle.State != "idle" || len(idle.Lines) != 0 {
		t.Errorf("post-terminal poll = %+v, want idle and empty", idle)
	}
}
