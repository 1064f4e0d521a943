package clips

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipforge/clipd/internal/db"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "clipd.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepository(database.Conn())
}

func testJob() *Job {
	now := time.Now().UTC().Truncate(time.Second)
	return &Job{
		ID:        NewID(),
		SourceURL: "https://example.com/watch?v=abc",
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	job := testJob()
	if err := repo.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	got, err := repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetJob() returned nil for an existing job")
	}
	if got.ID != job.ID || got.SourceURL != job.SourceURL || got.Status != JobStatusPending {
		t.Errorf("GetJob() = %+v, want %+v", got, job)
	}
	if len(got.ResultURLs) != 0 || got.Error != "" {
		t.Errorf("fresh job carries results or error: %+v", got)
	}
	if !got.CreatedAt.Equal(job.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, job.CreatedAt)
	}
}

func TestRepository_GetMissing(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.GetJob(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetJob() = %+v, want nil for unknown id", got)
	}
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	job := testJob()
	if err := repo.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	if err := repo.UpdateJobStatus(ctx, job.ID, JobStatusRunning, ""); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	got, _ := repo.GetJob(ctx, job.ID)
	if got.Status != JobStatusRunning || got.Error != "" {
		t.Errorf("after running update: status=%q error=%q", got.Status, got.Error)
	}

	if err := repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, "no clips were generated or uploaded"); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	got, _ = repo.GetJob(ctx, job.ID)
	if got.Status != JobStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.Error != "no clips were generated or uploaded" {
		t.Errorf("error = %q", got.Error)
	}
	// The update's timestamp must survive the RFC3339 round-trip.
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt is zero after a status update")
	}
	if got.UpdatedAt.Before(job.CreatedAt.Add(-time.Minute)) {
		t.Errorf("UpdatedAt = %v, want around now", got.UpdatedAt)
	}
}

func TestRepository_ResultURLsRoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	job := testJob()
	if err := repo.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	urls := []string{
		"https://cdn.example.com/clips/short_clip_1.mp4",
		"https://cdn.example.com/clips/short_clip_2.mp4",
	}
	if err := repo.SetJobResults(ctx, job.ID, urls); err != nil {
		t.Fatalf("SetJobResults() error = %v", err)
	}

	got, _ := repo.GetJob(ctx, job.ID)
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt is zero after setting results")
	}
	if len(got.ResultURLs) != len(urls) {
		t.Fatalf("ResultURLs = %v, want %v", got.ResultURLs, urls)
	}
	for i := range urls {
		if got.ResultURLs[i] != urls[i] {
			t.Errorf("ResultURLs[%d] = %q, want %q", i, got.ResultURLs[i], urls[i])
		}
	}
}

func TestRepository_ListJobs(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		job := testJob()
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		job.UpdatedAt = job.CreatedAt
		if err := repo.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob() error = %v", err)
		}
		ids = append(ids, job.ID)
	}

	jobs, err := repo.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("ListJobs() = %d jobs, want 3", len(jobs))
	}
	// Newest first.
	if jobs[0].ID != ids[2] || jobs[2].ID != ids[0] {
		t.Errorf("ListJobs() order = [%s %s %s], want newest first", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}

	limited, err := repo.ListJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ListJobs(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("ListJobs(2) = %d jobs, want 2", len(limited))
	}
}
