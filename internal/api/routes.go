package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipd/internal/clips"
	"github.com/clipforge/clipd/internal/config"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Post("/jobs", submitJobHandler(cfg))
	r.Get("/jobs", listJobsHandler(cfg))
	r.Get("/jobs/{id}", getJobHandler(cfg))
	r.Get("/jobs/{id}/progress", progressHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
		})
	}
}

func submitJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		job, err := cfg.Orchestrator.Submit(r.Context(), req.SourceURL)
		if err != nil {
			switch {
			case errors.Is(err, clips.ErrInvalidSource):
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			case errors.Is(err, clips.ErrJobRunning):
				WriteError(w, http.StatusConflict, err.Error(), "JOB_RUNNING")
			default:
				WriteError(w, http.StatusInternalServerError, "failed to submit job", "INTERNAL_ERROR")
			}
			return
		}

		WriteJSON(w, http.StatusAccepted, SubmitResponse{JobID: job.ID})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Repository.ListJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Orchestrator.GetJob(r.Context(), id)
		if err != nil {
			if errors.Is(err, clips.ErrJobNotFound) {
				WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, "failed to load job", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func progressHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		res, err := cfg.Orchestrator.Poll(r.Context(), id)
		if err != nil {
			if errors.Is(err, clips.ErrJobNotFound) {
				WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, "failed to poll job", "INTERNAL_ERROR")
			return
		}

		lines := res.Lines
		if lines == nil {
			lines = []string{}
		}
		WriteJSON(w, http.StatusOK, ProgressResponse{
			State:   res.State,
			Lines:   lines,
			URLs:    res.URLs,
			Message: res.Message,
		})
	}
}
