package api

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/entropic-labs/recall-api/internal/api/shared"
	"github.com/entropic-labs/recall-api/internal/service"
)

// JobsHandler exposes the failed-job quarantine: listing terminally
// failed chunk jobs and replaying them.
type JobsHandler struct {
	videoService service.VideoService
	logger       *slog.Logger
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(videoService service.VideoService, logger *slog.Logger) *JobsHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &JobsHandler{
		videoService: videoService,
		logger:       logger.With("component", "jobs_handler"),
	}
}

// ListFailed handles GET /api/jobs/failed.
func (h *JobsHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	failed := h.videoService.FailedJobs()

	jobs := make([]FailedJobResponse, 0, len(failed))
	for id, result := range failed {
		jobs = append(jobs, FailedJobResponse{
			JobID:    id,
			Attempts: result.Attempts,
			Error:    result.Err,
		})
	}

	// Stable ordering for clients and tests.
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].JobID < jobs[j].JobID })

	shared.RespondWithJSON(w, r, http.StatusOK, FailedJobsResponse{Jobs: jobs})
}

// RetryOne handles POST /api/jobs/failed/{id}/retry, replaying a single
// quarantined job.
func (h *JobsHandler) RetryOne(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Job ID is required")
		return
	}

	retried, err := h.videoService.RetryJobs(r.Context(), jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}
	if retried == 0 {
		shared.RespondWithError(w, r, http.StatusNotFound, "No quarantined job with that ID")
		return
	}

	h.logger.Info("failed job replayed", "job_id", jobID)

	shared.RespondWithJSON(w, r, http.StatusOK, RetryJobsResponse{Retried: retried})
}

// RetryFailed handles POST /api/jobs/failed/retry. The optional body
// names specific job IDs; without it every quarantined job is replayed.
func (h *JobsHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	var req RetryJobsRequest
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	retried, err := h.videoService.RetryJobs(r.Context(), req.JobIDs...)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("failed jobs replayed",
		"requested", len(req.JobIDs),
		"retried", retried)

	shared.RespondWithJSON(w, r, http.StatusOK, RetryJobsResponse{Retried: retried})
}
