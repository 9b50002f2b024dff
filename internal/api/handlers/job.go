package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Harshitk-cp/mindkernel/internal/api/middleware"
	"github.com/Harshitk-cp/mindkernel/internal/service"
)

type JobHandler struct {
	svc *service.SchedulerService
}

func NewJobHandler(svc *service.SchedulerService) *JobHandler {
	return &JobHandler{svc: svc}
}

// Enqueue returns 201 for a new job and 200 when the idempotency key
// matched an existing one. The request id is the default correlation id.
func (h *JobHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req service.EnqueueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CorrelationID == "" {
		req.CorrelationID = middleware.RequestIDFromContext(r.Context())
	}

	res, err := h.svc.Enqueue(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "failed to enqueue job")
		return
	}

	status := http.StatusCreated
	if res.Deduplicated {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

type pullRequest struct {
	WorkerID string    `json:"worker_id"`
	Limit    int       `json:"limit,omitempty"`
	Now      time.Time `json:"now,omitempty"`
}

// Pull claims due jobs for the worker.
func (h *JobHandler) Pull(w http.ResponseWriter, r *http.Request) {
	var req pullRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.WorkerID) == "" {
		writeError(w, http.StatusBadRequest, "worker_id is required")
		return
	}

	jobs, err := h.svc.Pull(r.Context(), req.WorkerID, req.Now, req.Limit)
	if err != nil {
		writeServiceError(w, err, "failed to pull jobs")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(jobs))
}

func (h *JobHandler) Ack(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Ack(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to ack job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type failRequest struct {
	Error         string `json:"error"`
	RetryDelaySec *int   `json:"retry_delay_sec,omitempty"`
}

// Fail records a failed attempt. Without retry_delay_sec the job is
// retried after the default 300s.
func (h *JobHandler) Fail(w http.ResponseWriter, r *http.Request) {
	var req failRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Error) == "" {
		writeError(w, http.StatusBadRequest, "error is required")
		return
	}

	delay := service.DefaultRetryDelay
	if req.RetryDelaySec != nil {
		d, err := service.RetryDelaySeconds(*req.RetryDelaySec)
		if err != nil {
			writeServiceError(w, err, "invalid retry delay")
			return
		}
		delay = d
	}

	job, err := h.svc.Fail(r.Context(), chi.URLParam(r, "id"), req.Error, delay)
	if err != nil {
		writeServiceError(w, err, "failed to record job failure")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *JobHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to get job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}
