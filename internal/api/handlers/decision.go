package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/service"
)

type DecisionHandler struct {
	svc *service.PipelineService
}

func NewDecisionHandler(svc *service.PipelineService) *DecisionHandler {
	return &DecisionHandler{svc: svc}
}

// List filters by ?outcome= (final outcome) when given.
func (h *DecisionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	outcome := domain.FinalOutcome(r.URL.Query().Get("outcome"))
	decisions, err := h.svc.ListDecisions(r.Context(), outcome, limit)
	if err != nil {
		writeServiceError(w, err, "failed to list decisions")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(decisions))
}

func (h *DecisionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	trace, err := h.svc.GetDecision(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to get decision")
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

type PipelineHandler struct {
	svc *service.PipelineService
}

func NewPipelineHandler(svc *service.PipelineService) *PipelineHandler {
	return &PipelineHandler{svc: svc}
}

// FullPath runs memory ingestion through to a decision in one call.
func (h *PipelineHandler) FullPath(w http.ResponseWriter, r *http.Request) {
	var req service.FullPathRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.RunFullPath(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "failed to run full path")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
