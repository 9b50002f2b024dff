package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/service"
)

type CognitionHandler struct {
	svc *service.PipelineService
}

func NewCognitionHandler(svc *service.PipelineService) *CognitionHandler {
	return &CognitionHandler{svc: svc}
}

func (h *CognitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.Cognition
	if !decodeBody(w, r, &req) {
		return
	}

	cognition, err := h.svc.IngestCognition(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "failed to ingest cognition")
		return
	}
	writeJSON(w, http.StatusCreated, cognition)
}

func (h *CognitionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	status := domain.CognitionStatus(r.URL.Query().Get("status"))
	cognitions, err := h.svc.ListCognitions(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, err, "failed to list cognitions")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(cognitions))
}

func (h *CognitionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	cognition, err := h.svc.GetCognition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to get cognition")
		return
	}
	writeJSON(w, http.StatusOK, cognition)
}

type toDecisionRequest struct {
	RequestRef string      `json:"request_ref"`
	RiskTier   domain.Tier `json:"risk_tier,omitempty"`
}

func (h *CognitionHandler) ToDecision(w http.ResponseWriter, r *http.Request) {
	var req toDecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.CognitionToDecision(r.Context(), chi.URLParam(r, "id"), req.RequestRef, req.RiskTier)
	if err != nil {
		writeServiceError(w, err, "failed to evaluate decision")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
