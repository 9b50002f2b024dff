package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/service"
)

type ExperienceHandler struct {
	svc *service.PipelineService
}

func NewExperienceHandler(svc *service.PipelineService) *ExperienceHandler {
	return &ExperienceHandler{svc: svc}
}

func (h *ExperienceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	status := domain.ExperienceStatus(r.URL.Query().Get("status"))
	experiences, err := h.svc.ListExperiences(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, err, "failed to list experiences")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(experiences))
}

func (h *ExperienceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	exp, err := h.svc.GetExperience(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to get experience")
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

type toCognitionRequest struct {
	PersonaID string `json:"persona_id"`
}

// ToCognition runs the persona gate. A blocked gate is still a 200: the
// result reports cognition_created=false with the boundary hits.
func (h *ExperienceHandler) ToCognition(w http.ResponseWriter, r *http.Request) {
	var req toCognitionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PersonaID == "" {
		writeError(w, http.StatusBadRequest, "persona_id is required")
		return
	}

	res, err := h.svc.ExperienceToCognition(r.Context(), chi.URLParam(r, "id"), req.PersonaID)
	if err != nil {
		writeServiceError(w, err, "failed to promote experience")
		return
	}

	status := http.StatusOK
	if res.CognitionCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

type blockedDecisionRequest struct {
	PersonaID    string      `json:"persona_id,omitempty"`
	RequestRef   string      `json:"request_ref,omitempty"`
	BoundaryHits []string    `json:"boundary_hits,omitempty"`
	RiskTier     domain.Tier `json:"risk_tier,omitempty"`
}

// BlockedDecision records the terminal blocked decision for a vetoed
// promotion.
func (h *ExperienceHandler) BlockedDecision(w http.ResponseWriter, r *http.Request) {
	var req blockedDecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.BlockedPromotionToDecision(r.Context(), service.BlockedDecisionRequest{
		ExperienceID: chi.URLParam(r, "id"),
		PersonaID:    req.PersonaID,
		RequestRef:   req.RequestRef,
		BoundaryHits: req.BoundaryHits,
		RiskTier:     req.RiskTier,
	})
	if err != nil {
		writeServiceError(w, err, "failed to record blocked decision")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
