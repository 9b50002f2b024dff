package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/service"
)

type MemoryHandler struct {
	svc *service.PipelineService
}

func NewMemoryHandler(svc *service.PipelineService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.Memory
	if !decodeBody(w, r, &req) {
		return
	}

	memory, err := h.svc.IngestMemory(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "failed to ingest memory")
		return
	}
	writeJSON(w, http.StatusCreated, memory)
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	status := domain.MemoryStatus(r.URL.Query().Get("status"))
	memories, err := h.svc.ListMemories(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, err, "failed to list memories")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(memories))
}

func (h *MemoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	memory, err := h.svc.GetMemory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to get memory")
		return
	}
	writeJSON(w, http.StatusOK, memory)
}

type toExperienceRequest struct {
	EpisodeSummary string `json:"episode_summary"`
	Outcome        string `json:"outcome"`
}

// ToExperience promotes the memory into a candidate experience.
func (h *MemoryHandler) ToExperience(w http.ResponseWriter, r *http.Request) {
	var req toExperienceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.MemoryToExperience(r.Context(), chi.URLParam(r, "id"), req.EpisodeSummary, req.Outcome)
	if err != nil {
		writeServiceError(w, err, "failed to promote memory")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
