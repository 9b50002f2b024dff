package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/service"
)

type PersonaHandler struct {
	svc *service.PipelineService
}

func NewPersonaHandler(svc *service.PipelineService) *PersonaHandler {
	return &PersonaHandler{svc: svc}
}

// Upsert stores the persona under the path id, replacing any previous
// version.
func (h *PersonaHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req domain.Persona
	if !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if req.ID != "" && req.ID != id {
		writeError(w, http.StatusBadRequest, "persona id does not match path")
		return
	}
	req.ID = id

	res, err := h.svc.UpsertPersona(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "failed to upsert persona")
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	status := domain.PersonaStatus(r.URL.Query().Get("status"))
	personas, err := h.svc.ListPersonas(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, err, "failed to list personas")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(personas))
}

func (h *PersonaHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	persona, err := h.svc.GetPersona(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to get persona")
		return
	}
	writeJSON(w, http.StatusOK, persona)
}
