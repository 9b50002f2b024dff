package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/service"
)

type AuditHandler struct {
	audit *service.AuditLog
}

func NewAuditHandler(audit *service.AuditLog) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List returns events newest first, filtered by object_type, object_id and
// event_type query parameters.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	q := r.URL.Query()
	events, err := h.audit.List(r.Context(), domain.AuditFilter{
		ObjectType: domain.ObjectType(q.Get("object_type")),
		ObjectID:   q.Get("object_id"),
		EventType:  domain.AuditEventType(q.Get("event_type")),
		Limit:      limit,
	})
	if err != nil {
		writeServiceError(w, err, "failed to list audit events")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(events))
}

// Verify rechecks stored hashes. ?limit=0 or no limit checks every event.
func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	res, err := h.audit.Verify(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err, "failed to verify audit log")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AuditHandler) Replay(w http.ResponseWriter, r *http.Request) {
	objectType := domain.ObjectType(chi.URLParam(r, "type"))
	replay, err := h.audit.Replay(r.Context(), objectType, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to replay audit events")
		return
	}
	writeJSON(w, http.StatusOK, replay)
}
