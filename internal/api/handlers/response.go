package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
	maxBodyBytes     = 1 << 20
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newListResponse[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
// Unclassified errors are reported as fallback without leaking details.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	status, code := http.StatusInternalServerError, ""
	switch {
	case errors.Is(err, domain.ErrValidationFailed):
		status, code = http.StatusBadRequest, "validation_failed"
	case errors.Is(err, domain.ErrInvalidEpistemicState):
		status, code = http.StatusBadRequest, "invalid_epistemic_state"
	case errors.Is(err, domain.ErrSchemaRejected):
		status, code = http.StatusUnprocessableEntity, "schema_rejected"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrDuplicateObject):
		status, code = http.StatusConflict, "duplicate_object"
	case errors.Is(err, domain.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	}

	if status == http.StatusInternalServerError {
		writeError(w, status, fallback)
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// parseLimit reads ?limit=, defaulting to 20 and capping at 500.
func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}
