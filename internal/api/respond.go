package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleServiceError maps an error kind to its HTTP status.
func handleServiceError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Details: err.Error(), Fields: apperr.FieldsOf(err)}

	var status int
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status, resp.Error = http.StatusBadRequest, "validation_failed"
	case apperr.KindNotFound:
		status, resp.Error = http.StatusNotFound, "not_found"
	case apperr.KindConflict:
		status, resp.Error = http.StatusConflict, "schedule_conflict"
	case apperr.KindInvalidTransition:
		status, resp.Error = http.StatusConflict, "invalid_status_transition"
	default:
		status, resp.Error = http.StatusInternalServerError, "internal_error"
	}

	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseTime accepts RFC 3339 timestamps and plain dates, the latter at midnight in loc.
func parseTime(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, raw, loc)
}

func actorID(r *http.Request) string {
	return r.Header.Get("X-Actor-ID")
}
