package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"careers-engine/internal/blob"
	"careers-engine/internal/feed"
	"careers-engine/internal/intake"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// WriteDomainError maps the engine's error taxonomy onto HTTP statuses:
// validation 400, missing job 404, upstream feed 502, everything else 500.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *intake.ValidationError
	var upErr *feed.UpstreamError
	var cfgErr *blob.NotConfiguredError

	switch {
	case errors.As(err, &vErr):
		WriteError(w, r, http.StatusBadRequest, "validation_failed", vErr.Error())
	case errors.Is(err, feed.ErrJobNotFound):
		WriteError(w, r, http.StatusNotFound, "not_found", "Job not found")
	case errors.As(err, &upErr):
		WriteError(w, r, http.StatusBadGateway, "upstream_feed", upErr.Error())
	case errors.Is(err, feed.ErrNotConfigured):
		WriteError(w, r, http.StatusInternalServerError, "not_configured", "Missing env var: GOOGLE_JOBS_FEED_URL")
	case errors.As(err, &cfgErr):
		WriteError(w, r, http.StatusInternalServerError, "not_configured", cfgErr.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
