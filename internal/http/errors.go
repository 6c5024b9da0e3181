// Package httpapi exposes the HTTP API layer of the service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/toko-sayur-pos/internal/pos"
	"github.com/fairyhunter13/toko-sayur-pos/internal/queue"
	"github.com/fairyhunter13/toko-sayur-pos/internal/store"
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, jsonError{Error: message, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// rejectionStatus maps a refused cart action onto an HTTP status.
func rejectionStatus(o pos.Outcome) int {
	switch o {
	case pos.InvalidQuantity, pos.InvalidAction:
		return http.StatusUnprocessableEntity
	case pos.UnknownProduct:
		return http.StatusNotFound
	case pos.InsufficientStock, pos.NotInCart:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// writeSessionError reports failures to reach or use a session.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrDraining):
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, queue.ErrClosed):
		WriteJSONError(w, http.StatusNotFound, "session_not_found", "")
	case errors.Is(err, store.ErrLimit):
		WriteJSONError(w, http.StatusServiceUnavailable, "session_limit", err.Error())
	case errors.Is(err, store.ErrClosed):
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteJSONError(w, http.StatusServiceUnavailable, "request_cancelled", err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
