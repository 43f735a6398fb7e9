// Package httpapi exposes the intent and read surface of the shop state
// engine to the render layer.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/shop-state-engine/internal/apperr"
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonError{Error: message, Details: details})
}

// WriteError maps a core error onto its HTTP status and writes it. The raw
// message is surfaced as details; screens present rejections verbatim.
func WriteError(w http.ResponseWriter, err error) {
	status, code := statusFromError(err)
	WriteJSONError(w, status, code, err.Error())
}

func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, apperr.ErrSessionExpired):
		return http.StatusUnauthorized, "session_expired"
	case errors.Is(err, apperr.ErrNotOwner):
		return http.StatusForbidden, "not_owner"
	case errors.Is(err, apperr.ErrRemote):
		return http.StatusBadGateway, "remote_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
