// Package httputil writes JSON responses and maps coded domain errors onto
// HTTP status codes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "moa/pkg/domain-errors"
)

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v with status. Encoding failures are ignored; the header
// is already sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as {"error": code, "error_description": message}.
// Internal errors never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusOf(code)
	resp := errorResponse{Error: string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.Description = de.Message
		}
	}
	WriteJSON(w, status, resp)
}

// StatusOf maps a code to an HTTP status.
func StatusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeNotLeader:
		return http.StatusForbidden
	}
	switch dErrors.CategoryOf(code) {
	case dErrors.CategoryValidation:
		return http.StatusBadRequest
	case dErrors.CategoryNotFound:
		return http.StatusNotFound
	case dErrors.CategoryConflict, dErrors.CategoryCapacity:
		return http.StatusConflict
	case dErrors.CategoryPermanent:
		return http.StatusUnprocessableEntity
	case dErrors.CategoryRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
