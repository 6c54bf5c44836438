package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mesh-intelligence/gigboard/internal/rest"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidCredentials),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUnavailable), errors.Is(err, types.ErrDetached):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondWithError writes an error body carrying err's wire code.
func RespondWithError(w http.ResponseWriter, err error) {
	code := HTTPStatusFromError(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = http.StatusText(code)
	}
	RespondWithJSON(w, code, rest.ErrorResponse{Error: msg, Code: types.ErrorCode(err)})
}

// RespondWithJSON writes payload as JSON with the given status.
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
