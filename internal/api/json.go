package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/petpad/internal/apperr"
)

const maxBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeJSON reads the request body into dst and validates it. It writes a
// 400 response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst validation.Validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := dst.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// writeError maps domain errors to HTTP statuses. Unexpected errors are
// logged and reported as 500.
func writeError(w http.ResponseWriter, op string, err error) {
	var status int
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidIndex), errors.Is(err, apperr.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrMalformedDocument):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrSearchUnavailable):
		status = http.StatusServiceUnavailable
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}
