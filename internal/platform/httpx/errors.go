// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
	"sync/atomic"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

var hideDetails atomic.Bool

// HideErrorDetails controls whether 500 responses carry the underlying error text.
func HideErrorDetails(hide bool) {
	hideDetails.Store(hide)
}

// ErrorBody is the JSON envelope for every failed request.
type ErrorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
	msg    string
}

func (e *ValidationError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return ErrValidation.Error()
}

// Is reports ErrValidation equivalence for errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Error writes {"error": msg} with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// RespondError maps domain errors to HTTP responses.
func RespondError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		JSON(w, http.StatusBadRequest, ErrorBody{Error: "Validation failed", Message: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, ErrValidation):
		JSON(w, http.StatusBadRequest, ErrorBody{Error: "Validation failed", Message: err.Error()})
	case errors.Is(err, ErrNotFound):
		Error(w, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrDuplicate):
		JSON(w, http.StatusConflict, ErrorBody{Error: "Already exists", Message: err.Error()})
	case errors.Is(err, ErrForbidden):
		Error(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, ErrUnauthorized):
		Error(w, http.StatusUnauthorized, "Unauthorized")
	default:
		body := ErrorBody{Error: "Server error"}
		if err != nil && !hideDetails.Load() {
			body.Message = err.Error()
		}
		JSON(w, http.StatusInternalServerError, body)
	}
}

// IsInternal reports whether err maps to a 500 response.
func IsInternal(err error) bool {
	for _, target := range []error{ErrValidation, ErrNotFound, ErrDuplicate, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}
