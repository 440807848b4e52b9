package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrorDetail is the wire representation of a single error.
type ErrorDetail struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse builds the wire representation for an error. The hint, if
// present, replaces the raw message so internals never leak to callers.
func NewErrorResponse(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	message := err.Error()
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		message = hints[0]
	}

	return &ErrorResponse{
		Success: false,
		Error:   ErrorDetail{Message: message},
	}
}

// HTTPStatusFromErr maps a marked error to an HTTP status code.
func HTTPStatusFromErr(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrSystem):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
