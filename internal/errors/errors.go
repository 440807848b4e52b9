package errors

import (
	"github.com/cockroachdb/errors"
)

// Marker errors for the categories this service cares about. Handlers map
// these to HTTP status codes; everything else is treated as internal.
var (
	// ErrValidation marks malformed or semantically invalid input.
	ErrValidation = errors.New("validation_error")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not_found")
	// ErrAlreadyExists marks a uniqueness conflict.
	ErrAlreadyExists = errors.New("already_exists")
	// ErrPermissionDenied marks failed authentication, including webhook
	// signature verification failures.
	ErrPermissionDenied = errors.New("permission_denied")
	// ErrDatabase marks a failure of the primary persistence layer. For
	// webhook processing this is the only category that surfaces as a 5xx
	// so the provider redelivers the event.
	ErrDatabase = errors.New("database_error")
	// ErrIntegration marks a failure of a downstream integration call
	// (provider command, notification sink). Never fails a webhook request.
	ErrIntegration = errors.New("integration_error")
	// ErrSystem marks a misconfigured or unavailable subsystem.
	ErrSystem = errors.New("system_error")
	// ErrInternal marks everything else.
	ErrInternal = errors.New("internal_error")
	// ErrInvalidOperation marks an operation that is not allowed in the
	// entity's current state.
	ErrInvalidOperation = errors.New("invalid_operation")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsSystem(err error) bool {
	return errors.Is(err, ErrSystem)
}
