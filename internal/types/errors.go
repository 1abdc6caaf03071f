package types

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidArgument marks an unknown action, key or shortcut, or
	// missing required text.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBackendFault marks a failure of an input primitive.
	ErrBackendFault = errors.New("backend fault")

	// ErrSafetyAbort marks a backend failsafe trip.
	ErrSafetyAbort = errors.New("failsafe triggered, pointer moved to a screen corner")
)

// StatusCode maps an error to the HTTP status it is reported with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrSafetyAbort):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
