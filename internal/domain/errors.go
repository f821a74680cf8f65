package domain

import "errors"

// Error kinds. Lower layers wrap one of these so the HTTP boundary can pick
// a status with errors.Is without knowing where the failure came from.
// Anything that wraps none of them is an infrastructure failure.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalid         = errors.New("invalid request")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
)
