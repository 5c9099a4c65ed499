// Package apperr defines sentinel errors shared across the service layers.
// Handlers translate them into HTTP status codes at the edge.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid input")
	ErrNoProfile     = errors.New("no profile selected")
	ErrBusy          = errors.New("operation already in progress")
	ErrUpstream      = errors.New("upstream service error")
)
