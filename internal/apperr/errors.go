// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidIndex  = errors.New("snippet index out of range")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrMalformedDocument is matched by codec decode failures.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrSearchUnavailable is returned when text search is requested but no
	// matcher is configured. Tag filtering still runs.
	ErrSearchUnavailable = errors.New("search unavailable")
)
