package domain

import "errors"

var (
	// ErrValidation indicates a rejected input value.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a record that is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness clash, e.g. a duplicate username.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the caller's role does not permit the operation.
	ErrForbidden = errors.New("forbidden")
)
