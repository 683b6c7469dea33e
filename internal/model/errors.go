package model

import "errors"

// Sentinel errors shared by the store and the services on top of it.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("already exists")
	ErrInvalid   = errors.New("invalid input")
)
