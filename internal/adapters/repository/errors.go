package repository

import "errors"

// Sentinel errors for the repository.
var (
	ErrClosed       = errors.New("store closed")
	ErrInvalidEvent = errors.New("invalid event")
)
