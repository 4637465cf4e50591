package service

import "errors"

// Sentinel errors returned by the service.
var (
	// ErrFetch wraps any failure of the record source. Callers should offer
	// a retry rather than show zeros.
	ErrFetch      = errors.New("fetch income records")
	ErrNotStarted = errors.New("service not started")
)
