package model

import "errors"

// Sentinel kinds for event validation errors.
var (
	ErrUnknownEventKind = errors.New("unknown event kind")
	ErrInvalidEvent     = errors.New("invalid event")
)
