package access

import "errors"

// Sentinel kinds for access errors.
var (
	ErrUnknownRole   = errors.New("unknown role")
	ErrUnknownStatus = errors.New("unknown account status")
	ErrUnknownPolicy = errors.New("unknown missing-status policy")
	ErrNoPrincipal   = errors.New("no authenticated principal")
	ErrForbidden     = errors.New("forbidden")
)
