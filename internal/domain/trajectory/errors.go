package trajectory

import "errors"

// Sentinel kinds for trajectory errors.
var (
	ErrInvalidWindow = errors.New("invalid trajectory window")
)
