package period

import "errors"

// Sentinel kinds for period resolution errors.
var (
	ErrUnknownKind    = errors.New("unknown period kind")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrNegativeOffset = errors.New("period offset must not be negative")
)
