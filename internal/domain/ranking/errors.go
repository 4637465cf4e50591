package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrNotFound = errors.New("chatter not found")
)
