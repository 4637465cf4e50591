package earnings

import "errors"

// Sentinel kinds for aggregation configuration errors.
var (
	ErrUnknownKeyPolicy = errors.New("unknown worker key policy")
)
