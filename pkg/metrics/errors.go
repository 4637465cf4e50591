package metrics

import (
	"errors"
)

// Sentinel errors for metrics.
var (
	ErrNilRegistry = errors.New("metrics registry is nil")
)
