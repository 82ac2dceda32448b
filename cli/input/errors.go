package input

import "errors"

// ErrCancelled is returned when the user refuses to proceed.
var ErrCancelled = errors.New("cancelled")
