package common

import "errors"

// ErrValidation marks missing or invalid caller-supplied parameters.
// Failures of this kind are surfaced immediately and must not be retried.
var ErrValidation = errors.New("invalid input")
