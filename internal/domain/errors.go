package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInputs   = errors.New("invalid design inputs")
	ErrInvalidAngles   = errors.New("invalid angle request")
	ErrProviderFailure = errors.New("provider failure")
)

// GenerationError wraps the upstream model error text for a failed image
// generation call. Canonical failures surface it as the request-level error;
// per-angle failures flatten it into the angle's failure marker.
type GenerationError struct {
	Stage string
	Angle string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Angle != "" {
		return fmt.Sprintf("%s generation for angle %q: %v", e.Stage, e.Angle, e.Err)
	}
	return fmt.Sprintf("%s generation: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
