package engine

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds = errors.New("cell out of bounds")
	ErrInvalidMap  = errors.New("invalid map")
	ErrUnknownRule = errors.New("unknown ruleset")
)

// ValidationError reports malformed input: a missing field, an unknown action
// kind, coordinates outside the grid or a broken map import.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is or wraps a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
