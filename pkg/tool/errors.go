package tool

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is returned when a dispatch names an unregistered tool.
// The HTTP layer maps it to a 404 for single-item calls; batch dispatch
// converts it into an in-band item error instead.
var ErrToolNotFound = errors.New("tool not found")

// ValidationError reports the first missing required parameter.
type ValidationError struct {
	Parameter string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Missing required parameter: %s", e.Parameter)
}

// DuplicateError reports a registration conflict. Registration happens once
// at startup, so this is a programmer error and fatal to process start.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}
