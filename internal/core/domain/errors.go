package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a referenced entity does not exist in storage.
// Absence is an expected outcome, not a failure.
var ErrNotFound = errors.New("domain: not found")

// ErrUnsupported indicates the platform cannot provide a capability
// (e.g. no MIDI access). Callers degrade to no-ops instead of failing.
var ErrUnsupported = errors.New("domain: unsupported capability")

// ValidationError reports an entity invariant violation. It is returned by
// constructors before anything reaches storage.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("domain: invalid %s.%s: %s", e.Entity, e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
