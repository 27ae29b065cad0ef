package crm

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound covers both "row absent" and "row owned by someone else";
	// callers must not be able to distinguish the two.
	ErrNotFound = errors.New("crm: not found")

	// ErrConflict signals a per-user phone number uniqueness violation.
	ErrConflict = errors.New("crm: customer with this phone number already exists")
)

// ValidationError carries the complete list of violated rules so a caller
// can display all problems at once. Validators never short-circuit.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "crm: validation failed: " + strings.Join(e.Errors, "; ")
}

// AsValidation unwraps a *ValidationError if err is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
