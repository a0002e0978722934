package evals

import (
	"errors"
	"fmt"
)

// Business-rule failures are plain sentinel values so callers can map them
// to a transport status with errors.Is. Anything else coming out of the
// engine is an infrastructure fault.
var (
	ErrNotFound              = errors.New("evaluation not found")
	ErrAlreadyExists         = errors.New("evaluation already exists for this organization and dimension")
	ErrAlreadySubmitted      = errors.New("evaluation has already been submitted")
	ErrEmptyEvaluation       = errors.New("evaluation has no responses")
	ErrCannotDeleteSubmitted = errors.New("submitted evaluations cannot be deleted")
	ErrOrganizationMismatch  = errors.New("rater may only evaluate their assigned organization")
)

// ValidationError carries the specific rule the input violated. No write
// is attempted once one of these is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
