package invoice

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no invoice with the given id exists.
	ErrNotFound = errors.New("invoice not found")
	// ErrMilestoneNotFound is returned when the invoice exists but has no
	// milestone with the given id.
	ErrMilestoneNotFound = errors.New("milestone not found")
	// ErrInvalidTransition is returned when a milestone status change
	// violates the pending -> paid -> released lifecycle.
	ErrInvalidTransition = errors.New("invalid milestone transition")
	// ErrMilestoneLocked is returned when an earlier milestone in the
	// sequence is still pending.
	ErrMilestoneLocked = errors.New("milestone locked")
)

// ValidationError reports the specific rule a candidate invoice violated so
// callers can show a corrective message. The ledger is unchanged whenever
// one is returned.
type ValidationError struct {
	Rule   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid invoice draft (%s): %s", e.Rule, e.Detail)
}

func validationErrf(rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}
