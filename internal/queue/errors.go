package queue

import (
	"errors"
	"fmt"
)

// ValidationReason identifies why a candidate placement was rejected.
type ValidationReason string

const (
	ReasonDurationOutOfRange ValidationReason = "DURATION_OUT_OF_RANGE"
	ReasonOverlapsPrevious   ValidationReason = "OVERLAPS_PREVIOUS"
	ReasonOverlapsNext       ValidationReason = "OVERLAPS_NEXT"
)

// ValidationError is a recoverable rejection of one attempted placement.
// The chain it was checked against is left untouched; the caller may retry
// with a different time.
type ValidationError struct {
	Reason  ValidationReason
	EventID string
}

func (e *ValidationError) Error() string {
	if e.EventID == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: event %s", e.Reason, e.EventID)
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IntegrityError marks a corrupt input chain (duplicate ids, overlapping
// stored events, bad durations). This is an upstream data defect; the core
// refuses to operate on such a chain rather than guess a repair.
type IntegrityError struct {
	TeacherID string
	Date      string
	Detail    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("corrupt chain for teacher %s on %s: %s", e.TeacherID, e.Date, e.Detail)
}

var (
	// ErrEventNotFound is returned when a mutation names an event that is
	// not part of the chain.
	ErrEventNotFound = errors.New("event not in chain")
	// ErrUnknownPolicy is returned for a cascade policy outside the two
	// supported variants.
	ErrUnknownPolicy = errors.New("unknown cascade policy")
	// ErrChainNotOptimised gates locked-policy mutations: the chain must
	// already sit at exactly the configured gap everywhere before the
	// packed cascade rules may be applied.
	ErrChainNotOptimised = errors.New("locked cascade requires an optimised chain")
)
