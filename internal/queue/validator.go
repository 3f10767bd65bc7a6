package queue

import "github.com/noah-isme/classboard-api/internal/models"

// Validate checks a candidate placement against its intended neighbours.
// Checks run in a fixed order: duration bounds, then the predecessor, then
// the successor. Under PolicyLocked the configured gap collapses to zero;
// under PolicyRespecting the full gap is required on both sides.
//
// Validate never mutates anything and is shared by the cascade operations
// and the optimiser.
func Validate(candidate models.Event, prev, next *models.Event, policy CascadePolicy, settings models.Settings) error {
	if !policy.Valid() {
		return ErrUnknownPolicy
	}
	if err := validateDuration(candidate, settings); err != nil {
		return err
	}

	minGap := settings.GapMinutes
	if policy == PolicyLocked {
		minGap = 0
	}
	if prev != nil && candidate.Start < prev.End()+minGap {
		return &ValidationError{Reason: ReasonOverlapsPrevious, EventID: candidate.ID}
	}
	if next != nil && next.Start < candidate.End()+minGap {
		return &ValidationError{Reason: ReasonOverlapsNext, EventID: candidate.ID}
	}
	return nil
}

func validateDuration(candidate models.Event, settings models.Settings) error {
	if candidate.Duration <= 0 {
		return &ValidationError{Reason: ReasonDurationOutOfRange, EventID: candidate.ID}
	}
	if settings.MinDuration > 0 && candidate.Duration < settings.MinDuration {
		return &ValidationError{Reason: ReasonDurationOutOfRange, EventID: candidate.ID}
	}
	if settings.MaxDuration > 0 && candidate.Duration > settings.MaxDuration {
		return &ValidationError{Reason: ReasonDurationOutOfRange, EventID: candidate.ID}
	}
	return nil
}

// validateChain re-checks every adjacent pair after a mutation. It is the
// commit barrier for the all-or-nothing guarantee: cascades work on a
// clone and only a chain passing this check replaces the input.
func validateChain(c *Chain, policy CascadePolicy, settings models.Settings) error {
	for i := range c.Events {
		var prev, next *models.Event
		if i > 0 {
			prev = &c.Events[i-1]
		}
		if i+1 < len(c.Events) {
			next = &c.Events[i+1]
		}
		if err := Validate(c.Events[i], prev, next, policy, settings); err != nil {
			return err
		}
	}
	return nil
}

// RoundToStep snaps minutes to the controller's editing granularity,
// rounding to the nearest step.
func RoundToStep(minutes int, settings models.Settings) int {
	step := settings.StepDuration
	if step <= 0 {
		return minutes
	}
	remainder := minutes % step
	if remainder*2 >= step {
		return minutes + step - remainder
	}
	return minutes - remainder
}
