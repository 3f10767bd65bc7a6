package queue

import "github.com/noah-isme/classboard-api/internal/models"

// MutationResult carries the outcome of a successful cascade operation:
// the replacement chain and the ids whose times changed, for targeted
// persistence and re-render.
type MutationResult struct {
	Chain   *Chain
	Changed []string
}

// Insert places event into the chain immediately after the event with
// afterID, or at the head when afterID is empty.
//
// Under PolicyLocked the chain must already be optimised; the new event is
// snapped into the slot after its predecessor and everything behind it
// shifts as one block, keeping the chain packed. Under PolicyRespecting
// the event keeps its requested start time, a predecessor conflict rejects
// the whole operation, and followers are pushed only as far as the gap
// rule demands.
//
// On any validation failure the input chain is returned unchanged.
func Insert(c *Chain, afterID string, event models.Event, policy CascadePolicy, settings models.Settings) (*MutationResult, error) {
	if !policy.Valid() {
		return nil, ErrUnknownPolicy
	}
	pos := 0
	if afterID != "" {
		idx := c.IndexOf(afterID)
		if idx < 0 {
			return nil, ErrEventNotFound
		}
		pos = idx + 1
	}
	if policy == PolicyLocked && !c.IsOptimised(settings) {
		return nil, ErrChainNotOptimised
	}

	event.Date = c.Date
	next := c.Clone()

	switch policy {
	case PolicyLocked:
		if err := validateDuration(event, settings); err != nil {
			return nil, err
		}
		if pos > 0 {
			event.Start = next.Events[pos-1].End() + settings.GapMinutes
		}
		if pos < len(next.Events) {
			delta := event.End() + settings.GapMinutes - next.Events[pos].Start
			for i := pos; i < len(next.Events); i++ {
				next.Events[i].Start += delta
			}
		}
	case PolicyRespecting:
		var prev *models.Event
		if pos > 0 {
			prev = &next.Events[pos-1]
		}
		if err := Validate(event, prev, nil, policy, settings); err != nil {
			return nil, err
		}
	}

	next.Events = append(next.Events[:pos], append([]models.Event{event}, next.Events[pos:]...)...)
	if policy == PolicyRespecting {
		pushFrom(next, pos+1, settings)
	}

	if err := validateChain(next, policy, settings); err != nil {
		return nil, err
	}
	return &MutationResult{Chain: next, Changed: next.changedSince(c)}, nil
}

// Remove unlinks the event with the given id. PolicyLocked pulls every
// following event backward to close the hole; PolicyRespecting leaves the
// gap open.
func Remove(c *Chain, id string, policy CascadePolicy, settings models.Settings) (*MutationResult, error) {
	if !policy.Valid() {
		return nil, ErrUnknownPolicy
	}
	idx := c.IndexOf(id)
	if idx < 0 {
		return nil, ErrEventNotFound
	}
	if policy == PolicyLocked && !c.IsOptimised(settings) {
		return nil, ErrChainNotOptimised
	}

	next := c.Clone()
	removed := next.Events[idx]
	next.Events = append(next.Events[:idx], next.Events[idx+1:]...)

	if policy == PolicyLocked {
		delta := removed.Duration + settings.GapMinutes
		for i := idx; i < len(next.Events); i++ {
			next.Events[i].Start -= delta
		}
	}

	if err := validateChain(next, policy, settings); err != nil {
		return nil, err
	}
	return &MutationResult{Chain: next, Changed: next.changedSince(c)}, nil
}

// Resize changes an event's duration in place. PolicyLocked moves the rest
// of the chain by the size delta; PolicyRespecting pushes followers only
// when the grown event would overlap them and leaves slack behind a
// shrunken one.
func Resize(c *Chain, id string, newDuration int, policy CascadePolicy, settings models.Settings) (*MutationResult, error) {
	if !policy.Valid() {
		return nil, ErrUnknownPolicy
	}
	idx := c.IndexOf(id)
	if idx < 0 {
		return nil, ErrEventNotFound
	}
	if policy == PolicyLocked && !c.IsOptimised(settings) {
		return nil, ErrChainNotOptimised
	}

	next := c.Clone()
	delta := newDuration - next.Events[idx].Duration
	next.Events[idx].Duration = newDuration
	if err := validateDuration(next.Events[idx], settings); err != nil {
		return nil, err
	}

	switch policy {
	case PolicyLocked:
		for i := idx + 1; i < len(next.Events); i++ {
			next.Events[i].Start += delta
		}
	case PolicyRespecting:
		pushFrom(next, idx+1, settings)
	}

	if err := validateChain(next, policy, settings); err != nil {
		return nil, err
	}
	return &MutationResult{Chain: next, Changed: next.changedSince(c)}, nil
}

// Reposition moves an event to a new start time. A predecessor conflict
// rejects the whole operation. PolicyLocked moves the entire tail with the
// event, preserving its packing; PolicyRespecting pushes only overlapping
// followers and never pulls anything back.
func Reposition(c *Chain, id string, newStart int, policy CascadePolicy, settings models.Settings) (*MutationResult, error) {
	if !policy.Valid() {
		return nil, ErrUnknownPolicy
	}
	idx := c.IndexOf(id)
	if idx < 0 {
		return nil, ErrEventNotFound
	}
	if policy == PolicyLocked && !c.IsOptimised(settings) {
		return nil, ErrChainNotOptimised
	}

	next := c.Clone()
	delta := newStart - next.Events[idx].Start
	next.Events[idx].Start = newStart

	var prev *models.Event
	if idx > 0 {
		prev = &next.Events[idx-1]
	}
	if err := Validate(next.Events[idx], prev, nil, policy, settings); err != nil {
		return nil, err
	}

	switch policy {
	case PolicyLocked:
		for i := idx + 1; i < len(next.Events); i++ {
			next.Events[i].Start += delta
		}
	case PolicyRespecting:
		pushFrom(next, idx+1, settings)
	}

	if err := validateChain(next, policy, settings); err != nil {
		return nil, err
	}
	return &MutationResult{Chain: next, Changed: next.changedSince(c)}, nil
}

// pushFrom resolves overlaps introduced upstream of position start by
// shifting each follower to the earliest position the gap rule allows.
// The walk stops at the first event that already satisfies the rule,
// since everything after it was untouched and valid before.
func pushFrom(c *Chain, start int, settings models.Settings) {
	for i := start; i < len(c.Events); i++ {
		if i == 0 {
			continue
		}
		earliest := c.Events[i-1].End() + settings.GapMinutes
		if c.Events[i].Start >= earliest {
			break
		}
		c.Events[i].Start = earliest
	}
}
