package queue

import "github.com/noah-isme/classboard-api/internal/models"

// OptimiseStats reports how much of the chain an optimise run moved.
// OptimisedCount/Total backs the "x/y optimised" board affordance.
type OptimiseStats struct {
	Adjusted int `json:"adjusted"`
	Total    int `json:"total"`
}

// OptimisedCount is the number of events already at their ideal position.
func (s OptimiseStats) OptimisedCount() int {
	return s.Total - s.Adjusted
}

// Optimise recomputes ideal start times for the whole chain: the head
// lands on the anchor and every follower on the earliest start the gap
// rule allows. Anchor is minutes since midnight. The input chain is
// untouched; running Optimise on its own output with the same anchor
// adjusts nothing.
func Optimise(c *Chain, anchor int, settings models.Settings) (*Chain, OptimiseStats) {
	return OptimiseFrom(c, 0, anchor, settings)
}

// OptimiseFrom packs the chain from the given position onwards: the event
// at index lands on the anchor and every follower on the earliest start
// the gap rule allows. Events before index keep their times; the caller
// picks an anchor clear of that prefix.
func OptimiseFrom(c *Chain, index, anchor int, settings models.Settings) (*Chain, OptimiseStats) {
	next := c.Clone()
	if index < 0 {
		index = 0
	}
	if index >= len(next.Events) {
		return next, OptimiseStats{}
	}
	stats := OptimiseStats{Total: len(next.Events) - index}

	cursor := anchor
	for i := index; i < len(next.Events); i++ {
		if next.Events[i].Start != cursor {
			next.Events[i].Start = cursor
			stats.Adjusted++
		}
		cursor = next.Events[i].End() + settings.GapMinutes
	}
	return next, stats
}
