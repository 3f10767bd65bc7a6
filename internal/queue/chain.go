package queue

import (
	"fmt"
	"sort"

	"github.com/noah-isme/classboard-api/internal/models"
)

// Chain is one teacher's ordered event sequence for a single day. Events
// are kept ascending by start time; successor lookups are positional.
type Chain struct {
	TeacherID string
	Date      string
	Events    []models.Event
}

// BuildChain assembles and verifies a chain from the snapshot's events for
// one teacher-day. The input slice is not modified. Building is idempotent:
// the same snapshot always yields the same chain, which is what makes
// "something changed, recompute" triggers safe.
func BuildChain(teacherID, date string, events []models.Event) (*Chain, error) {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Start < sorted[j].Start
	})

	seen := make(map[string]struct{}, len(sorted))
	for i, event := range sorted {
		if event.ID == "" {
			return nil, &IntegrityError{TeacherID: teacherID, Date: date, Detail: "event without id"}
		}
		if _, dup := seen[event.ID]; dup {
			return nil, &IntegrityError{TeacherID: teacherID, Date: date, Detail: fmt.Sprintf("duplicate event %s", event.ID)}
		}
		seen[event.ID] = struct{}{}
		if event.Duration <= 0 {
			return nil, &IntegrityError{TeacherID: teacherID, Date: date, Detail: fmt.Sprintf("event %s has non-positive duration", event.ID)}
		}
		if event.Date != "" && event.Date != date {
			return nil, &IntegrityError{TeacherID: teacherID, Date: date, Detail: fmt.Sprintf("event %s belongs to %s", event.ID, event.Date)}
		}
		if i > 0 && sorted[i].Start < sorted[i-1].End() {
			return nil, &IntegrityError{TeacherID: teacherID, Date: date, Detail: fmt.Sprintf("events %s and %s overlap", sorted[i-1].ID, sorted[i].ID)}
		}
	}

	return &Chain{TeacherID: teacherID, Date: date, Events: sorted}, nil
}

// BuildDay builds one chain per teacher from a day snapshot. A corrupt
// chain is fatal for that teacher only; other teachers still get queues.
// Teachers with lessons but no events get an empty chain.
func BuildDay(snap *models.DaySnapshot) (map[string]*Chain, map[string]error) {
	eventsByTeacher := snap.EventsByTeacher()
	chains := make(map[string]*Chain)
	failures := make(map[string]error)

	for teacherID := range snap.LessonsByTeacher() {
		chain, err := BuildChain(teacherID, snap.Date, eventsByTeacher[teacherID])
		if err != nil {
			failures[teacherID] = err
			continue
		}
		chains[teacherID] = chain
	}
	return chains, failures
}

// Clone returns a deep copy of the chain's event slice.
func (c *Chain) Clone() *Chain {
	events := make([]models.Event, len(c.Events))
	copy(events, c.Events)
	return &Chain{TeacherID: c.TeacherID, Date: c.Date, Events: events}
}

// Len returns the number of events in the chain.
func (c *Chain) Len() int { return len(c.Events) }

// IndexOf returns the position of the event with the given id, or -1.
func (c *Chain) IndexOf(id string) int {
	for i := range c.Events {
		if c.Events[i].ID == id {
			return i
		}
	}
	return -1
}

// First returns the head event, or nil for an empty chain.
func (c *Chain) First() *models.Event {
	if len(c.Events) == 0 {
		return nil
	}
	return &c.Events[0]
}

// Last returns the tail event, or nil for an empty chain.
func (c *Chain) Last() *models.Event {
	if len(c.Events) == 0 {
		return nil
	}
	return &c.Events[len(c.Events)-1]
}

// GapBefore returns the free minutes between event i and its predecessor.
// The head has no predecessor; ok is false there and for out-of-range i.
func (c *Chain) GapBefore(i int) (int, bool) {
	if i <= 0 || i >= len(c.Events) {
		return 0, false
	}
	return c.Events[i].Start - c.Events[i-1].End(), true
}

// IsOptimised reports whether every adjacent pair sits at exactly the
// configured gap, i.e. the chain carries zero slack. Locked-policy
// mutations are only permitted in this state. Empty and single-event
// chains qualify trivially.
func (c *Chain) IsOptimised(settings models.Settings) bool {
	for i := 1; i < len(c.Events); i++ {
		if c.Events[i].Start-c.Events[i-1].End() != settings.GapMinutes {
			return false
		}
	}
	return true
}

// changedSince lists ids whose start or duration differ from the old
// chain, plus ids absent from it. Order follows the new chain.
func (c *Chain) changedSince(old *Chain) []string {
	previous := make(map[string]models.Event, len(old.Events))
	for _, event := range old.Events {
		previous[event.ID] = event
	}
	var changed []string
	for _, event := range c.Events {
		before, ok := previous[event.ID]
		if !ok || before.Start != event.Start || before.Duration != event.Duration {
			changed = append(changed, event.ID)
		}
	}
	return changed
}
