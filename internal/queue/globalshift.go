package queue

import (
	"fmt"
	"sort"

	"github.com/noah-isme/classboard-api/internal/models"
)

const minutesPerDay = 24 * 60

// ShiftFailure records one teacher whose queue could not take the day
// shift. Failures never block other teachers' shifts.
type ShiftFailure struct {
	TeacherID string `json:"teacher_id"`
	Reason    string `json:"reason"`
}

// ApplyGlobalShift moves every event of every participating teacher by
// delta minutes. Teachers in optOut keep their current chain. Each shifted
// chain is re-validated in its caller-declared policy before being
// accepted; a chain that would leave the day or fail validation is
// reported as a per-teacher failure and its original chain is kept
// (partial success).
func ApplyGlobalShift(delta int, chains map[string]*Chain, optOut map[string]bool, policies map[string]CascadePolicy, settings models.Settings) (map[string]*Chain, []ShiftFailure) {
	teacherIDs := make([]string, 0, len(chains))
	for teacherID := range chains {
		teacherIDs = append(teacherIDs, teacherID)
	}
	sort.Strings(teacherIDs)

	updated := make(map[string]*Chain, len(chains))
	var failures []ShiftFailure

	for _, teacherID := range teacherIDs {
		chain := chains[teacherID]
		if optOut[teacherID] || chain.Len() == 0 {
			updated[teacherID] = chain
			continue
		}

		shifted := chain.Clone()
		for i := range shifted.Events {
			shifted.Events[i].Start += delta
		}

		if err := checkDayBounds(shifted); err != nil {
			failures = append(failures, ShiftFailure{TeacherID: teacherID, Reason: err.Error()})
			updated[teacherID] = chain
			continue
		}

		policy := policies[teacherID]
		if !policy.Valid() {
			policy = PolicyRespecting
		}
		if err := validateChain(shifted, policy, settings); err != nil {
			failures = append(failures, ShiftFailure{TeacherID: teacherID, Reason: err.Error()})
			updated[teacherID] = chain
			continue
		}

		updated[teacherID] = shifted
	}
	return updated, failures
}

func checkDayBounds(c *Chain) error {
	if first := c.First(); first != nil && first.Start < 0 {
		return fmt.Errorf("shift moves event %s before start of day", first.ID)
	}
	if last := c.Last(); last != nil && last.End() > minutesPerDay {
		return fmt.Errorf("shift moves event %s past end of day", last.ID)
	}
	return nil
}
