package models

// DaySnapshot is the read-only picture of one school day handed to the
// queue core: every lesson for the day with its events and the resolved
// booking/package/commission fields already folded into event snapshots.
// Rebuilding queues from a snapshot is idempotent, so a missed change
// notification is always recoverable by re-fetching and recomputing.
type DaySnapshot struct {
	SchoolID string   `json:"school_id"`
	Date     string   `json:"date"`
	Lessons  []Lesson `json:"lessons"`
	Events   []Event  `json:"events"`
	Settings Settings `json:"settings"`
}

// LessonsByTeacher groups the snapshot's lessons per teacher.
func (s *DaySnapshot) LessonsByTeacher() map[string][]Lesson {
	result := make(map[string][]Lesson)
	for _, lesson := range s.Lessons {
		result[lesson.TeacherID] = append(result[lesson.TeacherID], lesson)
	}
	return result
}

// EventsByTeacher groups the snapshot's events per teacher via their lesson.
func (s *DaySnapshot) EventsByTeacher() map[string][]Event {
	teacherByLesson := make(map[string]string, len(s.Lessons))
	for _, lesson := range s.Lessons {
		teacherByLesson[lesson.ID] = lesson.TeacherID
	}
	result := make(map[string][]Event)
	for _, event := range s.Events {
		teacherID, ok := teacherByLesson[event.LessonID]
		if !ok {
			continue
		}
		result[teacherID] = append(result[teacherID], event)
	}
	return result
}
