package models

import "time"

// EventStatus labels the lifecycle of a scheduled event. There is no
// enforced transition order; the board lets staff set any label at any time.
type EventStatus string

const (
	EventStatusPlanned     EventStatus = "planned"
	EventStatusTBC         EventStatus = "tbc"
	EventStatusCompleted   EventStatus = "completed"
	EventStatusUncompleted EventStatus = "uncompleted"
)

// Valid reports whether the status is one of the known labels.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusPlanned, EventStatusTBC, EventStatusCompleted, EventStatusUncompleted:
		return true
	}
	return false
}

// Event is one scheduled time block of instruction for a lesson.
// Start is minutes since midnight on Date; Duration is minutes.
type Event struct {
	ID        string      `db:"id" json:"id"`
	LessonID  string      `db:"lesson_id" json:"lesson_id"`
	BookingID string      `db:"booking_id" json:"booking_id"`
	Date      string      `db:"date" json:"date"`
	Start     int         `db:"start_minutes" json:"start"`
	Duration  int         `db:"duration_minutes" json:"duration"`
	Location  string      `db:"location" json:"location"`
	Status    EventStatus `db:"status" json:"status"`

	Students   StudentSnapshot    `json:"students"`
	Package    PackageSnapshot    `json:"package"`
	Commission CommissionSnapshot `json:"commission"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// End returns the event's end in minutes since midnight.
func (e Event) End() int {
	return e.Start + e.Duration
}

// EventRef resolves an event id to the teacher queue it belongs to.
type EventRef struct {
	EventID   string `db:"id" json:"event_id"`
	Date      string `db:"date" json:"date"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	SchoolID  string `db:"school_id" json:"school_id"`
}

// StudentSnapshot captures the booking roster at scheduling time.
type StudentSnapshot struct {
	Leader   string   `json:"leader"`
	Roster   []string `json:"roster"`
	Capacity int      `json:"capacity"`
}

// PackageSnapshot captures the purchased package fields the board needs.
type PackageSnapshot struct {
	PricePerStudent   float64 `json:"price_per_student"`
	DurationMinutes   int     `json:"duration_minutes"`
	Capacity          int     `json:"capacity"`
	EquipmentCategory string  `json:"equipment_category"`
}

// CommissionSnapshot captures the pay model applied to an event.
type CommissionSnapshot struct {
	Type CommissionType `json:"type"`
	Rate float64        `json:"rate"`
}
