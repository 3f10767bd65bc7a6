package models

import "time"

// LessonStatus marks whether a lesson still takes part in the day's count.
type LessonStatus string

const (
	LessonStatusActive LessonStatus = "active"
	LessonStatusRest   LessonStatus = "rest"
)

// Lesson groups events under one teacher, booking and commission.
type Lesson struct {
	ID           string       `db:"id" json:"id"`
	SchoolID     string       `db:"school_id" json:"school_id"`
	TeacherID    string       `db:"teacher_id" json:"teacher_id"`
	BookingID    string       `db:"booking_id" json:"booking_id"`
	CommissionID string       `db:"commission_id" json:"commission_id"`
	Status       LessonStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}
