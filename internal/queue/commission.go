package queue

import "github.com/noah-isme/classboard-api/internal/models"

// Earnings is the money split for a single event. Values are raw: rounding
// is a display concern, and aggregation must sum unrounded figures to keep
// the split exact.
type Earnings struct {
	LessonRevenue float64 `json:"lesson_revenue"`
	TeacherEarn   float64 `json:"teacher_earn"`
	SchoolRevenue float64 `json:"school_revenue"`
}

// CalculateEarnings turns one event's duration and pricing snapshot into
// the teacher/school split. Revenue is prorated by the fraction of the
// package's total duration the event covers; a zero package duration
// yields zero revenue rather than a division error, while a fixed hourly
// commission is still paid out.
func CalculateEarnings(durationMinutes int, commission models.CommissionSnapshot, pricePerStudent float64, studentCount, packageDurationMinutes int) Earnings {
	var revenue float64
	if packageDurationMinutes > 0 {
		revenue = pricePerStudent * float64(studentCount) * (float64(durationMinutes) / float64(packageDurationMinutes))
	}

	var teacherEarn float64
	switch commission.Type {
	case models.CommissionFixed:
		teacherEarn = commission.Rate * (float64(durationMinutes) / 60)
	case models.CommissionPercentage:
		teacherEarn = revenue * (commission.Rate / 100)
	}

	return Earnings{
		LessonRevenue: revenue,
		TeacherEarn:   teacherEarn,
		SchoolRevenue: revenue - teacherEarn,
	}
}

// EventEarnings computes the split for an event from its own snapshots.
func EventEarnings(event models.Event) Earnings {
	return CalculateEarnings(
		event.Duration,
		event.Commission,
		event.Package.PricePerStudent,
		len(event.Students.Roster),
		event.Package.DurationMinutes,
	)
}
