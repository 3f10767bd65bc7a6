package queue

import (
	"math"
	"sort"

	"github.com/noah-isme/classboard-api/internal/models"
)

// TeacherDay pairs one teacher's chain with the lessons backing it, the
// unit the aggregator consumes.
type TeacherDay struct {
	TeacherID string
	Chain     *Chain
	Lessons   []models.Lesson
}

// EarningsSplit is a rounded money summary for display.
type EarningsSplit struct {
	Teacher float64 `json:"teacher"`
	School  float64 `json:"school"`
	Total   float64 `json:"total"`
}

// TeacherStats summarises one teacher's day for the stats dashboard.
type TeacherStats struct {
	TeacherID            string        `json:"teacher_id"`
	LessonCount          int           `json:"lesson_count"`
	EventCount           int           `json:"event_count"`
	IsComplete           bool          `json:"is_complete"`
	CompletionPercentage int           `json:"completion_percentage"`
	TotalHours           float64       `json:"total_hours"`
	Earnings             EarningsSplit `json:"earnings"`
}

// GlobalStats is the school-wide roll-up across all teachers.
type GlobalStats struct {
	LessonCount          int           `json:"lesson_count"`
	EventCount           int           `json:"event_count"`
	IsComplete           bool          `json:"is_complete"`
	CompletionPercentage int           `json:"completion_percentage"`
	TotalHours           float64       `json:"total_hours"`
	Earnings             EarningsSplit `json:"earnings"`
}

// Aggregate rolls the day up per teacher and school-wide. A lesson counts
// toward the day only when it is active and has at least one event
// scheduled; a teacher's day is complete when every counted lesson has
// exactly one event. Sums are carried unrounded and rounded once at this
// boundary: hours to one decimal, money to two.
func Aggregate(days []TeacherDay) ([]TeacherStats, GlobalStats) {
	perTeacher := make([]TeacherStats, 0, len(days))

	var globalLessons, globalEvents int
	var globalMinutes int
	var globalTeacherEarn, globalSchoolRevenue float64

	for _, day := range days {
		scheduled := make(map[string]bool)
		var minutes int
		var teacherEarn, schoolRevenue float64
		if day.Chain != nil {
			for _, event := range day.Chain.Events {
				scheduled[event.LessonID] = true
				minutes += event.Duration
				earnings := EventEarnings(event)
				teacherEarn += earnings.TeacherEarn
				schoolRevenue += earnings.SchoolRevenue
			}
		}

		lessonCount := 0
		for _, lesson := range day.Lessons {
			if lesson.Status != models.LessonStatusRest && scheduled[lesson.ID] {
				lessonCount++
			}
		}
		eventCount := 0
		if day.Chain != nil {
			eventCount = day.Chain.Len()
		}

		perTeacher = append(perTeacher, TeacherStats{
			TeacherID:            day.TeacherID,
			LessonCount:          lessonCount,
			EventCount:           eventCount,
			IsComplete:           lessonCount > 0 && eventCount == lessonCount,
			CompletionPercentage: completionPercentage(eventCount, lessonCount),
			TotalHours:           round1(float64(minutes) / 60),
			Earnings: EarningsSplit{
				Teacher: round2(teacherEarn),
				School:  round2(schoolRevenue),
				Total:   round2(teacherEarn + schoolRevenue),
			},
		})

		globalLessons += lessonCount
		globalEvents += eventCount
		globalMinutes += minutes
		globalTeacherEarn += teacherEarn
		globalSchoolRevenue += schoolRevenue
	}

	sort.Slice(perTeacher, func(i, j int) bool {
		return perTeacher[i].TeacherID < perTeacher[j].TeacherID
	})

	global := GlobalStats{
		LessonCount:          globalLessons,
		EventCount:           globalEvents,
		IsComplete:           globalLessons > 0 && globalEvents == globalLessons,
		CompletionPercentage: completionPercentage(globalEvents, globalLessons),
		TotalHours:           round1(float64(globalMinutes) / 60),
		Earnings: EarningsSplit{
			Teacher: round2(globalTeacherEarn),
			School:  round2(globalSchoolRevenue),
			Total:   round2(globalTeacherEarn + globalSchoolRevenue),
		},
	}
	return perTeacher, global
}

func completionPercentage(eventCount, lessonCount int) int {
	if lessonCount == 0 {
		return 0
	}
	return int(math.Round(float64(eventCount) / float64(lessonCount) * 100))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
