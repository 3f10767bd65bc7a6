package dto

// BoardQuery selects the day rendered by board and stats endpoints.
type BoardQuery struct {
	Date string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

// ExportQuery selects day and output format for the stats export.
type ExportQuery struct {
	Date   string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Format string `form:"format" json:"format" validate:"required,oneof=csv pdf"`
}

// InsertEventRequest places a new event into a teacher's day queue.
// StartTime is the requested slot; under the locked policy the final
// start is derived from the predecessor instead.
type InsertEventRequest struct {
	LessonID     string  `json:"lessonId" validate:"required"`
	BookingID    string  `json:"bookingId" validate:"required"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    int     `json:"startTime" validate:"min=0,max=1439"`
	Duration     int     `json:"duration" validate:"required,min=1"`
	Location     string  `json:"location"`
	AfterEventID *string `json:"afterEventId"`
	Policy       string  `json:"policy" validate:"required,oneof=locked respecting"`
}

// UpdateEventRequest changes duration, start time or status of one event.
// Policy is required whenever duration or start time change.
type UpdateEventRequest struct {
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Duration  *int    `json:"duration" validate:"omitempty,min=1"`
	StartTime *int    `json:"startTime" validate:"omitempty,min=0,max=1439"`
	Status    *string `json:"status" validate:"omitempty,oneof=planned tbc completed uncompleted"`
	Policy    string  `json:"policy" validate:"omitempty,oneof=locked respecting"`
}

// RemoveEventRequest identifies the day and policy for an event removal.
type RemoveEventRequest struct {
	Date   string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Policy string `form:"policy" json:"policy" validate:"required,oneof=locked respecting"`
}

// OptimiseRequest compacts a teacher queue from the anchor onwards.
// Without an anchor the whole queue is packed from its first event.
type OptimiseRequest struct {
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	AnchorEventID *string `json:"anchorEventId"`
}

// GlobalShiftRequest moves every participating queue by DeltaMinutes.
// Preview computes the outcome without persisting it.
type GlobalShiftRequest struct {
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	DeltaMinutes int    `json:"deltaMinutes" validate:"required"`
	Policy       string `json:"policy" validate:"required,oneof=locked respecting"`
	Preview      bool   `json:"preview"`
}

// OptOutRequest toggles a teacher's participation in the next global shift.
type OptOutRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	OptOut bool   `json:"optOut"`
}

// EventView is the wire form of one scheduled event.
type EventView struct {
	ID            string   `json:"id"`
	LessonID      string   `json:"lessonId"`
	BookingID     string   `json:"bookingId"`
	Date          string   `json:"date"`
	StartTime     int      `json:"startTime"`
	EndTime       int      `json:"endTime"`
	Duration      int      `json:"duration"`
	Location      string   `json:"location"`
	Status        string   `json:"status"`
	Leader        string   `json:"leader"`
	Students      []string `json:"students"`
	GapBefore     *int     `json:"gapBefore,omitempty"`
	LessonRevenue float64  `json:"lessonRevenue"`
	TeacherEarn   float64  `json:"teacherEarn"`
}

// TeacherQueueView is one teacher's ordered day queue with gap and
// optimisation figures.
type TeacherQueueView struct {
	TeacherID      string      `json:"teacherId"`
	Date           string      `json:"date"`
	Events         []EventView `json:"events"`
	OptimisedCount int         `json:"optimisedCount"`
	EventTotal     int         `json:"eventTotal"`
	IsOptimised    bool        `json:"isOptimised"`
}

// QueueIssue reports a teacher queue that could not be built.
type QueueIssue struct {
	TeacherID string `json:"teacherId"`
	Detail    string `json:"detail"`
}

// BoardResponse is the whole-school classboard for one day.
type BoardResponse struct {
	SchoolID string             `json:"schoolId"`
	Date     string             `json:"date"`
	Teachers []TeacherQueueView `json:"teachers"`
	Issues   []QueueIssue       `json:"issues,omitempty"`
}

// MutationResponse returns the post-mutation queue plus the ids whose
// times were touched by the cascade.
type MutationResponse struct {
	Queue   TeacherQueueView `json:"queue"`
	Changed []string         `json:"changedEventIds"`
}

// OptimiseResponse returns the packed queue and how many events moved.
type OptimiseResponse struct {
	Queue    TeacherQueueView `json:"queue"`
	Adjusted int              `json:"adjusted"`
	Total    int              `json:"total"`
}

// ShiftFailureView reports one teacher excluded from a global shift result.
type ShiftFailureView struct {
	TeacherID string `json:"teacherId"`
	Reason    string `json:"reason"`
}

// GlobalShiftResponse carries the partial-success outcome of a shift.
type GlobalShiftResponse struct {
	Preview  bool               `json:"preview"`
	Updated  []TeacherQueueView `json:"updated"`
	Failures []ShiftFailureView `json:"failures"`
	OptedOut []string           `json:"optedOut"`
}

// EarningsView is the rounded money split shown on the dashboard.
type EarningsView struct {
	Teacher float64 `json:"teacher"`
	School  float64 `json:"school"`
	Total   float64 `json:"total"`
}

// TeacherStatsView is the per-teacher row of the stats dashboard.
type TeacherStatsView struct {
	TeacherID            string       `json:"teacherId"`
	LessonCount          int          `json:"lessonCount"`
	EventCount           int          `json:"eventCount"`
	IsComplete           bool         `json:"isComplete"`
	CompletionPercentage int          `json:"completionPercentage"`
	TotalHours           float64      `json:"totalHours"`
	Earnings             EarningsView `json:"earnings"`
}

// GlobalStatsView is the school-wide aggregate row.
type GlobalStatsView struct {
	TeacherCount         int          `json:"teacherCount"`
	LessonCount          int          `json:"lessonCount"`
	EventCount           int          `json:"eventCount"`
	IsComplete           bool         `json:"isComplete"`
	CompletionPercentage int          `json:"completionPercentage"`
	TotalHours           float64      `json:"totalHours"`
	Earnings             EarningsView `json:"earnings"`
}

// StatsResponse is the full stats payload for one school and day.
type StatsResponse struct {
	SchoolID string             `json:"schoolId"`
	Date     string             `json:"date"`
	Teachers []TeacherStatsView `json:"teachers"`
	Global   GlobalStatsView    `json:"global"`
}
