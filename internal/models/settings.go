package models

// Settings is the per-school controller configuration the board edits run
// under. Loaded once per request scope and never mutated by the queue core.
type Settings struct {
	SchoolID         string `db:"school_id" json:"school_id"`
	GapMinutes       int    `db:"gap_minutes" json:"gap_minutes"`
	StepDuration     int    `db:"step_duration" json:"step_duration"`
	DurationCapOne   int    `db:"duration_cap_one" json:"duration_cap_one"`
	DurationCapTwo   int    `db:"duration_cap_two" json:"duration_cap_two"`
	DurationCapThree int    `db:"duration_cap_three" json:"duration_cap_three"`
	MinDuration      int    `db:"min_duration" json:"min_duration"`
	MaxDuration      int    `db:"max_duration" json:"max_duration"`
	SubmitTime       int    `db:"submit_time" json:"submit_time"`
	Location         string `db:"location" json:"location"`
}
