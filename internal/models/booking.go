package models

// CommissionType selects the teacher pay formula.
type CommissionType string

const (
	CommissionFixed      CommissionType = "fixed"
	CommissionPercentage CommissionType = "percentage"
)

// Booking is the read-only customer booking an event draws students from.
type Booking struct {
	ID          string   `db:"id" json:"id"`
	SchoolID    string   `db:"school_id" json:"school_id"`
	PackageID   string   `db:"package_id" json:"package_id"`
	LeaderName  string   `db:"leader_name" json:"leader_name"`
	Roster      []string `json:"roster"`
	RosterCount int      `db:"roster_count" json:"roster_count"`
}

// SchoolPackage is the read-only product definition behind a booking.
type SchoolPackage struct {
	ID                string  `db:"id" json:"id"`
	SchoolID          string  `db:"school_id" json:"school_id"`
	PricePerStudent   float64 `db:"price_per_student" json:"price_per_student"`
	DurationMinutes   int     `db:"duration_minutes" json:"duration_minutes"`
	Capacity          int     `db:"capacity" json:"capacity"`
	EquipmentCategory string  `db:"equipment_category" json:"equipment_category"`
}

// Commission is the read-only pay model attached to a lesson.
type Commission struct {
	ID       string         `db:"id" json:"id"`
	SchoolID string         `db:"school_id" json:"school_id"`
	Type     CommissionType `db:"type" json:"type"`
	Rate     float64        `db:"rate" json:"rate"`
}
