package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classboard-api/internal/models"
)

// SnapshotRepository loads the read-only picture of one school day: lessons
// with events plus the booking, package and commission fields each event
// snapshots. Rebuilding board state from a snapshot is idempotent.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs a SnapshotRepository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

type eventRow struct {
	ID        string    `db:"id"`
	LessonID  string    `db:"lesson_id"`
	BookingID string    `db:"booking_id"`
	Date      string    `db:"date"`
	Start     int       `db:"start_minutes"`
	Duration  int       `db:"duration_minutes"`
	Location  string    `db:"location"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	LeaderName        string         `db:"leader_name"`
	Roster            pq.StringArray `db:"roster"`
	PricePerStudent   float64        `db:"price_per_student"`
	PackageDuration   int            `db:"package_duration"`
	PackageCapacity   int            `db:"package_capacity"`
	EquipmentCategory string         `db:"equipment_category"`
	CommissionType    string         `db:"commission_type"`
	CommissionRate    float64        `db:"commission_rate"`
}

const lessonsForDayQuery = `SELECT DISTINCT l.id, l.school_id, l.teacher_id, l.booking_id, l.commission_id, l.status, l.created_at, l.updated_at
	FROM lessons l
	JOIN events e ON e.lesson_id = l.id
	WHERE l.school_id = $1 AND e.date = $2
	ORDER BY l.id`

const eventsForDayQuery = `SELECT e.id, e.lesson_id, e.booking_id, e.date, e.start_minutes, e.duration_minutes, e.location, e.status, e.created_at, e.updated_at,
	b.leader_name, b.roster,
	p.price_per_student, p.duration_minutes AS package_duration, p.capacity AS package_capacity, p.equipment_category,
	c.type AS commission_type, c.rate AS commission_rate
	FROM events e
	JOIN lessons l ON l.id = e.lesson_id
	JOIN bookings b ON b.id = e.booking_id
	JOIN school_packages p ON p.id = b.package_id
	JOIN commissions c ON c.id = l.commission_id
	WHERE l.school_id = $1 AND e.date = $2
	ORDER BY e.start_minutes, e.id`

// Load fetches every lesson and event for the school and day with the
// booking, package and commission fields folded into each event.
func (r *SnapshotRepository) Load(ctx context.Context, schoolID, date string) (*models.DaySnapshot, error) {
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, lessonsForDayQuery, schoolID, date); err != nil {
		return nil, fmt.Errorf("load lessons for %s on %s: %w", schoolID, date, err)
	}

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, eventsForDayQuery, schoolID, date); err != nil {
		return nil, fmt.Errorf("load events for %s on %s: %w", schoolID, date, err)
	}

	events := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, foldEvent(row))
	}

	return &models.DaySnapshot{
		SchoolID: schoolID,
		Date:     date,
		Lessons:  lessons,
		Events:   events,
	}, nil
}

func foldEvent(row eventRow) models.Event {
	return models.Event{
		ID:        row.ID,
		LessonID:  row.LessonID,
		BookingID: row.BookingID,
		Date:      row.Date,
		Start:     row.Start,
		Duration:  row.Duration,
		Location:  row.Location,
		Status:    models.EventStatus(row.Status),
		Students: models.StudentSnapshot{
			Leader:   row.LeaderName,
			Roster:   []string(row.Roster),
			Capacity: row.PackageCapacity,
		},
		Package: models.PackageSnapshot{
			PricePerStudent:   row.PricePerStudent,
			DurationMinutes:   row.PackageDuration,
			Capacity:          row.PackageCapacity,
			EquipmentCategory: row.EquipmentCategory,
		},
		Commission: models.CommissionSnapshot{
			Type: models.CommissionType(row.CommissionType),
			Rate: row.CommissionRate,
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
