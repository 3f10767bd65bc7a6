package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classboard-api/internal/models"
)

func newSnapshotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSnapshotRepositoryLoad(t *testing.T) {
	db, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)

	now := time.Now()
	lessonRows := sqlmock.NewRows([]string{"id", "school_id", "teacher_id", "booking_id", "commission_id", "status", "created_at", "updated_at"}).
		AddRow("l1", "s1", "t1", "b1", "c1", "active", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(lessonsForDayQuery)).
		WithArgs("s1", "2026-08-31").
		WillReturnRows(lessonRows)

	eventRows := sqlmock.NewRows([]string{
		"id", "lesson_id", "booking_id", "date", "start_minutes", "duration_minutes", "location", "status", "created_at", "updated_at",
		"leader_name", "roster", "price_per_student", "package_duration", "package_capacity", "equipment_category", "commission_type", "commission_rate",
	}).AddRow("e1", "l1", "b1", "2026-08-31", 540, 60, "north bay", "planned", now, now,
		"Dana", "{Dana,Riley}", 90.0, 120, 4, "kite", "percentage", 40.0)
	mock.ExpectQuery(regexp.QuoteMeta(eventsForDayQuery)).
		WithArgs("s1", "2026-08-31").
		WillReturnRows(eventRows)

	snap, err := repo.Load(context.Background(), "s1", "2026-08-31")
	require.NoError(t, err)
	require.Len(t, snap.Lessons, 1)
	require.Len(t, snap.Events, 1)

	event := snap.Events[0]
	assert.Equal(t, "e1", event.ID)
	assert.Equal(t, 540, event.Start)
	assert.Equal(t, models.EventStatusPlanned, event.Status)
	assert.Equal(t, []string{"Dana", "Riley"}, event.Students.Roster)
	assert.Equal(t, "Dana", event.Students.Leader)
	assert.Equal(t, 120, event.Package.DurationMinutes)
	assert.Equal(t, models.CommissionPercentage, event.Commission.Type)
	assert.InDelta(t, 40.0, event.Commission.Rate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryLoadEmptyDay(t *testing.T) {
	db, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(lessonsForDayQuery)).
		WithArgs("s1", "2026-09-01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "teacher_id", "booking_id", "commission_id", "status", "created_at", "updated_at"}))
	mock.ExpectQuery(regexp.QuoteMeta(eventsForDayQuery)).
		WithArgs("s1", "2026-09-01").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	snap, err := repo.Load(context.Background(), "s1", "2026-09-01")
	require.NoError(t, err)
	assert.Empty(t, snap.Lessons)
	assert.Empty(t, snap.Events)
	assert.Equal(t, "2026-09-01", snap.Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}
