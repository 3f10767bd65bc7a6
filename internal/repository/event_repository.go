package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classboard-api/internal/models"
)

// EventRepository persists event mutations. Cascade write-backs run inside
// one transaction so a queue is never stored half-shifted.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error.
func (r *EventRepository) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// FindRef resolves the teacher queue an event lives in.
func (r *EventRepository) FindRef(ctx context.Context, eventID string) (*models.EventRef, error) {
	const query = `SELECT e.id, e.date, l.teacher_id, l.school_id
		FROM events e
		JOIN lessons l ON l.id = e.lesson_id
		WHERE e.id = $1`
	var ref models.EventRef
	if err := r.db.GetContext(ctx, &ref, query, eventID); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Insert stores a new event row.
func (r *EventRepository) Insert(ctx context.Context, tx *sqlx.Tx, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	const query = `INSERT INTO events (id, lesson_id, booking_id, date, start_minutes, duration_minutes, location, status, created_at, updated_at)
		VALUES (:id, :lesson_id, :booking_id, :date, :start_minutes, :duration_minutes, :location, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Delete removes an event row.
func (r *EventRepository) Delete(ctx context.Context, tx *sqlx.Tx, eventID string) error {
	const query = `DELETE FROM events WHERE id = $1`
	res, err := tx.ExecContext(ctx, query, eventID)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateTimes writes back start and duration for the given events. Callers
// pass only the events a cascade actually moved.
func (r *EventRepository) UpdateTimes(ctx context.Context, tx *sqlx.Tx, events []models.Event) error {
	const query = `UPDATE events SET start_minutes = $1, duration_minutes = $2, updated_at = $3 WHERE id = $4`
	now := time.Now().UTC()
	for _, event := range events {
		if _, err := tx.ExecContext(ctx, query, event.Start, event.Duration, now, event.ID); err != nil {
			return fmt.Errorf("update event %s: %w", event.ID, err)
		}
	}
	return nil
}

// UpdateStatus sets the status label of one event. It runs on the caller's
// transaction so a mixed update commits or rolls back as a whole.
func (r *EventRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, eventID string, status models.EventStatus) error {
	const query = `UPDATE events SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := tx.ExecContext(ctx, query, status, time.Now().UTC(), eventID)
	if err != nil {
		return fmt.Errorf("update event status %s: %w", eventID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event status %s: %w", eventID, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
