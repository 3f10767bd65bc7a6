package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classboard-api/internal/models"
)

// SettingsRepository loads per-school controller settings.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Find fetches the settings row for a school. A school without a row gets
// (nil, nil); the service falls back to configured defaults.
func (r *SettingsRepository) Find(ctx context.Context, schoolID string) (*models.Settings, error) {
	const query = `SELECT school_id, gap_minutes, step_duration, duration_cap_one, duration_cap_two, duration_cap_three, min_duration, max_duration, submit_time, location
		FROM school_settings WHERE school_id = $1`
	var settings models.Settings
	if err := r.db.GetContext(ctx, &settings, query, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load settings for %s: %w", schoolID, err)
	}
	return &settings, nil
}

// Upsert stores the settings row for a school.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.Settings) error {
	const query = `INSERT INTO school_settings (school_id, gap_minutes, step_duration, duration_cap_one, duration_cap_two, duration_cap_three, min_duration, max_duration, submit_time, location)
		VALUES (:school_id, :gap_minutes, :step_duration, :duration_cap_one, :duration_cap_two, :duration_cap_three, :min_duration, :max_duration, :submit_time, :location)
		ON CONFLICT (school_id) DO UPDATE SET
			gap_minutes = EXCLUDED.gap_minutes,
			step_duration = EXCLUDED.step_duration,
			duration_cap_one = EXCLUDED.duration_cap_one,
			duration_cap_two = EXCLUDED.duration_cap_two,
			duration_cap_three = EXCLUDED.duration_cap_three,
			min_duration = EXCLUDED.min_duration,
			max_duration = EXCLUDED.max_duration,
			submit_time = EXCLUDED.submit_time,
			location = EXCLUDED.location`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert settings for %s: %w", settings.SchoolID, err)
	}
	return nil
}
