package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/classboard-api/internal/models"
)

func TestFixedCommissionIsHourly(t *testing.T) {
	fixed := models.CommissionSnapshot{Type: models.CommissionFixed, Rate: 20}

	// 90 minutes at 20/hr pays 30.
	earnings := CalculateEarnings(90, fixed, 0, 0, 0)
	assert.InDelta(t, 30, earnings.TeacherEarn, 1e-9)

	// Exactly one hour pays exactly the rate.
	earnings = CalculateEarnings(60, fixed, 0, 0, 0)
	assert.Equal(t, 20.0, earnings.TeacherEarn)
}

func TestPercentageCommissionSplitsRevenue(t *testing.T) {
	pct := models.CommissionSnapshot{Type: models.CommissionPercentage, Rate: 10}

	earnings := CalculateEarnings(60, pct, 100, 2, 120)
	assert.InDelta(t, 100, earnings.LessonRevenue, 1e-9)
	assert.InDelta(t, 10, earnings.TeacherEarn, 1e-9)
	assert.InDelta(t, 90, earnings.SchoolRevenue, 1e-9)
}

func TestPercentageSplitHasNoLeakage(t *testing.T) {
	pct := models.CommissionSnapshot{Type: models.CommissionPercentage, Rate: 37.5}
	cases := []struct {
		duration, students, pkgDuration int
		price                           float64
	}{
		{45, 3, 90, 79.99},
		{60, 1, 60, 150},
		{135, 7, 240, 12.34},
	}
	for _, tc := range cases {
		earnings := CalculateEarnings(tc.duration, pct, tc.price, tc.students, tc.pkgDuration)
		assert.InDelta(t, earnings.LessonRevenue, earnings.TeacherEarn+earnings.SchoolRevenue, 1e-9)
	}
}

func TestZeroPackageDurationGuard(t *testing.T) {
	pct := models.CommissionSnapshot{Type: models.CommissionPercentage, Rate: 10}
	earnings := CalculateEarnings(60, pct, 100, 2, 0)
	assert.Zero(t, earnings.LessonRevenue)
	assert.Zero(t, earnings.TeacherEarn)
	assert.Zero(t, earnings.SchoolRevenue)

	// A fixed hourly commission is still owed for the worked time.
	fixed := models.CommissionSnapshot{Type: models.CommissionFixed, Rate: 20}
	earnings = CalculateEarnings(60, fixed, 100, 2, 0)
	assert.Equal(t, 20.0, earnings.TeacherEarn)
	assert.Equal(t, -20.0, earnings.SchoolRevenue)
}

func TestEventEarningsUsesSnapshots(t *testing.T) {
	e := models.Event{
		Duration:   60,
		Commission: models.CommissionSnapshot{Type: models.CommissionPercentage, Rate: 10},
		Package:    models.PackageSnapshot{PricePerStudent: 100, DurationMinutes: 120},
		Students:   models.StudentSnapshot{Leader: "Ana", Roster: []string{"Ana", "Ben"}},
	}
	earnings := EventEarnings(e)
	assert.InDelta(t, 100, earnings.LessonRevenue, 1e-9)
	assert.InDelta(t, 10, earnings.TeacherEarn, 1e-9)
}
