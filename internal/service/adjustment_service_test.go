package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classboard-api/internal/dto"
	"github.com/noah-isme/classboard-api/internal/models"
	"github.com/noah-isme/classboard-api/pkg/config"
)

func multiTeacherSnapshot() *models.DaySnapshot {
	eventFor := func(id, lessonID string, start int) models.Event {
		event := boardEvent(id, lessonID, start, 60)
		return event
	}
	return &models.DaySnapshot{
		SchoolID: "s1",
		Date:     testDay,
		Lessons: []models.Lesson{
			{ID: "l1", SchoolID: "s1", TeacherID: "t1", Status: models.LessonStatusActive},
			{ID: "l2", SchoolID: "s1", TeacherID: "t2", Status: models.LessonStatusActive},
			{ID: "l3", SchoolID: "s1", TeacherID: "t3", Status: models.LessonStatusActive},
		},
		Events: []models.Event{
			eventFor("e1", "l1", 540),
			eventFor("e2", "l2", 600),
			eventFor("e3", "l3", 700),
		},
	}
}

func lateTeacherSnapshot() *models.DaySnapshot {
	snap := multiTeacherSnapshot()
	// t3 ends exactly at midnight; any forward shift pushes it out.
	snap.Events[2].Start = 1380
	return snap
}

func newAdjustmentService(snap *models.DaySnapshot, store *eventStoreStub, cacheRepo *cacheRepoStub) *AdjustmentService {
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	cfg := config.ClassboardConfig{NotifyChannel: "classboard:events", AdjustmentTTL: time.Minute}
	return NewAdjustmentService(&snapshotStub{snap: snap}, &settingsStub{settings: boardSettings()}, store, cache, nil, NewQueueLocks(), nil, nil, cfg)
}

func TestShiftPreviewDoesNotPersist(t *testing.T) {
	store := &eventStoreStub{}
	cacheRepo := &cacheRepoStub{}
	svc := newAdjustmentService(multiTeacherSnapshot(), store, cacheRepo)

	resp, err := svc.Shift(context.Background(), "s1", dto.GlobalShiftRequest{
		Date:         testDay,
		DeltaMinutes: 30,
		Policy:       "respecting",
		Preview:      true,
	})
	require.NoError(t, err)
	assert.True(t, resp.Preview)
	assert.Empty(t, store.updated)
	assert.Empty(t, cacheRepo.published)
	require.Len(t, resp.Updated, 3)
	assert.Equal(t, 570, resp.Updated[0].Events[0].StartTime)
}

func TestShiftCommitMovesAllTeachers(t *testing.T) {
	store := &eventStoreStub{}
	cacheRepo := &cacheRepoStub{}
	svc := newAdjustmentService(multiTeacherSnapshot(), store, cacheRepo)

	resp, err := svc.Shift(context.Background(), "s1", dto.GlobalShiftRequest{
		Date:         testDay,
		DeltaMinutes: 30,
		Policy:       "respecting",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Failures)
	assert.Len(t, store.updated, 3)
	assert.Equal(t, []string{"classboard:events"}, cacheRepo.published)
}

func TestShiftPartialSuccessPastMidnight(t *testing.T) {
	store := &eventStoreStub{}
	svc := newAdjustmentService(lateTeacherSnapshot(), store, &cacheRepoStub{})

	resp, err := svc.Shift(context.Background(), "s1", dto.GlobalShiftRequest{
		Date:         testDay,
		DeltaMinutes: 60,
		Policy:       "respecting",
	})
	require.NoError(t, err)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "t3", resp.Failures[0].TeacherID)
	assert.Len(t, resp.Updated, 2)
	for _, view := range resp.Updated {
		assert.NotEqual(t, "t3", view.TeacherID)
	}
	assert.Len(t, store.updated, 2)
}

func TestShiftHonoursAndConsumesOptOuts(t *testing.T) {
	store := &eventStoreStub{}
	svc := newAdjustmentService(multiTeacherSnapshot(), store, &cacheRepoStub{})

	require.NoError(t, svc.SetOptOut("s1", "t2", dto.OptOutRequest{Date: testDay, OptOut: true}))
	assert.Equal(t, []string{"t2"}, svc.OptOuts("s1", testDay))

	resp, err := svc.Shift(context.Background(), "s1", dto.GlobalShiftRequest{
		Date:         testDay,
		DeltaMinutes: 30,
		Policy:       "respecting",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, resp.OptedOut)
	assert.Len(t, store.updated, 2)
	for _, event := range store.updated {
		assert.NotEqual(t, "e2", event.ID)
	}

	// opt-out session is consumed by the commit
	assert.Empty(t, svc.OptOuts("s1", testDay))
}

// sequenceSnapshotStub serves a different snapshot on each load, mimicking a
// queue that moves between two reads.
type sequenceSnapshotStub struct {
	snaps []*models.DaySnapshot
	calls int
}

func (s *sequenceSnapshotStub) Load(ctx context.Context, schoolID, date string) (*models.DaySnapshot, error) {
	idx := s.calls
	if idx >= len(s.snaps) {
		idx = len(s.snaps) - 1
	}
	s.calls++
	snap := *s.snaps[idx]
	snap.SchoolID = schoolID
	snap.Date = date
	return &snap, nil
}

func TestShiftCommitUsesQueueReadUnderLocks(t *testing.T) {
	loader := &sequenceSnapshotStub{snaps: []*models.DaySnapshot{
		boardSnapshot(boardEvent("e1", "l1", 540, 60)),
		boardSnapshot(boardEvent("e1", "l1", 570, 60)),
	}}
	store := &eventStoreStub{}
	cache := NewCacheService(&cacheRepoStub{}, nil, time.Minute, nil, true)
	cfg := config.ClassboardConfig{NotifyChannel: "classboard:events", AdjustmentTTL: time.Minute}
	svc := NewAdjustmentService(loader, &settingsStub{settings: boardSettings()}, store, cache, nil, NewQueueLocks(), nil, nil, cfg)

	resp, err := svc.Shift(context.Background(), "s1", dto.GlobalShiftRequest{
		Date:         testDay,
		DeltaMinutes: 30,
		Policy:       "respecting",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
	require.Len(t, store.updated, 1)
	assert.Equal(t, 600, store.updated[0].Start)
	require.Len(t, resp.Updated, 1)
	assert.Equal(t, 600, resp.Updated[0].Events[0].StartTime)
}

func TestShiftFailsTeacherAppearingMidFlight(t *testing.T) {
	grown := &models.DaySnapshot{
		SchoolID: "s1",
		Date:     testDay,
		Lessons: []models.Lesson{
			{ID: "l1", SchoolID: "s1", TeacherID: "t1", Status: models.LessonStatusActive},
			{ID: "l2", SchoolID: "s1", TeacherID: "t2", Status: models.LessonStatusActive},
		},
		Events: []models.Event{
			boardEvent("e1", "l1", 540, 60),
			boardEvent("e2", "l2", 600, 60),
		},
	}
	loader := &sequenceSnapshotStub{snaps: []*models.DaySnapshot{
		boardSnapshot(boardEvent("e1", "l1", 540, 60)),
		grown,
	}}
	store := &eventStoreStub{}
	cache := NewCacheService(&cacheRepoStub{}, nil, time.Minute, nil, true)
	cfg := config.ClassboardConfig{NotifyChannel: "classboard:events", AdjustmentTTL: time.Minute}
	svc := NewAdjustmentService(loader, &settingsStub{settings: boardSettings()}, store, cache, nil, NewQueueLocks(), nil, nil, cfg)

	resp, err := svc.Shift(context.Background(), "s1", dto.GlobalShiftRequest{
		Date:         testDay,
		DeltaMinutes: 30,
		Policy:       "respecting",
	})
	require.NoError(t, err)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "t2", resp.Failures[0].TeacherID)
	assert.Equal(t, "queue changed during shift, retry", resp.Failures[0].Reason)
	require.Len(t, store.updated, 1)
	assert.Equal(t, "e1", store.updated[0].ID)
	require.Len(t, resp.Updated, 1)
	assert.Equal(t, "t1", resp.Updated[0].TeacherID)
}

func TestShiftPreviewLoadsOnce(t *testing.T) {
	loader := &sequenceSnapshotStub{snaps: []*models.DaySnapshot{multiTeacherSnapshot()}}
	cache := NewCacheService(&cacheRepoStub{}, nil, time.Minute, nil, true)
	cfg := config.ClassboardConfig{NotifyChannel: "classboard:events", AdjustmentTTL: time.Minute}
	svc := NewAdjustmentService(loader, &settingsStub{settings: boardSettings()}, &eventStoreStub{}, cache, nil, NewQueueLocks(), nil, nil, cfg)

	_, err := svc.Shift(context.Background(), "s1", dto.GlobalShiftRequest{
		Date:         testDay,
		DeltaMinutes: 30,
		Policy:       "respecting",
		Preview:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)
}

func TestOptOutToggleOff(t *testing.T) {
	svc := newAdjustmentService(multiTeacherSnapshot(), &eventStoreStub{}, &cacheRepoStub{})

	require.NoError(t, svc.SetOptOut("s1", "t2", dto.OptOutRequest{Date: testDay, OptOut: true}))
	require.NoError(t, svc.SetOptOut("s1", "t2", dto.OptOutRequest{Date: testDay, OptOut: false}))
	assert.Empty(t, svc.OptOuts("s1", testDay))
}
