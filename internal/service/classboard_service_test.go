package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classboard-api/internal/dto"
	"github.com/noah-isme/classboard-api/internal/models"
	"github.com/noah-isme/classboard-api/pkg/config"
	appErrors "github.com/noah-isme/classboard-api/pkg/errors"
	"github.com/noah-isme/classboard-api/pkg/jobs"
)

const testDay = "2026-08-31"

type snapshotStub struct {
	snap *models.DaySnapshot
	err  error
}

func (s *snapshotStub) Load(ctx context.Context, schoolID, date string) (*models.DaySnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	snap := *s.snap
	snap.SchoolID = schoolID
	snap.Date = date
	return &snap, nil
}

type settingsStub struct {
	settings *models.Settings
	err      error
}

func (s *settingsStub) Find(ctx context.Context, schoolID string) (*models.Settings, error) {
	return s.settings, s.err
}

type eventStoreStub struct {
	refs     map[string]models.EventRef
	inserted []models.Event
	deleted  []string
	updated  []models.Event
	statuses map[string]models.EventStatus
	txErr    error
}

func (s *eventStoreStub) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	return fn(nil)
}

func (s *eventStoreStub) FindRef(ctx context.Context, eventID string) (*models.EventRef, error) {
	ref, ok := s.refs[eventID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &ref, nil
}

func (s *eventStoreStub) Insert(ctx context.Context, tx *sqlx.Tx, event *models.Event) error {
	s.inserted = append(s.inserted, *event)
	return nil
}

func (s *eventStoreStub) Delete(ctx context.Context, tx *sqlx.Tx, eventID string) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}

func (s *eventStoreStub) UpdateTimes(ctx context.Context, tx *sqlx.Tx, events []models.Event) error {
	s.updated = append(s.updated, events...)
	return nil
}

func (s *eventStoreStub) UpdateStatus(ctx context.Context, tx *sqlx.Tx, eventID string, status models.EventStatus) error {
	if s.statuses == nil {
		s.statuses = make(map[string]models.EventStatus)
	}
	s.statuses[eventID] = status
	return nil
}

type cacheRepoStub struct {
	values    map[string][]byte
	published []string
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.values == nil {
		s.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = raw
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	delete(s.values, pattern)
	return nil
}

func (s *cacheRepoStub) Publish(ctx context.Context, channel string, payload interface{}) error {
	s.published = append(s.published, channel)
	return nil
}

type enqueuerStub struct {
	jobs []jobs.Job
}

func (s *enqueuerStub) Enqueue(job jobs.Job) error {
	s.jobs = append(s.jobs, job)
	return nil
}

func boardSettings() *models.Settings {
	return &models.Settings{
		SchoolID:     "s1",
		GapMinutes:   15,
		StepDuration: 15,
		MinDuration:  30,
		MaxDuration:  240,
		SubmitTime:   540,
		Location:     "north bay",
	}
}

func boardEvent(id, lessonID string, start, duration int) models.Event {
	return models.Event{
		ID:        id,
		LessonID:  lessonID,
		BookingID: "b1",
		Date:      testDay,
		Start:     start,
		Duration:  duration,
		Status:    models.EventStatusPlanned,
	}
}

func boardSnapshot(events ...models.Event) *models.DaySnapshot {
	lessons := make(map[string]models.Lesson)
	for _, event := range events {
		lessons[event.LessonID] = models.Lesson{
			ID:        event.LessonID,
			SchoolID:  "s1",
			TeacherID: "t1",
			BookingID: event.BookingID,
			Status:    models.LessonStatusActive,
		}
	}
	snap := &models.DaySnapshot{SchoolID: "s1", Date: testDay, Events: events}
	for _, lesson := range lessons {
		snap.Lessons = append(snap.Lessons, lesson)
	}
	return snap
}

func newBoardService(snap *models.DaySnapshot, store *eventStoreStub, cacheRepo *cacheRepoStub, enqueuer *enqueuerStub) *ClassboardService {
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	cfg := config.ClassboardConfig{NotifyChannel: "classboard:events", StatsCacheTTL: time.Minute}
	return NewClassboardService(&snapshotStub{snap: snap}, &settingsStub{settings: boardSettings()}, store, cache, nil, enqueuer, NewQueueLocks(), nil, nil, cfg)
}

func TestInsertEventRespectingPersistsAndNotifies(t *testing.T) {
	snap := boardSnapshot(boardEvent("e1", "l1", 540, 60))
	store := &eventStoreStub{}
	cacheRepo := &cacheRepoStub{}
	enqueuer := &enqueuerStub{}
	svc := newBoardService(snap, store, cacheRepo, enqueuer)

	after := "e1"
	resp, err := svc.InsertEvent(context.Background(), "s1", "t1", dto.InsertEventRequest{
		LessonID:     "l2",
		BookingID:    "b1",
		Date:         testDay,
		StartTime:    660,
		Duration:     60,
		AfterEventID: &after,
		Policy:       "respecting",
	})
	require.NoError(t, err)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, 660, store.inserted[0].Start)
	assert.Len(t, resp.Queue.Events, 2)
	assert.Contains(t, resp.Changed, store.inserted[0].ID)
	assert.Equal(t, []string{"classboard:events"}, cacheRepo.published)
	require.Len(t, enqueuer.jobs, 1)
	assert.Equal(t, jobTypeStatsRebuild, enqueuer.jobs[0].Type)
}

func TestInsertEventRejectsPredecessorOverlap(t *testing.T) {
	snap := boardSnapshot(boardEvent("e1", "l1", 540, 60))
	store := &eventStoreStub{}
	svc := newBoardService(snap, store, &cacheRepoStub{}, &enqueuerStub{})

	after := "e1"
	_, err := svc.InsertEvent(context.Background(), "s1", "t1", dto.InsertEventRequest{
		LessonID:     "l2",
		BookingID:    "b1",
		Date:         testDay,
		StartTime:    605,
		Duration:     60,
		AfterEventID: &after,
		Policy:       "respecting",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPlacementRejected.Code, appErr.Code)
	assert.Empty(t, store.inserted)
	assert.Empty(t, store.updated)
}

func TestRemoveEventLockedPullsSuccessors(t *testing.T) {
	snap := boardSnapshot(
		boardEvent("e1", "l1", 540, 60),
		boardEvent("e2", "l2", 615, 60),
		boardEvent("e3", "l3", 690, 60),
	)
	store := &eventStoreStub{refs: map[string]models.EventRef{
		"e2": {EventID: "e2", Date: testDay, TeacherID: "t1", SchoolID: "s1"},
	}}
	svc := newBoardService(snap, store, &cacheRepoStub{}, &enqueuerStub{})

	resp, err := svc.RemoveEvent(context.Background(), "s1", "e2", dto.RemoveEventRequest{Date: testDay, Policy: "locked"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e2"}, store.deleted)
	require.Len(t, store.updated, 1)
	assert.Equal(t, "e3", store.updated[0].ID)
	assert.Equal(t, 615, store.updated[0].Start)
	assert.Len(t, resp.Queue.Events, 2)
}

func TestRemoveEventWrongSchoolIsNotFound(t *testing.T) {
	snap := boardSnapshot(boardEvent("e1", "l1", 540, 60))
	store := &eventStoreStub{refs: map[string]models.EventRef{
		"e1": {EventID: "e1", Date: testDay, TeacherID: "t1", SchoolID: "other"},
	}}
	svc := newBoardService(snap, store, &cacheRepoStub{}, &enqueuerStub{})

	_, err := svc.RemoveEvent(context.Background(), "s1", "e1", dto.RemoveEventRequest{Date: testDay, Policy: "locked"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestUpdateEventStatusOnly(t *testing.T) {
	snap := boardSnapshot(boardEvent("e1", "l1", 540, 60))
	store := &eventStoreStub{refs: map[string]models.EventRef{
		"e1": {EventID: "e1", Date: testDay, TeacherID: "t1", SchoolID: "s1"},
	}}
	svc := newBoardService(snap, store, &cacheRepoStub{}, &enqueuerStub{})

	status := "completed"
	resp, err := svc.UpdateEvent(context.Background(), "s1", "e1", dto.UpdateEventRequest{Date: testDay, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCompleted, store.statuses["e1"])
	assert.Empty(t, store.updated)
	assert.Equal(t, "completed", resp.Queue.Events[0].Status)
}

func TestUpdateEventTimeChangeNeedsPolicy(t *testing.T) {
	snap := boardSnapshot(boardEvent("e1", "l1", 540, 60))
	store := &eventStoreStub{refs: map[string]models.EventRef{
		"e1": {EventID: "e1", Date: testDay, TeacherID: "t1", SchoolID: "s1"},
	}}
	svc := newBoardService(snap, store, &cacheRepoStub{}, &enqueuerStub{})

	duration := 90
	_, err := svc.UpdateEvent(context.Background(), "s1", "e1", dto.UpdateEventRequest{Date: testDay, Duration: &duration})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUpdateEventResizeCascades(t *testing.T) {
	snap := boardSnapshot(
		boardEvent("e1", "l1", 540, 60),
		boardEvent("e2", "l2", 615, 60),
	)
	store := &eventStoreStub{refs: map[string]models.EventRef{
		"e1": {EventID: "e1", Date: testDay, TeacherID: "t1", SchoolID: "s1"},
	}}
	svc := newBoardService(snap, store, &cacheRepoStub{}, &enqueuerStub{})

	duration := 90
	resp, err := svc.UpdateEvent(context.Background(), "s1", "e1", dto.UpdateEventRequest{Date: testDay, Duration: &duration, Policy: "locked"})
	require.NoError(t, err)
	require.Len(t, resp.Queue.Events, 2)
	assert.Equal(t, 90, resp.Queue.Events[0].Duration)
	assert.Equal(t, 645, resp.Queue.Events[1].StartTime)
	assert.NotEmpty(t, store.updated)
}

func TestUpdateEventRejectedTimeChangeKeepsStatus(t *testing.T) {
	snap := boardSnapshot(
		boardEvent("e1", "l1", 540, 60),
		boardEvent("e2", "l2", 615, 60),
	)
	store := &eventStoreStub{refs: map[string]models.EventRef{
		"e2": {EventID: "e2", Date: testDay, TeacherID: "t1", SchoolID: "s1"},
	}}
	svc := newBoardService(snap, store, &cacheRepoStub{}, &enqueuerStub{})

	status := "completed"
	start := 560 // overlaps e1, which runs until 600
	_, err := svc.UpdateEvent(context.Background(), "s1", "e2", dto.UpdateEventRequest{
		Date:      testDay,
		Status:    &status,
		StartTime: &start,
		Policy:    "respecting",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPlacementRejected.Code, appErr.Code)
	assert.Empty(t, store.statuses)
	assert.Empty(t, store.updated)
}

func TestOptimisePacksQueueAndPersists(t *testing.T) {
	snap := boardSnapshot(
		boardEvent("e1", "l1", 540, 60),
		boardEvent("e2", "l2", 700, 60),
	)
	store := &eventStoreStub{}
	svc := newBoardService(snap, store, &cacheRepoStub{}, &enqueuerStub{})

	resp, err := svc.Optimise(context.Background(), "s1", "t1", dto.OptimiseRequest{Date: testDay})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Adjusted)
	assert.Equal(t, 2, resp.Total)
	assert.True(t, resp.Queue.IsOptimised)
	require.Len(t, store.updated, 1)
	assert.Equal(t, "e2", store.updated[0].ID)
	assert.Equal(t, 615, store.updated[0].Start)
}

func TestOptimiseDefaultAnchorIsStartOfDay(t *testing.T) {
	snap := boardSnapshot(
		boardEvent("e1", "l1", 600, 60),
		boardEvent("e2", "l2", 700, 60),
	)
	store := &eventStoreStub{}
	svc := newBoardService(snap, store, &cacheRepoStub{}, &enqueuerStub{})

	resp, err := svc.Optimise(context.Background(), "s1", "t1", dto.OptimiseRequest{Date: testDay})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Adjusted)
	require.Len(t, resp.Queue.Events, 2)
	assert.Equal(t, 540, resp.Queue.Events[0].StartTime)
	assert.Equal(t, 615, resp.Queue.Events[1].StartTime)
	assert.Len(t, store.updated, 2)
}

func TestOptimiseWithAnchorPacksOnlyTail(t *testing.T) {
	snap := boardSnapshot(
		boardEvent("e1", "l1", 540, 60),
		boardEvent("e2", "l2", 700, 60),
		boardEvent("e3", "l3", 800, 60),
	)
	store := &eventStoreStub{}
	svc := newBoardService(snap, store, &cacheRepoStub{}, &enqueuerStub{})

	anchor := "e2"
	resp, err := svc.Optimise(context.Background(), "s1", "t1", dto.OptimiseRequest{Date: testDay, AnchorEventID: &anchor})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Adjusted)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Queue.Events, 3)
	assert.Equal(t, 540, resp.Queue.Events[0].StartTime)
	assert.Equal(t, 700, resp.Queue.Events[1].StartTime)
	assert.Equal(t, 775, resp.Queue.Events[2].StartTime)
	require.Len(t, store.updated, 1)
	assert.Equal(t, "e3", store.updated[0].ID)
}

func TestOptimiseUnknownAnchor(t *testing.T) {
	snap := boardSnapshot(boardEvent("e1", "l1", 540, 60))
	svc := newBoardService(snap, &eventStoreStub{}, &cacheRepoStub{}, &enqueuerStub{})

	anchor := "missing"
	_, err := svc.Optimise(context.Background(), "s1", "t1", dto.OptimiseRequest{Date: testDay, AnchorEventID: &anchor})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestBoardReportsCorruptTeacherWithoutHidingOthers(t *testing.T) {
	good := boardEvent("e1", "l1", 540, 60)
	overlapA := boardEvent("e2", "l2", 600, 60)
	overlapB := boardEvent("e3", "l3", 630, 60)
	snap := &models.DaySnapshot{
		SchoolID: "s1",
		Date:     testDay,
		Lessons: []models.Lesson{
			{ID: "l1", SchoolID: "s1", TeacherID: "t1", Status: models.LessonStatusActive},
			{ID: "l2", SchoolID: "s1", TeacherID: "t2", Status: models.LessonStatusActive},
			{ID: "l3", SchoolID: "s1", TeacherID: "t2", Status: models.LessonStatusActive},
		},
		Events: []models.Event{good, overlapA, overlapB},
	}
	svc := newBoardService(snap, &eventStoreStub{}, &cacheRepoStub{}, &enqueuerStub{})

	board, err := svc.Board(context.Background(), "s1", testDay)
	require.NoError(t, err)
	require.Len(t, board.Teachers, 1)
	assert.Equal(t, "t1", board.Teachers[0].TeacherID)
	require.Len(t, board.Issues, 1)
	assert.Equal(t, "t2", board.Issues[0].TeacherID)
}

func TestTeacherQueueViewGapsAndEarnings(t *testing.T) {
	first := boardEvent("e1", "l1", 540, 60)
	first.Commission = models.CommissionSnapshot{Type: models.CommissionFixed, Rate: 50}
	second := boardEvent("e2", "l2", 630, 60)
	snap := boardSnapshot(first, second)
	svc := newBoardService(snap, &eventStoreStub{}, &cacheRepoStub{}, &enqueuerStub{})

	view, err := svc.TeacherQueue(context.Background(), "s1", "t1", testDay)
	require.NoError(t, err)
	require.Len(t, view.Events, 2)
	assert.Nil(t, view.Events[0].GapBefore)
	require.NotNil(t, view.Events[1].GapBefore)
	assert.Equal(t, 30, *view.Events[1].GapBefore)
	assert.InDelta(t, 50.0, view.Events[0].TeacherEarn, 1e-9)
	assert.False(t, view.IsOptimised)
	assert.Equal(t, 1, view.OptimisedCount)
	assert.Equal(t, 2, view.EventTotal)
}
