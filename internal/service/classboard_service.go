package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/classboard-api/internal/dto"
	"github.com/noah-isme/classboard-api/internal/models"
	"github.com/noah-isme/classboard-api/internal/queue"
	"github.com/noah-isme/classboard-api/pkg/config"
	appErrors "github.com/noah-isme/classboard-api/pkg/errors"
	"github.com/noah-isme/classboard-api/pkg/jobs"
)

type snapshotLoader interface {
	Load(ctx context.Context, schoolID, date string) (*models.DaySnapshot, error)
}

type settingsReader interface {
	Find(ctx context.Context, schoolID string) (*models.Settings, error)
}

type eventStore interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	FindRef(ctx context.Context, eventID string) (*models.EventRef, error)
	Insert(ctx context.Context, tx *sqlx.Tx, event *models.Event) error
	Delete(ctx context.Context, tx *sqlx.Tx, eventID string) error
	UpdateTimes(ctx context.Context, tx *sqlx.Tx, events []models.Event) error
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, eventID string, status models.EventStatus) error
}

type statsEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// QueueLocks serialises board mutations per (school, teacher, date). Every
// writer for the same queue goes through the same mutex; readers do not
// lock and may observe the previous state.
type QueueLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewQueueLocks constructs an empty lock registry.
func NewQueueLocks() *QueueLocks {
	return &QueueLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the queue key and returns its release func.
func (l *QueueLocks) Acquire(schoolID, teacherID, date string) func() {
	key := schoolID + "|" + teacherID + "|" + date
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// ClassboardService orchestrates the per-teacher day queues: board reads,
// event mutations with cascade write-back and queue optimisation.
type ClassboardService struct {
	snapshots snapshotLoader
	settings  settingsReader
	events    eventStore
	cache     *CacheService
	metrics   *MetricsService
	jobsQueue statsEnqueuer
	locks     *QueueLocks
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.ClassboardConfig
}

// NewClassboardService wires the board orchestrator.
func NewClassboardService(
	snapshots snapshotLoader,
	settings settingsReader,
	events eventStore,
	cache *CacheService,
	metrics *MetricsService,
	jobsQueue statsEnqueuer,
	locks *QueueLocks,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.ClassboardConfig,
) *ClassboardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewQueueLocks()
	}
	return &ClassboardService{
		snapshots: snapshots,
		settings:  settings,
		events:    events,
		cache:     cache,
		metrics:   metrics,
		jobsQueue: jobsQueue,
		locks:     locks,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Board returns every teacher queue for the school and day. A teacher
// whose stored events cannot form a valid queue is reported as an issue
// without hiding the rest of the board.
func (s *ClassboardService) Board(ctx context.Context, schoolID, date string) (*dto.BoardResponse, error) {
	settings, err := s.resolveSettings(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.Load(ctx, schoolID, date)
	if err != nil {
		return nil, fmt.Errorf("load day snapshot: %w", err)
	}
	snap.Settings = settings

	chains, broken := queue.BuildDay(snap)

	teacherIDs := make([]string, 0, len(chains))
	for teacherID := range chains {
		teacherIDs = append(teacherIDs, teacherID)
	}
	sort.Strings(teacherIDs)

	teachers := make([]dto.TeacherQueueView, 0, len(teacherIDs))
	for _, teacherID := range teacherIDs {
		teachers = append(teachers, buildQueueView(chains[teacherID], settings))
	}

	issues := make([]dto.QueueIssue, 0, len(broken))
	for teacherID, buildErr := range broken {
		issues = append(issues, dto.QueueIssue{TeacherID: teacherID, Detail: buildErr.Error()})
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].TeacherID < issues[j].TeacherID })

	return &dto.BoardResponse{
		SchoolID: schoolID,
		Date:     date,
		Teachers: teachers,
		Issues:   issues,
	}, nil
}

// TeacherQueue returns one teacher's queue for the day.
func (s *ClassboardService) TeacherQueue(ctx context.Context, schoolID, teacherID, date string) (*dto.TeacherQueueView, error) {
	settings, chain, err := s.loadChain(ctx, schoolID, teacherID, date)
	if err != nil {
		return nil, err
	}
	view := buildQueueView(chain, settings)
	return &view, nil
}

// InsertEvent places a new event into the teacher's queue and persists the
// whole cascade in one transaction.
func (s *ClassboardService) InsertEvent(ctx context.Context, schoolID, teacherID string, req dto.InsertEventRequest) (*dto.MutationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid insert payload")
	}
	policy := queue.CascadePolicy(req.Policy)

	unlock := s.locks.Acquire(schoolID, teacherID, req.Date)
	defer unlock()

	settings, chain, err := s.loadChain(ctx, schoolID, teacherID, req.Date)
	if err != nil {
		s.metrics.RecordQueueMutation("insert", req.Policy, "error")
		return nil, err
	}

	event := models.Event{
		ID:        uuid.NewString(),
		LessonID:  req.LessonID,
		BookingID: req.BookingID,
		Date:      req.Date,
		Start:     req.StartTime,
		Duration:  queue.RoundToStep(req.Duration, settings),
		Location:  req.Location,
		Status:    models.EventStatusPlanned,
	}
	if event.Location == "" {
		event.Location = settings.Location
	}

	afterID := ""
	if req.AfterEventID != nil {
		afterID = *req.AfterEventID
	}

	result, err := queue.Insert(chain, afterID, event, policy, settings)
	if err != nil {
		s.metrics.RecordQueueMutation("insert", req.Policy, "rejected")
		return nil, mapQueueError(err)
	}

	inserted := findEvent(result.Chain, event.ID)
	moved := changedEvents(result.Chain, result.Changed, event.ID)
	err = s.events.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.events.Insert(ctx, tx, inserted); err != nil {
			return err
		}
		return s.events.UpdateTimes(ctx, tx, moved)
	})
	if err != nil {
		s.metrics.RecordQueueMutation("insert", req.Policy, "error")
		return nil, err
	}

	s.metrics.RecordQueueMutation("insert", req.Policy, "ok")
	s.afterMutation(ctx, schoolID, req.Date)
	view := buildQueueView(result.Chain, settings)
	return &dto.MutationResponse{Queue: view, Changed: result.Changed}, nil
}

// RemoveEvent deletes an event and persists the cascade.
func (s *ClassboardService) RemoveEvent(ctx context.Context, schoolID, eventID string, req dto.RemoveEventRequest) (*dto.MutationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remove payload")
	}
	ref, err := s.resolveRef(ctx, schoolID, eventID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Acquire(schoolID, ref.TeacherID, ref.Date)
	defer unlock()

	settings, chain, err := s.loadChain(ctx, schoolID, ref.TeacherID, ref.Date)
	if err != nil {
		s.metrics.RecordQueueMutation("remove", req.Policy, "error")
		return nil, err
	}

	result, err := queue.Remove(chain, eventID, queue.CascadePolicy(req.Policy), settings)
	if err != nil {
		s.metrics.RecordQueueMutation("remove", req.Policy, "rejected")
		return nil, mapQueueError(err)
	}

	moved := changedEvents(result.Chain, result.Changed, "")
	err = s.events.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.events.Delete(ctx, tx, eventID); err != nil {
			return err
		}
		return s.events.UpdateTimes(ctx, tx, moved)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "event not found")
		}
		s.metrics.RecordQueueMutation("remove", req.Policy, "error")
		return nil, err
	}

	s.metrics.RecordQueueMutation("remove", req.Policy, "ok")
	s.afterMutation(ctx, schoolID, ref.Date)
	view := buildQueueView(result.Chain, settings)
	return &dto.MutationResponse{Queue: view, Changed: result.Changed}, nil
}

// UpdateEvent resizes, repositions or relabels one event. Time changes
// cascade under the requested policy; a status change touches only the
// event itself.
func (s *ClassboardService) UpdateEvent(ctx context.Context, schoolID, eventID string, req dto.UpdateEventRequest) (*dto.MutationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	timeChange := req.Duration != nil || req.StartTime != nil
	if !timeChange && req.Status == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}
	if timeChange && req.Policy == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "policy is required for time changes")
	}

	ref, err := s.resolveRef(ctx, schoolID, eventID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Acquire(schoolID, ref.TeacherID, ref.Date)
	defer unlock()

	settings, chain, err := s.loadChain(ctx, schoolID, ref.TeacherID, ref.Date)
	if err != nil {
		return nil, err
	}

	var newStatus models.EventStatus
	if req.Status != nil {
		newStatus = models.EventStatus(*req.Status)
		if err := checkStatusChange(chain, eventID, newStatus); err != nil {
			return nil, err
		}
	}

	current := chain
	changed := []string{}
	policy := queue.CascadePolicy(req.Policy)
	if req.StartTime != nil {
		result, err := queue.Reposition(current, eventID, *req.StartTime, policy, settings)
		if err != nil {
			s.metrics.RecordQueueMutation("reposition", req.Policy, "rejected")
			return nil, mapQueueError(err)
		}
		current = result.Chain
		changed = mergeIDs(changed, result.Changed)
	}
	if req.Duration != nil {
		result, err := queue.Resize(current, eventID, queue.RoundToStep(*req.Duration, settings), policy, settings)
		if err != nil {
			s.metrics.RecordQueueMutation("resize", req.Policy, "rejected")
			return nil, mapQueueError(err)
		}
		current = result.Chain
		changed = mergeIDs(changed, result.Changed)
	}

	// Time and status changes land in one transaction: a rejected part
	// above means nothing below runs, and a failed write persists neither.
	moved := changedEvents(current, changed, "")
	err = s.events.WithTx(ctx, func(tx *sqlx.Tx) error {
		if len(moved) > 0 {
			if err := s.events.UpdateTimes(ctx, tx, moved); err != nil {
				return err
			}
		}
		if req.Status != nil {
			return s.events.UpdateStatus(ctx, tx, eventID, newStatus)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "event not found")
		}
		s.metrics.RecordQueueMutation("update", req.Policy, "error")
		return nil, err
	}

	if req.Status != nil {
		if event := findEvent(current, eventID); event != nil {
			event.Status = newStatus
		}
	}
	if timeChange {
		s.metrics.RecordQueueMutation("update", req.Policy, "ok")
	}
	s.afterMutation(ctx, schoolID, ref.Date)

	view := buildQueueView(current, settings)
	return &dto.MutationResponse{Queue: view, Changed: changed}, nil
}

// Optimise packs the teacher's queue from the anchor onwards and persists
// every moved event.
func (s *ClassboardService) Optimise(ctx context.Context, schoolID, teacherID string, req dto.OptimiseRequest) (*dto.OptimiseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid optimise payload")
	}

	unlock := s.locks.Acquire(schoolID, teacherID, req.Date)
	defer unlock()

	settings, chain, err := s.loadChain(ctx, schoolID, teacherID, req.Date)
	if err != nil {
		return nil, err
	}

	// Without an anchor event the whole queue packs to the configured
	// start of day. An anchor event keeps everything before it in place
	// and packs from its own start time.
	anchorMinute := settings.SubmitTime
	packFrom := 0
	if req.AnchorEventID != nil {
		packFrom = chain.IndexOf(*req.AnchorEventID)
		if packFrom < 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "anchor event not in queue")
		}
		anchorMinute = chain.Events[packFrom].Start
	}

	packed, stats := queue.OptimiseFrom(chain, packFrom, anchorMinute, settings)

	moved := movedEvents(chain, packed)
	if len(moved) > 0 {
		err = s.events.WithTx(ctx, func(tx *sqlx.Tx) error {
			return s.events.UpdateTimes(ctx, tx, moved)
		})
		if err != nil {
			return nil, err
		}
		s.afterMutation(ctx, schoolID, req.Date)
	}

	s.metrics.ObserveOptimise(stats.Adjusted)
	view := buildQueueView(packed, settings)
	return &dto.OptimiseResponse{Queue: view, Adjusted: stats.Adjusted, Total: stats.Total}, nil
}

// checkStatusChange validates a status label against the chain without
// touching storage.
func checkStatusChange(chain *queue.Chain, eventID string, status models.EventStatus) error {
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown event status")
	}
	event := findEvent(chain, eventID)
	if event == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	if status == models.EventStatusCompleted || status == models.EventStatusUncompleted {
		if event.Date == "" || event.Duration <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, "event needs a date and duration before completion")
		}
	}
	return nil
}

func (s *ClassboardService) resolveRef(ctx context.Context, schoolID, eventID string) (*models.EventRef, error) {
	ref, err := s.events.FindRef(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, fmt.Errorf("resolve event %s: %w", eventID, err)
	}
	if ref.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	return ref, nil
}

func (s *ClassboardService) loadChain(ctx context.Context, schoolID, teacherID, date string) (models.Settings, *queue.Chain, error) {
	settings, err := s.resolveSettings(ctx, schoolID)
	if err != nil {
		return models.Settings{}, nil, err
	}
	snap, err := s.snapshots.Load(ctx, schoolID, date)
	if err != nil {
		return models.Settings{}, nil, fmt.Errorf("load day snapshot: %w", err)
	}
	chain, err := queue.BuildChain(teacherID, date, snap.EventsByTeacher()[teacherID])
	if err != nil {
		return models.Settings{}, nil, mapQueueError(err)
	}
	return settings, chain, nil
}

func (s *ClassboardService) resolveSettings(ctx context.Context, schoolID string) (models.Settings, error) {
	found, err := s.settings.Find(ctx, schoolID)
	if err != nil {
		return models.Settings{}, err
	}
	if found != nil {
		return *found, nil
	}
	return s.defaultSettings(schoolID), nil
}

func (s *ClassboardService) defaultSettings(schoolID string) models.Settings {
	return models.Settings{
		SchoolID:         schoolID,
		GapMinutes:       s.cfg.DefaultGap,
		StepDuration:     s.cfg.DefaultStep,
		DurationCapOne:   s.cfg.DefaultCapOne,
		DurationCapTwo:   s.cfg.DefaultCapTwo,
		DurationCapThree: s.cfg.DefaultCapThree,
		MinDuration:      s.cfg.DefaultMinDur,
		MaxDuration:      s.cfg.DefaultMaxDur,
		SubmitTime:       s.cfg.DefaultSubmit,
		Location:         s.cfg.DefaultLocation,
	}
}

// afterMutation invalidates cached stats, pings the notification channel
// and queues an async stats rebuild.
func (s *ClassboardService) afterMutation(ctx context.Context, schoolID, date string) {
	if err := s.cache.Invalidate(ctx, statsCacheKey(schoolID, date)); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.String("school_id", schoolID), zap.String("date", date), zap.Error(err))
	}
	s.cache.Notify(ctx, s.cfg.NotifyChannel, boardChangedPayload{SchoolID: schoolID, Date: date})
	if s.jobsQueue != nil {
		job := jobs.Job{
			ID:        uuid.NewString(),
			Type:      jobTypeStatsRebuild,
			DedupeKey: statsCacheKey(schoolID, date),
			Payload:   StatsRebuildPayload{SchoolID: schoolID, Date: date},
		}
		if err := s.jobsQueue.Enqueue(job); err != nil && !errors.Is(err, jobs.ErrDuplicateJob) {
			s.logger.Warn("stats rebuild enqueue failed", zap.String("school_id", schoolID), zap.Error(err))
		}
	}
}

type boardChangedPayload struct {
	SchoolID string `json:"school_id"`
	Date     string `json:"date"`
}

func statsCacheKey(schoolID, date string) string {
	return fmt.Sprintf("classboard:stats:%s:%s", schoolID, date)
}

// buildQueueView renders a chain for the API, with per-event gaps,
// per-event earnings and the queue's optimisation figures.
func buildQueueView(c *queue.Chain, settings models.Settings) dto.TeacherQueueView {
	events := make([]dto.EventView, 0, c.Len())
	optimised := 0
	for i := range c.Events {
		event := c.Events[i]
		view := dto.EventView{
			ID:        event.ID,
			LessonID:  event.LessonID,
			BookingID: event.BookingID,
			Date:      event.Date,
			StartTime: event.Start,
			EndTime:   event.End(),
			Duration:  event.Duration,
			Location:  event.Location,
			Status:    string(event.Status),
			Leader:    event.Students.Leader,
			Students:  event.Students.Roster,
		}
		if gap, ok := c.GapBefore(i); ok {
			g := gap
			view.GapBefore = &g
			if gap == settings.GapMinutes {
				optimised++
			}
		} else {
			optimised++
		}
		earnings := queue.EventEarnings(event)
		view.LessonRevenue = earnings.LessonRevenue
		view.TeacherEarn = earnings.TeacherEarn
		events = append(events, view)
	}
	return dto.TeacherQueueView{
		TeacherID:      c.TeacherID,
		Date:           c.Date,
		Events:         events,
		OptimisedCount: optimised,
		EventTotal:     c.Len(),
		IsOptimised:    c.IsOptimised(settings),
	}
}

// mapQueueError translates queue-core failures into HTTP-aware errors.
func mapQueueError(err error) error {
	if err == nil {
		return nil
	}
	if verr, ok := queue.AsValidation(err); ok {
		return appErrors.Wrap(err, appErrors.ErrPlacementRejected.Code, appErrors.ErrPlacementRejected.Status, string(verr.Reason))
	}
	var ierr *queue.IntegrityError
	if errors.As(err, &ierr) {
		return appErrors.Wrap(err, appErrors.ErrChainCorrupt.Code, appErrors.ErrChainCorrupt.Status, ierr.Error())
	}
	switch {
	case errors.Is(err, queue.ErrEventNotFound):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "event not in queue")
	case errors.Is(err, queue.ErrChainNotOptimised):
		return appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "queue must be optimised before locked edits")
	case errors.Is(err, queue.ErrUnknownPolicy):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown cascade policy")
	}
	return err
}

func findEvent(c *queue.Chain, id string) *models.Event {
	idx := c.IndexOf(id)
	if idx < 0 {
		return nil
	}
	return &c.Events[idx]
}

// changedEvents picks the events listed in changed out of the chain,
// skipping one id (already persisted separately, e.g. a fresh insert).
func changedEvents(c *queue.Chain, changed []string, skipID string) []models.Event {
	picked := make([]models.Event, 0, len(changed))
	for _, id := range changed {
		if id == skipID {
			continue
		}
		if event := findEvent(c, id); event != nil {
			picked = append(picked, *event)
		}
	}
	return picked
}

// movedEvents compares two chains and returns the events whose start or
// duration differ in the newer one.
func movedEvents(before, after *queue.Chain) []models.Event {
	old := make(map[string]models.Event, before.Len())
	for _, event := range before.Events {
		old[event.ID] = event
	}
	var moved []models.Event
	for _, event := range after.Events {
		prev, ok := old[event.ID]
		if !ok || prev.Start != event.Start || prev.Duration != event.Duration {
			moved = append(moved, event)
		}
	}
	return moved
}

func mergeIDs(into []string, ids []string) []string {
	seen := make(map[string]bool, len(into))
	for _, id := range into {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			into = append(into, id)
			seen[id] = true
		}
	}
	return into
}
