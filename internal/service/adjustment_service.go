package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/classboard-api/internal/dto"
	"github.com/noah-isme/classboard-api/internal/models"
	"github.com/noah-isme/classboard-api/internal/queue"
	"github.com/noah-isme/classboard-api/pkg/config"
	appErrors "github.com/noah-isme/classboard-api/pkg/errors"
)

// AdjustmentService runs whole-school day shifts. Opt-outs are composed
// ahead of the shift in a transient session store and consumed when the
// shift commits; they never persist beyond their TTL.
type AdjustmentService struct {
	snapshots snapshotLoader
	settings  settingsReader
	events    eventStore
	cache     *CacheService
	metrics   *MetricsService
	locks     *QueueLocks
	store     *optOutStore
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.ClassboardConfig
}

// NewAdjustmentService wires the global shift coordinator.
func NewAdjustmentService(
	snapshots snapshotLoader,
	settings settingsReader,
	events eventStore,
	cache *CacheService,
	metrics *MetricsService,
	locks *QueueLocks,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.ClassboardConfig,
) *AdjustmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewQueueLocks()
	}
	ttl := cfg.AdjustmentTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &AdjustmentService{
		snapshots: snapshots,
		settings:  settings,
		events:    events,
		cache:     cache,
		metrics:   metrics,
		locks:     locks,
		store:     newOptOutStore(ttl),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// SetOptOut toggles one teacher's participation in the next shift.
func (s *AdjustmentService) SetOptOut(schoolID, teacherID string, req dto.OptOutRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid opt-out payload")
	}
	s.store.Set(schoolID, req.Date, teacherID, req.OptOut)
	return nil
}

// OptOuts lists the teachers currently excluded for the school and day.
func (s *AdjustmentService) OptOuts(schoolID, date string) []string {
	return s.store.List(schoolID, date)
}

// Shift moves every participating teacher queue by DeltaMinutes. Failures
// are collected per teacher and never block the rest (partial success).
// Preview runs the same computation without persisting or consuming the
// opt-out session.
func (s *AdjustmentService) Shift(ctx context.Context, schoolID string, req dto.GlobalShiftRequest) (*dto.GlobalShiftResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}
	policy := queue.CascadePolicy(req.Policy)

	settings, err := s.resolveSettings(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	// A commit takes every teacher lock before the snapshot it mutates is
	// read, so the shift never writes back times computed from a queue a
	// concurrent board edit has since moved. The first load only discovers
	// which locks to take.
	var locked map[string]bool
	if !req.Preview {
		discovered, err := s.snapshots.Load(ctx, schoolID, req.Date)
		if err != nil {
			return nil, fmt.Errorf("load day snapshot: %w", err)
		}
		byTeacher := discovered.EventsByTeacher()
		teacherIDs := make([]string, 0, len(byTeacher))
		locked = make(map[string]bool, len(byTeacher))
		for teacherID := range byTeacher {
			teacherIDs = append(teacherIDs, teacherID)
			locked[teacherID] = true
		}
		sort.Strings(teacherIDs)
		for _, teacherID := range teacherIDs {
			unlock := s.locks.Acquire(schoolID, teacherID, req.Date)
			defer unlock()
		}
	}

	snap, err := s.snapshots.Load(ctx, schoolID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("load day snapshot: %w", err)
	}
	snap.Settings = settings

	chains, broken := queue.BuildDay(snap)
	failures := make([]dto.ShiftFailureView, 0, len(broken))
	for teacherID, buildErr := range broken {
		failures = append(failures, dto.ShiftFailureView{TeacherID: teacherID, Reason: buildErr.Error()})
	}

	// A teacher whose first events landed between discovery and locking is
	// not covered by a lock; they fail this shift instead of racing it.
	if !req.Preview {
		for teacherID := range chains {
			if !locked[teacherID] {
				delete(chains, teacherID)
				failures = append(failures, dto.ShiftFailureView{TeacherID: teacherID, Reason: "queue changed during shift, retry"})
			}
		}
	}

	optOut := s.store.Map(schoolID, req.Date)
	policies := make(map[string]queue.CascadePolicy, len(chains))
	for teacherID := range chains {
		policies[teacherID] = policy
	}

	updated, shiftFailures := queue.ApplyGlobalShift(req.DeltaMinutes, chains, optOut, policies, settings)
	for _, failure := range shiftFailures {
		failures = append(failures, dto.ShiftFailureView{TeacherID: failure.TeacherID, Reason: failure.Reason})
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].TeacherID < failures[j].TeacherID })

	if !req.Preview {
		moved := make([]models.Event, 0)
		for teacherID, after := range updated {
			moved = append(moved, movedEvents(chains[teacherID], after)...)
		}
		if len(moved) > 0 {
			err = s.events.WithTx(ctx, func(tx *sqlx.Tx) error {
				return s.events.UpdateTimes(ctx, tx, moved)
			})
			if err != nil {
				return nil, err
			}
		}
		s.metrics.RecordShiftFailures(len(shiftFailures))
		s.store.Clear(schoolID, req.Date)
		if err := s.cache.Invalidate(ctx, statsCacheKey(schoolID, req.Date)); err != nil {
			s.logger.Warn("stats cache invalidation failed", zap.String("school_id", schoolID), zap.Error(err))
		}
		s.cache.Notify(ctx, s.cfg.NotifyChannel, boardChangedPayload{SchoolID: schoolID, Date: req.Date})
	}

	failed := make(map[string]bool, len(failures))
	for _, failure := range failures {
		failed[failure.TeacherID] = true
	}
	shiftedIDs := make([]string, 0, len(updated))
	for teacherID := range updated {
		if failed[teacherID] || optOut[teacherID] {
			continue
		}
		shiftedIDs = append(shiftedIDs, teacherID)
	}
	sort.Strings(shiftedIDs)
	views := make([]dto.TeacherQueueView, 0, len(shiftedIDs))
	for _, teacherID := range shiftedIDs {
		views = append(views, buildQueueView(updated[teacherID], settings))
	}

	optedOut := make([]string, 0, len(optOut))
	for teacherID, excluded := range optOut {
		if excluded {
			optedOut = append(optedOut, teacherID)
		}
	}
	sort.Strings(optedOut)

	return &dto.GlobalShiftResponse{
		Preview:  req.Preview,
		Updated:  views,
		Failures: failures,
		OptedOut: optedOut,
	}, nil
}

func (s *AdjustmentService) resolveSettings(ctx context.Context, schoolID string) (models.Settings, error) {
	found, err := s.settings.Find(ctx, schoolID)
	if err != nil {
		return models.Settings{}, err
	}
	if found != nil {
		return *found, nil
	}
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
	}, nil
}

type optOutSession struct {
	teachers  map[string]bool
	updatedAt time.Time
}

type optOutStore struct {
	ttl   time.Duration
	mu    sync.Mutex
	items map[string]*optOutSession
}

func newOptOutStore(ttl time.Duration) *optOutStore {
	return &optOutStore{ttl: ttl, items: make(map[string]*optOutSession)}
}

func optOutKey(schoolID, date string) string {
	return schoolID + "|" + date
}

func (s *optOutStore) Set(schoolID, date, teacherID string, optOut bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := optOutKey(schoolID, date)
	session, ok := s.items[key]
	if !ok || time.Since(session.updatedAt) > s.ttl {
		session = &optOutSession{teachers: make(map[string]bool)}
		s.items[key] = session
	}
	if optOut {
		session.teachers[teacherID] = true
	} else {
		delete(session.teachers, teacherID)
	}
	session.updatedAt = time.Now()
}

func (s *optOutStore) Map(schoolID, date string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[optOutKey(schoolID, date)]
	if !ok || time.Since(session.updatedAt) > s.ttl {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(session.teachers))
	for teacherID, excluded := range session.teachers {
		out[teacherID] = excluded
	}
	return out
}

func (s *optOutStore) List(schoolID, date string) []string {
	excluded := s.Map(schoolID, date)
	out := make([]string, 0, len(excluded))
	for teacherID := range excluded {
		out = append(out, teacherID)
	}
	sort.Strings(out)
	return out
}

func (s *optOutStore) Clear(schoolID, date string) {
	s.mu.Lock()
	delete(s.items, optOutKey(schoolID, date))
	s.mu.Unlock()
}
