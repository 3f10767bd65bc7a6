package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/classboard-api/internal/dto"
	"github.com/noah-isme/classboard-api/internal/models"
	"github.com/noah-isme/classboard-api/internal/queue"
	"github.com/noah-isme/classboard-api/pkg/config"
	appErrors "github.com/noah-isme/classboard-api/pkg/errors"
	"github.com/noah-isme/classboard-api/pkg/export"
	"github.com/noah-isme/classboard-api/pkg/jobs"
)

const jobTypeStatsRebuild = "classboard.stats.rebuild"

// StatsRebuildPayload asks the background worker to recompute and re-cache
// one school day.
type StatsRebuildPayload struct {
	SchoolID string `json:"school_id"`
	Date     string `json:"date"`
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// StatsService aggregates the day per teacher and school-wide, serves the
// result through the cache and renders the printable exports.
type StatsService struct {
	snapshots snapshotLoader
	settings  settingsReader
	cache     *CacheService
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	cfg       config.ClassboardConfig
}

// NewStatsService constructs the stats aggregation service.
func NewStatsService(
	snapshots snapshotLoader,
	settings settingsReader,
	cache *CacheService,
	csv csvRenderer,
	pdf pdfRenderer,
	logger *zap.Logger,
	cfg config.ClassboardConfig,
) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		snapshots: snapshots,
		settings:  settings,
		cache:     cache,
		csv:       csv,
		pdf:       pdf,
		logger:    logger,
		cfg:       cfg,
	}
}

// Stats returns the per-teacher and global day stats, served from cache
// when fresh and recomputed from the snapshot otherwise.
func (s *StatsService) Stats(ctx context.Context, schoolID, date string) (*dto.StatsResponse, error) {
	key := statsCacheKey(schoolID, date)
	var cached dto.StatsResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	return s.Rebuild(ctx, schoolID, date)
}

// Rebuild recomputes the day stats from the snapshot and refreshes the
// cache. Recomputation is always correct regardless of missed
// notifications because the snapshot is the single source of truth.
func (s *StatsService) Rebuild(ctx context.Context, schoolID, date string) (*dto.StatsResponse, error) {
	settingsRow, err := s.settings.Find(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	settings := models.Settings{SchoolID: schoolID, GapMinutes: s.cfg.DefaultGap, StepDuration: s.cfg.DefaultStep, MinDuration: s.cfg.DefaultMinDur, MaxDuration: s.cfg.DefaultMaxDur, SubmitTime: s.cfg.DefaultSubmit, Location: s.cfg.DefaultLocation, DurationCapOne: s.cfg.DefaultCapOne, DurationCapTwo: s.cfg.DefaultCapTwo, DurationCapThree: s.cfg.DefaultCapThree}
	if settingsRow != nil {
		settings = *settingsRow
	}

	snap, err := s.snapshots.Load(ctx, schoolID, date)
	if err != nil {
		return nil, fmt.Errorf("load day snapshot: %w", err)
	}
	snap.Settings = settings

	chains, broken := queue.BuildDay(snap)
	for teacherID, buildErr := range broken {
		s.logger.Warn("teacher day excluded from stats", zap.String("teacher_id", teacherID), zap.Error(buildErr))
	}

	lessonsByTeacher := snap.LessonsByTeacher()
	days := make([]queue.TeacherDay, 0, len(chains))
	for teacherID, chain := range chains {
		days = append(days, queue.TeacherDay{
			TeacherID: teacherID,
			Chain:     chain,
			Lessons:   lessonsByTeacher[teacherID],
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].TeacherID < days[j].TeacherID })

	perTeacher, global := queue.Aggregate(days)

	resp := &dto.StatsResponse{
		SchoolID: schoolID,
		Date:     date,
		Teachers: make([]dto.TeacherStatsView, 0, len(perTeacher)),
		Global: dto.GlobalStatsView{
			TeacherCount:         len(perTeacher),
			LessonCount:          global.LessonCount,
			EventCount:           global.EventCount,
			IsComplete:           global.IsComplete,
			CompletionPercentage: global.CompletionPercentage,
			TotalHours:           global.TotalHours,
			Earnings: dto.EarningsView{
				Teacher: global.Earnings.Teacher,
				School:  global.Earnings.School,
				Total:   global.Earnings.Total,
			},
		},
	}
	for _, stats := range perTeacher {
		resp.Teachers = append(resp.Teachers, dto.TeacherStatsView{
			TeacherID:            stats.TeacherID,
			LessonCount:          stats.LessonCount,
			EventCount:           stats.EventCount,
			IsComplete:           stats.IsComplete,
			CompletionPercentage: stats.CompletionPercentage,
			TotalHours:           stats.TotalHours,
			Earnings: dto.EarningsView{
				Teacher: stats.Earnings.Teacher,
				School:  stats.Earnings.School,
				Total:   stats.Earnings.Total,
			},
		})
	}

	if err := s.cache.Set(ctx, statsCacheKey(schoolID, date), resp, s.cfg.StatsCacheTTL); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("school_id", schoolID), zap.Error(err))
	}
	return resp, nil
}

// Export renders the day stats as CSV or PDF.
func (s *StatsService) Export(ctx context.Context, schoolID, date, format string) ([]byte, string, string, error) {
	stats, err := s.Stats(ctx, schoolID, date)
	if err != nil {
		return nil, "", "", err
	}
	data := statsDataset(stats)

	switch format {
	case "csv":
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, "", "", err
		}
		return payload, "text/csv", fmt.Sprintf("classboard-stats-%s.csv", date), nil
	case "pdf":
		title := fmt.Sprintf("Classboard stats %s", date)
		payload, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, "", "", err
		}
		return payload, "application/pdf", fmt.Sprintf("classboard-stats-%s.pdf", date), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// RebuildJobHandler adapts Rebuild for the background job queue.
func (s *StatsService) RebuildJobHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		payload, err := decodeRebuildPayload(job.Payload)
		if err != nil {
			return err
		}
		_, err = s.Rebuild(ctx, payload.SchoolID, payload.Date)
		return err
	}
}

func decodeRebuildPayload(raw interface{}) (StatsRebuildPayload, error) {
	switch v := raw.(type) {
	case StatsRebuildPayload:
		return v, nil
	case []byte:
		var payload StatsRebuildPayload
		if err := json.Unmarshal(v, &payload); err != nil {
			return StatsRebuildPayload{}, fmt.Errorf("decode stats rebuild payload: %w", err)
		}
		return payload, nil
	default:
		return StatsRebuildPayload{}, fmt.Errorf("unexpected stats rebuild payload type %T", raw)
	}
}

func statsDataset(stats *dto.StatsResponse) export.Dataset {
	headers := []string{"Teacher", "Lessons", "Events", "Completion", "Hours", "Teacher earn", "School revenue", "Total"}
	rows := make([]map[string]string, 0, len(stats.Teachers))
	for _, teacher := range stats.Teachers {
		rows = append(rows, map[string]string{
			"Teacher":        teacher.TeacherID,
			"Lessons":        strconv.Itoa(teacher.LessonCount),
			"Events":         strconv.Itoa(teacher.EventCount),
			"Completion":     fmt.Sprintf("%d%%", teacher.CompletionPercentage),
			"Hours":          strconv.FormatFloat(teacher.TotalHours, 'f', 1, 64),
			"Teacher earn":   strconv.FormatFloat(teacher.Earnings.Teacher, 'f', 2, 64),
			"School revenue": strconv.FormatFloat(teacher.Earnings.School, 'f', 2, 64),
			"Total":          strconv.FormatFloat(teacher.Earnings.Total, 'f', 2, 64),
		})
	}
	return export.Dataset{
		Headers: headers,
		Rows:    rows,
		Summary: map[string]string{
			"Teacher":        "All teachers",
			"Lessons":        strconv.Itoa(stats.Global.LessonCount),
			"Events":         strconv.Itoa(stats.Global.EventCount),
			"Completion":     fmt.Sprintf("%d%%", stats.Global.CompletionPercentage),
			"Hours":          strconv.FormatFloat(stats.Global.TotalHours, 'f', 1, 64),
			"Teacher earn":   strconv.FormatFloat(stats.Global.Earnings.Teacher, 'f', 2, 64),
			"School revenue": strconv.FormatFloat(stats.Global.Earnings.School, 'f', 2, 64),
			"Total":          strconv.FormatFloat(stats.Global.Earnings.Total, 'f', 2, 64),
		},
	}
}
