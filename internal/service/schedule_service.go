package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/academoscope/academoscope-api/internal/models"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
	"github.com/academoscope/academoscope-api/pkg/export"
)

// ScheduleStore abstracts persistence for teaching slots.
type ScheduleStore interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleRow, error)
	FindByID(ctx context.Context, id string) (*models.TeachingSlot, error)
	Create(ctx context.Context, slot *models.TeachingSlot) error
	Update(ctx context.Context, slot *models.TeachingSlot) error
	Delete(ctx context.Context, id string) error
}

// TeacherStore abstracts teacher catalog reads.
type TeacherStore interface {
	List(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// OverviewReader supplies windowed course flags for workload views.
type OverviewReader interface {
	CourseOverview(ctx context.Context, window Window) ([]models.CourseOverviewItem, bool, error)
}

// ScheduleService manages teaching slots: windowed listing with conflict
// flags, mutations, tabular export and per-teacher workload.
type ScheduleService struct {
	slots     ScheduleStore
	teachers  TeacherStore
	conflicts *ConflictService
	overview  OverviewReader
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewScheduleService constructs the schedule manager.
func NewScheduleService(slots ScheduleStore, teachers TeacherStore, conflicts *ConflictService, overview OverviewReader, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		slots:     slots,
		teachers:  teachers,
		conflicts: conflicts,
		overview:  overview,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// List returns slots in the filter window with conflict flags set. Conflict
// detection runs over the listed window only; overlaps straddling the window
// edge surface once the window includes both slots.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleRow, error) {
	if filter.End.Before(filter.Start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must not precede start")
	}
	rows, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	slots := make([]models.TeachingSlot, len(rows))
	for i, row := range rows {
		slots[i] = row.TeachingSlot
	}
	flagged := s.conflicts.FindConflicts(slots)
	for i := range rows {
		_, rows[i].HasConflict = flagged[rows[i].ID]
	}
	return rows, nil
}

// Create validates and stores a new slot.
func (s *ScheduleService) Create(ctx context.Context, slot *models.TeachingSlot) error {
	if err := validateSlot(slot); err != nil {
		return err
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return err
	}
	s.logger.Info("teaching slot created", zap.String("slot_id", slot.ID))
	return nil
}

// Update replaces a slot's booked fields.
func (s *ScheduleService) Update(ctx context.Context, slot *models.TeachingSlot) error {
	if err := validateSlot(slot); err != nil {
		return err
	}
	if err := s.slots.Update(ctx, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teaching slot not found")
		}
		return err
	}
	return nil
}

// Delete removes a slot.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.slots.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teaching slot not found")
		}
		return err
	}
	return nil
}

// Export renders the windowed schedule as CSV or PDF bytes plus a content type.
func (s *ScheduleService) Export(ctx context.Context, filter models.ScheduleFilter, format string) ([]byte, string, error) {
	rows, err := s.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	data := scheduleDataset(rows)

	switch format {
	case "csv", "":
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, "", err
		}
		return payload, "text/csv", nil
	case "pdf":
		title := fmt.Sprintf("Schedule %s - %s",
			filter.Start.Format("2006-01-02"), filter.End.Format("2006-01-02"))
		payload, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, "", err
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// Teachers lists the teacher catalog.
func (s *ScheduleService) Teachers(ctx context.Context) ([]models.Teacher, error) {
	return s.teachers.List(ctx)
}

// TeacherWorkload aggregates one teacher's booked load inside the window and
// attaches the problem courses among those they teach.
func (s *ScheduleService) TeacherWorkload(ctx context.Context, teacherID string, start, end time.Time) (*models.TeacherWorkload, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, err
	}

	rows, err := s.List(ctx, models.ScheduleFilter{Start: start, End: end, TeacherID: teacherID})
	if err != nil {
		return nil, err
	}

	workload := &models.TeacherWorkload{Teacher: *teacher, SlotsCount: len(rows)}
	taught := make(map[int64]struct{})
	var booked time.Duration
	for _, row := range rows {
		booked += row.EffectiveEnd().Sub(row.StartAt)
		if row.CourseID != nil {
			taught[*row.CourseID] = struct{}{}
		}
	}
	workload.CoursesCount = len(taught)
	workload.TotalHours = int(booked.Hours())
	if len(rows) > 0 {
		first := rows[0].StartAt.Format("2006-01-02")
		last := rows[len(rows)-1].StartAt.Format("2006-01-02")
		workload.FirstSlotDate = &first
		workload.LastSlotDate = &last
	}

	overview, _, err := s.overview.CourseOverview(ctx, Window{Label: "all"})
	if err != nil {
		return nil, err
	}
	for _, item := range overview {
		if !item.Problem {
			continue
		}
		if _, ok := taught[item.CourseID]; ok {
			workload.ProblemCourses = append(workload.ProblemCourses, item)
		}
	}
	return workload, nil
}

func validateSlot(slot *models.TeachingSlot) error {
	if slot.StartAt.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "start_at is required")
	}
	if slot.EndAt != nil && !slot.EndAt.After(slot.StartAt) {
		return appErrors.Clone(appErrors.ErrValidation, "end_at must be after start_at")
	}
	return nil
}

func scheduleDataset(rows []models.ScheduleRow) export.Dataset {
	data := export.Dataset{
		Headers: []string{"date", "start", "end", "teacher", "course", "lesson", "group", "location", "conflict"},
	}
	for _, row := range rows {
		record := map[string]string{
			"date":     row.StartAt.Format("2006-01-02"),
			"start":    row.StartAt.Format("15:04"),
			"end":      row.EffectiveEnd().Format("15:04"),
			"teacher":  deref(row.TeacherName),
			"course":   deref(row.CourseTitle),
			"lesson":   deref(row.LessonTitle),
			"group":    deref(row.GroupName),
			"location": deref(row.Location),
			"conflict": strconv.FormatBool(row.HasConflict),
		}
		data.Rows = append(data.Rows, record)
	}
	return data
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
