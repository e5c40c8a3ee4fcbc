package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/academoscope/academoscope-api/internal/models"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
)

type fakeScheduleStore struct {
	rows    []models.ScheduleRow
	created []*models.TeachingSlot
	updated []*models.TeachingSlot
	deleted []string
	known   map[string]struct{}
}

func (f *fakeScheduleStore) List(_ context.Context, _ models.ScheduleFilter) ([]models.ScheduleRow, error) {
	return f.rows, nil
}

func (f *fakeScheduleStore) FindByID(_ context.Context, id string) (*models.TeachingSlot, error) {
	if _, ok := f.known[id]; !ok {
		return nil, sql.ErrNoRows
	}
	return &models.TeachingSlot{ID: id}, nil
}

func (f *fakeScheduleStore) Create(_ context.Context, slot *models.TeachingSlot) error {
	slot.ID = "slot-created"
	f.created = append(f.created, slot)
	return nil
}

func (f *fakeScheduleStore) Update(_ context.Context, slot *models.TeachingSlot) error {
	if _, ok := f.known[slot.ID]; !ok {
		return sql.ErrNoRows
	}
	f.updated = append(f.updated, slot)
	return nil
}

func (f *fakeScheduleStore) Delete(_ context.Context, id string) error {
	if _, ok := f.known[id]; !ok {
		return sql.ErrNoRows
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeTeacherStore struct {
	teachers map[string]models.Teacher
}

func (f *fakeTeacherStore) List(_ context.Context) ([]models.Teacher, error) {
	out := make([]models.Teacher, 0, len(f.teachers))
	for _, teacher := range f.teachers {
		out = append(out, teacher)
	}
	return out, nil
}

func (f *fakeTeacherStore) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	teacher, ok := f.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &teacher, nil
}

type fakeOverviewReader struct {
	items []models.CourseOverviewItem
}

func (f *fakeOverviewReader) CourseOverview(_ context.Context, _ Window) ([]models.CourseOverviewItem, bool, error) {
	return f.items, false, nil
}

func scheduleRow(id, teacherID string, start time.Time, duration time.Duration) models.ScheduleRow {
	return models.ScheduleRow{TeachingSlot: slotAt(id, teacherID, start, duration)}
}

func newScheduleFixture(store *fakeScheduleStore, teachers *fakeTeacherStore, overview *fakeOverviewReader) *ScheduleService {
	return NewScheduleService(store, teachers, NewConflictService(), overview, zap.NewNop())
}

func TestScheduleListMarksConflicts(t *testing.T) {
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeScheduleStore{rows: []models.ScheduleRow{
		scheduleRow("a", "t1", day.Add(9*time.Hour), time.Hour),
		scheduleRow("b", "t1", day.Add(9*time.Hour+30*time.Minute), time.Hour),
		scheduleRow("c", "t1", day.Add(12*time.Hour), time.Hour),
	}}
	svc := newScheduleFixture(store, &fakeTeacherStore{}, &fakeOverviewReader{})

	rows, err := svc.List(context.Background(), models.ScheduleFilter{Start: day, End: day.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].HasConflict)
	assert.True(t, rows[1].HasConflict)
	assert.False(t, rows[2].HasConflict)
}

func TestScheduleListRejectsInvertedWindow(t *testing.T) {
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	svc := newScheduleFixture(&fakeScheduleStore{}, &fakeTeacherStore{}, &fakeOverviewReader{})

	_, err := svc.List(context.Background(), models.ScheduleFilter{Start: day, End: day.AddDate(0, 0, -1)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleCreateValidation(t *testing.T) {
	svc := newScheduleFixture(&fakeScheduleStore{}, &fakeTeacherStore{}, &fakeOverviewReader{})
	start := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	badEnd := start.Add(-time.Hour)

	err := svc.Create(context.Background(), &models.TeachingSlot{})
	require.Error(t, err, "missing start")

	err = svc.Create(context.Background(), &models.TeachingSlot{StartAt: start, EndAt: &badEnd})
	require.Error(t, err, "end before start")

	err = svc.Create(context.Background(), &models.TeachingSlot{StartAt: start})
	require.NoError(t, err)
}

func TestScheduleUpdateUnknownSlot(t *testing.T) {
	svc := newScheduleFixture(&fakeScheduleStore{}, &fakeTeacherStore{}, &fakeOverviewReader{})

	err := svc.Update(context.Background(), &models.TeachingSlot{
		ID:      "missing",
		StartAt: time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleDeleteUnknownSlot(t *testing.T) {
	svc := newScheduleFixture(&fakeScheduleStore{}, &fakeTeacherStore{}, &fakeOverviewReader{})

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleExportCSV(t *testing.T) {
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	teacherName := "Ada"
	row := scheduleRow("a", "t1", day.Add(9*time.Hour), time.Hour)
	row.TeacherName = &teacherName
	store := &fakeScheduleStore{rows: []models.ScheduleRow{row}}
	svc := newScheduleFixture(store, &fakeTeacherStore{}, &fakeOverviewReader{})
	filter := models.ScheduleFilter{Start: day, End: day.AddDate(0, 0, 7)}

	payload, contentType, err := svc.Export(context.Background(), filter, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	body := string(payload)
	assert.Contains(t, body, "date,start,end,teacher")
	assert.Contains(t, body, "2025-09-01")
	assert.Contains(t, body, "Ada")

	_, _, err = svc.Export(context.Background(), filter, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleExportPDF(t *testing.T) {
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeScheduleStore{rows: []models.ScheduleRow{
		scheduleRow("a", "t1", day.Add(9*time.Hour), time.Hour),
	}}
	svc := newScheduleFixture(store, &fakeTeacherStore{}, &fakeOverviewReader{})

	payload, contentType, err := svc.Export(context.Background(), models.ScheduleFilter{Start: day, End: day.AddDate(0, 0, 7)}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestTeacherWorkload(t *testing.T) {
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	courseA, courseB := int64(1), int64(2)

	rowA := scheduleRow("a", "t1", day.Add(9*time.Hour), 2*time.Hour)
	rowA.CourseID = &courseA
	rowB := scheduleRow("b", "t1", day.AddDate(0, 0, 2).Add(9*time.Hour), time.Hour)
	rowB.CourseID = &courseB
	rowC := scheduleRow("c", "t1", day.AddDate(0, 0, 3).Add(9*time.Hour), 0)
	rowC.CourseID = &courseA

	store := &fakeScheduleStore{rows: []models.ScheduleRow{rowA, rowB, rowC}}
	teachers := &fakeTeacherStore{teachers: map[string]models.Teacher{"t1": {ID: "t1", Name: "Ada"}}}
	overview := &fakeOverviewReader{items: []models.CourseOverviewItem{
		{CourseID: 1, Title: "Struggling", Problem: true},
		{CourseID: 3, Title: "Other problem", Problem: true},
		{CourseID: 2, Title: "Healthy"},
	}}
	svc := newScheduleFixture(store, teachers, overview)

	workload, err := svc.TeacherWorkload(context.Background(), "t1", day, day.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, "Ada", workload.Teacher.Name)
	assert.Equal(t, 3, workload.SlotsCount)
	assert.Equal(t, 2, workload.CoursesCount)
	assert.Equal(t, 4, workload.TotalHours, "2h + 1h + default 1h")
	require.NotNil(t, workload.FirstSlotDate)
	assert.Equal(t, "2025-09-01", *workload.FirstSlotDate)
	require.Len(t, workload.ProblemCourses, 1, "only problem courses this teacher teaches")
	assert.Equal(t, int64(1), workload.ProblemCourses[0].CourseID)
}

func TestTeacherWorkloadUnknownTeacher(t *testing.T) {
	svc := newScheduleFixture(&fakeScheduleStore{}, &fakeTeacherStore{}, &fakeOverviewReader{})

	_, err := svc.TeacherWorkload(context.Background(), "missing", time.Now(), time.Now().AddDate(0, 0, 7))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
