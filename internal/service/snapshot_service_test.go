package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/academoscope/academoscope-api/internal/models"
)

type fakeFunnelCalculator struct {
	courseFunnels map[int64]models.CourseFunnel
	lessonFunnels map[int64]models.LessonFunnel
	failCourseID  int64
	courseCalls   int
}

func (f *fakeFunnelCalculator) CourseFunnel(_ context.Context, courseID int64, _ *time.Time) (models.CourseFunnel, error) {
	f.courseCalls++
	if f.failCourseID != 0 && courseID == f.failCourseID {
		return models.CourseFunnel{}, errors.New("store unavailable")
	}
	return f.courseFunnels[courseID], nil
}

func (f *fakeFunnelCalculator) LessonFunnel(_ context.Context, lessonID int64, _ *time.Time) (models.LessonFunnel, error) {
	return f.lessonFunnels[lessonID], nil
}

type fakeSnapshotStore struct {
	mu      sync.Mutex
	courses map[int64]models.CourseMetricsSnapshot
	lessons map[int64]models.LessonMetricsSnapshot
	writes  int
}

func (f *fakeSnapshotStore) UpsertCourse(_ context.Context, snap *models.CourseMetricsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.courses == nil {
		f.courses = make(map[int64]models.CourseMetricsSnapshot)
	}
	f.courses[snap.CourseID] = *snap
	f.writes++
	return nil
}

func (f *fakeSnapshotStore) UpsertLesson(_ context.Context, snap *models.LessonMetricsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lessons == nil {
		f.lessons = make(map[int64]models.LessonMetricsSnapshot)
	}
	f.lessons[snap.LessonID] = *snap
	f.writes++
	return nil
}

func newSnapshotFixture() (*fakeFunnelCalculator, *fakeCourseCatalog, *fakeLessonCatalog, *fakeSnapshotStore) {
	funnels := &fakeFunnelCalculator{
		courseFunnels: map[int64]models.CourseFunnel{
			1: {CourseID: 1, TotalStudents: 10, Completed: 4, CompletionRate: 40},
			2: {CourseID: 2, TotalStudents: 2, Completed: 2, CompletionRate: 100},
		},
		lessonFunnels: map[int64]models.LessonFunnel{
			7: {LessonID: 7, Started: 5, Completed: 2, DropOffRate: 60},
		},
	}
	courses := &fakeCourseCatalog{courses: map[int64]models.Course{1: {ID: 1}, 2: {ID: 2}}}
	lessons := &fakeLessonCatalog{lessons: map[int64]models.Lesson{7: {ID: 7, CourseID: 1}}}
	return funnels, courses, lessons, &fakeSnapshotStore{}
}

func TestSnapshotRunOnceWritesAllEntities(t *testing.T) {
	funnels, courses, lessons, store := newSnapshotFixture()
	svc := NewSnapshotService(funnels, courses, lessons, store, nil, zap.NewNop(), time.Minute)

	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Len(t, store.courses, 2)
	assert.Len(t, store.lessons, 1)
	assert.Equal(t, 40, store.courses[1].CompletionRate)
	assert.Equal(t, 60, store.lessons[7].DropOffRate)
	assert.False(t, store.courses[1].UpdatedAt.IsZero())
}

func TestSnapshotRunOnceIsIdempotent(t *testing.T) {
	funnels, courses, lessons, store := newSnapshotFixture()
	svc := NewSnapshotService(funnels, courses, lessons, store, nil, zap.NewNop(), time.Minute)

	require.NoError(t, svc.RunOnce(context.Background()))
	firstCourse := store.courses[1]
	firstLesson := store.lessons[7]
	require.NoError(t, svc.RunOnce(context.Background()))

	assert.Len(t, store.courses, 2, "rows are overwritten, not appended")
	assert.Equal(t, 6, store.writes, "each pass rewrites every row")

	// Only the refresh timestamp moves between passes.
	secondCourse := store.courses[1]
	firstCourse.UpdatedAt, secondCourse.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, firstCourse, secondCourse)

	secondLesson := store.lessons[7]
	firstLesson.UpdatedAt, secondLesson.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, firstLesson, secondLesson)
}

func TestSnapshotRunOnceSkipsFailingEntity(t *testing.T) {
	funnels, courses, lessons, store := newSnapshotFixture()
	funnels.failCourseID = 1
	svc := NewSnapshotService(funnels, courses, lessons, store, nil, zap.NewNop(), time.Minute)

	require.NoError(t, svc.RunOnce(context.Background()))

	_, ok := store.courses[1]
	assert.False(t, ok, "failed entity keeps no fresh row")
	assert.Contains(t, store.courses, int64(2), "pass continues past the failure")
	assert.Contains(t, store.lessons, int64(7))
}

func TestSnapshotRunOnceSkipsWhenPassInFlight(t *testing.T) {
	funnels, courses, lessons, store := newSnapshotFixture()
	svc := NewSnapshotService(funnels, courses, lessons, store, nil, zap.NewNop(), time.Minute)

	svc.mu.Lock()
	svc.running = true
	svc.mu.Unlock()

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, store.writes, "overlapping pass must not touch the store")
	assert.Zero(t, funnels.courseCalls)
}
