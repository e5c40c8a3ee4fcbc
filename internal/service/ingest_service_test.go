package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/academoscope/academoscope-api/internal/dto"
	"github.com/academoscope/academoscope-api/internal/models"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
)

type fakeCourseResolver struct {
	nextID int64
	byExt  map[string]*models.Course
}

func (f *fakeCourseResolver) GetOrCreate(_ context.Context, externalID, title string) (*models.Course, error) {
	if course, ok := f.byExt[externalID]; ok {
		return course, nil
	}
	if f.byExt == nil {
		f.byExt = make(map[string]*models.Course)
	}
	f.nextID++
	course := &models.Course{ID: f.nextID, ExternalID: externalID, Title: title}
	f.byExt[externalID] = course
	return course, nil
}

type fakeLessonResolver struct {
	nextID int64
	byKey  map[string]*models.Lesson
}

func (f *fakeLessonResolver) GetOrCreate(_ context.Context, courseID int64, externalID, title string) (*models.Lesson, error) {
	key := fmt.Sprintf("%d/%s", courseID, externalID)
	if lesson, ok := f.byKey[key]; ok {
		return lesson, nil
	}
	if f.byKey == nil {
		f.byKey = make(map[string]*models.Lesson)
	}
	f.nextID++
	lesson := &models.Lesson{ID: f.nextID, CourseID: courseID, ExternalID: externalID, Title: title}
	f.byKey[key] = lesson
	return lesson, nil
}

type fakeStudentResolver struct {
	nextID int64
	byExt  map[string]*models.Student
}

func (f *fakeStudentResolver) GetOrCreate(_ context.Context, externalID string, email *string) (*models.Student, error) {
	if student, ok := f.byExt[externalID]; ok {
		if email != nil {
			student.Email = email
		}
		return student, nil
	}
	if f.byExt == nil {
		f.byExt = make(map[string]*models.Student)
	}
	f.nextID++
	student := &models.Student{ID: f.nextID, ExternalID: externalID, Email: email}
	f.byExt[externalID] = student
	return student, nil
}

type fakeEventAppender struct {
	nextID int64
	events []models.Event
}

func (f *fakeEventAppender) Insert(_ context.Context, event *models.Event) error {
	f.nextID++
	event.ID = f.nextID
	f.events = append(f.events, *event)
	return nil
}

type ingestFixture struct {
	svc      *IngestService
	events   *fakeEventAppender
	cacheRaw *stubCacheRepo
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	events := &fakeEventAppender{}
	cacheRaw := &stubCacheRepo{store: map[string][]byte{"insights:summary:all": []byte(`{}`)}}
	cache := NewCacheService(cacheRaw, nil, time.Minute, zap.NewNop(), true)
	svc := NewIngestService(&fakeCourseResolver{}, &fakeLessonResolver{}, &fakeStudentResolver{}, events, cache, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC) }
	return &ingestFixture{svc: svc, events: events, cacheRaw: cacheRaw}
}

func TestIngestCreatesEntitiesAndEvent(t *testing.T) {
	fix := newIngestFixture(t)
	lessonExt := "l-1"
	email := "ada@example.com"
	at := time.Date(2025, 8, 30, 10, 30, 0, 0, time.FixedZone("MSK", 3*3600))

	event, err := fix.svc.Ingest(context.Background(), dto.IngestEventRequest{
		CourseExternalID:  "c-1",
		CourseTitle:       "Go basics",
		LessonExternalID:  &lessonExt,
		LessonTitle:       "Slices",
		StudentExternalID: "s-1",
		StudentEmail:      &email,
		EventType:         "lesson_completed",
		OccurredAt:        &at,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), event.ID)
	assert.Equal(t, models.EventLessonCompleted, event.EventType)
	require.NotNil(t, event.LessonID)
	assert.Equal(t, at.UTC(), event.OccurredAt, "timestamps stored in UTC")
}

func TestIngestRejectsUnknownEventType(t *testing.T) {
	fix := newIngestFixture(t)

	_, err := fix.svc.Ingest(context.Background(), dto.IngestEventRequest{
		CourseExternalID:  "c-1",
		StudentExternalID: "s-1",
		EventType:         "abandoned",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fix.events.events, "nothing stored for a rejected event")
}

func TestIngestDefaultsOccurredAt(t *testing.T) {
	fix := newIngestFixture(t)

	event, err := fix.svc.Ingest(context.Background(), dto.IngestEventRequest{
		CourseExternalID:  "c-1",
		StudentExternalID: "s-1",
		EventType:         "enrolled",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC), event.OccurredAt)
	assert.Nil(t, event.LessonID)
}

func TestIngestReusesExistingEntities(t *testing.T) {
	fix := newIngestFixture(t)

	first, err := fix.svc.Ingest(context.Background(), dto.IngestEventRequest{
		CourseExternalID:  "c-1",
		StudentExternalID: "s-1",
		EventType:         "enrolled",
	})
	require.NoError(t, err)
	second, err := fix.svc.Ingest(context.Background(), dto.IngestEventRequest{
		CourseExternalID:  "c-1",
		StudentExternalID: "s-1",
		EventType:         "lesson_started",
	})
	require.NoError(t, err)
	assert.Equal(t, first.CourseID, second.CourseID)
	assert.Equal(t, first.StudentID, second.StudentID)
}

func TestIngestInvalidatesInsightCache(t *testing.T) {
	fix := newIngestFixture(t)
	require.NotEmpty(t, fix.cacheRaw.store)

	_, err := fix.svc.Ingest(context.Background(), dto.IngestEventRequest{
		CourseExternalID:  "c-1",
		StudentExternalID: "s-1",
		EventType:         "enrolled",
	})
	require.NoError(t, err)
	assert.Empty(t, fix.cacheRaw.store)
}
