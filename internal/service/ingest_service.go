package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/academoscope/academoscope-api/internal/dto"
	"github.com/academoscope/academoscope-api/internal/models"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
)

// CourseResolver lazily resolves catalog rows by external identifier.
type CourseResolver interface {
	GetOrCreate(ctx context.Context, externalID, title string) (*models.Course, error)
}

// LessonResolver lazily resolves lessons by (course, external id).
type LessonResolver interface {
	GetOrCreate(ctx context.Context, courseID int64, externalID, title string) (*models.Lesson, error)
}

// StudentResolver lazily resolves students, applying last-write-wins email.
type StudentResolver interface {
	GetOrCreate(ctx context.Context, externalID string, email *string) (*models.Student, error)
}

// EventAppender appends immutable event rows.
type EventAppender interface {
	Insert(ctx context.Context, event *models.Event) error
}

// IngestService is the thin validate-and-store adapter in front of the event
// log. It resolves or creates referenced entities so every stored event has
// referential integrity; it performs no aggregation.
type IngestService struct {
	courses  CourseResolver
	lessons  LessonResolver
	students StudentResolver
	events   EventAppender
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
}

// NewIngestService constructs the ingestion adapter.
func NewIngestService(courses CourseResolver, lessons LessonResolver, students StudentResolver, events EventAppender, cache *CacheService, logger *zap.Logger) *IngestService {
	return &IngestService{
		courses:  courses,
		lessons:  lessons,
		students: students,
		events:   events,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Ingest validates the event kind, resolves entities by external id and
// appends one event. occurred_at defaults to ingestion time when absent.
func (s *IngestService) Ingest(ctx context.Context, req dto.IngestEventRequest) (*models.Event, error) {
	kind, err := models.ParseEventType(req.EventType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event type")
	}

	course, err := s.courses.GetOrCreate(ctx, req.CourseExternalID, req.CourseTitle)
	if err != nil {
		return nil, err
	}

	var lessonID *int64
	if req.LessonExternalID != nil && *req.LessonExternalID != "" {
		lesson, err := s.lessons.GetOrCreate(ctx, course.ID, *req.LessonExternalID, req.LessonTitle)
		if err != nil {
			return nil, err
		}
		lessonID = &lesson.ID
	}

	student, err := s.students.GetOrCreate(ctx, req.StudentExternalID, req.StudentEmail)
	if err != nil {
		return nil, err
	}

	occurredAt := s.now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	event := &models.Event{
		CourseID:   course.ID,
		StudentID:  student.ID,
		LessonID:   lessonID,
		EventType:  kind,
		OccurredAt: occurredAt,
		Payload:    req.Payload,
	}
	if err := s.events.Insert(ctx, event); err != nil {
		return nil, err
	}

	// Windowed views are cached; a fresh event makes them stale immediately.
	if err := s.cache.Invalidate(ctx, "insights:*"); err != nil {
		s.logger.Warn("cache invalidation failed after ingest", zap.Error(err))
	}

	s.logger.Debug("event ingested",
		zap.Int64("event_id", event.ID),
		zap.Int64("course_id", course.ID),
		zap.Int64("student_id", student.ID),
		zap.String("event_type", string(kind)))
	return event, nil
}
