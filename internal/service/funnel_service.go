package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/academoscope/academoscope-api/internal/models"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
)

// CourseCatalog describes the catalog lookups required by the funnel calculator.
type CourseCatalog interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
}

// LessonCatalog describes the lesson lookups required by the funnel calculator.
type LessonCatalog interface {
	FindByID(ctx context.Context, id int64) (*models.Lesson, error)
	List(ctx context.Context) ([]models.Lesson, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Lesson, error)
	CountByCourse(ctx context.Context, courseID int64) (int, error)
}

// EventCounter describes the distinct-count reads the calculator performs.
type EventCounter interface {
	CountDistinctByCourse(ctx context.Context, courseID int64, kind models.EventType, since *time.Time) (int, error)
	CountDistinctByLesson(ctx context.Context, lessonID int64, kind models.EventType, since *time.Time) (int, error)
}

// FunnelService computes enrollment and completion funnels straight from the
// event log. It has no side effects and is safe for concurrent use: a result
// is a pure function of event store content within the window.
type FunnelService struct {
	courses CourseCatalog
	lessons LessonCatalog
	events  EventCounter
	metrics *MetricsService
}

// NewFunnelService constructs a funnel calculator.
func NewFunnelService(courses CourseCatalog, lessons LessonCatalog, events EventCounter, metrics *MetricsService) *FunnelService {
	return &FunnelService{courses: courses, lessons: lessons, events: events, metrics: metrics}
}

// CourseFunnel counts distinct enrolled and completed students for one
// course. A nil since means all-time; a future since yields zero counts.
// An unknown course id returns a typed not-found, never zeroed metrics.
func (s *FunnelService) CourseFunnel(ctx context.Context, courseID int64, since *time.Time) (models.CourseFunnel, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CourseFunnel{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return models.CourseFunnel{}, err
	}

	start := time.Now()
	enrolled, err := s.events.CountDistinctByCourse(ctx, courseID, models.EventEnrolled, since)
	if err != nil {
		return models.CourseFunnel{}, err
	}
	completed, err := s.events.CountDistinctByCourse(ctx, courseID, models.EventCourseCompleted, since)
	if err != nil {
		return models.CourseFunnel{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("course_funnel", time.Since(start))
	}

	return models.CourseFunnel{
		CourseID:       courseID,
		TotalStudents:  enrolled,
		Completed:      completed,
		CompletionRate: models.Rate(completed, enrolled),
	}, nil
}

// LessonFunnel counts distinct started and completed students for one lesson
// and derives the drop-off rate.
func (s *FunnelService) LessonFunnel(ctx context.Context, lessonID int64, since *time.Time) (models.LessonFunnel, error) {
	if _, err := s.lessons.FindByID(ctx, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LessonFunnel{}, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return models.LessonFunnel{}, err
	}

	start := time.Now()
	started, err := s.events.CountDistinctByLesson(ctx, lessonID, models.EventLessonStarted, since)
	if err != nil {
		return models.LessonFunnel{}, err
	}
	completed, err := s.events.CountDistinctByLesson(ctx, lessonID, models.EventLessonCompleted, since)
	if err != nil {
		return models.LessonFunnel{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("lesson_funnel", time.Since(start))
	}

	return models.LessonFunnel{
		LessonID:    lessonID,
		Started:     started,
		Completed:   completed,
		DropOffRate: dropOffRate(started, completed),
	}, nil
}

// dropOffRate is the share of students who started but did not complete.
// Started can be zero while completed is not (events predating the window);
// that is a valid zero, not an error.
func dropOffRate(started, completed int) int {
	if started <= 0 {
		return 0
	}
	return models.Rate(started-completed, started)
}
