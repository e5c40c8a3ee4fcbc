package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/academoscope/academoscope-api/internal/models"
)

// FunnelCalculator is the read side the aggregator snapshots from.
type FunnelCalculator interface {
	CourseFunnel(ctx context.Context, courseID int64, since *time.Time) (models.CourseFunnel, error)
	LessonFunnel(ctx context.Context, lessonID int64, since *time.Time) (models.LessonFunnel, error)
}

// SnapshotStore persists materialized metrics rows.
type SnapshotStore interface {
	UpsertCourse(ctx context.Context, snap *models.CourseMetricsSnapshot) error
	UpsertLesson(ctx context.Context, snap *models.LessonMetricsSnapshot) error
}

// SnapshotService periodically recomputes all-time funnels for every course
// and lesson and overwrites the materialized rows. Passes never overlap:
// if a pass is still running when the ticker fires, the new tick is skipped.
type SnapshotService struct {
	funnels  FunnelCalculator
	courses  CourseCatalog
	lessons  LessonCatalog
	store    SnapshotStore
	metrics  *MetricsService
	logger   *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
}

// NewSnapshotService constructs the aggregator.
func NewSnapshotService(funnels FunnelCalculator, courses CourseCatalog, lessons LessonCatalog, store SnapshotStore, metrics *MetricsService, logger *zap.Logger, interval time.Duration) *SnapshotService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SnapshotService{
		funnels:  funnels,
		courses:  courses,
		lessons:  lessons,
		store:    store,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
	}
}

// Start runs an immediate pass and then one per interval until ctx is done.
// It blocks, so callers run it in its own goroutine.
func (s *SnapshotService) Start(ctx context.Context) {
	s.logger.Info("snapshot aggregator started", zap.Duration("interval", s.interval))

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("initial aggregation pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("snapshot aggregator stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("aggregation pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce executes a single aggregation pass. One entity failing to compute
// or persist is logged and skipped; its previous row stays untouched while
// the rest of the pass proceeds. Concurrent calls beyond the first return
// immediately without touching the store.
func (s *SnapshotService) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("aggregation pass skipped, previous pass still running")
		return nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	now := start.UTC()
	var failed int

	courses, err := s.courses.List(ctx)
	if err != nil {
		s.observe("error", time.Since(start))
		return err
	}
	for _, course := range courses {
		if err := s.snapshotCourse(ctx, course.ID, now); err != nil {
			failed++
			s.logger.Warn("course snapshot skipped",
				zap.Int64("course_id", course.ID),
				zap.Error(err))
		}
	}

	lessons, err := s.lessons.List(ctx)
	if err != nil {
		s.observe("error", time.Since(start))
		return err
	}
	for _, lesson := range lessons {
		if err := s.snapshotLesson(ctx, lesson.ID, now); err != nil {
			failed++
			s.logger.Warn("lesson snapshot skipped",
				zap.Int64("lesson_id", lesson.ID),
				zap.Error(err))
		}
	}

	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	s.observe(outcome, time.Since(start))
	s.logger.Info("aggregation pass finished",
		zap.Int("courses", len(courses)),
		zap.Int("lessons", len(lessons)),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (s *SnapshotService) snapshotCourse(ctx context.Context, courseID int64, now time.Time) error {
	funnel, err := s.funnels.CourseFunnel(ctx, courseID, nil)
	if err != nil {
		return err
	}
	return s.store.UpsertCourse(ctx, &models.CourseMetricsSnapshot{
		CourseID:       funnel.CourseID,
		TotalStudents:  funnel.TotalStudents,
		Completed:      funnel.Completed,
		CompletionRate: funnel.CompletionRate,
		UpdatedAt:      now,
	})
}

func (s *SnapshotService) snapshotLesson(ctx context.Context, lessonID int64, now time.Time) error {
	funnel, err := s.funnels.LessonFunnel(ctx, lessonID, nil)
	if err != nil {
		return err
	}
	return s.store.UpsertLesson(ctx, &models.LessonMetricsSnapshot{
		LessonID:    funnel.LessonID,
		Started:     funnel.Started,
		Completed:   funnel.Completed,
		DropOffRate: funnel.DropOffRate,
		UpdatedAt:   now,
	})
}

func (s *SnapshotService) observe(outcome string, took time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveAggregationPass(outcome, took)
	}
}
