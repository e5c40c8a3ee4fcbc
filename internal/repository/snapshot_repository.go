package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/academoscope/academoscope-api/internal/models"
)

// SnapshotRepository persists the materialized metrics rows owned by the
// snapshot aggregator. Each upsert is a single statement so one entity's
// failure cannot corrupt another's row.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// UpsertCourse writes the all-time metrics row for one course.
func (r *SnapshotRepository) UpsertCourse(ctx context.Context, snap *models.CourseMetricsSnapshot) error {
	const query = `INSERT INTO course_metrics (course_id, total_students, completed_students, completion_rate, updated_at)
		VALUES (:course_id, :total_students, :completed_students, :completion_rate, :updated_at)
		ON CONFLICT (course_id) DO UPDATE
		SET total_students = EXCLUDED.total_students,
		    completed_students = EXCLUDED.completed_students,
		    completion_rate = EXCLUDED.completion_rate,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, snap); err != nil {
		return fmt.Errorf("upsert course metrics %d: %w", snap.CourseID, err)
	}
	return nil
}

// UpsertLesson writes the all-time metrics row for one lesson.
func (r *SnapshotRepository) UpsertLesson(ctx context.Context, snap *models.LessonMetricsSnapshot) error {
	const query = `INSERT INTO lesson_metrics (lesson_id, started_students, completed_students, drop_off_rate, updated_at)
		VALUES (:lesson_id, :started_students, :completed_students, :drop_off_rate, :updated_at)
		ON CONFLICT (lesson_id) DO UPDATE
		SET started_students = EXCLUDED.started_students,
		    completed_students = EXCLUDED.completed_students,
		    drop_off_rate = EXCLUDED.drop_off_rate,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, snap); err != nil {
		return fmt.Errorf("upsert lesson metrics %d: %w", snap.LessonID, err)
	}
	return nil
}

// GetCourse fetches the snapshot row for one course.
func (r *SnapshotRepository) GetCourse(ctx context.Context, courseID int64) (*models.CourseMetricsSnapshot, error) {
	const query = `SELECT course_id, total_students, completed_students, completion_rate, updated_at
		FROM course_metrics WHERE course_id = $1`
	var snap models.CourseMetricsSnapshot
	if err := r.db.GetContext(ctx, &snap, query, courseID); err != nil {
		return nil, err
	}
	return &snap, nil
}
