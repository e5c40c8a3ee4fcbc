package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/academoscope/academoscope-api/internal/models"
)

// LessonRepository provides persistence for course lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// List returns every lesson joined with its course, ordered for display.
func (r *LessonRepository) List(ctx context.Context) ([]models.Lesson, error) {
	const query = `SELECT l.id, l.course_id, l.external_id, l.title, l.position
		FROM lessons l JOIN courses c ON c.id = l.course_id
		ORDER BY c.title, l.position NULLS LAST, l.id`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// ListByCourse returns a course's lessons in ordinal order.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Lesson, error) {
	const query = `SELECT id, course_id, external_id, title, position FROM lessons
		WHERE course_id = $1 ORDER BY position NULLS LAST, id`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons for course %d: %w", courseID, err)
	}
	return lessons, nil
}

// FindByID fetches a lesson by its surrogate key.
func (r *LessonRepository) FindByID(ctx context.Context, id int64) (*models.Lesson, error) {
	const query = `SELECT id, course_id, external_id, title, position FROM lessons WHERE id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// CountByCourse returns the number of lessons the course has.
func (r *LessonRepository) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM lessons WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count lessons for course %d: %w", courseID, err)
	}
	return count, nil
}

// GetOrCreate resolves a lesson within a course by external identifier,
// creating it lazily on first reference.
func (r *LessonRepository) GetOrCreate(ctx context.Context, courseID int64, externalID, title string) (*models.Lesson, error) {
	if title == "" {
		title = externalID
	}
	const query = `INSERT INTO lessons (course_id, external_id, title) VALUES ($1, $2, $3)
		ON CONFLICT (course_id, external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING id, course_id, external_id, title, position`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, courseID, externalID, title); err != nil {
		return nil, fmt.Errorf("get or create lesson %s: %w", externalID, err)
	}
	return &lesson, nil
}
