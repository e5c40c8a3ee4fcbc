package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/academoscope/academoscope-api/internal/models"
)

// CourseRepository provides persistence for the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns all courses ordered by title.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, external_id, title FROM courses ORDER BY title`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID fetches a course by its surrogate key.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, external_id, title FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// GetOrCreate resolves a course by external identifier, creating it lazily on
// first reference. An existing course keeps its title.
func (r *CourseRepository) GetOrCreate(ctx context.Context, externalID, title string) (*models.Course, error) {
	if title == "" {
		title = externalID
	}
	const query = `INSERT INTO courses (external_id, title) VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING id, external_id, title`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, externalID, title); err != nil {
		return nil, fmt.Errorf("get or create course %s: %w", externalID, err)
	}
	return &course, nil
}
