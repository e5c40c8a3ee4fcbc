package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/academoscope/academoscope-api/internal/models"
)

// StudentRepository provides persistence for the student catalog.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student by its surrogate key.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	const query = `SELECT id, external_id, email FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// GetOrCreate resolves a student by external identifier, creating it lazily.
// A non-nil email overwrites the stored one (last-write-wins on
// re-identification); a nil email leaves it untouched.
func (r *StudentRepository) GetOrCreate(ctx context.Context, externalID string, email *string) (*models.Student, error) {
	const query = `INSERT INTO students (external_id, email) VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET email = COALESCE(EXCLUDED.email, students.email)
		RETURNING id, external_id, email`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, externalID, email); err != nil {
		return nil, fmt.Errorf("get or create student %s: %w", externalID, err)
	}
	return &student, nil
}
