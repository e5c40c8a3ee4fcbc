package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academoscope/academoscope-api/internal/models"
)

// ScheduleRepository provides persistence for teaching slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns slots inside [filter.Start, filter.End) joined with display
// titles, ordered by start time.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleRow, error) {
	query := `SELECT ts.id, ts.teacher_id, ts.course_id, ts.lesson_id, ts.start_at, ts.end_at,
		ts.group_name, ts.location, ts.created_at, ts.updated_at,
		c.title AS course_title, l.title AS lesson_title, t.name AS teacher_name
		FROM teaching_slots ts
		LEFT JOIN courses c ON c.id = ts.course_id
		LEFT JOIN lessons l ON l.id = ts.lesson_id
		LEFT JOIN teachers t ON t.id = ts.teacher_id
		WHERE ts.start_at >= $1 AND ts.start_at < $2`
	args := []interface{}{filter.Start, filter.End}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		query += fmt.Sprintf(" AND ts.teacher_id = $%d", len(args))
	}
	if filter.CourseID != 0 {
		args = append(args, filter.CourseID)
		query += fmt.Sprintf(" AND ts.course_id = $%d", len(args))
	}
	query += " ORDER BY ts.start_at ASC"

	var rows []models.ScheduleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teaching slots: %w", err)
	}
	return rows, nil
}

// FindByID fetches one slot.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.TeachingSlot, error) {
	const query = `SELECT id, teacher_id, course_id, lesson_id, start_at, end_at, group_name, location, created_at, updated_at
		FROM teaching_slots WHERE id = $1`
	var slot models.TeachingSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create inserts a new slot, generating its id when absent.
func (r *ScheduleRepository) Create(ctx context.Context, slot *models.TeachingSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	const query = `INSERT INTO teaching_slots (id, teacher_id, course_id, lesson_id, start_at, end_at, group_name, location, created_at, updated_at)
		VALUES (:id, :teacher_id, :course_id, :lesson_id, :start_at, :end_at, :group_name, :location, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create teaching slot: %w", err)
	}
	return nil
}

// Update overwrites an existing slot's booking fields.
func (r *ScheduleRepository) Update(ctx context.Context, slot *models.TeachingSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teaching_slots
		SET teacher_id = :teacher_id, course_id = :course_id, lesson_id = :lesson_id,
		    start_at = :start_at, end_at = :end_at, group_name = :group_name,
		    location = :location, updated_at = :updated_at
		WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, slot)
	if err != nil {
		return fmt.Errorf("update teaching slot %s: %w", slot.ID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a slot.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teaching_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete teaching slot %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
