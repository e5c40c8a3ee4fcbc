package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/academoscope/academoscope-api/internal/models"
)

// EventRepository provides append and aggregate access to the event log.
// Events are append-only: there is deliberately no update or delete here.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends one event and fills in its generated id.
func (r *EventRepository) Insert(ctx context.Context, event *models.Event) error {
	const query = `INSERT INTO events (course_id, student_id, lesson_id, event_type, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &event.ID, query,
		event.CourseID, event.StudentID, event.LessonID, event.EventType, event.OccurredAt, event.Payload); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CountDistinctByCourse counts distinct students with an event of the given
// kind for the course, optionally bounded below by since.
func (r *EventRepository) CountDistinctByCourse(ctx context.Context, courseID int64, kind models.EventType, since *time.Time) (int, error) {
	query := `SELECT COUNT(DISTINCT student_id) FROM events WHERE course_id = $1 AND event_type = $2`
	args := []interface{}{courseID, kind}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count distinct students for course %d: %w", courseID, err)
	}
	return count, nil
}

// CountDistinctByLesson counts distinct students with an event of the given
// kind for the lesson, optionally bounded below by since.
func (r *EventRepository) CountDistinctByLesson(ctx context.Context, lessonID int64, kind models.EventType, since *time.Time) (int, error) {
	query := `SELECT COUNT(DISTINCT student_id) FROM events WHERE lesson_id = $1 AND event_type = $2`
	args := []interface{}{lessonID, kind}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count distinct students for lesson %d: %w", lessonID, err)
	}
	return count, nil
}

// CountDistinctLessons counts distinct lessons of a course for which the
// student produced an event of the given kind.
func (r *EventRepository) CountDistinctLessons(ctx context.Context, studentID, courseID int64, kind models.EventType, since *time.Time) (int, error) {
	query := `SELECT COUNT(DISTINCT lesson_id) FROM events
		WHERE student_id = $1 AND course_id = $2 AND event_type = $3 AND lesson_id IS NOT NULL`
	args := []interface{}{studentID, courseID, kind}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count distinct lessons for student %d: %w", studentID, err)
	}
	return count, nil
}

// HasEvent reports whether the student has an event of the given kind for the
// course inside the window.
func (r *EventRepository) HasEvent(ctx context.Context, studentID, courseID int64, kind models.EventType, since *time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM events
		WHERE student_id = $1 AND course_id = $2 AND event_type = $3`
	args := []interface{}{studentID, courseID, kind}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	query += ")"
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check event for student %d: %w", studentID, err)
	}
	return exists, nil
}

// LastSeen returns the student's latest activity timestamp, scoped to one
// course when courseID is non-zero. Nil means no activity in the window.
func (r *EventRepository) LastSeen(ctx context.Context, studentID, courseID int64, since *time.Time) (*time.Time, error) {
	query := `SELECT MAX(occurred_at) FROM events WHERE student_id = $1`
	args := []interface{}{studentID}
	if courseID != 0 {
		args = append(args, courseID)
		query += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	var last *time.Time
	if err := r.db.GetContext(ctx, &last, query, args...); err != nil {
		return nil, fmt.Errorf("last seen for student %d: %w", studentID, err)
	}
	return last, nil
}

// FirstSeen returns the student's earliest activity timestamp in the window.
func (r *EventRepository) FirstSeen(ctx context.Context, studentID int64, since *time.Time) (*time.Time, error) {
	query := `SELECT MIN(occurred_at) FROM events WHERE student_id = $1`
	args := []interface{}{studentID}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	var first *time.Time
	if err := r.db.GetContext(ctx, &first, query, args...); err != nil {
		return nil, fmt.Errorf("first seen for student %d: %w", studentID, err)
	}
	return first, nil
}

// ActivityTimeline returns the student's per-day event counts in the window.
func (r *EventRepository) ActivityTimeline(ctx context.Context, studentID int64, since *time.Time) ([]models.ActivityPoint, error) {
	query := `SELECT occurred_at::date::text AS day, COUNT(*) AS events_count
		FROM events WHERE student_id = $1`
	args := []interface{}{studentID}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	query += " GROUP BY 1 ORDER BY 1"
	var points []models.ActivityPoint
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		return nil, fmt.Errorf("activity timeline for student %d: %w", studentID, err)
	}
	return points, nil
}

// CoursesVisited returns the courses in which the student has any event in
// the window, ordered by title.
func (r *EventRepository) CoursesVisited(ctx context.Context, studentID int64, since *time.Time) ([]models.Course, error) {
	query := `SELECT DISTINCT c.id, c.external_id, c.title FROM courses c
		JOIN events e ON e.course_id = c.id WHERE e.student_id = $1`
	args := []interface{}{studentID}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND e.occurred_at >= $%d", len(args))
	}
	query += " ORDER BY c.title"
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("courses visited by student %d: %w", studentID, err)
	}
	return courses, nil
}

// StudentActivity aggregates first/last activity and course counters for
// every student with at least one event in the window.
func (r *EventRepository) StudentActivity(ctx context.Context, since *time.Time) ([]models.StudentActivity, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT s.id AS student_id, s.external_id, s.email,
		MIN(e.occurred_at) AS first_seen_at, MAX(e.occurred_at) AS last_seen_at,
		COUNT(DISTINCT e.course_id) AS courses_count,
		COUNT(DISTINCT CASE WHEN e.event_type = 'course_completed' THEN e.course_id END) AS completed_courses
		FROM students s JOIN events e ON e.student_id = s.id`)
	var args []interface{}
	if since != nil {
		args = append(args, *since)
		builder.WriteString(fmt.Sprintf(" WHERE e.occurred_at >= $%d", len(args)))
	}
	builder.WriteString(" GROUP BY s.id, s.external_id, s.email ORDER BY s.id")

	var rows []models.StudentActivity
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("student activity: %w", err)
	}
	return rows, nil
}

// CountDistinctStudents counts unique students with any event in the window.
func (r *EventRepository) CountDistinctStudents(ctx context.Context, since *time.Time) (int, error) {
	query := `SELECT COUNT(DISTINCT student_id) FROM events`
	var args []interface{}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" WHERE occurred_at >= $%d", len(args))
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count distinct students: %w", err)
	}
	return count, nil
}

// ActiveCourseIDs returns ids of courses with any event in the window.
func (r *EventRepository) ActiveCourseIDs(ctx context.Context, since *time.Time) ([]int64, error) {
	query := `SELECT DISTINCT course_id FROM events`
	var args []interface{}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" WHERE occurred_at >= $%d", len(args))
	}
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("active course ids: %w", err)
	}
	return ids, nil
}
