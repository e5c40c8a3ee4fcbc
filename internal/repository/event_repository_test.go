package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academoscope/academoscope-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEventRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	occurredAt := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO events").
		WithArgs(int64(1), int64(2), nil, models.EventLessonCompleted, occurredAt, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	event := &models.Event{CourseID: 1, StudentID: 2, EventType: models.EventLessonCompleted, OccurredAt: occurredAt}
	err := repo.Insert(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, int64(42), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCountDistinctByCourseAllTime(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT student_id) FROM events WHERE course_id = $1 AND event_type = $2")).
		WithArgs(int64(7), models.EventEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))

	count, err := repo.CountDistinctByCourse(context.Background(), 7, models.EventEnrolled, nil)
	require.NoError(t, err)
	assert.Equal(t, 15, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCountDistinctByCourseWindowed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	since := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT student_id) FROM events WHERE course_id = $1 AND event_type = $2 AND occurred_at >= $3")).
		WithArgs(int64(7), models.EventCourseCompleted, since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountDistinctByCourse(context.Background(), 7, models.EventCourseCompleted, &since)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryLastSeenScopedToCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	seen := time.Date(2025, 8, 30, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(occurred_at) FROM events WHERE student_id = $1 AND course_id = $2")).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(seen))

	last, err := repo.LastSeen(context.Background(), 5, 7, nil)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, seen, *last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryLastSeenNoActivity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(occurred_at) FROM events WHERE student_id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	last, err := repo.LastSeen(context.Background(), 5, 0, nil)
	require.NoError(t, err)
	assert.Nil(t, last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryStudentActivity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	first := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	last := time.Date(2025, 8, 29, 18, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "external_id", "email", "first_seen_at", "last_seen_at", "courses_count", "completed_courses"}).
		AddRow(int64(5), "s-5", "ada@example.com", first, last, 2, 1)
	mock.ExpectQuery("FROM students s JOIN events e ON e.student_id = s.id").
		WillReturnRows(rows)

	activity, err := repo.StudentActivity(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, int64(5), activity[0].StudentID)
	assert.Equal(t, 2, activity[0].CoursesCount)
	assert.Equal(t, 1, activity[0].CompletedCourses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryActiveCourseIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	since := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT course_id FROM events WHERE occurred_at >= $1")).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow(1).AddRow(3))

	ids, err := repo.ActiveCourseIDs(context.Background(), &since)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
