package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/academoscope/academoscope-api/internal/models"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
)

const problemRateThreshold = 50

// InsightEventStore is the aggregate read surface of the event log used by
// interactive queries.
type InsightEventStore interface {
	CountDistinctByCourse(ctx context.Context, courseID int64, kind models.EventType, since *time.Time) (int, error)
	CountDistinctByLesson(ctx context.Context, lessonID int64, kind models.EventType, since *time.Time) (int, error)
	CountDistinctLessons(ctx context.Context, studentID, courseID int64, kind models.EventType, since *time.Time) (int, error)
	HasEvent(ctx context.Context, studentID, courseID int64, kind models.EventType, since *time.Time) (bool, error)
	LastSeen(ctx context.Context, studentID, courseID int64, since *time.Time) (*time.Time, error)
	FirstSeen(ctx context.Context, studentID int64, since *time.Time) (*time.Time, error)
	ActivityTimeline(ctx context.Context, studentID int64, since *time.Time) ([]models.ActivityPoint, error)
	CoursesVisited(ctx context.Context, studentID int64, since *time.Time) ([]models.Course, error)
	StudentActivity(ctx context.Context, since *time.Time) ([]models.StudentActivity, error)
	CountDistinctStudents(ctx context.Context, since *time.Time) (int, error)
	ActiveCourseIDs(ctx context.Context, since *time.Time) ([]int64, error)
}

// StudentFinder resolves stored students.
type StudentFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

// SnapshotReader exposes the materialized all-time rows the aggregator writes.
type SnapshotReader interface {
	GetCourse(ctx context.Context, courseID int64) (*models.CourseMetricsSnapshot, error)
}

// InsightService answers interactive windowed queries straight from the
// event log, so views reflect events ingested moments ago. The materialized
// snapshot is only attached to course detail as a freshness reference.
type InsightService struct {
	courses   CourseCatalog
	lessons   LessonCatalog
	students  StudentFinder
	events    InsightEventStore
	snapshots SnapshotReader
	status    *StatusService
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
}

// NewInsightService constructs the windowed query service.
func NewInsightService(courses CourseCatalog, lessons LessonCatalog, students StudentFinder, events InsightEventStore, snapshots SnapshotReader, status *StatusService, cache *CacheService, logger *zap.Logger) *InsightService {
	return &InsightService{
		courses:   courses,
		lessons:   lessons,
		students:  students,
		events:    events,
		snapshots: snapshots,
		status:    status,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// CourseOverview returns the windowed funnel for every course, flagging
// problem courses (completion below 50 with enrollment) and courses with no
// recent activity.
func (s *InsightService) CourseOverview(ctx context.Context, window Window) ([]models.CourseOverviewItem, bool, error) {
	key := fmt.Sprintf("insights:overview:%s", window.Label)
	var cached []models.CourseOverviewItem
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, false, err
	}
	active, err := s.activeCourseSet(ctx)
	if err != nil {
		return nil, false, err
	}

	items := make([]models.CourseOverviewItem, 0, len(courses))
	for _, course := range courses {
		item, err := s.courseItem(ctx, course, window.Since, active)
		if err != nil {
			return nil, false, err
		}
		items = append(items, item)
	}

	_ = s.cache.Set(ctx, key, items, 0)
	return items, false, nil
}

// CourseDetail returns one course's windowed funnel with its per-lesson
// drop-off breakdown in syllabus order.
func (s *InsightService) CourseDetail(ctx context.Context, courseID int64, window Window) (*models.CourseDetail, bool, error) {
	key := fmt.Sprintf("insights:course:%d:%s", courseID, window.Label)
	var cached models.CourseDetail
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, false, err
	}

	funnel, err := s.courseFunnel(ctx, courseID, window.Since)
	if err != nil {
		return nil, false, err
	}

	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, false, err
	}
	rows := make([]models.LessonDropOffItem, 0, len(lessons))
	for _, lesson := range lessons {
		row, err := s.lessonItem(ctx, lesson, course.Title, window.Since)
		if err != nil {
			return nil, false, err
		}
		rows = append(rows, row)
	}

	detail := &models.CourseDetail{Course: *course, Funnel: funnel, Lessons: rows}
	if snap, err := s.snapshots.GetCourse(ctx, courseID); err == nil {
		detail.Snapshot = snap
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("course snapshot read failed",
			zap.Int64("course_id", courseID), zap.Error(err))
	}
	_ = s.cache.Set(ctx, key, detail, 0)
	return detail, false, nil
}

// StudentProgress computes a student's progress in one course. A
// course_completed event is authoritative: it forces 100 regardless of how
// many lesson completions the window contains.
func (s *InsightService) StudentProgress(ctx context.Context, studentID, courseID int64, window Window) (*models.StudentCourseProgress, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, err
	}

	total, err := s.lessons.CountByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	completed, err := s.events.CountDistinctLessons(ctx, studentID, courseID, models.EventLessonCompleted, window.Since)
	if err != nil {
		return nil, err
	}
	started, err := s.events.CountDistinctLessons(ctx, studentID, courseID, models.EventLessonStarted, window.Since)
	if err != nil {
		return nil, err
	}
	finished, err := s.events.HasEvent(ctx, studentID, courseID, models.EventCourseCompleted, window.Since)
	if err != nil {
		return nil, err
	}
	lastVisit, err := s.events.LastSeen(ctx, studentID, courseID, window.Since)
	if err != nil {
		return nil, err
	}

	progress := models.Rate(completed, total)
	if finished {
		progress = 100
	}

	return &models.StudentCourseProgress{
		CourseID:         courseID,
		CourseTitle:      course.Title,
		Progress:         progress,
		TotalLessons:     total,
		CompletedLessons: completed,
		StartedLessons:   started,
		LastVisit:        lastVisit,
	}, nil
}

// StudentDetail assembles the full per-student view: status, overall
// progress, per-course breakdown and the daily activity timeline.
func (s *InsightService) StudentDetail(ctx context.Context, studentID int64, window Window) (*models.StudentDetail, bool, error) {
	key := fmt.Sprintf("insights:student:%d:%s", studentID, window.Label)
	var cached models.StudentDetail
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, false, err
	}

	firstSeen, err := s.events.FirstSeen(ctx, studentID, window.Since)
	if err != nil {
		return nil, false, err
	}
	lastSeen, err := s.events.LastSeen(ctx, studentID, 0, window.Since)
	if err != nil {
		return nil, false, err
	}

	visited, err := s.events.CoursesVisited(ctx, studentID, window.Since)
	if err != nil {
		return nil, false, err
	}
	courses := make([]models.StudentCourseProgress, 0, len(visited))
	var progressSum int
	for _, course := range visited {
		progress, err := s.StudentProgress(ctx, studentID, course.ID, window)
		if err != nil {
			return nil, false, err
		}
		courses = append(courses, *progress)
		progressSum += progress.Progress
	}
	overall := 0
	if len(courses) > 0 {
		overall = progressSum / len(courses)
	}

	timeline, err := s.events.ActivityTimeline(ctx, studentID, window.Since)
	if err != nil {
		return nil, false, err
	}

	detail := &models.StudentDetail{
		Student:         *student,
		Status:          s.status.Classify(lastSeen, s.now()),
		OverallProgress: overall,
		FirstSeenAt:     firstSeen,
		LastSeenAt:      lastSeen,
		Courses:         courses,
		Timeline:        timeline,
	}
	_ = s.cache.Set(ctx, key, detail, 0)
	return detail, false, nil
}

// StudentList returns every student with activity in the window, labelled
// with status and the completed-to-visited course ratio.
func (s *InsightService) StudentList(ctx context.Context, window Window) ([]models.StudentListItem, bool, error) {
	key := fmt.Sprintf("insights:students:%s", window.Label)
	var cached []models.StudentListItem
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	rows, err := s.events.StudentActivity(ctx, window.Since)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	items := make([]models.StudentListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.StudentListItem{
			StudentID:       row.StudentID,
			ExternalID:      row.ExternalID,
			Email:           row.Email,
			Status:          s.status.Classify(row.LastSeenAt, now),
			CoursesCount:    row.CoursesCount,
			OverallProgress: models.Rate(row.CompletedCourses, row.CoursesCount),
			FirstSeenAt:     row.FirstSeenAt,
			LastSeenAt:      row.LastSeenAt,
		})
	}

	_ = s.cache.Set(ctx, key, items, 0)
	return items, false, nil
}

// Summary assembles the platform dashboard: totals, completion distribution,
// course flags, lesson extremes and the risk-student shortlist.
func (s *InsightService) Summary(ctx context.Context, window Window) (*models.PlatformSummary, bool, error) {
	key := fmt.Sprintf("insights:summary:%s", window.Label)
	var cached models.PlatformSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	overview, _, err := s.CourseOverview(ctx, window)
	if err != nil {
		return nil, false, err
	}

	summary := &models.PlatformSummary{
		CoursesCount: len(overview),
		Courses:      overview,
	}
	for _, item := range overview {
		summary.TotalStudents += item.TotalStudents
		summary.CompletedStudents += item.Completed
		if item.Problem {
			summary.ProblemCourses++
		}
		if item.Inactive {
			summary.InactiveCourses++
		}
		switch {
		case item.CompletionRate < 25:
			summary.Distribution.UpTo25++
		case item.CompletionRate < 50:
			summary.Distribution.UpTo50++
		case item.CompletionRate < 75:
			summary.Distribution.UpTo75++
		default:
			summary.Distribution.UpTo100++
		}
	}
	summary.NotCompletedStudents = summary.TotalStudents - summary.CompletedStudents
	summary.OverallCompletionRate = models.Rate(summary.CompletedStudents, summary.TotalStudents)

	if summary.UniqueStudents, err = s.events.CountDistinctStudents(ctx, window.Since); err != nil {
		return nil, false, err
	}
	activeSince := s.now().AddDate(0, 0, -s.status.InactiveWithinDays())
	if summary.ActiveStudents30d, err = s.events.CountDistinctStudents(ctx, &activeSince); err != nil {
		return nil, false, err
	}

	if summary.RiskStudents, err = s.riskShortlist(ctx, window.Since); err != nil {
		return nil, false, err
	}
	if summary.DifficultLessons, summary.PopularLessons, err = s.lessonExtremes(ctx, window.Since); err != nil {
		return nil, false, err
	}

	_ = s.cache.Set(ctx, key, summary, 0)
	return summary, false, nil
}

// courseFunnel mirrors the funnel calculator without the existence check;
// callers here have already resolved the course.
func (s *InsightService) courseFunnel(ctx context.Context, courseID int64, since *time.Time) (models.CourseFunnel, error) {
	enrolled, err := s.events.CountDistinctByCourse(ctx, courseID, models.EventEnrolled, since)
	if err != nil {
		return models.CourseFunnel{}, err
	}
	completed, err := s.events.CountDistinctByCourse(ctx, courseID, models.EventCourseCompleted, since)
	if err != nil {
		return models.CourseFunnel{}, err
	}
	return models.CourseFunnel{
		CourseID:       courseID,
		TotalStudents:  enrolled,
		Completed:      completed,
		CompletionRate: models.Rate(completed, enrolled),
	}, nil
}

func (s *InsightService) courseItem(ctx context.Context, course models.Course, since *time.Time, active map[int64]struct{}) (models.CourseOverviewItem, error) {
	funnel, err := s.courseFunnel(ctx, course.ID, since)
	if err != nil {
		return models.CourseOverviewItem{}, err
	}
	_, isActive := active[course.ID]
	return models.CourseOverviewItem{
		CourseID:       course.ID,
		Title:          course.Title,
		TotalStudents:  funnel.TotalStudents,
		Completed:      funnel.Completed,
		CompletionRate: funnel.CompletionRate,
		Problem:        funnel.CompletionRate < problemRateThreshold,
		Inactive:       !isActive,
	}, nil
}

func (s *InsightService) lessonItem(ctx context.Context, lesson models.Lesson, courseTitle string, since *time.Time) (models.LessonDropOffItem, error) {
	started, err := s.events.CountDistinctByLesson(ctx, lesson.ID, models.EventLessonStarted, since)
	if err != nil {
		return models.LessonDropOffItem{}, err
	}
	completed, err := s.events.CountDistinctByLesson(ctx, lesson.ID, models.EventLessonCompleted, since)
	if err != nil {
		return models.LessonDropOffItem{}, err
	}
	return models.LessonDropOffItem{
		LessonID:    lesson.ID,
		CourseID:    lesson.CourseID,
		Title:       lesson.Title,
		CourseTitle: courseTitle,
		Started:     started,
		Completed:   completed,
		DropOffRate: dropOffRate(started, completed),
	}, nil
}

// activeCourseSet marks courses with any event inside the inactivity
// horizon, shared with the student classifier thresholds.
func (s *InsightService) activeCourseSet(ctx context.Context) (map[int64]struct{}, error) {
	since := s.now().AddDate(0, 0, -s.status.InactiveWithinDays())
	ids, err := s.events.ActiveCourseIDs(ctx, &since)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// riskShortlist picks the five longest-inactive risk students.
func (s *InsightService) riskShortlist(ctx context.Context, since *time.Time) ([]models.RiskStudent, error) {
	rows, err := s.events.StudentActivity(ctx, since)
	if err != nil {
		return nil, err
	}
	now := s.now()
	risks := make([]models.RiskStudent, 0)
	for _, row := range rows {
		status := s.status.Classify(row.LastSeenAt, now)
		if status != models.StatusRisk {
			continue
		}
		risks = append(risks, models.RiskStudent{
			StudentID:    row.StudentID,
			DisplayName:  row.ExternalID,
			Email:        row.Email,
			LastSeenAt:   row.LastSeenAt,
			DaysInactive: s.status.DaysInactive(*row.LastSeenAt, now),
			Status:       status,
		})
	}
	sort.Slice(risks, func(i, j int) bool { return risks[i].DaysInactive > risks[j].DaysInactive })
	if len(risks) > 5 {
		risks = risks[:5]
	}
	return risks, nil
}

// lessonExtremes ranks every lesson by drop-off and by reach and keeps the
// top five of each. Lessons nobody started are excluded from the difficult
// list; a zero start count has no drop-off to speak of.
func (s *InsightService) lessonExtremes(ctx context.Context, since *time.Time) (difficult, popular []models.LessonDropOffItem, err error) {
	lessons, err := s.lessons.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	titles := make(map[int64]string, len(courses))
	for _, course := range courses {
		titles[course.ID] = course.Title
	}

	all := make([]models.LessonDropOffItem, 0, len(lessons))
	for _, lesson := range lessons {
		item, err := s.lessonItem(ctx, lesson, titles[lesson.CourseID], since)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, item)
	}

	difficult = make([]models.LessonDropOffItem, 0, len(all))
	for _, item := range all {
		if item.Started > 0 {
			difficult = append(difficult, item)
		}
	}
	sort.SliceStable(difficult, func(i, j int) bool { return difficult[i].DropOffRate > difficult[j].DropOffRate })
	if len(difficult) > 5 {
		difficult = difficult[:5]
	}

	popular = make([]models.LessonDropOffItem, len(all))
	copy(popular, all)
	sort.SliceStable(popular, func(i, j int) bool { return popular[i].Started > popular[j].Started })
	if len(popular) > 5 {
		popular = popular[:5]
	}
	return difficult, popular, nil
}
