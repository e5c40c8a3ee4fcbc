package models

import "time"

// CourseFunnel is the enrolled→completed counting result for one course.
type CourseFunnel struct {
	CourseID       int64 `json:"course_id"`
	TotalStudents  int   `json:"total_students"`
	Completed      int   `json:"completed_students"`
	CompletionRate int   `json:"completion_rate"`
}

// LessonFunnel is the started→completed counting result for one lesson.
type LessonFunnel struct {
	LessonID    int64 `json:"lesson_id"`
	Started     int   `json:"started_students"`
	Completed   int   `json:"completed_students"`
	DropOffRate int   `json:"drop_off_rate"`
}

// CourseMetricsSnapshot is the materialized all-time funnel row per course.
// Produced and overwritten only by the snapshot aggregator.
type CourseMetricsSnapshot struct {
	CourseID       int64     `db:"course_id" json:"course_id"`
	TotalStudents  int       `db:"total_students" json:"total_students"`
	Completed      int       `db:"completed_students" json:"completed_students"`
	CompletionRate int       `db:"completion_rate" json:"completion_rate"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// LessonMetricsSnapshot is the materialized all-time funnel row per lesson.
type LessonMetricsSnapshot struct {
	LessonID    int64     `db:"lesson_id" json:"lesson_id"`
	Started     int       `db:"started_students" json:"started_students"`
	Completed   int       `db:"completed_students" json:"completed_students"`
	DropOffRate int       `db:"drop_off_rate" json:"drop_off_rate"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Rate computes floor(numerator/denominator*100), or 0 when the denominator
// is zero. Every percentage in the engine derives from this helper so that
// rates can never disagree with their count pair.
func Rate(numerator, denominator int) int {
	if denominator <= 0 {
		return 0
	}
	return numerator * 100 / denominator
}

// CourseOverviewItem is a windowed course funnel enriched for list views.
type CourseOverviewItem struct {
	CourseID       int64  `json:"course_id"`
	Title          string `json:"title"`
	TotalStudents  int    `json:"total_students"`
	Completed      int    `json:"completed_students"`
	CompletionRate int    `json:"completion_rate"`
	Problem        bool   `json:"problem_course"`
	Inactive       bool   `json:"inactive"`
}

// LessonDropOffItem is a windowed lesson funnel enriched for detail views.
type LessonDropOffItem struct {
	LessonID    int64  `json:"lesson_id"`
	CourseID    int64  `json:"course_id"`
	Title       string `json:"title"`
	CourseTitle string `json:"course_title,omitempty"`
	Started     int    `json:"started_students"`
	Completed   int    `json:"completed_students"`
	DropOffRate int    `json:"drop_off_rate"`
}

// CourseDetail combines a course funnel with its per-lesson breakdown. The
// snapshot is the latest materialized all-time row, absent until the
// aggregator's first pass over the course.
type CourseDetail struct {
	Course   Course                 `json:"course"`
	Funnel   CourseFunnel           `json:"metrics"`
	Lessons  []LessonDropOffItem    `json:"lessons"`
	Snapshot *CourseMetricsSnapshot `json:"snapshot,omitempty"`
}

// ProgressDistribution buckets courses by windowed completion rate.
type ProgressDistribution struct {
	UpTo25   int `json:"0_25"`
	UpTo50   int `json:"25_50"`
	UpTo75   int `json:"50_75"`
	UpTo100  int `json:"75_100"`
}

// PlatformSummary is the dashboard headline block.
type PlatformSummary struct {
	CoursesCount          int                  `json:"courses_count"`
	TotalStudents         int                  `json:"total_students"`
	CompletedStudents     int                  `json:"completed_students"`
	NotCompletedStudents  int                  `json:"not_completed_students"`
	OverallCompletionRate int                  `json:"overall_completion_rate"`
	UniqueStudents        int                  `json:"unique_students"`
	ActiveStudents30d     int                  `json:"active_students_30d"`
	ProblemCourses        int                  `json:"problem_courses_count"`
	InactiveCourses       int                  `json:"inactive_courses_count"`
	RiskStudents          []RiskStudent        `json:"risk_students"`
	Courses               []CourseOverviewItem `json:"courses"`
	DifficultLessons      []LessonDropOffItem  `json:"difficult_lessons"`
	PopularLessons        []LessonDropOffItem  `json:"popular_lessons"`
	Distribution          ProgressDistribution `json:"progress_distribution"`
}
