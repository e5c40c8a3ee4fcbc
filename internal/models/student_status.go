package models

import "time"

// StudentStatus is the lifecycle label derived from last activity.
// It is recomputed on every read, never persisted.
type StudentStatus string

const (
	StatusNoData   StudentStatus = "no_data"
	StatusActive   StudentStatus = "active"
	StatusInactive StudentStatus = "inactive"
	StatusRisk     StudentStatus = "risk"
)

// RiskStudent is a shortlist entry for students classified as risk.
type RiskStudent struct {
	StudentID    int64         `json:"student_id"`
	DisplayName  string        `json:"display_name"`
	Email        *string       `json:"email,omitempty"`
	LastSeenAt   *time.Time    `json:"last_seen_at,omitempty"`
	DaysInactive int           `json:"days_since_last_visit"`
	Status       StudentStatus `json:"status"`
}

// StudentActivity is the raw per-student aggregate read from the event log.
type StudentActivity struct {
	StudentID        int64      `db:"student_id"`
	ExternalID       string     `db:"external_id"`
	Email            *string    `db:"email"`
	FirstSeenAt      *time.Time `db:"first_seen_at"`
	LastSeenAt       *time.Time `db:"last_seen_at"`
	CoursesCount     int        `db:"courses_count"`
	CompletedCourses int        `db:"completed_courses"`
}

// StudentListItem summarises one student for list views.
type StudentListItem struct {
	StudentID       int64         `json:"student_id"`
	ExternalID      string        `json:"external_id"`
	Email           *string       `json:"email,omitempty"`
	Status          StudentStatus `json:"status"`
	CoursesCount    int           `json:"courses_count"`
	OverallProgress int           `json:"overall_progress"`
	FirstSeenAt     *time.Time    `json:"first_seen_at,omitempty"`
	LastSeenAt      *time.Time    `json:"last_seen_at,omitempty"`
}

// StudentCourseProgress carries the windowed progress of a student in one course.
type StudentCourseProgress struct {
	CourseID         int64      `json:"course_id"`
	CourseTitle      string     `json:"course_title"`
	Progress         int        `json:"progress"`
	TotalLessons     int        `json:"total_lessons"`
	CompletedLessons int        `json:"completed_lessons"`
	StartedLessons   int        `json:"started_lessons"`
	LastVisit        *time.Time `json:"last_visit,omitempty"`
}

// ActivityPoint is one day of a student's event timeline.
type ActivityPoint struct {
	Date   string `db:"day" json:"date"`
	Events int    `db:"events_count" json:"events_count"`
}

// StudentDetail composes everything the student view needs.
type StudentDetail struct {
	Student         Student                 `json:"student"`
	Status          StudentStatus           `json:"status"`
	OverallProgress int                     `json:"overall_progress"`
	FirstSeenAt     *time.Time              `json:"first_seen_at,omitempty"`
	LastSeenAt      *time.Time              `json:"last_seen_at,omitempty"`
	Courses         []StudentCourseProgress `json:"courses"`
	Timeline        []ActivityPoint         `json:"activity_timeline"`
}
