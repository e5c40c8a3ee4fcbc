package dto

import "time"

// ScheduleQuery captures listing and export query parameters.
type ScheduleQuery struct {
	Start     time.Time
	End       time.Time
	TeacherID string
	CourseID  int64
	Format    string
}

// SlotRequest is the wire shape for creating or updating a teaching slot.
type SlotRequest struct {
	TeacherID *string    `json:"teacher_id"`
	CourseID  *int64     `json:"course_id"`
	LessonID  *int64     `json:"lesson_id"`
	StartAt   time.Time  `json:"start_at" binding:"required"`
	EndAt     *time.Time `json:"end_at"`
	GroupName *string    `json:"group_name"`
	Location  *string    `json:"location"`
}
