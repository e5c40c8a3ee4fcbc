package models

import "time"

// DefaultSlotDuration is assumed when a teaching slot has no explicit end.
const DefaultSlotDuration = time.Hour

// Teacher is a catalog entry for schedule ownership.
type Teacher struct {
	ID    string  `db:"id" json:"id"`
	Name  string  `db:"name" json:"name"`
	Email *string `db:"email" json:"email,omitempty"`
}

// TeachingSlot is a booked teaching interval. Slots are mutable through
// schedule management but read-only from the conflict detector's view.
type TeachingSlot struct {
	ID        string     `db:"id" json:"id"`
	TeacherID *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	CourseID  *int64     `db:"course_id" json:"course_id,omitempty"`
	LessonID  *int64     `db:"lesson_id" json:"lesson_id,omitempty"`
	StartAt   time.Time  `db:"start_at" json:"start_at"`
	EndAt     *time.Time `db:"end_at" json:"end_at,omitempty"`
	GroupName *string    `db:"group_name" json:"group_name,omitempty"`
	Location  *string    `db:"location" json:"location,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveEnd resolves the slot end, falling back to start plus the
// default duration when no end was booked.
func (s TeachingSlot) EffectiveEnd() time.Time {
	if s.EndAt != nil {
		return *s.EndAt
	}
	return s.StartAt.Add(DefaultSlotDuration)
}

// ScheduleFilter scopes slot listings to a window and optional owners.
type ScheduleFilter struct {
	Start     time.Time
	End       time.Time
	TeacherID string
	CourseID  int64
}

// ScheduleRow is a slot joined with display titles and its conflict flag.
type ScheduleRow struct {
	TeachingSlot
	CourseTitle *string `db:"course_title" json:"course_title,omitempty"`
	LessonTitle *string `db:"lesson_title" json:"lesson_title,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
	HasConflict bool    `db:"-" json:"has_conflict"`
}

// TeacherWorkload aggregates a teacher's booked load inside a window.
type TeacherWorkload struct {
	Teacher        Teacher              `json:"teacher"`
	SlotsCount     int                  `json:"slots_count"`
	CoursesCount   int                  `json:"courses_count"`
	TotalHours     int                  `json:"total_hours"`
	FirstSlotDate  *string              `json:"first_slot_date,omitempty"`
	LastSlotDate   *string              `json:"last_slot_date,omitempty"`
	ProblemCourses []CourseOverviewItem `json:"problem_courses,omitempty"`
}
