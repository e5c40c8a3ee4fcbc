package models

// Course is a catalog entry identified externally by the course platform.
type Course struct {
	ID         int64  `db:"id" json:"id"`
	ExternalID string `db:"external_id" json:"external_id"`
	Title      string `db:"title" json:"title"`
}

// Lesson belongs to exactly one course; (course_id, external_id) is unique.
type Lesson struct {
	ID         int64  `db:"id" json:"id"`
	CourseID   int64  `db:"course_id" json:"course_id"`
	ExternalID string `db:"external_id" json:"external_id"`
	Title      string `db:"title" json:"title"`
	Position   *int   `db:"position" json:"position,omitempty"`
}

// Student is created lazily on first reference. Email is the only mutable
// attribute and follows last-write-wins on re-identification.
type Student struct {
	ID         int64   `db:"id" json:"id"`
	ExternalID string  `db:"external_id" json:"external_id"`
	Email      *string `db:"email" json:"email,omitempty"`
}
