package dto

import (
	"encoding/json"
	"time"
)

// IngestEventRequest is the wire shape accepted by POST /api/v1/events.
// Entities are referenced by their external identifiers; unknown ones are
// created on the fly.
type IngestEventRequest struct {
	CourseExternalID  string          `json:"course_id" binding:"required"`
	CourseTitle       string          `json:"course_title"`
	LessonExternalID  *string         `json:"lesson_id"`
	LessonTitle       string          `json:"lesson_title"`
	StudentExternalID string          `json:"student_id" binding:"required"`
	StudentEmail      *string         `json:"student_email"`
	EventType         string          `json:"event_type" binding:"required"`
	OccurredAt        *time.Time      `json:"occurred_at"`
	Payload           json.RawMessage `json:"payload"`
}

// IngestEventResponse acknowledges a stored event.
type IngestEventResponse struct {
	EventID   int64 `json:"event_id"`
	CourseID  int64 `json:"course_id"`
	StudentID int64 `json:"student_id"`
}
