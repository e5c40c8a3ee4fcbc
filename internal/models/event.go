package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType enumerates the closed set of student activity events.
type EventType string

const (
	EventEnrolled        EventType = "enrolled"
	EventLessonStarted   EventType = "lesson_started"
	EventLessonCompleted EventType = "lesson_completed"
	EventCourseCompleted EventType = "course_completed"
)

// Valid reports whether the event type is one of the four known kinds.
func (t EventType) Valid() bool {
	switch t {
	case EventEnrolled, EventLessonStarted, EventLessonCompleted, EventCourseCompleted:
		return true
	}
	return false
}

// ParseEventType converts a raw string into a typed event kind.
// Unknown kinds are rejected at the ingestion boundary.
func ParseEventType(raw string) (EventType, error) {
	t := EventType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", raw)
	}
	return t, nil
}

// Event is an immutable activity fact. Rows are append-only; the aggregation
// engine depends on events never being updated or deleted.
type Event struct {
	ID         int64           `db:"id" json:"id"`
	CourseID   int64           `db:"course_id" json:"course_id"`
	StudentID  int64           `db:"student_id" json:"student_id"`
	LessonID   *int64          `db:"lesson_id" json:"lesson_id,omitempty"`
	EventType  EventType       `db:"event_type" json:"event_type"`
	OccurredAt time.Time       `db:"occurred_at" json:"occurred_at"`
	Payload    json.RawMessage `db:"payload" json:"payload,omitempty"`
}
