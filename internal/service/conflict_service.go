package service

import (
	"sort"

	"github.com/academoscope/academoscope-api/internal/models"
)

// ConflictService detects overlapping teaching slots per teacher.
type ConflictService struct{}

// NewConflictService constructs the detector.
func NewConflictService() *ConflictService {
	return &ConflictService{}
}

// FindConflicts returns the set of slot ids involved in at least one time
// overlap with another slot of the same teacher. Slots without a teacher are
// excluded. A missing end is treated as start plus one hour.
//
// Slots are grouped per teacher and sorted by start; each slot is compared
// against the latest effective end seen so far in its group, so a slot that
// spans several later slots still flags every one it overlaps.
func (s *ConflictService) FindConflicts(slots []models.TeachingSlot) map[string]struct{} {
	conflicts := make(map[string]struct{})

	byTeacher := make(map[string][]models.TeachingSlot)
	for _, slot := range slots {
		if slot.TeacherID == nil || *slot.TeacherID == "" {
			continue
		}
		byTeacher[*slot.TeacherID] = append(byTeacher[*slot.TeacherID], slot)
	}

	for _, group := range byTeacher {
		sort.Slice(group, func(i, j int) bool {
			return group[i].StartAt.Before(group[j].StartAt)
		})

		// Track the running maximum end and its owner so that a long slot
		// containing two disjoint neighbours flags both of them.
		runningEnd := group[0].EffectiveEnd()
		runningID := group[0].ID
		for i := 1; i < len(group); i++ {
			current := group[i]
			if current.StartAt.Before(runningEnd) {
				conflicts[runningID] = struct{}{}
				conflicts[current.ID] = struct{}{}
			}
			if end := current.EffectiveEnd(); end.After(runningEnd) {
				runningEnd = end
				runningID = current.ID
			}
		}
	}

	return conflicts
}
