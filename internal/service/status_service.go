package service

import (
	"time"

	"github.com/academoscope/academoscope-api/internal/models"
	"github.com/academoscope/academoscope-api/pkg/config"
)

// StatusService classifies students by their last activity timestamp.
// Classification is stateless: it is recomputed on every call and never
// persisted.
type StatusService struct {
	activeWithin   int
	inactiveWithin int
}

// NewStatusService constructs a classifier with day thresholds from config.
func NewStatusService(cfg config.StatusConfig) *StatusService {
	active := cfg.ActiveWithinDays
	if active <= 0 {
		active = 7
	}
	inactive := cfg.InactiveWithinDays
	if inactive <= active {
		inactive = active + 23
	}
	return &StatusService{activeWithin: active, inactiveWithin: inactive}
}

// InactiveWithinDays exposes the inactivity horizon so that other views can
// share one definition of "recent".
func (s *StatusService) InactiveWithinDays() int {
	return s.inactiveWithin
}

// Classify maps a last-seen timestamp to a lifecycle state. Boundary values
// belong to the less severe bucket: exactly activeWithin days is still
// active, exactly inactiveWithin days is still inactive.
func (s *StatusService) Classify(lastSeen *time.Time, now time.Time) models.StudentStatus {
	if lastSeen == nil {
		return models.StatusNoData
	}
	days := s.DaysInactive(*lastSeen, now)
	switch {
	case days <= s.activeWithin:
		return models.StatusActive
	case days <= s.inactiveWithin:
		return models.StatusInactive
	default:
		return models.StatusRisk
	}
}

// DaysInactive returns the whole days elapsed between lastSeen and now.
// Negative elapsed time (clock skew, future events) counts as zero days.
func (s *StatusService) DaysInactive(lastSeen, now time.Time) int {
	elapsed := now.Sub(lastSeen)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed.Hours() / 24)
}
