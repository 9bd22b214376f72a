package gamification

import (
	"time"

	"github.com/fluenta/backend/internal/models"
)

// AdvanceStreak applies one activity at the given time to a streak.
// Calendar days are compared in UTC — an activity at 23:59 UTC and one
// at 00:01 UTC the next day count as consecutive days.
//
// Same day: no change. Exactly one day later: streak extends and longest
// is updated. More than one day: streak resets to 1. A clock reading
// before LastActivity changes nothing. Otherwise LastActivity moves to
// the activity's day.
//
// Returns the updated streak and whether a new active day was observed
// (used to bump the profile's active_days counter).
func AdvanceStreak(s models.StreakInfo, now time.Time) (models.StreakInfo, bool) {
	today := now.UTC().Truncate(24 * time.Hour)

	if s.LastActivity == nil {
		// First ever activity
		s.Current = 1
		if s.Longest < 1 {
			s.Longest = 1
		}
		s.LastActivity = &today
		return s, true
	}

	last := s.LastActivity.UTC().Truncate(24 * time.Hour)
	if today.Equal(last) {
		return s, false
	}

	days := int(today.Sub(last).Hours() / 24)
	if days < 0 {
		// Clock skew: now is before the recorded last activity. Never
		// reset the streak or move LastActivity backward over this.
		return s, false
	}
	if days == 1 {
		s.Current++
	} else {
		s.Current = 1
	}
	if s.Current > s.Longest {
		s.Longest = s.Current
	}

	s.LastActivity = &today
	return s, true
}
