package gamification

import (
	"testing"
	"time"

	"github.com/fluenta/backend/internal/models"
)

func dayPtr(t time.Time) *time.Time {
	d := t.UTC().Truncate(24 * time.Hour)
	return &d
}

func TestAdvanceStreakFirstActivity(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	s, newDay := AdvanceStreak(models.StreakInfo{}, now)
	if !newDay {
		t.Error("first activity should count as a new day")
	}
	if s.Current != 1 || s.Longest != 1 {
		t.Errorf("first activity streak = (%d, %d), want (1, 1)", s.Current, s.Longest)
	}
	if s.LastActivity == nil || !s.LastActivity.Equal(now.Truncate(24*time.Hour)) {
		t.Errorf("LastActivity = %v, want start of %v", s.LastActivity, now)
	}
}

func TestAdvanceStreakSameDay(t *testing.T) {
	morning := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)

	in := models.StreakInfo{Current: 5, Longest: 9, LastActivity: dayPtr(morning)}
	s, newDay := AdvanceStreak(in, evening)
	if newDay {
		t.Error("second activity on the same day should not be a new day")
	}
	if s.Current != 5 || s.Longest != 9 {
		t.Errorf("same-day streak = (%d, %d), want unchanged (5, 9)", s.Current, s.Longest)
	}
}

func TestAdvanceStreakExtends(t *testing.T) {
	yesterday := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)

	in := models.StreakInfo{Current: 5, Longest: 5, LastActivity: dayPtr(yesterday)}
	s, newDay := AdvanceStreak(in, now)
	if !newDay {
		t.Error("next calendar day should be a new day")
	}
	if s.Current != 6 {
		t.Errorf("Current = %d, want 6", s.Current)
	}
	if s.Longest != 6 {
		t.Errorf("Longest = %d, want 6", s.Longest)
	}
}

func TestAdvanceStreakGapResets(t *testing.T) {
	lastWeek := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	in := models.StreakInfo{Current: 14, Longest: 14, LastActivity: dayPtr(lastWeek)}
	s, newDay := AdvanceStreak(in, now)
	if !newDay {
		t.Error("activity after a gap should be a new day")
	}
	if s.Current != 1 {
		t.Errorf("Current = %d, want 1 after gap", s.Current)
	}
	if s.Longest != 14 {
		t.Errorf("Longest = %d, want 14 preserved", s.Longest)
	}
}

func TestAdvanceStreakClockSkew(t *testing.T) {
	tomorrow := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	in := models.StreakInfo{Current: 7, Longest: 9, LastActivity: &tomorrow}
	s, newDay := AdvanceStreak(in, now)
	if newDay {
		t.Error("a clock behind the recorded activity must not open a new day")
	}
	if s.Current != 7 || s.Longest != 9 {
		t.Errorf("skewed-clock streak = (%d, %d), want unchanged (7, 9)", s.Current, s.Longest)
	}
	if s.LastActivity == nil || !s.LastActivity.Equal(tomorrow) {
		t.Errorf("LastActivity = %v, want %v unchanged", s.LastActivity, tomorrow)
	}
}

func TestAdvanceStreakLongestOnlyGrows(t *testing.T) {
	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := models.StreakInfo{}

	// 3-day run
	for i := 0; i < 3; i++ {
		s, _ = AdvanceStreak(s, day.AddDate(0, 0, i))
	}
	if s.Current != 3 || s.Longest != 3 {
		t.Fatalf("after 3-day run streak = (%d, %d), want (3, 3)", s.Current, s.Longest)
	}

	// Break, then a shorter run
	s, _ = AdvanceStreak(s, day.AddDate(0, 0, 10))
	s, _ = AdvanceStreak(s, day.AddDate(0, 0, 11))
	if s.Current != 2 {
		t.Errorf("Current = %d, want 2", s.Current)
	}
	if s.Longest != 3 {
		t.Errorf("Longest = %d, want 3", s.Longest)
	}
}
