package gamification

import (
	"context"
	"time"

	"github.com/fluenta/backend/internal/models"
)

// fakeStore is an in-memory stand-in for Store. Its methods mirror the
// SQL contracts: date-guarded active_days, LEAST-capped progress that
// never moves a completed row, and a completion transition only one
// caller can observe.
type fakeStore struct {
	experience   int
	totalXP      int
	level        int
	xpToNext     int
	streak       models.StreakInfo
	activeDays   int
	moduleCounts map[string]int
	achievements []models.UnlockRecord
	badges       []models.UnlockRecord
	logEntries   []models.ActivityLogEntry
	logErr       error

	sets   map[string]*models.Challenge
	nextID int64

	setLevelCalls int
}

var (
	_ profileStore   = (*fakeStore)(nil)
	_ challengeStore = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		level:        1,
		xpToNext:     100,
		moduleCounts: map[string]int{},
		sets:         map[string]*models.Challenge{},
	}
}

func (f *fakeStore) GetOrCreateProfile(ctx context.Context, userID int64) (*models.GamificationProfile, error) {
	counts := make(map[string]int, len(f.moduleCounts))
	for k, v := range f.moduleCounts {
		counts[k] = v
	}
	return &models.GamificationProfile{
		UserID:                userID,
		Level:                 f.level,
		Experience:            f.experience,
		ExperienceToNextLevel: f.xpToNext,
		Streak:                f.streak,
		Achievements:          append([]models.UnlockRecord(nil), f.achievements...),
		Badges:                append([]models.UnlockRecord(nil), f.badges...),
		Stats: models.ProfileStats{
			TotalXP:        f.totalXP,
			ActiveDays:     f.activeDays,
			ModuleActivity: counts,
		},
	}, nil
}

func (f *fakeStore) AddXP(ctx context.Context, userID int64, delta int) (int, error) {
	f.experience += delta
	f.totalXP += delta
	return f.experience, nil
}

func (f *fakeStore) SetLevel(ctx context.Context, userID int64, level, xpToNext int) error {
	f.level = level
	f.xpToNext = xpToNext
	f.setLevelCalls++
	return nil
}

func (f *fakeStore) UpdateStreak(ctx context.Context, userID int64, streak models.StreakInfo) error {
	if !sameActivityDay(f.streak.LastActivity, streak.LastActivity) {
		f.activeDays++
	}
	f.streak = streak
	return nil
}

// sameActivityDay mirrors the store's IS DISTINCT FROM guard.
func sameActivityDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (f *fakeStore) IncrementModuleActivity(ctx context.Context, userID int64, module string) (int, error) {
	f.moduleCounts[module]++
	return f.moduleCounts[module], nil
}

func (f *fakeStore) UnlockAchievement(ctx context.Context, userID int64, achievementID string, now time.Time) (bool, error) {
	for _, r := range f.achievements {
		if r.ID == achievementID {
			return false, nil
		}
	}
	f.achievements = append(f.achievements, models.UnlockRecord{ID: achievementID, UnlockedAt: now})
	return true, nil
}

func (f *fakeStore) UnlockBadge(ctx context.Context, userID int64, badgeID string, now time.Time) (bool, error) {
	for _, r := range f.badges {
		if r.ID == badgeID {
			return false, nil
		}
	}
	f.badges = append(f.badges, models.UnlockRecord{ID: badgeID, UnlockedAt: now})
	return true, nil
}

func (f *fakeStore) AppendActivityLog(ctx context.Context, entry models.ActivityLogEntry) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.logEntries = append(f.logEntries, entry)
	return nil
}

func (f *fakeStore) ListProfileLevels(ctx context.Context) ([]ProfileLevelRow, error) {
	return []ProfileLevelRow{{
		UserID:                1,
		Experience:            f.experience,
		Level:                 f.level,
		ExperienceToNextLevel: f.xpToNext,
	}}, nil
}

func (f *fakeStore) GetChallengeSet(ctx context.Context, userID int64, challengeType string) (*models.Challenge, error) {
	set, ok := f.sets[challengeType]
	if !ok {
		return nil, nil
	}
	return set, nil
}

func (f *fakeStore) ReplaceChallengeSet(ctx context.Context, set *models.Challenge) error {
	f.nextID++
	set.ID = f.nextID
	for i := range set.Items {
		f.nextID++
		set.Items[i].ID = f.nextID
	}
	f.sets[set.ChallengeType] = set
	return nil
}

func (f *fakeStore) findItem(itemID int64) *models.ChallengeItem {
	for _, set := range f.sets {
		for i := range set.Items {
			if set.Items[i].ID == itemID {
				return &set.Items[i]
			}
		}
	}
	return nil
}

func (f *fakeStore) IncrementChallengeProgress(ctx context.Context, itemID int64, delta int) (progress, target int, ok bool, err error) {
	item := f.findItem(itemID)
	if item == nil || item.Completed {
		return 0, 0, false, nil
	}
	item.Progress += delta
	if item.Progress > item.Target {
		item.Progress = item.Target
	}
	return item.Progress, item.Target, true, nil
}

func (f *fakeStore) CompleteChallengeItem(ctx context.Context, itemID int64) (bool, error) {
	item := f.findItem(itemID)
	if item == nil || item.Completed || item.Progress < item.Target {
		return false, nil
	}
	item.Completed = true
	return true, nil
}

func (f *fakeStore) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for key, set := range f.sets {
		if set.Expired(now) {
			delete(f.sets, key)
			n++
		}
	}
	return n, nil
}
