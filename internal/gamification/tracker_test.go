package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/fluenta/backend/internal/models"
)

// seedChallengeSets installs controlled, unexpired daily and weekly
// sets so progress tests are not at the mercy of seeded generation.
func seedChallengeSets(t *testing.T, store *fakeStore, daily, weekly []models.ChallengeItem) {
	t.Helper()
	ctx := context.Background()
	expires := time.Now().UTC().Add(24 * time.Hour)
	if err := store.ReplaceChallengeSet(ctx, &models.Challenge{
		UserID: 1, ChallengeType: models.ChallengeDaily, Items: daily, ExpiresAt: expires,
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceChallengeSet(ctx, &models.Challenge{
		UserID: 1, ChallengeType: models.ChallengeWeekly, Items: weekly, ExpiresAt: expires.Add(6 * 24 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}
}

func TestChallengeRewardGrantedExactlyOnce(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store)
	seedChallengeSets(t, store,
		[]models.ChallengeItem{{Key: "daily_reading_2", Module: models.ModuleReading, Target: 2, XPReward: 30}},
		[]models.ChallengeItem{{Key: "weekly_writing_3", Module: models.ModuleWriting, Target: 3, XPReward: 120}},
	)
	ctx := context.Background()

	// Below target: progress moves, no reward.
	summary, err := tracker.UpdateActivityChallengeProgress(ctx, 1, models.ModuleReading, "complete_exercise", 1)
	if err != nil {
		t.Fatal(err)
	}
	if summary.DailyChallengesUpdated != 1 || len(summary.CompletedChallenges) != 0 {
		t.Fatalf("first activity summary = %+v, want one update and no completions", summary)
	}
	if store.experience != 0 {
		t.Fatalf("experience = %d, want 0 before target is reached", store.experience)
	}

	// Crossing the target completes the item and pays the reward.
	summary, err = tracker.UpdateActivityChallengeProgress(ctx, 1, models.ModuleReading, "complete_exercise", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.CompletedChallenges) != 1 || summary.CompletedChallenges[0].Key != "daily_reading_2" {
		t.Fatalf("completions = %v, want daily_reading_2", summary.CompletedChallenges)
	}
	if store.experience != 30 {
		t.Fatalf("experience = %d, want 30 after completion", store.experience)
	}

	// A completed item never moves or pays again.
	summary, err = tracker.UpdateActivityChallengeProgress(ctx, 1, models.ModuleReading, "complete_exercise", 1)
	if err != nil {
		t.Fatal(err)
	}
	if summary.DailyChallengesUpdated != 0 || len(summary.CompletedChallenges) != 0 {
		t.Errorf("post-completion summary = %+v, want no updates", summary)
	}
	if store.experience != 30 {
		t.Errorf("experience = %d, want 30 (reward paid once)", store.experience)
	}
}

func TestChallengeRewardRecomputesLevel(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store)
	seedChallengeSets(t, store,
		[]models.ChallengeItem{{Key: "daily_reading_1", Module: models.ModuleReading, Target: 1, XPReward: 150}},
		[]models.ChallengeItem{{Key: "weekly_games_6", Module: models.ModuleGames, Target: 6, XPReward: 75}},
	)

	_, err := tracker.UpdateActivityChallengeProgress(context.Background(), 1, models.ModuleReading, "complete_exercise", 1)
	if err != nil {
		t.Fatal(err)
	}
	if store.experience != 150 {
		t.Fatalf("experience = %d, want 150", store.experience)
	}
	// The reward crossed the level-2 boundary; the cached level must
	// follow the curve, not stay at its pre-reward value.
	if store.level != 2 || store.xpToNext != 150 {
		t.Errorf("cached level = (%d, %d), want (2, 150)", store.level, store.xpToNext)
	}
	if store.setLevelCalls == 0 {
		t.Error("level was never recomputed after the reward")
	}
}

func TestChallengeProgressFiltersActivityType(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store)
	seedChallengeSets(t, store,
		[]models.ChallengeItem{{Key: "daily_vocab_10", Module: models.ModuleVocabulary, ActivityType: "flashcard_review", Target: 10, XPReward: 25}},
		[]models.ChallengeItem{{Key: "weekly_games_6", Module: models.ModuleGames, Target: 6, XPReward: 75}},
	)
	ctx := context.Background()

	summary, err := tracker.UpdateActivityChallengeProgress(ctx, 1, models.ModuleVocabulary, "complete_exercise", 1)
	if err != nil {
		t.Fatal(err)
	}
	if summary.DailyChallengesUpdated != 0 {
		t.Errorf("mismatched activity type advanced %d challenges, want 0", summary.DailyChallengesUpdated)
	}

	summary, err = tracker.UpdateActivityChallengeProgress(ctx, 1, models.ModuleVocabulary, "flashcard_review", 4)
	if err != nil {
		t.Fatal(err)
	}
	if summary.DailyChallengesUpdated != 1 {
		t.Errorf("matching activity advanced %d challenges, want 1", summary.DailyChallengesUpdated)
	}
}

func TestChallengeProgressCapsAtTarget(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store)
	seedChallengeSets(t, store,
		[]models.ChallengeItem{{Key: "daily_games_2", Module: models.ModuleGames, Target: 2, XPReward: 20}},
		[]models.ChallengeItem{{Key: "weekly_writing_3", Module: models.ModuleWriting, Target: 3, XPReward: 120}},
	)

	summary, err := tracker.UpdateActivityChallengeProgress(context.Background(), 1, models.ModuleGames, "complete_game", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.CompletedChallenges) != 1 {
		t.Fatalf("completions = %v, want the capped item completed", summary.CompletedChallenges)
	}
	item := store.findItem(store.sets[models.ChallengeDaily].Items[0].ID)
	if item.Progress != item.Target {
		t.Errorf("progress = %d, want capped at target %d", item.Progress, item.Target)
	}
	if store.experience != 20 {
		t.Errorf("experience = %d, want 20", store.experience)
	}
}

func TestCurrentChallengesRegeneratesExpired(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	stale := GenerateSet(1, models.ChallengeDaily, now.AddDate(0, 0, -2))
	if err := store.ReplaceChallengeSet(ctx, stale); err != nil {
		t.Fatal(err)
	}

	resp, err := tracker.CurrentChallenges(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Daily.Expired(now) {
		t.Errorf("daily set still expired: expires %v", resp.Daily.ExpiresAt)
	}
	if resp.Weekly == nil || len(resp.Weekly.Items) != challengesPerSet {
		t.Errorf("weekly set not generated on demand: %+v", resp.Weekly)
	}
}
