package gamification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fluenta/backend/internal/metrics"
	"github.com/fluenta/backend/internal/models"
)

// ErrInvalidActivity rejects unknown (module, activity type) pairs
// before any write happens. Callers map it to a 4xx — it is a client
// bug, not a retryable failure.
var ErrInvalidActivity = errors.New("invalid activity")

// profileStore is the persistence surface the recorder depends on.
// *Store implements it against Postgres; tests substitute an in-memory
// fake that mirrors its concurrency contracts.
type profileStore interface {
	GetOrCreateProfile(ctx context.Context, userID int64) (*models.GamificationProfile, error)
	AddXP(ctx context.Context, userID int64, delta int) (int, error)
	SetLevel(ctx context.Context, userID int64, level, xpToNext int) error
	UpdateStreak(ctx context.Context, userID int64, streak models.StreakInfo) error
	IncrementModuleActivity(ctx context.Context, userID int64, module string) (int, error)
	UnlockAchievement(ctx context.Context, userID int64, achievementID string, now time.Time) (bool, error)
	UnlockBadge(ctx context.Context, userID int64, badgeID string, now time.Time) (bool, error)
	AppendActivityLog(ctx context.Context, entry models.ActivityLogEntry) error
	ListProfileLevels(ctx context.Context) ([]ProfileLevelRow, error)
}

type Service struct {
	store profileStore
}

func NewService(store profileStore) *Service {
	return &Service{store: store}
}

// ── Activity Recorder ───────────────────────────────────

// RecordActivity is the single entry point for a completed user action.
// It validates, ensures the profile, applies XP atomically, advances
// the streak, evaluates unlocks against the post-update state, and
// appends the audit entry (best-effort). It never touches the challenge
// tracker — challenge bookkeeping is a separate failure domain composed
// by the caller.
func (s *Service) RecordActivity(ctx context.Context, userID int64, module, activityType string, metadata map[string]interface{}) (*models.ActivityResult, error) {
	base, ok := BaseXP(module, activityType)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrInvalidActivity, module, activityType)
	}

	profile, err := s.store.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	oldLevel := profile.Level

	xpEarned := CapXP(base + MetadataBonus(base, metadata))

	experience, err := s.store.AddXP(ctx, userID, xpEarned)
	if err != nil {
		return nil, fmt.Errorf("apply xp: %w", err)
	}
	metrics.XPGranted.WithLabelValues("activity").Add(float64(xpEarned))

	now := time.Now()
	streak, newDay := AdvanceStreak(profile.Streak, now)
	if err := s.store.UpdateStreak(ctx, userID, streak); err != nil {
		return nil, err
	}

	moduleCount, err := s.store.IncrementModuleActivity(ctx, userID, module)
	if err != nil {
		return nil, err
	}

	// Build the post-update snapshot the catalog evaluates against.
	level, xpToNext := LevelForExperience(experience)
	profile.Experience = experience
	profile.Level = level
	profile.ExperienceToNextLevel = xpToNext
	profile.Stats.TotalXP += xpEarned
	profile.Streak = streak
	if newDay {
		profile.Stats.ActiveDays++
	}
	profile.Stats.ModuleActivity[module] = moduleCount

	result := &models.ActivityResult{
		XPEarned:        xpEarned,
		NewAchievements: []models.UnlockedAchievement{},
		NewBadges:       []models.UnlockedBadge{},
	}

	experience, err = s.evaluateUnlocks(ctx, profile, module, result, now)
	if err != nil {
		return nil, err
	}

	// Cached level is a derived follow-up write; a failure here leaves
	// it briefly stale, which the sync pass reconciles.
	level, xpToNext = LevelForExperience(experience)
	if err := s.store.SetLevel(ctx, userID, level, xpToNext); err != nil {
		log.Printf("[gamification] failed to set level for user %d: %v", userID, err)
	}

	result.LeveledUp = level > oldLevel
	if result.LeveledUp {
		result.NewLevel = level
		metrics.LevelUps.Inc()
	}
	result.Streak = streak

	// Audit trail is best-effort: losing a log row must never roll back XP.
	if err := s.store.AppendActivityLog(ctx, models.ActivityLogEntry{
		UserID:       userID,
		Module:       module,
		ActivityType: activityType,
		XPEarned:     xpEarned,
		Metadata:     metadata,
	}); err != nil {
		log.Printf("[gamification] failed to append activity log for user %d: %v", userID, err)
	}

	metrics.ActivitiesRecorded.WithLabelValues(module).Inc()
	return result, nil
}

// evaluateUnlocks grants every newly qualified achievement and badge.
// Grants are idempotent — the unique index decides which request pays
// the reward — and rewards go through AddXP, so a reward can itself
// push the profile over another threshold on the next activity.
// Returns the latest post-increment experience.
func (s *Service) evaluateUnlocks(ctx context.Context, profile *models.GamificationProfile, module string, result *models.ActivityResult, now time.Time) (int, error) {
	experience := profile.Experience

	for _, def := range QualifiedAchievements(profile, module) {
		isNew, err := s.store.UnlockAchievement(ctx, profile.UserID, def.ID, now)
		if err != nil {
			return experience, err
		}
		if !isNew {
			continue
		}
		if def.XPReward > 0 {
			experience, err = s.store.AddXP(ctx, profile.UserID, def.XPReward)
			if err != nil {
				return experience, err
			}
			profile.Stats.TotalXP += def.XPReward
			metrics.XPGranted.WithLabelValues("achievement").Add(float64(def.XPReward))
		}
		result.NewAchievements = append(result.NewAchievements, models.UnlockedAchievement{
			ID: def.ID, Name: def.Name, XPReward: def.XPReward,
		})
		metrics.AchievementsUnlocked.Inc()
	}

	for _, def := range QualifiedBadges(profile, module) {
		isNew, err := s.store.UnlockBadge(ctx, profile.UserID, def.ID, now)
		if err != nil {
			return experience, err
		}
		if !isNew {
			continue
		}
		if def.XPReward > 0 {
			experience, err = s.store.AddXP(ctx, profile.UserID, def.XPReward)
			if err != nil {
				return experience, err
			}
			profile.Stats.TotalXP += def.XPReward
			metrics.XPGranted.WithLabelValues("badge").Add(float64(def.XPReward))
		}
		result.NewBadges = append(result.NewBadges, models.UnlockedBadge{
			ID: def.ID, Name: def.Name, Tier: def.Tier,
		})
		metrics.BadgesUnlocked.Inc()
	}

	return experience, nil
}

// ── Profile ─────────────────────────────────────────────

func (s *Service) GetProfile(ctx context.Context, userID int64) (*models.GamificationProfile, error) {
	return s.store.GetOrCreateProfile(ctx, userID)
}

// ── Level Sync ──────────────────────────────────────────

// SyncLevels recomputes every profile's cached level and
// experience_to_next_level from stored experience. This is the
// corrective pass for cached-curve drift and the required migration
// step after any curve change.
func (s *Service) SyncLevels(ctx context.Context) (*models.SyncLevelsResponse, error) {
	profiles, err := s.store.ListProfileLevels(ctx)
	if err != nil {
		return nil, err
	}

	resp := &models.SyncLevelsResponse{ProfilesChecked: len(profiles)}
	for _, p := range profiles {
		level, xpToNext := LevelForExperience(p.Experience)
		if level == p.Level && xpToNext == p.ExperienceToNextLevel {
			continue
		}
		if err := s.store.SetLevel(ctx, p.UserID, level, xpToNext); err != nil {
			return nil, fmt.Errorf("sync level for user %d: %w", p.UserID, err)
		}
		resp.ProfilesFixed++
	}

	if resp.ProfilesFixed > 0 {
		log.Printf("[gamification] level sync fixed %d of %d profiles", resp.ProfilesFixed, resp.ProfilesChecked)
	}
	return resp, nil
}
