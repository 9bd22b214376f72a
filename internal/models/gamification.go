package models

import "time"

// ── Learning Modules ──────────────────────────────────────

const (
	ModuleReading    = "reading"
	ModuleWriting    = "writing"
	ModuleListening  = "listening"
	ModuleSpeaking   = "speaking"
	ModuleVocabulary = "vocabulary"
	ModuleGrammar    = "grammar"
	ModuleGames      = "games"
)

// Modules lists every learning module that can record activity.
var Modules = []string{
	ModuleReading, ModuleWriting, ModuleListening, ModuleSpeaking,
	ModuleVocabulary, ModuleGrammar, ModuleGames,
}

// ── Badge Tiers ───────────────────────────────────────────

const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// ── Core Gamification Structs ─────────────────────────────

// StreakInfo tracks consecutive active days. Calendar-day
// comparisons are always done in UTC.
type StreakInfo struct {
	Current      int        `json:"current"`
	Longest      int        `json:"longest"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// ProfileStats holds the cumulative counters used by the
// achievement catalog and the leaderboard.
type ProfileStats struct {
	TotalXP        int            `json:"total_xp"`
	ActiveDays     int            `json:"active_days"`
	ModuleActivity map[string]int `json:"module_activity"`
}

// UnlockRecord is one earned achievement or badge.
type UnlockRecord struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// GamificationProfile is the per-user progression document.
// Level and ExperienceToNextLevel are cached values derived
// from Experience via the experience curve.
type GamificationProfile struct {
	UserID                int64          `json:"user_id"`
	Level                 int            `json:"level"`
	Experience            int            `json:"experience"`
	ExperienceToNextLevel int            `json:"experience_to_next_level"`
	Streak                StreakInfo     `json:"streak"`
	Achievements          []UnlockRecord `json:"achievements"`
	Badges                []UnlockRecord `json:"badges"`
	Stats                 ProfileStats   `json:"stats"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// HasAchievement reports whether the profile already holds the given achievement.
func (p *GamificationProfile) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// HasBadge reports whether the profile already holds the given badge.
func (p *GamificationProfile) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// ModuleCount returns the recorded activity count for one module.
func (p *GamificationProfile) ModuleCount(module string) int {
	return p.Stats.ModuleActivity[module]
}

// TotalActivities sums activity across every module.
func (p *GamificationProfile) TotalActivities() int {
	total := 0
	for _, n := range p.Stats.ModuleActivity {
		total += n
	}
	return total
}

// ActivityLogEntry is an append-only audit record, one per
// recorded action. Never mutated or deleted.
type ActivityLogEntry struct {
	ID           int64                  `json:"id"`
	UserID       int64                  `json:"user_id"`
	Module       string                 `json:"module"`
	ActivityType string                 `json:"activity_type"`
	XPEarned     int                    `json:"xp_earned"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ── Challenges ────────────────────────────────────────────

const (
	ChallengeDaily  = "daily"
	ChallengeWeekly = "weekly"
)

// ChallengeItem is one sub-challenge inside a daily or weekly
// set. Progress only increases and is capped at Target;
// Completed transitions false→true exactly once.
type ChallengeItem struct {
	ID           int64  `json:"id"`
	Key          string `json:"key"`
	Description  string `json:"description"`
	Module       string `json:"module"`
	ActivityType string `json:"activity_type,omitempty"`
	Target       int    `json:"target"`
	Progress     int    `json:"progress"`
	Completed    bool   `json:"completed"`
	XPReward     int    `json:"xp_reward"`
}

// Challenge is the per-user challenge set for one period type,
// regenerated after ExpiresAt.
type Challenge struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	ChallengeType string          `json:"challenge_type"`
	Items         []ChallengeItem `json:"challenges"`
	RefreshedAt   time.Time       `json:"refreshed_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// Expired reports whether the set needs regeneration at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ── Request Types ─────────────────────────────────────────

type RecordActivityRequest struct {
	Module       string                 `json:"module"`
	ActivityType string                 `json:"activity_type"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ── Response Types ────────────────────────────────────────

// UnlockedAchievement is the toast-facing shape of a fresh unlock.
type UnlockedAchievement struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	XPReward int    `json:"xp_reward"`
}

// UnlockedBadge is the toast-facing shape of a fresh badge.
type UnlockedBadge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tier string `json:"tier"`
}

// CompletedChallenge reports a sub-challenge that crossed its
// target during this request.
type CompletedChallenge struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Type        string `json:"type"`
	XPReward    int    `json:"xp_reward"`
}

// ChallengeSummary is the best-effort challenge portion of an
// activity response.
type ChallengeSummary struct {
	DailyChallengesUpdated  int                  `json:"daily_challenges_updated"`
	WeeklyChallengesUpdated int                  `json:"weekly_challenges_updated"`
	CompletedChallenges     []CompletedChallenge `json:"completed_challenges"`
}

// ActivityResult is what RecordActivity hands back to the
// calling module for UI display.
type ActivityResult struct {
	XPEarned        int                   `json:"xp_earned"`
	LeveledUp       bool                  `json:"leveled_up"`
	NewLevel        int                   `json:"new_level,omitempty"`
	NewAchievements []UnlockedAchievement `json:"new_achievements"`
	NewBadges       []UnlockedBadge       `json:"new_badges"`
	Streak          StreakInfo            `json:"streak"`
}

// ActivityResponse is the full HTTP payload: the recorder
// result plus the independently-tracked challenge summary.
type ActivityResponse struct {
	ActivityResult
	Challenges ChallengeSummary `json:"challenges"`
}

// ChallengesResponse returns the current daily and weekly sets.
type ChallengesResponse struct {
	Daily  *Challenge `json:"daily"`
	Weekly *Challenge `json:"weekly"`
}

// LeaderboardEntry is one ranked row. Rank is dense and
// 1-based; ties share a rank and are ordered by user ID.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        int64  `json:"user_id"`
	DisplayName   string `json:"display_name"`
	Value         int64  `json:"value"`
	IsCurrentUser bool   `json:"is_current_user,omitempty"`
}

type LeaderboardResponse struct {
	Period   string             `json:"period"`
	Category string             `json:"category"`
	Module   string             `json:"module,omitempty"`
	Entries  []LeaderboardEntry `json:"entries"`
}

// SyncLevelsResponse reports the corrective level-sync pass.
type SyncLevelsResponse struct {
	ProfilesChecked int `json:"profiles_checked"`
	ProfilesFixed   int `json:"profiles_fixed"`
}
