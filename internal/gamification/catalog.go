package gamification

import "github.com/fluenta/backend/internal/models"

// RequirementKind discriminates the requirement union. Adding a kind
// means extending Met — there are no per-definition conditionals
// anywhere else.
type RequirementKind int

const (
	// RequireTotalActivities: total recorded activities across all modules.
	RequireTotalActivities RequirementKind = iota
	// RequireModuleActivities: recorded activities in one module; only
	// evaluated when that module triggered the activity.
	RequireModuleActivities
	// RequireStreak: current streak in days.
	RequireStreak
	// RequireLevel: current level.
	RequireLevel
	// RequireTotalXP: cumulative XP.
	RequireTotalXP
)

// Requirement is the predicate attached to a catalog definition.
type Requirement struct {
	Kind      RequirementKind
	Module    string // RequireModuleActivities only
	Threshold int
}

// Met evaluates the requirement against a post-update profile.
// triggeringModule is the module of the activity being recorded;
// module-scoped requirements only fire when it matches, everything
// else is a milestone and applies to any module.
func (r Requirement) Met(p *models.GamificationProfile, triggeringModule string) bool {
	switch r.Kind {
	case RequireTotalActivities:
		return p.TotalActivities() >= r.Threshold
	case RequireModuleActivities:
		if r.Module != triggeringModule {
			return false
		}
		return p.ModuleCount(r.Module) >= r.Threshold
	case RequireStreak:
		return p.Streak.Current >= r.Threshold
	case RequireLevel:
		return p.Level >= r.Threshold
	case RequireTotalXP:
		return p.Stats.TotalXP >= r.Threshold
	default:
		return false
	}
}

// AchievementDef is one unlockable milestone. The catalog is static and
// versioned with the code; per-user state is only the unlock record.
type AchievementDef struct {
	ID          string
	Name        string
	Description string
	Category    string
	Icon        string
	XPReward    int
	Requirement Requirement
}

// BadgeDef is structurally an achievement with a tier.
type BadgeDef struct {
	ID          string
	Name        string
	Description string
	Category    string
	Icon        string
	Tier        string
	XPReward    int
	Requirement Requirement
}

// AchievementCatalog is evaluated in slice order so bonus-XP totals are
// reproducible. Append only; never reorder released entries.
var AchievementCatalog = []AchievementDef{
	{ID: "first_steps", Name: "First Steps", Description: "Record your first activity", Category: "milestone", Icon: "footprints", XPReward: 10,
		Requirement: Requirement{Kind: RequireTotalActivities, Threshold: 1}},
	{ID: "getting_started", Name: "Getting Started", Description: "Reach a 3-day streak", Category: "streak", Icon: "spark", XPReward: 15,
		Requirement: Requirement{Kind: RequireStreak, Threshold: 3}},
	{ID: "week_warrior", Name: "Week Warrior", Description: "Reach a 7-day streak", Category: "streak", Icon: "flame", XPReward: 30,
		Requirement: Requirement{Kind: RequireStreak, Threshold: 7}},
	{ID: "monthly_master", Name: "Monthly Master", Description: "Reach a 30-day streak", Category: "streak", Icon: "calendar", XPReward: 100,
		Requirement: Requirement{Kind: RequireStreak, Threshold: 30}},
	{ID: "centurion", Name: "Centurion", Description: "Reach a 100-day streak", Category: "streak", Icon: "laurel", XPReward: 500,
		Requirement: Requirement{Kind: RequireStreak, Threshold: 100}},
	{ID: "level_5", Name: "Finding Your Feet", Description: "Reach level 5", Category: "milestone", Icon: "arrow-up", XPReward: 25,
		Requirement: Requirement{Kind: RequireLevel, Threshold: 5}},
	{ID: "level_10", Name: "Committed Learner", Description: "Reach level 10", Category: "milestone", Icon: "medal", XPReward: 50,
		Requirement: Requirement{Kind: RequireLevel, Threshold: 10}},
	{ID: "level_25", Name: "Language Devotee", Description: "Reach level 25", Category: "milestone", Icon: "trophy", XPReward: 150,
		Requirement: Requirement{Kind: RequireLevel, Threshold: 25}},
	{ID: "xp_1000", Name: "Rising Star", Description: "Earn 1,000 total XP", Category: "milestone", Icon: "star", XPReward: 20,
		Requirement: Requirement{Kind: RequireTotalXP, Threshold: 1000}},
	{ID: "xp_10000", Name: "Powerhouse", Description: "Earn 10,000 total XP", Category: "milestone", Icon: "bolt", XPReward: 100,
		Requirement: Requirement{Kind: RequireTotalXP, Threshold: 10000}},
	{ID: "hundred_club", Name: "Hundred Club", Description: "Record 100 activities", Category: "milestone", Icon: "hundred", XPReward: 50,
		Requirement: Requirement{Kind: RequireTotalActivities, Threshold: 100}},
	{ID: "bookworm", Name: "Bookworm", Description: "Complete 10 reading activities", Category: "reading", Icon: "book", XPReward: 25,
		Requirement: Requirement{Kind: RequireModuleActivities, Module: models.ModuleReading, Threshold: 10}},
	{ID: "avid_reader", Name: "Avid Reader", Description: "Complete 50 reading activities", Category: "reading", Icon: "library", XPReward: 75,
		Requirement: Requirement{Kind: RequireModuleActivities, Module: models.ModuleReading, Threshold: 50}},
	{ID: "wordsmith", Name: "Wordsmith", Description: "Complete 10 writing activities", Category: "writing", Icon: "pen", XPReward: 25,
		Requirement: Requirement{Kind: RequireModuleActivities, Module: models.ModuleWriting, Threshold: 10}},
	{ID: "active_listener", Name: "Active Listener", Description: "Complete 10 listening activities", Category: "listening", Icon: "headphones", XPReward: 25,
		Requirement: Requirement{Kind: RequireModuleActivities, Module: models.ModuleListening, Threshold: 10}},
	{ID: "confident_speaker", Name: "Confident Speaker", Description: "Complete 10 speaking activities", Category: "speaking", Icon: "microphone", XPReward: 25,
		Requirement: Requirement{Kind: RequireModuleActivities, Module: models.ModuleSpeaking, Threshold: 10}},
	{ID: "vocabulary_builder", Name: "Vocabulary Builder", Description: "Complete 25 vocabulary activities", Category: "vocabulary", Icon: "cards", XPReward: 25,
		Requirement: Requirement{Kind: RequireModuleActivities, Module: models.ModuleVocabulary, Threshold: 25}},
	{ID: "grammar_enthusiast", Name: "Grammar Enthusiast", Description: "Complete 10 grammar activities", Category: "grammar", Icon: "check", XPReward: 25,
		Requirement: Requirement{Kind: RequireModuleActivities, Module: models.ModuleGrammar, Threshold: 10}},
	{ID: "game_on", Name: "Game On", Description: "Complete 5 game activities", Category: "games", Icon: "controller", XPReward: 15,
		Requirement: Requirement{Kind: RequireModuleActivities, Module: models.ModuleGames, Threshold: 5}},
}

// BadgeCatalog is evaluated after achievements, also in slice order.
var BadgeCatalog = []BadgeDef{
	{ID: "bronze_scholar", Name: "Bronze Scholar", Description: "Reach level 5", Category: "scholar", Icon: "shield", Tier: models.TierBronze, XPReward: 20,
		Requirement: Requirement{Kind: RequireLevel, Threshold: 5}},
	{ID: "silver_scholar", Name: "Silver Scholar", Description: "Reach level 15", Category: "scholar", Icon: "shield", Tier: models.TierSilver, XPReward: 50,
		Requirement: Requirement{Kind: RequireLevel, Threshold: 15}},
	{ID: "gold_scholar", Name: "Gold Scholar", Description: "Reach level 30", Category: "scholar", Icon: "shield", Tier: models.TierGold, XPReward: 150,
		Requirement: Requirement{Kind: RequireLevel, Threshold: 30}},
	{ID: "platinum_scholar", Name: "Platinum Scholar", Description: "Reach level 50", Category: "scholar", Icon: "shield", Tier: models.TierPlatinum, XPReward: 400,
		Requirement: Requirement{Kind: RequireLevel, Threshold: 50}},
	{ID: "bronze_flame", Name: "Bronze Flame", Description: "Keep a 7-day streak", Category: "flame", Icon: "flame", Tier: models.TierBronze, XPReward: 20,
		Requirement: Requirement{Kind: RequireStreak, Threshold: 7}},
	{ID: "silver_flame", Name: "Silver Flame", Description: "Keep a 30-day streak", Category: "flame", Icon: "flame", Tier: models.TierSilver, XPReward: 75,
		Requirement: Requirement{Kind: RequireStreak, Threshold: 30}},
	{ID: "gold_flame", Name: "Gold Flame", Description: "Keep a 100-day streak", Category: "flame", Icon: "flame", Tier: models.TierGold, XPReward: 250,
		Requirement: Requirement{Kind: RequireStreak, Threshold: 100}},
	{ID: "platinum_flame", Name: "Platinum Flame", Description: "Keep a 365-day streak", Category: "flame", Icon: "flame", Tier: models.TierPlatinum, XPReward: 1000,
		Requirement: Requirement{Kind: RequireStreak, Threshold: 365}},
}

// QualifiedAchievements returns catalog entries whose requirement the
// post-update profile meets and which the profile does not already hold,
// in catalog order. The caller is responsible for the idempotent grant.
func QualifiedAchievements(p *models.GamificationProfile, triggeringModule string) []AchievementDef {
	var out []AchievementDef
	for _, def := range AchievementCatalog {
		if p.HasAchievement(def.ID) {
			continue
		}
		if def.Requirement.Met(p, triggeringModule) {
			out = append(out, def)
		}
	}
	return out
}

// QualifiedBadges mirrors QualifiedAchievements for the badge catalog.
func QualifiedBadges(p *models.GamificationProfile, triggeringModule string) []BadgeDef {
	var out []BadgeDef
	for _, def := range BadgeCatalog {
		if p.HasBadge(def.ID) {
			continue
		}
		if def.Requirement.Met(p, triggeringModule) {
			out = append(out, def)
		}
	}
	return out
}
