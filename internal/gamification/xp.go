package gamification

import "github.com/fluenta/backend/internal/models"

// MaxLevel caps the experience curve.
const MaxLevel = 100

// MaxXPPerActivity bounds the XP a single recorded activity can grant,
// including all metadata-driven bonuses. Caller-supplied metadata can
// never push a grant past this.
const MaxXPPerActivity = 500

// XPForLevel returns the cumulative experience required to reach a level.
// The curve is quadratic: 50·(L−1)·L, so level 2 costs 100 XP and every
// level after that costs 100 XP more than the one before it.
//
// The stored level/experience_to_next_level on every profile is only
// valid against this exact curve — changing it requires the admin
// level-sync pass over all profiles.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return 50 * (level - 1) * level
}

// LevelForExperience maps cumulative XP to a level and the XP remaining
// until the next one. Pure and total; monotonic in xp. At MaxLevel the
// remainder is 0.
func LevelForExperience(xp int) (level, xpToNext int) {
	if xp < 0 {
		xp = 0
	}
	level = 1
	for level < MaxLevel && xp >= XPForLevel(level+1) {
		level++
	}
	if level >= MaxLevel {
		return MaxLevel, 0
	}
	return level, XPForLevel(level+1) - xp
}

// baseRewards maps module → activity type → base XP. An activity not in
// this table is invalid and is rejected before any write.
var baseRewards = map[string]map[string]int{
	models.ModuleReading: {
		"complete_exercise": 20,
		"complete_session":  35,
		"finish_chapter":    50,
	},
	models.ModuleWriting: {
		"complete_exercise": 25,
		"submit_essay":      60,
	},
	models.ModuleListening: {
		"complete_exercise": 20,
		"complete_session":  35,
	},
	models.ModuleSpeaking: {
		"complete_exercise": 25,
		"complete_session":  40,
	},
	models.ModuleVocabulary: {
		"flashcard_review":  5,
		"complete_exercise": 15,
		"master_word":       10,
	},
	models.ModuleGrammar: {
		"complete_exercise": 20,
		"complete_lesson":   30,
		"complete_quiz":     25,
	},
	models.ModuleGames: {
		"complete_game": 15,
		"win_game":      25,
	},
}

// BaseXP returns the base reward for a (module, activity type) pair.
// The second return is false for unknown pairs.
func BaseXP(module, activityType string) (int, bool) {
	activities, ok := baseRewards[module]
	if !ok {
		return 0, false
	}
	xp, ok := activities[activityType]
	return xp, ok
}

// MetadataBonus computes the bounded XP bonus from caller-supplied
// metadata. A "score" of 0–100 scales up to +50% of base; "words"
// grants +1 XP per 25 words up to +40. Values outside range are clamped,
// never trusted.
func MetadataBonus(base int, metadata map[string]interface{}) int {
	bonus := 0

	if score, ok := numericMeta(metadata, "score"); ok {
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		bonus += int(float64(base) * score / 100 * 0.5)
	}

	if words, ok := numericMeta(metadata, "words"); ok && words > 0 {
		wordBonus := int(words) / 25
		if wordBonus > 40 {
			wordBonus = 40
		}
		bonus += wordBonus
	}

	return bonus
}

// CapXP clamps a computed grant to [0, MaxXPPerActivity].
func CapXP(xp int) int {
	if xp < 0 {
		return 0
	}
	if xp > MaxXPPerActivity {
		return MaxXPPerActivity
	}
	return xp
}

// numericMeta reads a numeric metadata value. JSON decoding produces
// float64; int covers hand-constructed maps in callers and tests.
func numericMeta(metadata map[string]interface{}, key string) (float64, bool) {
	if metadata == nil {
		return 0, false
	}
	switch v := metadata[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
