package gamification

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"time"

	"github.com/fluenta/backend/internal/metrics"
	"github.com/fluenta/backend/internal/models"
)

// challengesPerSet is how many sub-challenges each daily/weekly set holds.
const challengesPerSet = 3

// ChallengeTemplate is one entry in the static generation pool.
// An empty ActivityType matches any activity in the module.
type ChallengeTemplate struct {
	Key          string
	Description  string
	Module       string
	ActivityType string
	Target       int
	XPReward     int
}

var dailyPool = []ChallengeTemplate{
	{Key: "daily_reading_3", Description: "Complete 3 reading exercises", Module: models.ModuleReading, ActivityType: "complete_exercise", Target: 3, XPReward: 30},
	{Key: "daily_writing_1", Description: "Complete a writing exercise", Module: models.ModuleWriting, Target: 1, XPReward: 25},
	{Key: "daily_listening_2", Description: "Complete 2 listening activities", Module: models.ModuleListening, Target: 2, XPReward: 25},
	{Key: "daily_speaking_1", Description: "Finish a speaking session", Module: models.ModuleSpeaking, ActivityType: "complete_session", Target: 1, XPReward: 30},
	{Key: "daily_vocab_10", Description: "Review 10 flashcards", Module: models.ModuleVocabulary, ActivityType: "flashcard_review", Target: 10, XPReward: 25},
	{Key: "daily_grammar_3", Description: "Complete 3 grammar exercises", Module: models.ModuleGrammar, ActivityType: "complete_exercise", Target: 3, XPReward: 30},
	{Key: "daily_games_2", Description: "Play 2 word games", Module: models.ModuleGames, Target: 2, XPReward: 20},
}

var weeklyPool = []ChallengeTemplate{
	{Key: "weekly_reading_10", Description: "Complete 10 reading activities", Module: models.ModuleReading, Target: 10, XPReward: 100},
	{Key: "weekly_writing_3", Description: "Submit 3 pieces of writing", Module: models.ModuleWriting, Target: 3, XPReward: 120},
	{Key: "weekly_listening_8", Description: "Complete 8 listening activities", Module: models.ModuleListening, Target: 8, XPReward: 90},
	{Key: "weekly_speaking_5", Description: "Finish 5 speaking sessions", Module: models.ModuleSpeaking, ActivityType: "complete_session", Target: 5, XPReward: 110},
	{Key: "weekly_vocab_50", Description: "Review 50 flashcards", Module: models.ModuleVocabulary, ActivityType: "flashcard_review", Target: 50, XPReward: 100},
	{Key: "weekly_grammar_12", Description: "Complete 12 grammar activities", Module: models.ModuleGrammar, Target: 12, XPReward: 110},
	{Key: "weekly_games_6", Description: "Play 6 word games", Module: models.ModuleGames, Target: 6, XPReward: 75},
}

// challengeStore is the persistence surface the tracker depends on.
// IncrementChallengeProgress and CompleteChallengeItem carry the
// exactly-once contracts: progress caps at target and never moves on a
// completed row, and only one caller observes the false→true
// completion transition.
type challengeStore interface {
	GetChallengeSet(ctx context.Context, userID int64, challengeType string) (*models.Challenge, error)
	ReplaceChallengeSet(ctx context.Context, set *models.Challenge) error
	IncrementChallengeProgress(ctx context.Context, itemID int64, delta int) (progress, target int, ok bool, err error)
	CompleteChallengeItem(ctx context.Context, itemID int64) (bool, error)
	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error)
	AddXP(ctx context.Context, userID int64, delta int) (int, error)
	SetLevel(ctx context.Context, userID int64, level, xpToNext int) error
}

// Tracker maintains daily and weekly challenge sets. It shares the
// store with the recorder but is deliberately not called by it: a
// challenge bookkeeping failure must never block XP recording.
type Tracker struct {
	store challengeStore
}

func NewTracker(store challengeStore) *Tracker {
	return &Tracker{store: store}
}

// ── Generation ──────────────────────────────────────────

// periodKey identifies the generation window: the UTC date for daily
// sets, the ISO week for weekly ones.
func periodKey(challengeType string, now time.Time) string {
	now = now.UTC()
	if challengeType == models.ChallengeWeekly {
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return now.Format("2006-01-02")
}

// challengeSeed derives the PRNG seed for (user, period). The same user
// regenerating the same period always gets the same set.
func challengeSeed(userID int64, key string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%s", userID, key)
	return int64(h.Sum64())
}

// expiryFor returns when a set generated at now lapses: next UTC
// midnight for daily, next Monday 00:00 UTC for weekly.
func expiryFor(challengeType string, now time.Time) time.Time {
	day := now.UTC().Truncate(24 * time.Hour)
	if challengeType == models.ChallengeWeekly {
		daysUntilMonday := (8 - int(day.Weekday())) % 7
		if daysUntilMonday == 0 {
			daysUntilMonday = 7
		}
		return day.AddDate(0, 0, daysUntilMonday)
	}
	return day.AddDate(0, 0, 1)
}

// GenerateSet builds a fresh challenge set for one period. Pure given
// (userID, challengeType, now): template selection is seeded, so tests
// and regeneration reproduce it exactly.
func GenerateSet(userID int64, challengeType string, now time.Time) *models.Challenge {
	pool := dailyPool
	if challengeType == models.ChallengeWeekly {
		pool = weeklyPool
	}

	key := periodKey(challengeType, now)
	r := rand.New(rand.NewSource(challengeSeed(userID, key)))

	shuffled := make([]ChallengeTemplate, len(pool))
	copy(shuffled, pool)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := challengesPerSet
	if n > len(shuffled) {
		n = len(shuffled)
	}

	set := &models.Challenge{
		UserID:        userID,
		ChallengeType: challengeType,
		RefreshedAt:   now.UTC(),
		ExpiresAt:     expiryFor(challengeType, now),
	}
	for _, tmpl := range shuffled[:n] {
		set.Items = append(set.Items, models.ChallengeItem{
			Key:          tmpl.Key,
			Description:  tmpl.Description,
			Module:       tmpl.Module,
			ActivityType: tmpl.ActivityType,
			Target:       tmpl.Target,
			XPReward:     tmpl.XPReward,
		})
	}
	return set
}

// currentSet loads the user's set for one period type, regenerating it
// lazily if missing or expired.
func (t *Tracker) currentSet(ctx context.Context, userID int64, challengeType string, now time.Time) (*models.Challenge, error) {
	set, err := t.store.GetChallengeSet(ctx, userID, challengeType)
	if err != nil {
		return nil, err
	}
	if set != nil && !set.Expired(now) {
		return set, nil
	}

	fresh := GenerateSet(userID, challengeType, now)
	if err := t.store.ReplaceChallengeSet(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// CurrentChallenges returns the user's live daily and weekly sets,
// regenerating whichever has expired.
func (t *Tracker) CurrentChallenges(ctx context.Context, userID int64, now time.Time) (*models.ChallengesResponse, error) {
	daily, err := t.currentSet(ctx, userID, models.ChallengeDaily, now)
	if err != nil {
		return nil, err
	}
	weekly, err := t.currentSet(ctx, userID, models.ChallengeWeekly, now)
	if err != nil {
		return nil, err
	}
	return &models.ChallengesResponse{Daily: daily, Weekly: weekly}, nil
}

// ── Progress ────────────────────────────────────────────

// ProgressAmount derives how much one activity advances a matching
// sub-challenge. Defaults to 1; metadata "count" carries multi-unit
// activities such as flashcard batches, capped at 50 per request.
func ProgressAmount(metadata map[string]interface{}) int {
	if count, ok := numericMeta(metadata, "count"); ok && count > 1 {
		if count > 50 {
			count = 50
		}
		return int(count)
	}
	return 1
}

// UpdateActivityChallengeProgress advances every matching pending
// sub-challenge in the user's daily and weekly sets. Each item crossing
// its target here transitions to completed exactly once and has its
// reward granted exactly once — the row-level completion update decides
// the winner under concurrency.
func (t *Tracker) UpdateActivityChallengeProgress(ctx context.Context, userID int64, module, activityType string, amount int) (*models.ChallengeSummary, error) {
	if amount < 1 {
		amount = 1
	}
	now := time.Now()
	summary := &models.ChallengeSummary{CompletedChallenges: []models.CompletedChallenge{}}
	rewarded := false
	experience := 0

	for _, challengeType := range []string{models.ChallengeDaily, models.ChallengeWeekly} {
		set, err := t.currentSet(ctx, userID, challengeType, now)
		if err != nil {
			return nil, err
		}

		for _, item := range set.Items {
			if item.Completed || item.Module != module {
				continue
			}
			if item.ActivityType != "" && item.ActivityType != activityType {
				continue
			}

			progress, target, ok, err := t.store.IncrementChallengeProgress(ctx, item.ID, amount)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}

			if challengeType == models.ChallengeDaily {
				summary.DailyChallengesUpdated++
			} else {
				summary.WeeklyChallengesUpdated++
			}

			if progress < target {
				continue
			}
			completed, err := t.store.CompleteChallengeItem(ctx, item.ID)
			if err != nil {
				return nil, err
			}
			if !completed {
				continue
			}

			experience, err = t.store.AddXP(ctx, userID, item.XPReward)
			if err != nil {
				return nil, fmt.Errorf("grant challenge reward: %w", err)
			}
			rewarded = true
			metrics.XPGranted.WithLabelValues("challenge").Add(float64(item.XPReward))
			metrics.ChallengesCompleted.WithLabelValues(challengeType).Inc()

			summary.CompletedChallenges = append(summary.CompletedChallenges, models.CompletedChallenge{
				Key:         item.Key,
				Description: item.Description,
				Type:        challengeType,
				XPReward:    item.XPReward,
			})
		}
	}

	// Rewards run after the recorder has already written the cached
	// level, so the grant recomputes it here from the latest experience.
	// As in the recorder, a failed derived write is stale, not fatal.
	if rewarded {
		level, xpToNext := LevelForExperience(experience)
		if err := t.store.SetLevel(ctx, userID, level, xpToNext); err != nil {
			log.Printf("[challenges] failed to set level for user %d: %v", userID, err)
		}
	}

	return summary, nil
}

// ── Sweep Worker ────────────────────────────────────────

// StartSweepWorker hourly removes challenge sets past expiry. Lazy
// regeneration already handles correctness; the sweep just keeps the
// table from accumulating dead rows.
func (t *Tracker) StartSweepWorker(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	log.Println("[challenges] sweep worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[challenges] sweep worker shutting down")
			return
		case now := <-ticker.C:
			n, err := t.store.DeleteExpiredChallenges(ctx, now)
			if err != nil {
				log.Printf("[challenges] sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[challenges] swept %d expired challenge sets", n)
			}
		}
	}
}
