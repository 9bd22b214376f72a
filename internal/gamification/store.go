package gamification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fluenta/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Profile ─────────────────────────────────────────────

// GetOrCreateProfile lazily creates the profile row on first touch.
// Creation races are absorbed by the unique primary key: the insert is
// ON CONFLICT DO NOTHING, and whichever request loses the race simply
// reads the winner's row. No locks.
func (s *Store) GetOrCreateProfile(ctx context.Context, userID int64) (*models.GamificationProfile, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gamification_profiles (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		// Older Postgres setups can still surface the duplicate key
		// directly; treat it the same as a lost race.
		if pqErr, ok := err.(*pq.Error); !ok || pqErr.Code != "23505" {
			return nil, fmt.Errorf("upsert profile: %w", err)
		}
	}

	return s.GetProfile(ctx, userID)
}

// GetProfile loads the full profile document: core row, module
// counters, and unlock records.
func (s *Store) GetProfile(ctx context.Context, userID int64) (*models.GamificationProfile, error) {
	var p models.GamificationProfile
	var lastActivity sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, level, experience, experience_to_next_level,
		        current_streak, longest_streak, last_activity_date,
		        total_xp, active_days, created_at, updated_at
		 FROM gamification_profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.Level, &p.Experience, &p.ExperienceToNextLevel,
		&p.Streak.Current, &p.Streak.Longest, &lastActivity,
		&p.Stats.TotalXP, &p.Stats.ActiveDays, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if lastActivity.Valid {
		t := lastActivity.Time.UTC()
		p.Streak.LastActivity = &t
	}

	p.Stats.ModuleActivity = make(map[string]int)
	rows, err := s.db.QueryContext(ctx,
		`SELECT module, activity_count FROM user_module_activity WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get module activity: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var module string
		var count int
		if err := rows.Scan(&module, &count); err != nil {
			return nil, err
		}
		p.Stats.ModuleActivity[module] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	p.Achievements, err = s.listUnlocks(ctx, "profile_achievements", "achievement_id", userID)
	if err != nil {
		return nil, err
	}
	p.Badges, err = s.listUnlocks(ctx, "profile_badges", "badge_id", userID)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (s *Store) listUnlocks(ctx context.Context, table, idColumn string, userID int64) ([]models.UnlockRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, unlocked_at FROM %s WHERE user_id = $1 ORDER BY unlocked_at, %s`,
			idColumn, table, idColumn),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	records := []models.UnlockRecord{}
	for rows.Next() {
		var r models.UnlockRecord
		if err := rows.Scan(&r.ID, &r.UnlockedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ── XP Operations ───────────────────────────────────────

// AddXP atomically increments experience and total_xp and returns the
// post-increment experience. XP must never go through a load-then-store
// cycle: concurrent activities for the same user would lose updates.
func (s *Store) AddXP(ctx context.Context, userID int64, delta int) (int, error) {
	var experience int
	err := s.db.QueryRowContext(ctx,
		`UPDATE gamification_profiles SET
		    experience = experience + $2,
		    total_xp = total_xp + $2,
		    updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING experience`,
		userID, delta,
	).Scan(&experience)
	if err != nil {
		return 0, fmt.Errorf("add xp: %w", err)
	}
	return experience, nil
}

// SetLevel writes the cached curve values. This is a derived follow-up
// to AddXP and may be briefly stale under concurrency; the level-sync
// pass reconciles any drift.
func (s *Store) SetLevel(ctx context.Context, userID int64, level, xpToNext int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE gamification_profiles SET
		    level = $2, experience_to_next_level = $3, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, level, xpToNext,
	)
	return err
}

// ── Streak & Counters ───────────────────────────────────

// UpdateStreak persists a streak transition. The streak fields are
// last-write-wins (two same-day requests write the same values), but
// active_days is additive and must count each calendar day once: the
// increment is decided inside the UPDATE against the row's stored
// last_activity_date, so concurrent first-activities-of-the-day cannot
// both pay it — whichever lands second sees the date already moved.
func (s *Store) UpdateStreak(ctx context.Context, userID int64, streak models.StreakInfo) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE gamification_profiles SET
		    current_streak = $2, longest_streak = $3,
		    active_days = active_days + (CASE WHEN last_activity_date IS DISTINCT FROM $4 THEN 1 ELSE 0 END),
		    last_activity_date = $4,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		userID, streak.Current, streak.Longest, streak.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return nil
}

// IncrementModuleActivity atomically bumps the per-module counter and
// returns the new count.
func (s *Store) IncrementModuleActivity(ctx context.Context, userID int64, module string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO user_module_activity (user_id, module, activity_count)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (user_id, module)
		 DO UPDATE SET activity_count = user_module_activity.activity_count + 1
		 RETURNING activity_count`,
		userID, module,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment module activity: %w", err)
	}
	return count, nil
}

// ── Unlocks ─────────────────────────────────────────────

// UnlockAchievement records an unlock. The unique index makes the grant
// idempotent; the returned bool is true only for the request that
// actually inserted the row, so rewards are paid exactly once.
func (s *Store) UnlockAchievement(ctx context.Context, userID int64, achievementID string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO profile_achievements (user_id, achievement_id, unlocked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		userID, achievementID, now,
	)
	if err != nil {
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// UnlockBadge mirrors UnlockAchievement for badges.
func (s *Store) UnlockBadge(ctx context.Context, userID int64, badgeID string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO profile_badges (user_id, badge_id, unlocked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, badge_id) DO NOTHING`,
		userID, badgeID, now,
	)
	if err != nil {
		return false, fmt.Errorf("unlock badge: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ── Activity Log ────────────────────────────────────────

// AppendActivityLog writes one audit row. Append-only; callers treat a
// failure here as loggable, not fatal — losing an audit entry is
// acceptable, losing XP is not.
func (s *Store) AppendActivityLog(ctx context.Context, entry models.ActivityLogEntry) error {
	var metaJSON *string
	if entry.Metadata != nil {
		if b, err := json.Marshal(entry.Metadata); err == nil {
			str := string(b)
			metaJSON = &str
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (user_id, module, activity_type, xp_earned, metadata)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.UserID, entry.Module, entry.ActivityType, entry.XPEarned, metaJSON,
	)
	return err
}

// ── Challenges ──────────────────────────────────────────

// GetChallengeSet loads the current set for one period type, or nil if
// the user has none yet.
func (s *Store) GetChallengeSet(ctx context.Context, userID int64, challengeType string) (*models.Challenge, error) {
	var c models.Challenge
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, challenge_type, refreshed_at, expires_at
		 FROM challenges WHERE user_id = $1 AND challenge_type = $2`,
		userID, challengeType,
	).Scan(&c.ID, &c.UserID, &c.ChallengeType, &c.RefreshedAt, &c.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge set: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, challenge_key, description, module, activity_type,
		        target, progress, completed, xp_reward
		 FROM challenge_items WHERE challenge_id = $1 ORDER BY slot`,
		c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get challenge items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item models.ChallengeItem
		if err := rows.Scan(&item.ID, &item.Key, &item.Description, &item.Module,
			&item.ActivityType, &item.Target, &item.Progress, &item.Completed, &item.XPReward); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReplaceChallengeSet swaps the stored set for one period type with a
// freshly generated one, transactionally.
func (s *Store) ReplaceChallengeSet(ctx context.Context, set *models.Challenge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace challenge set: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM challenges WHERE user_id = $1 AND challenge_type = $2`,
		set.UserID, set.ChallengeType,
	)
	if err != nil {
		return fmt.Errorf("delete old challenge set: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO challenges (user_id, challenge_type, refreshed_at, expires_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		set.UserID, set.ChallengeType, set.RefreshedAt, set.ExpiresAt,
	).Scan(&set.ID)
	if err != nil {
		return fmt.Errorf("insert challenge set: %w", err)
	}

	for i := range set.Items {
		item := &set.Items[i]
		err = tx.QueryRowContext(ctx,
			`INSERT INTO challenge_items
			   (challenge_id, slot, challenge_key, description, module, activity_type, target, progress, completed, xp_reward)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, FALSE, $8)
			 RETURNING id`,
			set.ID, i, item.Key, item.Description, item.Module, item.ActivityType, item.Target, item.XPReward,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert challenge item: %w", err)
		}
	}

	return tx.Commit()
}

// IncrementChallengeProgress bumps one sub-challenge's progress,
// capped at target, skipping completed items entirely. Returns the
// post-update progress and target (ok=false if the item was already
// completed or missing).
func (s *Store) IncrementChallengeProgress(ctx context.Context, itemID int64, delta int) (progress, target int, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`UPDATE challenge_items
		 SET progress = LEAST(progress + $2, target)
		 WHERE id = $1 AND completed = FALSE
		 RETURNING progress, target`,
		itemID, delta,
	).Scan(&progress, &target)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("increment challenge progress: %w", err)
	}
	return progress, target, true, nil
}

// CompleteChallengeItem performs the exactly-once false→true completion
// transition. Only the request whose UPDATE actually flips the row gets
// true back, so the reward is granted exactly once even under retries.
func (s *Store) CompleteChallengeItem(ctx context.Context, itemID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE challenge_items SET completed = TRUE
		 WHERE id = $1 AND completed = FALSE AND progress >= target`,
		itemID,
	)
	if err != nil {
		return false, fmt.Errorf("complete challenge item: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// DeleteExpiredChallenges removes challenge sets past their expiry;
// items go with them via ON DELETE CASCADE.
func (s *Store) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM challenges WHERE expires_at < $1`, now,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired challenges: %w", err)
	}
	return result.RowsAffected()
}

// ── Level Sync ──────────────────────────────────────────

// ProfileLevelRow is the slice of profile state the level-sync pass needs.
type ProfileLevelRow struct {
	UserID                int64
	Experience            int
	Level                 int
	ExperienceToNextLevel int
}

// ListProfileLevels streams every profile's stored curve values.
func (s *Store) ListProfileLevels(ctx context.Context) ([]ProfileLevelRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, experience, level, experience_to_next_level
		 FROM gamification_profiles`,
	)
	if err != nil {
		return nil, fmt.Errorf("list profile levels: %w", err)
	}
	defer rows.Close()

	var out []ProfileLevelRow
	for rows.Next() {
		var r ProfileLevelRow
		if err := rows.Scan(&r.UserID, &r.Experience, &r.Level, &r.ExperienceToNextLevel); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
