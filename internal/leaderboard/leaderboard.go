// Package leaderboard ranks users by accumulated progression stats.
// Boards are computed from Postgres and cached as snapshots; rankings
// are eventually consistent within the snapshot TTL.
package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fluenta/backend/internal/models"
)

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodAllTime = "alltime"

	CategoryXP     = "xp"
	CategoryStreak = "streak"
	CategoryLevel  = "level"
)

const maxLimit = 100

// ErrInvalidQuery rejects unknown period/category combinations.
var ErrInvalidQuery = errors.New("invalid leaderboard query")

type Aggregator struct {
	db    *sql.DB
	cache Cache
}

func NewAggregator(db *sql.DB, cache Cache) *Aggregator {
	if cache == nil {
		cache = NopCache{}
	}
	return &Aggregator{db: db, cache: cache}
}

// Leaderboard returns the ranked board for (period, category, module),
// marking the requesting user's own row. Streak and level boards only
// exist all-time; module filtering only applies to XP boards.
func (a *Aggregator) Leaderboard(ctx context.Context, userID int64, period, category, module string, limit int) (*models.LeaderboardResponse, error) {
	if err := validateQuery(period, category, module); err != nil {
		return nil, err
	}
	if limit < 1 || limit > maxLimit {
		limit = maxLimit
	}

	key := cacheKey(period, category, module)
	entries, hit := a.cache.GetEntries(ctx, key)
	if !hit {
		var err error
		entries, err = a.compute(ctx, period, category, module)
		if err != nil {
			return nil, err
		}
		if err := a.cache.SetEntries(ctx, key, entries); err != nil {
			log.Printf("[leaderboard] cache write failed for %s: %v", key, err)
		}
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}

	resp := &models.LeaderboardResponse{
		Period:   period,
		Category: category,
		Module:   module,
		Entries:  make([]models.LeaderboardEntry, len(entries)),
	}
	for i, e := range entries {
		e.IsCurrentUser = e.UserID == userID
		resp.Entries[i] = e
	}
	return resp, nil
}

func validateQuery(period, category, module string) error {
	switch period {
	case PeriodWeekly, PeriodMonthly, PeriodAllTime:
	default:
		return fmt.Errorf("%w: unknown period %q", ErrInvalidQuery, period)
	}
	switch category {
	case CategoryXP:
		if module != "" && !validModule(module) {
			return fmt.Errorf("%w: unknown module %q", ErrInvalidQuery, module)
		}
	case CategoryStreak, CategoryLevel:
		if period != PeriodAllTime {
			return fmt.Errorf("%w: %s boards are all-time only", ErrInvalidQuery, category)
		}
		if module != "" {
			return fmt.Errorf("%w: %s boards cannot be filtered by module", ErrInvalidQuery, category)
		}
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidQuery, category)
	}
	return nil
}

func validModule(module string) bool {
	for _, m := range models.Modules {
		if m == module {
			return true
		}
	}
	return false
}

func cacheKey(period, category, module string) string {
	if module == "" {
		return fmt.Sprintf("lb:%s:%s", period, category)
	}
	return fmt.Sprintf("lb:%s:%s:%s", period, category, module)
}

// ── Aggregation ─────────────────────────────────────────

// compute runs the ranking query for one board. Results come back
// ordered by value descending with user ID breaking ties, then get
// dense 1-based ranks assigned in Go.
func (a *Aggregator) compute(ctx context.Context, period, category, module string) ([]models.LeaderboardEntry, error) {
	var rows *sql.Rows
	var err error

	switch {
	case category == CategoryStreak:
		rows, err = a.db.QueryContext(ctx,
			`SELECT p.user_id, u.name, p.current_streak
			 FROM gamification_profiles p
			 JOIN users u ON u.id = p.user_id
			 WHERE p.current_streak > 0
			 ORDER BY p.current_streak DESC, p.user_id ASC
			 LIMIT $1`, maxLimit)

	case category == CategoryLevel:
		rows, err = a.db.QueryContext(ctx,
			`SELECT p.user_id, u.name, p.level
			 FROM gamification_profiles p
			 JOIN users u ON u.id = p.user_id
			 ORDER BY p.level DESC, p.experience DESC, p.user_id ASC
			 LIMIT $1`, maxLimit)

	case period == PeriodAllTime && module == "":
		rows, err = a.db.QueryContext(ctx,
			`SELECT p.user_id, u.name, p.experience
			 FROM gamification_profiles p
			 JOIN users u ON u.id = p.user_id
			 ORDER BY p.experience DESC, p.user_id ASC
			 LIMIT $1`, maxLimit)

	default:
		// Windowed or module-scoped XP comes from the activity log.
		query := `SELECT l.user_id, u.name, COALESCE(SUM(l.xp_earned), 0) AS total
			 FROM activity_log l
			 JOIN users u ON u.id = l.user_id
			 WHERE l.created_at >= $1`
		args := []interface{}{windowStart(period, time.Now())}
		if module != "" {
			query += ` AND l.module = $2`
			args = append(args, module)
		}
		query += fmt.Sprintf(`
			 GROUP BY l.user_id, u.name
			 ORDER BY total DESC, l.user_id ASC
			 LIMIT %d`, maxLimit)
		rows, err = a.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		var name string
		if err := rows.Scan(&e.UserID, &name, &e.Value); err != nil {
			return nil, err
		}
		e.DisplayName = models.User{Name: name}.DisplayName()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rankEntries(entries), nil
}

// windowStart returns the inclusive lower bound of a rolling window.
// All-time windows start at the zero time.
func windowStart(period string, now time.Time) time.Time {
	switch period {
	case PeriodWeekly:
		return now.UTC().AddDate(0, 0, -7)
	case PeriodMonthly:
		return now.UTC().AddDate(0, -1, 0)
	default:
		return time.Time{}
	}
}

// rankEntries assigns dense 1-based ranks to entries already sorted by
// value descending. Equal values share a rank; the next distinct value
// takes the following rank.
func rankEntries(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	rank := 0
	var prev int64
	for i := range entries {
		if rank == 0 || entries[i].Value != prev {
			rank++
			prev = entries[i].Value
		}
		entries[i].Rank = rank
	}
	return entries
}

// ── Refresh Worker ──────────────────────────────────────

// StartRefreshWorker precomputes the common boards into the cache every
// five minutes so the first reader after expiry never pays for the
// aggregation queries.
func (a *Aggregator) StartRefreshWorker(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	log.Println("[leaderboard] refresh worker started")

	boards := []struct{ period, category string }{
		{PeriodAllTime, CategoryXP},
		{PeriodWeekly, CategoryXP},
		{PeriodMonthly, CategoryXP},
		{PeriodAllTime, CategoryStreak},
		{PeriodAllTime, CategoryLevel},
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("[leaderboard] refresh worker shutting down")
			return
		case <-ticker.C:
			for _, b := range boards {
				entries, err := a.compute(ctx, b.period, b.category, "")
				if err != nil {
					log.Printf("[leaderboard] refresh failed for %s/%s: %v", b.period, b.category, err)
					continue
				}
				if err := a.cache.SetEntries(ctx, cacheKey(b.period, b.category, ""), entries); err != nil {
					log.Printf("[leaderboard] refresh cache write failed for %s/%s: %v", b.period, b.category, err)
				}
			}
		}
	}
}
