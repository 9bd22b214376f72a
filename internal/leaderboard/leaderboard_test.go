package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/fluenta/backend/internal/models"
)

func TestRankEntriesDense(t *testing.T) {
	entries := []models.LeaderboardEntry{
		{UserID: 3, Value: 500},
		{UserID: 1, Value: 400},
		{UserID: 7, Value: 400},
		{UserID: 2, Value: 100},
	}

	ranked := rankEntries(entries)

	wantRanks := []int{1, 2, 2, 3}
	for i, want := range wantRanks {
		if ranked[i].Rank != want {
			t.Errorf("entry %d (user %d) rank = %d, want %d", i, ranked[i].UserID, ranked[i].Rank, want)
		}
	}
}

func TestRankEntriesAllTied(t *testing.T) {
	entries := []models.LeaderboardEntry{
		{UserID: 1, Value: 50},
		{UserID: 2, Value: 50},
		{UserID: 3, Value: 50},
	}

	for _, e := range rankEntries(entries) {
		if e.Rank != 1 {
			t.Errorf("user %d rank = %d, want 1", e.UserID, e.Rank)
		}
	}
}

func TestRankEntriesEmpty(t *testing.T) {
	if got := rankEntries(nil); len(got) != 0 {
		t.Errorf("rankEntries(nil) returned %d entries", len(got))
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		period, category, module string
		wantErr                  bool
	}{
		{PeriodAllTime, CategoryXP, "", false},
		{PeriodWeekly, CategoryXP, "", false},
		{PeriodMonthly, CategoryXP, "reading", false},
		{PeriodAllTime, CategoryStreak, "", false},
		{PeriodAllTime, CategoryLevel, "", false},
		{PeriodWeekly, CategoryXP, "vocabulary", false},
		{PeriodWeekly, CategoryXP, "astronomy", true},
		{PeriodAllTime, CategoryXP, "READING", true},
		{"yearly", CategoryXP, "", true},
		{PeriodAllTime, "wealth", "", true},
		{PeriodWeekly, CategoryStreak, "", true},
		{PeriodAllTime, CategoryLevel, "reading", true},
	}

	for _, tt := range tests {
		err := validateQuery(tt.period, tt.category, tt.module)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateQuery(%q, %q, %q) error = %v, wantErr %v",
				tt.period, tt.category, tt.module, err, tt.wantErr)
		}
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	if got := windowStart(PeriodWeekly, now); !got.Equal(now.AddDate(0, 0, -7)) {
		t.Errorf("weekly window start = %v", got)
	}
	if got := windowStart(PeriodMonthly, now); !got.Equal(now.AddDate(0, -1, 0)) {
		t.Errorf("monthly window start = %v", got)
	}
	if got := windowStart(PeriodAllTime, now); !got.IsZero() {
		t.Errorf("alltime window start = %v, want zero time", got)
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey(PeriodWeekly, CategoryXP, ""); got != "lb:weekly:xp" {
		t.Errorf("cacheKey = %q", got)
	}
	if got := cacheKey(PeriodAllTime, CategoryXP, "reading"); got != "lb:alltime:xp:reading" {
		t.Errorf("module cacheKey = %q", got)
	}
}

func TestNopCache(t *testing.T) {
	var cache Cache = NopCache{}
	ctx := context.Background()

	if err := cache.SetEntries(ctx, "k", []models.LeaderboardEntry{{UserID: 1}}); err != nil {
		t.Fatalf("SetEntries: %v", err)
	}
	if _, hit := cache.GetEntries(ctx, "k"); hit {
		t.Error("NopCache should never hit")
	}
}
