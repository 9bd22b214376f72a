package leaderboard

import (
	"context"

	"github.com/fluenta/backend/internal/models"
)

// Cache holds computed leaderboard snapshots so repeated reads within
// the staleness window skip the aggregation queries. Entries are cached
// without the per-viewer IsCurrentUser flag; the aggregator stamps it
// after the fetch.
type Cache interface {
	GetEntries(ctx context.Context, key string) ([]models.LeaderboardEntry, bool)
	SetEntries(ctx context.Context, key string, entries []models.LeaderboardEntry) error
	Close() error
}

// NopCache is the fallback when no Redis URL is configured. Every read
// is a miss and every write is discarded.
type NopCache struct{}

func (NopCache) GetEntries(ctx context.Context, key string) ([]models.LeaderboardEntry, bool) {
	return nil, false
}

func (NopCache) SetEntries(ctx context.Context, key string, entries []models.LeaderboardEntry) error {
	return nil
}

func (NopCache) Close() error { return nil }
