package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fluenta/backend/internal/models"
)

// snapshotTTL bounds leaderboard staleness. A board computed now may be
// served for up to this long.
const snapshotTTL = 5 * time.Minute

// RedisCache stores leaderboard snapshots as JSON blobs in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis instance at redisURL and verifies
// the connection with a ping.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (r *RedisCache) GetEntries(ctx context.Context, key string) ([]models.LeaderboardEntry, bool) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[leaderboard] cache read failed for %s: %v", key, err)
		return nil, false
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		log.Printf("[leaderboard] cache entry corrupt for %s: %v", key, err)
		return nil, false
	}
	return entries, true
}

func (r *RedisCache) SetEntries(ctx context.Context, key string, entries []models.LeaderboardEntry) error {
	marshaled, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, marshaled, snapshotTTL).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
