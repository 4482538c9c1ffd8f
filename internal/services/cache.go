package services

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// SummaryCache stores finished summaries by source. Failures are treated as
// misses; the cache never fails a submission.
type SummaryCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, summary string)
}

type RedisSummaryCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSummaryCache(redisClient *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{redis: redisClient, ttl: ttl}
}

func (c *RedisSummaryCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("summary cache read failed for %s: %v", key, err)
		}
		return "", false
	}
	return val, val != ""
}

func (c *RedisSummaryCache) Set(ctx context.Context, key, summary string) {
	if err := c.redis.Set(ctx, key, summary, c.ttl).Err(); err != nil {
		log.Printf("summary cache write failed for %s: %v", key, err)
	}
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string) (string, bool) { return "", false }
func (noopCache) Set(ctx context.Context, key, summary string)       {}
