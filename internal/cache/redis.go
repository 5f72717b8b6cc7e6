package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const reportTTL = 24 * time.Hour

// RedisCache keeps per-date generation reports so repeated admin reads do
// not recompute them from the log table. Every caller treats the cache as
// optional (fail-open).
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("Connected to Redis at %s", redisURL)
	return &RedisCache{client: client}, nil
}

// GetReport returns the cached report JSON for date, unmarshalled into dst.
// A nil receiver, a miss, or a broken payload all report false.
func (c *RedisCache) GetReport(ctx context.Context, date time.Time, dst interface{}) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, reportKey(date)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// SetReport caches the report for date. Errors are logged, never returned.
func (c *RedisCache) SetReport(ctx context.Context, date time.Time, report interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, reportKey(date), data, reportTTL).Err(); err != nil {
		log.Printf("[Cache] Failed to cache report for %s: %v", date.Format("2006-01-02"), err)
	}
}

// InvalidateReport drops the cached report for date, e.g. after a fresh
// generation pass changed the counts.
func (c *RedisCache) InvalidateReport(ctx context.Context, date time.Time) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, reportKey(date)).Err(); err != nil {
		log.Printf("[Cache] Failed to invalidate report for %s: %v", date.Format("2006-01-02"), err)
	}
}

func (c *RedisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func reportKey(date time.Time) string {
	return "generation:report:" + date.Format("2006-01-02")
}
