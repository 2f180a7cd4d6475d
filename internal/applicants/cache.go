package applicants

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"recruiting-pipeline/internal/common/config"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/common/metrics"
)

// CountCache holds the applicant total in redis. A nil client disables it.
type CountCache struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	logger logger.Logger
}

func NewCountCache(rdb *redis.Client, cfg config.CacheConfig, log logger.Logger) *CountCache {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "recruiting"
	}
	ttl := time.Duration(cfg.CountTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CountCache{
		rdb:    rdb,
		key:    prefix + ":applicants:count",
		ttl:    ttl,
		logger: logger.Component(log, "count-cache"),
	}
}

func (c *CountCache) Key() string { return c.key }

// Get returns the cached count. Redis errors count as a miss.
func (c *CountCache) Get(ctx context.Context) (int, bool) {
	if c == nil || c.rdb == nil {
		metrics.CountCacheLookups.WithLabelValues("disabled").Inc()
		return 0, false
	}
	val, err := c.rdb.Get(ctx, c.key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Count cache read failed", map[string]interface{}{"error": err.Error()})
			metrics.CountCacheLookups.WithLabelValues("error").Inc()
		} else {
			metrics.CountCacheLookups.WithLabelValues("miss").Inc()
		}
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		metrics.CountCacheLookups.WithLabelValues("error").Inc()
		return 0, false
	}
	metrics.CountCacheLookups.WithLabelValues("hit").Inc()
	return n, true
}

func (c *CountCache) Set(ctx context.Context, n int) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key, strconv.Itoa(n), c.ttl).Err(); err != nil {
		c.logger.Warn("Count cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (c *CountCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		c.logger.Warn("Count cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}
