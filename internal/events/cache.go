package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/encorelive/backend/internal/models"
)

// upcomingKey caches the default (unfiltered) public listing. Filtered
// queries go straight to Postgres.
const upcomingKey = "events:upcoming"

// Cache keeps the public events listing in Redis so the marketing site's
// calendar page doesn't hit Postgres on every render. Misses and Redis
// failures fall through to the database.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache creates a listing cache.
func NewCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

// GetUpcoming returns the cached listing, if any.
func (c *Cache) GetUpcoming(ctx context.Context) ([]models.Event, bool) {
	raw, err := c.rdb.Get(ctx, upcomingKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("events cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var list []models.Event
	if err := json.Unmarshal(raw, &list); err != nil {
		c.logger.Warn("events cache decode failed", zap.Error(err))
		return nil, false
	}
	return list, true
}

// SetUpcoming stores the listing for the configured TTL.
func (c *Cache) SetUpcoming(ctx context.Context, list []models.Event) {
	raw, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, upcomingKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("events cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached listing. Called after generation runs create
// events and after admin event mutations.
func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, upcomingKey).Err(); err != nil {
		c.logger.Warn("events cache invalidation failed", zap.Error(err))
	}
}
