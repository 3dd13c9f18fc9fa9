package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"nutriplan"
)

const cacheKeyPrefix = "nutriplan:"

// redisAPI is the subset of the Redis client the cache needs.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// CachedStore is a read-through cache of active plans in front of another PlanStore.
// Cache failures are logged and fall through to the wrapped store.
type CachedStore struct {
	inner nutriplan.PlanStore
	redis redisAPI
	ttl   time.Duration
}

func NewCachedStore(inner nutriplan.PlanStore, client redisAPI, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, redis: client, ttl: ttl}
}

func activeCacheKey(userID string) string { return cacheKeyPrefix + "active:" + userID }
func ownerCacheKey(planID string) string  { return cacheKeyPrefix + "owner:" + planID }

func (c *CachedStore) LoadActivePlan(ctx context.Context, userID string) (nutriplan.StoredPlan, error) {
	data, err := c.redis.Get(ctx, activeCacheKey(userID)).Bytes()
	switch {
	case err == nil:
		var sp nutriplan.StoredPlan
		if jerr := json.Unmarshal(data, &sp); jerr == nil {
			return sp, nil
		}
		slog.Warn("STORE: Dropping undecodable cache entry", "user_id", userID)
	case !errors.Is(err, redis.Nil):
		slog.Warn("STORE: Cache read failed", "user_id", userID, "error", err)
	}

	sp, err := c.inner.LoadActivePlan(ctx, userID)
	if err != nil {
		return sp, err
	}
	c.fill(ctx, sp)
	return sp, nil
}

func (c *CachedStore) ArchiveActivePlan(ctx context.Context, userID string) error {
	if err := c.inner.ArchiveActivePlan(ctx, userID); err != nil {
		return err
	}
	c.evict(ctx, activeCacheKey(userID))
	return nil
}

func (c *CachedStore) SaveNewActivePlan(ctx context.Context, userID string, plan nutriplan.Plan) (string, error) {
	id, err := c.inner.SaveNewActivePlan(ctx, userID, plan)
	if err != nil {
		return "", err
	}
	c.evict(ctx, activeCacheKey(userID))
	c.set(ctx, ownerCacheKey(id), userID)
	return id, nil
}

func (c *CachedStore) UpdateActivePlan(ctx context.Context, planID string, plan nutriplan.Plan) error {
	if err := c.inner.UpdateActivePlan(ctx, planID, plan); err != nil {
		return err
	}

	userID, err := c.redis.Get(ctx, ownerCacheKey(planID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("STORE: Cache owner lookup failed", "plan_id", planID, "error", err)
		}
		return nil
	}
	c.evict(ctx, activeCacheKey(userID))
	return nil
}

func (c *CachedStore) fill(ctx context.Context, sp nutriplan.StoredPlan) {
	data, err := json.Marshal(sp)
	if err != nil {
		return
	}
	c.set(ctx, activeCacheKey(sp.UserID), data)
	c.set(ctx, ownerCacheKey(sp.ID), sp.UserID)
}

func (c *CachedStore) set(ctx context.Context, key string, value any) {
	if err := c.redis.Set(ctx, key, value, c.ttl).Err(); err != nil {
		slog.Warn("STORE: Cache write failed", "key", key, "error", err)
	}
}

func (c *CachedStore) evict(ctx context.Context, key string) {
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		slog.Warn("STORE: Cache eviction failed", "key", key, "error", err)
	}
}
