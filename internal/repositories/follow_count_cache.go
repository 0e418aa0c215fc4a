package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CountKind selects which side of the follow graph a cached count belongs to
type CountKind string

const (
	FollowersCount CountKind = "followers"
	FollowingCount CountKind = "following"

	countKeyPrefix = "follow:count:"
)

// FollowCountCache caches follower/following counts keyed by hex user id
type FollowCountCache interface {
	Get(ctx context.Context, kind CountKind, userID string) (int64, bool, error)
	Set(ctx context.Context, kind CountKind, userID string, count int64) error
	Invalidate(ctx context.Context, followID, authorID string) error
}

// RedisFollowCountCache implements FollowCountCache backed by Redis
type RedisFollowCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFollowCountCache creates a cache whose entries expire after ttl
func NewRedisFollowCountCache(client *redis.Client, ttl time.Duration) *RedisFollowCountCache {
	return &RedisFollowCountCache{client: client, ttl: ttl}
}

func countKey(kind CountKind, userID string) string {
	return countKeyPrefix + string(kind) + ":" + userID
}

// Get returns found=false on a cache miss
func (c *RedisFollowCountCache) Get(ctx context.Context, kind CountKind, userID string) (int64, bool, error) {
	n, err := c.client.Get(ctx, countKey(kind, userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return n, true, nil
}

func (c *RedisFollowCountCache) Set(ctx context.Context, kind CountKind, userID string, count int64) error {
	return c.client.Set(ctx, countKey(kind, userID), count, c.ttl).Err()
}

// Invalidate drops the two counts touched by an edge change: the followed
// user's followers and the author's following.
func (c *RedisFollowCountCache) Invalidate(ctx context.Context, followID, authorID string) error {
	return c.client.Del(ctx, countKey(FollowersCount, followID), countKey(FollowingCount, authorID)).Err()
}

var _ FollowCountCache = (*RedisFollowCountCache)(nil)
