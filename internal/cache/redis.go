package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oggyb/matchbot/internal/config"
	"github.com/redis/go-redis/v9"
)

// likeCountTTL bounds how stale the "liked by" counter on a profile card can get.
const likeCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

// NewFromClient wraps an existing client (tests point it at miniredis).
func NewFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

// GetEx reads key and pushes its expiry out to ttl in one round trip.
// A missing key returns redis.Nil.
func (c *RedisCache) GetEx(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return c.Client.GetEx(ctx, key, ttl).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForLikeCount generates Redis key for a profile's like count
func (c *RedisCache) KeyForLikeCount(profileID uint64) string {
	return fmt.Sprintf("likes:count:%d", profileID)
}

func (c *RedisCache) UpdateLikeCount(ctx context.Context, profileID uint64, count int64) error {
	// Always refresh TTL when updating
	return c.Client.Set(ctx, c.KeyForLikeCount(profileID), count, likeCountTTL).Err()
}

// GetLikeCount returns the cached count and whether it was present.
func (c *RedisCache) GetLikeCount(ctx context.Context, profileID uint64) (int64, bool, error) {
	key := c.KeyForLikeCount(profileID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// InvalidateLikeCount drops the cached count so the next read goes to the DB.
func (c *RedisCache) InvalidateLikeCount(ctx context.Context, profileID uint64) error {
	return c.Client.Del(ctx, c.KeyForLikeCount(profileID)).Err()
}
