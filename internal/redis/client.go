package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *redis.Client
}

func New(dsn string) (*Client, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 5
	opts.ConnMaxIdleTime = 5 * time.Minute
	opts.ConnMaxLifetime = 30 * time.Minute

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) RDB() *redis.Client {
	return c.rdb
}

// Cache helpers
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// SlidingWindowAllow counts a hit against key and reports whether the caller
// is still under limit for the window. retryAfter is only meaningful when
// allowed is false.
func (c *Client) SlidingWindowAllow(ctx context.Context, key string, limit int64, window time.Duration) (allowed bool, retryAfter time.Duration, err error) {
	now := time.Now()
	oldest := now.Add(-window).Unix()

	if err := c.rdb.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", oldest)).Err(); err != nil {
		return false, 0, err
	}

	count, err := c.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}

	if count >= limit {
		oldestReq, err := c.rdb.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err == nil && len(oldestReq) > 0 {
			resetAt := time.Unix(int64(oldestReq[0].Score), 0).Add(window)
			retryAfter = time.Until(resetAt)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return false, retryAfter, nil
	}

	pipe := c.rdb.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.Unix()), Member: fmt.Sprintf("%d", now.UnixNano())})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	return true, 0, nil
}
