package database

import (
	"context"
	"fmt"
	"time"

	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/redis/go-redis/v9"
)

// The cache is read on every lookup request but written rarely, so a small
// pool with short timeouts keeps a slow Redis from stalling the agent.
const (
	RedisPoolSize     = 4
	RedisDialTimeout  = 3 * time.Second
	RedisReadTimeout  = 2 * time.Second
	RedisWriteTimeout = 2 * time.Second
	RedisPingTimeout  = 5 * time.Second
)

// ParseRedisOptions parses redisURL and applies the agent's pool settings
// where the URL leaves them unset.
func ParseRedisOptions(redisURL string) (*redis.Options, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = RedisPoolSize
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = RedisDialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = RedisReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = RedisWriteTimeout
	}
	return opts, nil
}

func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := ParseRedisOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, RedisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.Addr, err)
	}

	logger.For("database").Infow("Redis client created",
		"addr", opts.Addr,
		"db", opts.DB,
		"pool_size", opts.PoolSize)

	return client, nil
}
