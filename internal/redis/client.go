// Package redisclient holds the Redis connection and the cross-replica
// locks built on it.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-queue/internal/config"
)

const pingTimeout = 5 * time.Second

// NewRedisClient connects and verifies the server answers. Locks are short
// so the timeouts are tight.
func NewRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.RedisAddr,
		Username:        cfg.RedisUsername,
		Password:        cfg.RedisPassword,
		DB:              cfg.RedisDB,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
		PoolSize:        cfg.RedisPoolSize,
		MinIdleConns:    1,
		ConnMaxIdleTime: 5 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s (db %d): %w", cfg.RedisAddr, cfg.RedisDB, err)
	}

	return rdb, nil
}
