package database

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/photo-tournament-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// InitRedis opens the Redis client and verifies it with a PING.
func InitRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cannot connect to redis at %s: %w", cfg.Address, err)
	}
	return rdb, nil
}
